package radio

import (
	"github.com/radioconsole/rcd/internal/domain"
	"github.com/radioconsole/rcd/internal/sb9600"
)

// SetTransmit keys or unkeys the radio through the head's PTT button. RX-only
// radios refuse to key.
func (e *Engine) SetTransmit(on bool) bool {
	if on && e.cfg.RxOnly {
		e.logger.Warn("transmit refused on rx-only radio")
		return false
	}
	code, ok := e.cfg.Binding.Head().ButtonCode(pttButton)
	if !ok {
		e.logger.Warn("control head has no PTT button")
		return false
	}
	return e.enqueue(frameCommand(sb9600.ButtonFrame(code, on)))
}

// ChangeChannel presses and, after a short delay, releases the channel button.
// A CHUP/CHDN softkey binding wins over the head's default channel buttons.
func (e *Engine) ChangeChannel(down bool) bool {
	key, fallback := domain.SoftkeyCHUP, e.channelButton(false)
	if down {
		key, fallback = domain.SoftkeyCHDN, e.channelButton(true)
	}

	code, err := e.cfg.Binding.ButtonCodeForSoftkey(key)
	if err != nil {
		var ok bool
		code, ok = e.cfg.Binding.Head().ButtonCode(fallback)
		if fallback == "" || !ok {
			e.logger.Warn("no channel button available", "softkey", string(key))
			return false
		}
	}
	if !e.enqueue(frameCommand(sb9600.ButtonFrame(code, true))) {
		return false
	}
	e.queue.PushAfter(frameCommand(sb9600.ButtonFrame(code, false)), e.timing.ChannelRelease)
	return true
}

func (e *Engine) channelButton(down bool) string {
	up, dn := e.cfg.Binding.Head().ChannelButtons()
	if down {
		return dn
	}
	return up
}

// PressButton presses the button bound to a softkey.
func (e *Engine) PressButton(key domain.SoftkeyName) bool {
	return e.button(key, true)
}

// ReleaseButton releases the button bound to a softkey.
func (e *Engine) ReleaseButton(key domain.SoftkeyName) bool {
	return e.button(key, false)
}

func (e *Engine) button(key domain.SoftkeyName, pressed bool) bool {
	code, err := e.cfg.Binding.ButtonCodeForSoftkey(key)
	if err != nil {
		e.logger.Warn("softkey has no button", "softkey", string(key), "error", err)
		return false
	}
	return e.enqueue(frameCommand(sb9600.ButtonFrame(code, pressed)))
}

func (e *Engine) enqueue(cmd command) bool {
	if !e.Running() {
		e.logger.Warn("command while radio stopped", "command", cmd.Desc, "error", ErrNotRunning)
		return false
	}
	e.queue.Push(cmd)
	return true
}
