package radio

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/radioconsole/rcd/internal/controlhead"
	"github.com/radioconsole/rcd/internal/domain"
	"github.com/radioconsole/rcd/internal/sb9600"
)

const (
	setbutMonitor  = 0x01
	setbutTransmit = 0x03

	sqlIdle     = 0x00
	sqlScanning = 0x01
	sqlCarrier  = 0x03

	// opcode the XTL series emits with no documented meaning
	opXTLUnknown sb9600.Opcode = 0x60
)

type DispatcherConfig struct {
	Binding        *controlhead.Binding
	ZoneLookups    []domain.TextLookup
	ChannelLookups []domain.TextLookup
	// UseLEDsForRx lets the receive indicator drive Receiving/Idle alongside SQLDET.
	UseLEDsForRx bool
}

// Dispatcher turns decoded frames into RadioStatus changes. It performs no I/O;
// callers collect the changed flag with TakeChanged.
type Dispatcher struct {
	logger         *slog.Logger
	status         *domain.Status
	head           *controlhead.Map
	binding        *controlhead.Binding
	display        *Display
	zoneLookups    []domain.TextLookup
	channelLookups []domain.TextLookup
	useLEDsForRx   bool

	// last seen state of the primary and secondary priority indicators
	priority [2]domain.SoftkeyState
	changed  bool
}

func NewDispatcher(logger *slog.Logger, status *domain.Status, cfg DispatcherConfig) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	head := cfg.Binding.Head()
	return &Dispatcher{
		logger:         logger,
		status:         status,
		head:           head,
		binding:        cfg.Binding,
		display:        NewDisplay(head.DisplayRows(), head.DisplayWidth()),
		zoneLookups:    cfg.ZoneLookups,
		channelLookups: cfg.ChannelLookups,
		useLEDsForRx:   cfg.UseLEDsForRx,
	}
}

// TakeChanged reports whether the status changed since the last call and clears the flag.
func (d *Dispatcher) TakeChanged() bool {
	changed := d.changed
	d.changed = false
	return changed
}

func (d *Dispatcher) update(fn func(*domain.RadioStatus)) {
	if d.status.Update(fn) {
		d.changed = true
	}
}

// SetState is used by the transport loop for lifecycle states it owns.
func (d *Dispatcher) SetState(state domain.RadioState) {
	d.update(func(s *domain.RadioStatus) { s.State = state })
}

// MarkReady moves a connecting radio to Idle.
func (d *Dispatcher) MarkReady() {
	d.update(func(s *domain.RadioStatus) {
		if s.State == domain.StateConnecting {
			s.State = domain.StateIdle
		}
	})
}

// Reset clears display and indicator memory ahead of a new session.
func (d *Dispatcher) Reset() {
	d.display.Clear()
	d.priority = [2]domain.SoftkeyState{}
}

// HandleFrame applies one link-layer frame and reports whether the link must
// switch to extended framing for the next message.
func (d *Dispatcher) HandleFrame(f sb9600.Frame) bool {
	switch f.Address {
	case sb9600.AddrBroadcast:
		return d.handleBroadcast(f)
	case sb9600.AddrRadio:
		d.handleRadio(f)
	case sb9600.AddrFrontPanel:
		d.handleFrontPanel(f)
	default:
		d.logger.Warn("unhandled SB9600 address", "frame", f.String(), "address", fmt.Sprintf("0x%02X", byte(f.Address)))
	}
	return false
}

// broadcastTarget splits the broadcast data byte into group (upper 3 bits) and
// module address (lower 5 bits).
func broadcastTarget(b byte) (group, address byte) {
	return (b & 0xE0) >> 5, b & 0x1F
}

func (d *Dispatcher) handleBroadcast(f sb9600.Frame) bool {
	group, address := broadcastTarget(f.Data[1])
	switch f.Opcode {
	case sb9600.OpEPREQ:
		protocol := (f.Data[0] & 0x30) >> 4
		baud := f.Data[0] & 0x0F
		if protocol != sb9600.EPREQProtocolSBEP {
			d.logger.Warn("EPREQ for unknown protocol", "protocol", protocol)
			return false
		}
		if baud != sb9600.EPREQBaud9600 {
			d.logger.Error("EPREQ for unsupported SBEP baud rate", "baud_code", baud)
			return false
		}
		d.logger.Debug("entering SBEP at 9600 baud")
		return true
	case sb9600.OpSETBUT:
		d.handleSetButton(f.Data[0], f.Data[1])
	case sb9600.OpPRUPST:
		d.handleSelfTest(f.Data[0], group, address)
	case sb9600.OpReset:
		d.logger.Info("bus reset observed", "group", group, "address", address)
	default:
		d.logger.Warn("unhandled SB9600 broadcast opcode", "opcode", f.Opcode.String(), "code", fmt.Sprintf("0x%02X", byte(f.Opcode)))
	}
	return false
}

func (d *Dispatcher) handleSetButton(register, value byte) {
	switch register {
	case setbutMonitor:
		on := value == 0x01
		d.logger.Info("radio monitor", "on", on)
		d.update(func(s *domain.RadioStatus) { s.Monitor = on })
	case setbutTransmit:
		if value == 0x01 {
			d.keyDown("SETBUT")
		} else {
			d.keyUp("SETBUT")
		}
	default:
		d.logger.Warn("unhandled SETBUT register", "register", fmt.Sprintf("0x%02X", register))
	}
}

func (d *Dispatcher) handleSelfTest(result, group, address byte) {
	if result == 0x00 {
		d.logger.Info("power-up self test passed", "group", group, "address", address)
		d.update(func(s *domain.RadioStatus) {
			s.Error = false
			s.ErrorMsg = ""
			if s.State == domain.StateError {
				s.State = domain.StateIdle
			}
		})
		return
	}
	msg := fmt.Sprintf("self test failed for group %d address %d: 0x%02X", group, address, result)
	d.logger.Error("power-up self test failed", "group", group, "address", address, "result", fmt.Sprintf("0x%02X", result))
	d.update(func(s *domain.RadioStatus) {
		s.State = domain.StateError
		s.Error = true
		s.ErrorMsg = msg
	})
}

func (d *Dispatcher) handleRadio(f sb9600.Frame) {
	switch f.Opcode {
	case sb9600.OpRADRDY:
		d.logger.Debug("radio ready", "data", fmt.Sprintf("% X", f.Data))
		d.MarkReady()
	case sb9600.OpRADKEY:
		if f.Data[1] == 0x01 {
			d.keyDown("RADKEY")
		} else {
			d.keyUp("RADKEY")
		}
	case sb9600.OpSQLDET:
		switch f.Data[1] {
		case sqlIdle:
			d.carrier(false, "SQLDET")
		case sqlCarrier:
			d.carrier(true, "SQLDET")
		case sqlScanning:
			// activity seen while scanning; the radio follows up with 0x03 if it stops
		default:
			d.logger.Warn("unknown SQLDET status", "status", fmt.Sprintf("0x%02X", f.Data[1]))
		}
	case sb9600.OpRXAUD, sb9600.OpTXAUD:
		d.logger.Debug("audio routing", "opcode", f.Opcode.String(), "data", fmt.Sprintf("% X", f.Data))
	case sb9600.OpAUDMUT:
		d.logger.Debug("audio mute", "unmuted", f.Data[1] == 0x01)
	case sb9600.OpACTMDU:
		d.logger.Info("active mode update", "mode", f.Data[1], "options", f.Data[0])
	case sb9600.OpPLDECT:
		d.logger.Debug("PL detect", "valid_pl", f.Data[1]&0x02 != 0, "qualified", f.Data[1]&0x01 != 0)
	case sb9600.OpDISPLY:
		d.logger.Debug("display field update", "field", f.Data[0], "value", f.Data[1])
	case opXTLUnknown:
	default:
		d.logger.Warn("unhandled SB9600 radio opcode", "opcode", f.Opcode.String(), "code", fmt.Sprintf("0x%02X", byte(f.Opcode)))
	}
}

func (d *Dispatcher) handleFrontPanel(f sb9600.Frame) {
	switch f.Opcode {
	case sb9600.OpBUTCTL:
		name, ok := d.head.ButtonName(f.Data[0])
		if !ok {
			d.logger.Warn("unmapped button code", "head", d.head.Head().String(), "code", fmt.Sprintf("0x%02X", f.Data[0]))
			return
		}
		if strings.HasPrefix(name, "knob") {
			return
		}
		attrs := []any{"button", name, "pressed", f.Data[1] == 0x01}
		if key, ok := d.binding.SoftkeyForButton(name); ok {
			attrs = append(attrs, "softkey", string(key))
		}
		d.logger.Info("front panel button", attrs...)
	case sb9600.OpLUMCTL:
	default:
		d.logger.Warn("unhandled SB9600 front panel opcode", "opcode", f.Opcode.String(), "code", fmt.Sprintf("0x%02X", byte(f.Opcode)))
	}
}

func (d *Dispatcher) keyDown(source string) {
	d.update(func(s *domain.RadioStatus) {
		switch s.State {
		case domain.StateTransmitting:
			return
		case domain.StateReceiving:
			s.State = domain.StateIdle
			d.logger.Debug("receive ended by key-up", "source", source)
		}
		s.State = domain.StateTransmitting
		d.logger.Info("radio now transmitting", "source", source)
	})
}

func (d *Dispatcher) keyUp(source string) {
	d.update(func(s *domain.RadioStatus) {
		if s.State == domain.StateTransmitting {
			s.State = domain.StateIdle
			d.logger.Info("radio no longer transmitting", "source", source)
		}
	})
}

// carrier applies squelch state. Transmitting is never left from here.
func (d *Dispatcher) carrier(present bool, source string) {
	d.update(func(s *domain.RadioStatus) {
		switch s.State {
		case domain.StateTransmitting, domain.StateDisconnected, domain.StateDisconnecting:
			return
		}
		if present {
			if s.State != domain.StateReceiving {
				s.State = domain.StateReceiving
				d.logger.Debug("carrier detected", "source", source)
			}
			return
		}
		if s.State != domain.StateIdle {
			s.State = domain.StateIdle
			d.logger.Debug("channel idle", "source", source)
		}
	})
}

// HandleSBEP applies one extended-layer message.
func (d *Dispatcher) HandleSBEP(f sb9600.SBEPFrame) {
	switch f.Opcode {
	case sb9600.SBEPDisplay:
		d.handleDisplay(f.Data)
	case sb9600.SBEPIndicator:
		d.handleIndicators(f.Data)
	case sb9600.SBEPRFTest:
		d.logger.Debug("SBEP RF hardware test")
	case sb9600.SBEPAck:
		d.logger.Debug("SBEP ack")
	case sb9600.SBEPNack:
		d.logger.Warn("SBEP nack", "data", fmt.Sprintf("% X", f.Data))
	default:
		d.logger.Warn("unhandled SBEP opcode", "code", fmt.Sprintf("0x%02X", f.Opcode))
	}
}
