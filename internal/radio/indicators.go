package radio

import (
	"fmt"

	"github.com/radioconsole/rcd/internal/controlhead"
	"github.com/radioconsole/rcd/internal/domain"
)

func parseIndicatorState(b byte) (domain.SoftkeyState, bool) {
	switch b {
	case 0x00:
		return domain.SoftkeyOff, true
	case 0x01:
		return domain.SoftkeyOn, true
	case 0x02:
		return domain.SoftkeyFlashing, true
	default:
		return domain.SoftkeyOff, false
	}
}

// handleIndicators walks an indicator batch of (code, state) pairs.
func (d *Dispatcher) handleIndicators(data []byte) {
	if len(data)%2 != 0 {
		d.logger.Warn("indicator batch has odd length, dropping last byte", "len", len(data))
	}
	for i := 0; i+1 < len(data); i += 2 {
		code, raw := data[i], data[i+1]
		state, ok := parseIndicatorState(raw)
		if !ok {
			d.logger.Warn("unknown indicator state", "code", fmt.Sprintf("0x%02X", code), "state", fmt.Sprintf("0x%02X", raw))
			continue
		}
		name, ok := d.head.IndicatorName(code)
		if !ok {
			d.logger.Warn("unmapped indicator code", "head", d.head.Head().String(), "code", fmt.Sprintf("0x%02X", code))
			continue
		}
		d.applyIndicator(name, state)
	}
}

func (d *Dispatcher) applyIndicator(name string, state domain.SoftkeyState) {
	if key, ok := d.binding.SoftkeyForIndicator(name); ok {
		d.logger.Debug("softkey indicator", "indicator", name, "softkey", string(key), "state", state.String())
		d.setSoftkey(key, state)
		return
	}

	switch d.head.Role(name) {
	case controlhead.RoleMonitor:
		d.setSoftkey(domain.SoftkeyMON, state)
	case controlhead.RoleScan:
		d.setSoftkey(domain.SoftkeySCAN, state)
	case controlhead.RoleDirect:
		d.setSoftkey(domain.SoftkeyDIR, state)
	case controlhead.RolePriority:
		d.priority[0] = state
		d.applyPriority()
	case controlhead.RolePriority2:
		d.priority[1] = state
		d.applyPriority()
	case controlhead.RoleReceive:
		if d.useLEDsForRx {
			d.carrier(state != domain.SoftkeyOff, "indicator")
		}
	case controlhead.RoleTransmit:
		d.logger.Debug("transmit indicator", "state", state.String())
	default:
		d.logger.Debug("indicator without softkey or role", "indicator", name, "state", state.String())
	}
}

// applyPriority derives the priority state: a steady primary indicator is
// priority one, a flashing primary or any secondary is priority two.
func (d *Dispatcher) applyPriority() {
	pri := domain.NoPriority
	switch {
	case d.priority[0] == domain.SoftkeyOn:
		pri = domain.Priority1
	case d.priority[0] == domain.SoftkeyFlashing, d.priority[1] != domain.SoftkeyOff:
		pri = domain.Priority2
	}
	d.update(func(s *domain.RadioStatus) { s.PriorityState = pri })
}

// setSoftkey records a softkey state along with the status flag the softkey
// stands for. Softkeys not in the configured list still drive their flags.
func (d *Dispatcher) setSoftkey(key domain.SoftkeyName, state domain.SoftkeyState) {
	active := state != domain.SoftkeyOff
	d.update(func(s *domain.RadioStatus) {
		if i := s.SoftkeyIndex(key); i >= 0 {
			s.Softkeys[i].State = state
		}
		switch key {
		case domain.SoftkeySCAN:
			s.ScanState = domain.NotScanning
			if active {
				s.ScanState = domain.Scanning
			}
		case domain.SoftkeyMON:
			s.Monitor = active
		case domain.SoftkeyDIR:
			s.Direct = active
		case domain.SoftkeyLPWR:
			s.PowerState = domain.HighPower
			if active {
				s.PowerState = domain.LowPower
			}
		}
	})
}
