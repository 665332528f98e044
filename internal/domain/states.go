package domain

import "fmt"

type RadioState int

const (
	StateDisconnected RadioState = iota
	StateConnecting
	StateIdle
	StateTransmitting
	StateReceiving
	StateError
	StateDisconnecting
)

var radioStateNames = [...]string{
	StateDisconnected:  "Disconnected",
	StateConnecting:    "Connecting",
	StateIdle:          "Idle",
	StateTransmitting:  "Transmitting",
	StateReceiving:     "Receiving",
	StateError:         "Error",
	StateDisconnecting: "Disconnecting",
}

func (s RadioState) String() string {
	if s < 0 || int(s) >= len(radioStateNames) {
		return fmt.Sprintf("RadioState(%d)", int(s))
	}
	return radioStateNames[s]
}

func (s RadioState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type ScanState int

const (
	NotScanning ScanState = iota
	Scanning
)

func (s ScanState) String() string {
	if s == Scanning {
		return "Scanning"
	}
	return "NotScanning"
}

func (s ScanState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type PriorityState int

const (
	NoPriority PriorityState = iota
	Priority1
	Priority2
)

func (s PriorityState) String() string {
	switch s {
	case Priority1:
		return "Priority1"
	case Priority2:
		return "Priority2"
	default:
		return "NoPriority"
	}
}

func (s PriorityState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type PowerState int

const (
	LowPower PowerState = iota
	HighPower
)

func (s PowerState) String() string {
	if s == LowPower {
		return "LowPower"
	}
	return "HighPower"
}

func (s PowerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type SoftkeyState int

const (
	SoftkeyOff SoftkeyState = iota
	SoftkeyOn
	SoftkeyFlashing
)

func (s SoftkeyState) String() string {
	switch s {
	case SoftkeyOn:
		return "On"
	case SoftkeyFlashing:
		return "Flashing"
	default:
		return "Off"
	}
}

func (s SoftkeyState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
