package domain

import (
	"slices"
	"sync"
)

// RadioStatus is the protocol-agnostic radio snapshot consumed by the daemon.
type RadioStatus struct {
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	ZoneName      string        `json:"zone_name"`
	ChannelName   string        `json:"channel_name"`
	State         RadioState    `json:"state"`
	ScanState     ScanState     `json:"scan_state"`
	PriorityState PriorityState `json:"priority_state"`
	PowerState    PowerState    `json:"power_state"`
	Monitor       bool          `json:"monitor"`
	Direct        bool          `json:"direct"`
	Error         bool          `json:"error"`
	ErrorMsg      string        `json:"error_msg"`
	Softkeys      []Softkey     `json:"softkeys"`
}

func (s RadioStatus) clone() RadioStatus {
	out := s
	out.Softkeys = append([]Softkey(nil), s.Softkeys...)
	return out
}

// Status guards a RadioStatus with a single writer and many readers.
type Status struct {
	mu  sync.RWMutex
	cur RadioStatus
}

func NewStatus(name, description string, softkeys []Softkey) *Status {
	return &Status{cur: RadioStatus{
		Name:        name,
		Description: description,
		State:       StateDisconnected,
		PowerState:  HighPower,
		Softkeys:    append([]Softkey(nil), softkeys...),
	}}
}

// Snapshot returns a copy safe to retain.
func (s *Status) Snapshot() RadioStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.clone()
}

func (s *Status) State() RadioState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.State
}

// Update applies fn under the write lock and reports whether any field changed.
// Name, description and the softkey layout are restored afterwards so only
// mutable fields change.
func (s *Status) Update(fn func(*RadioStatus)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.cur.clone()
	keys := s.cur.Softkeys
	fn(&s.cur)
	s.cur.Name, s.cur.Description = before.Name, before.Description
	if len(s.cur.Softkeys) != len(keys) {
		s.cur.Softkeys = keys
	}
	return !before.Equal(s.cur)
}

// Equal compares every field including softkey states.
func (s RadioStatus) Equal(o RadioStatus) bool {
	return s.Name == o.Name &&
		s.Description == o.Description &&
		s.ZoneName == o.ZoneName &&
		s.ChannelName == o.ChannelName &&
		s.State == o.State &&
		s.ScanState == o.ScanState &&
		s.PriorityState == o.PriorityState &&
		s.PowerState == o.PowerState &&
		s.Monitor == o.Monitor &&
		s.Direct == o.Direct &&
		s.Error == o.Error &&
		s.ErrorMsg == o.ErrorMsg &&
		slices.Equal(s.Softkeys, o.Softkeys)
}

// SoftkeyIndex returns the position of the named softkey or -1.
func (s RadioStatus) SoftkeyIndex(name SoftkeyName) int {
	for i, k := range s.Softkeys {
		if k.Name == name {
			return i
		}
	}
	return -1
}
