package domain

import (
	"errors"
	"testing"
)

func testSoftkeys() []Softkey {
	return []Softkey{
		{Name: SoftkeySCAN, Description: SoftkeySCAN.Description(), Button: Button{Name: "btn_top_1", Code: 0x63}},
		{Name: SoftkeyMON, Description: SoftkeyMON.Description(), Button: Button{Name: "btn_top_2", Code: 0x64}},
	}
}

func TestNewStatusDefaults(t *testing.T) {
	st := NewStatus("Radio 1", "Dispatch", testSoftkeys())
	snap := st.Snapshot()

	if snap.State != StateDisconnected {
		t.Fatalf("expected disconnected, got %s", snap.State)
	}
	if snap.Name != "Radio 1" || snap.Description != "Dispatch" {
		t.Fatalf("unexpected identity: %q %q", snap.Name, snap.Description)
	}
	if len(snap.Softkeys) != 2 || snap.Softkeys[0].Name != SoftkeySCAN {
		t.Fatalf("expected configured softkeys in order, got %+v", snap.Softkeys)
	}
}

func TestSnapshotIsIsolatedFromLaterUpdates(t *testing.T) {
	st := NewStatus("r", "", testSoftkeys())
	snap := st.Snapshot()

	st.Update(func(s *RadioStatus) {
		s.Softkeys[0].State = SoftkeyOn
		s.ZoneName = "ZONE 1"
	})

	if snap.Softkeys[0].State != SoftkeyOff {
		t.Fatalf("expected earlier snapshot to keep softkey off")
	}
	if snap.ZoneName != "" {
		t.Fatalf("expected earlier snapshot to keep empty zone, got %q", snap.ZoneName)
	}
	if got := st.Snapshot().Softkeys[0].State; got != SoftkeyOn {
		t.Fatalf("expected updated softkey on, got %s", got)
	}
}

func TestUpdateKeepsIdentityAndSoftkeyLayout(t *testing.T) {
	st := NewStatus("r", "d", testSoftkeys())
	st.Update(func(s *RadioStatus) {
		s.Name = "other"
		s.Description = "other"
		s.Softkeys = append(s.Softkeys, Softkey{Name: SoftkeyEMER})
	})

	snap := st.Snapshot()
	if snap.Name != "r" || snap.Description != "d" {
		t.Fatalf("expected immutable identity, got %q %q", snap.Name, snap.Description)
	}
	if len(snap.Softkeys) != 2 {
		t.Fatalf("expected softkey count to stay 2, got %d", len(snap.Softkeys))
	}
}

func TestParseSoftkeyName(t *testing.T) {
	got, err := ParseSoftkeyName(" scan ")
	if err != nil {
		t.Fatalf("parse scan: %v", err)
	}
	if got != SoftkeySCAN {
		t.Fatalf("expected SCAN, got %q", got)
	}

	if _, err := ParseSoftkeyName("BOGUS"); !errors.Is(err, ErrUnknownSoftkey) {
		t.Fatalf("expected unknown softkey error, got %v", err)
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{StateTransmitting.String(), "Transmitting"},
		{RadioState(42).String(), "RadioState(42)"},
		{Scanning.String(), "Scanning"},
		{Priority2.String(), "Priority2"},
		{LowPower.String(), "LowPower"},
		{SoftkeyFlashing.String(), "Flashing"},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, tc.got)
		}
	}
}

func TestUpdateReportsChange(t *testing.T) {
	st := NewStatus("r", "", testSoftkeys())

	if !st.Update(func(s *RadioStatus) { s.Softkeys[1].State = SoftkeyFlashing }) {
		t.Fatalf("expected softkey change to be reported")
	}
	if st.Update(func(s *RadioStatus) { s.Softkeys[1].State = SoftkeyFlashing }) {
		t.Fatalf("expected repeated update to report no change")
	}
	if st.Update(func(s *RadioStatus) { s.Name = "ignored" }) {
		t.Fatalf("expected identity write to report no change")
	}
}

func TestEqualComparesScalarsAndSoftkeys(t *testing.T) {
	base := NewStatus("r", "d", testSoftkeys()).Snapshot()

	if !base.Equal(base.clone()) {
		t.Fatalf("expected clone to equal original")
	}

	changes := []func(*RadioStatus){
		func(s *RadioStatus) { s.ChannelName = "CH 2" },
		func(s *RadioStatus) { s.State = StateReceiving },
		func(s *RadioStatus) { s.Monitor = true },
		func(s *RadioStatus) { s.ErrorMsg = "FAIL 001" },
		func(s *RadioStatus) { s.Softkeys[0].State = SoftkeyOn },
	}
	for i, change := range changes {
		other := base.clone()
		change(&other)
		if base.Equal(other) {
			t.Fatalf("expected change %d to be detected", i)
		}
	}
}
