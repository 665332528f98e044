package radio

import "testing"

func TestDisplayOverwriteAndClip(t *testing.T) {
	d := NewDisplay(2, 14)

	changed, err := d.Apply(1, 10, []byte("ABCDEFG"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !changed {
		t.Fatalf("expected change")
	}
	if got := d.Row(1); got != "ABCD" {
		t.Fatalf("expected clipped text, got %q", got)
	}
	if changed, _ := d.Apply(1, 10, []byte("ABCD")); changed {
		t.Fatalf("expected identical overwrite to report no change")
	}
	if _, err := d.Apply(2, 0, []byte("X")); err == nil {
		t.Fatalf("expected row range error")
	}
	if _, err := d.Apply(0, 14, []byte("X")); err == nil {
		t.Fatalf("expected column range error")
	}

	d.Clear()
	if got := d.Row(1); got != "" {
		t.Fatalf("expected cleared row, got %q", got)
	}
}

func TestParseDisplayUpdate(t *testing.T) {
	upd, err := parseDisplayUpdate([]byte{0x00, 0x00, 0x02, 0x01, 0x03, 'H', 'I', 'X'})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if upd.Row != 1 || upd.Column != 3 || string(upd.Text) != "HI" {
		t.Fatalf("unexpected update %+v", upd)
	}
	if _, err := parseDisplayUpdate([]byte{0x00, 0x00, 0x05, 0x00, 0x00, 'H'}); err == nil {
		t.Fatalf("expected short text error")
	}
}
