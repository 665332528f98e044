package radio

import (
	"fmt"
	"strings"

	"github.com/radioconsole/rcd/internal/domain"
)

// Display mirrors the control head's character rows. Updates overwrite in
// place; text past the row width is clipped.
type Display struct {
	width int
	rows  [][]byte
}

func NewDisplay(rows, width int) *Display {
	d := &Display{width: width, rows: make([][]byte, rows)}
	for i := range d.rows {
		d.rows[i] = []byte(strings.Repeat(" ", width))
	}
	return d
}

// Apply writes text into row starting at col and reports whether the row changed.
func (d *Display) Apply(row, col int, text []byte) (bool, error) {
	if row < 0 || row >= len(d.rows) {
		return false, fmt.Errorf("display row %d out of range (rows=%d)", row, len(d.rows))
	}
	if col < 0 || col >= d.width {
		return false, fmt.Errorf("display column %d out of range (width=%d)", col, d.width)
	}
	buf := d.rows[row]
	changed := false
	for i, c := range text {
		pos := col + i
		if pos >= d.width {
			break
		}
		if c < 0x20 || c > 0x7E {
			c = ' '
		}
		if buf[pos] != c {
			buf[pos] = c
			changed = true
		}
	}
	return changed, nil
}

// Row returns the trimmed text of one row.
func (d *Display) Row(row int) string {
	if row < 0 || row >= len(d.rows) {
		return ""
	}
	return strings.TrimSpace(string(d.rows[row]))
}

func (d *Display) Rows() int { return len(d.rows) }

func (d *Display) Clear() {
	for _, r := range d.rows {
		for i := range r {
			r[i] = ' '
		}
	}
}

// displayUpdate is the decoded SBEP display payload.
type displayUpdate struct {
	Row    int
	Column int
	Text   []byte
}

// parseDisplayUpdate reads [row, col, count, srow, scol, text...]. srow/scol
// address the accumulator; row/col are the head's window and are ignored.
func parseDisplayUpdate(data []byte) (displayUpdate, error) {
	if len(data) < 5 {
		return displayUpdate{}, fmt.Errorf("display update too short: %d bytes", len(data))
	}
	count := int(data[2])
	text := data[5:]
	if count > len(text) {
		return displayUpdate{}, fmt.Errorf("display update declares %d chars, carries %d", count, len(text))
	}
	return displayUpdate{Row: int(data[3]), Column: int(data[4]), Text: text[:count]}, nil
}

func (d *Dispatcher) handleDisplay(data []byte) {
	upd, err := parseDisplayUpdate(data)
	if err != nil {
		d.logger.Warn("bad display update", "error", err, "data", fmt.Sprintf("% X", data))
		return
	}
	if _, err := d.display.Apply(upd.Row, upd.Column, upd.Text); err != nil {
		d.logger.Warn("display update rejected", "error", err)
		return
	}
	d.logger.Debug("display update", "row", upd.Row, "col", upd.Column, "text", string(upd.Text))

	if d.display.Rows() == 1 {
		d.applySingleRow(d.display.Row(0))
		return
	}
	switch upd.Row {
	case 0:
		text := d.display.Row(0)
		if d.head.Ignored(text) {
			d.logger.Debug("ignoring placeholder zone text", "text", text)
			return
		}
		zone := lookup(d.zoneLookups, text)
		d.update(func(s *domain.RadioStatus) { s.ZoneName = zone })
	case 1:
		text := d.display.Row(1)
		if d.head.Ignored(text) {
			d.logger.Debug("ignoring placeholder channel text", "text", text)
			return
		}
		channel := lookup(d.channelLookups, text)
		d.update(func(s *domain.RadioStatus) { s.ChannelName = channel })
	}
}

// applySingleRow derives zone and channel from one shared row. A zone match
// sets the zone and is cut out of the channel text.
func (d *Dispatcher) applySingleRow(text string) {
	if d.head.Ignored(text) {
		d.logger.Debug("ignoring placeholder display text", "text", text)
		return
	}
	channel := text
	zone, zoneFound := "", false
	for _, l := range d.zoneLookups {
		if l.Match != "" && strings.Contains(text, l.Match) {
			zone, zoneFound = l.Replacement, true
			channel = strings.TrimSpace(strings.Replace(text, l.Match, "", 1))
			break
		}
	}
	channel = lookup(d.channelLookups, channel)
	d.update(func(s *domain.RadioStatus) {
		if zoneFound {
			s.ZoneName = zone
		}
		s.ChannelName = channel
	})
}

// lookup returns the replacement of the first rule whose match occurs in text.
func lookup(rules []domain.TextLookup, text string) string {
	for _, l := range rules {
		if l.Match != "" && strings.Contains(text, l.Match) {
			return l.Replacement
		}
	}
	return text
}
