package controlhead

import (
	"fmt"
	"slices"
	"strings"
)

// Map is the immutable bidirectional lookup built from a Definition.
type Map struct {
	def            Definition
	buttonNames    map[byte]string
	indicatorNames map[byte]string
}

// NewMap inverts the definition tables and rejects codes used twice.
func NewMap(def Definition) (*Map, error) {
	buttonNames, err := invert(def.Buttons)
	if err != nil {
		return nil, fmt.Errorf("%s buttons: %w", def.Head, err)
	}
	indicatorNames, err := invert(def.Indicators)
	if err != nil {
		return nil, fmt.Errorf("%s indicators: %w", def.Head, err)
	}
	for name := range def.Roles {
		if _, ok := def.Indicators[name]; !ok {
			return nil, fmt.Errorf("%s role for %q: %w", def.Head, name, ErrUnknownIndicator)
		}
	}
	for _, name := range []string{def.ChannelUp, def.ChannelDown} {
		if name == "" {
			continue
		}
		if _, ok := def.Buttons[name]; !ok {
			return nil, fmt.Errorf("%s channel button %q: %w", def.Head, name, ErrUnknownButton)
		}
	}
	if def.DisplayRows < 1 || def.DisplayWidth < 1 {
		return nil, fmt.Errorf("%s: invalid display geometry %dx%d", def.Head, def.DisplayRows, def.DisplayWidth)
	}

	return &Map{def: def, buttonNames: buttonNames, indicatorNames: indicatorNames}, nil
}

// ForHead builds the map for a built-in head type.
func ForHead(head HeadType) (*Map, error) {
	def, err := DefinitionFor(head)
	if err != nil {
		return nil, err
	}
	return NewMap(def)
}

func invert(table map[string]byte) (map[byte]string, error) {
	out := make(map[byte]string, len(table))
	for name, code := range table {
		if prev, ok := out[code]; ok {
			return nil, fmt.Errorf("%w: 0x%02X used by %q and %q", ErrDuplicateCode, code, prev, name)
		}
		out[code] = name
	}
	return out, nil
}

func (m *Map) Head() HeadType { return m.def.Head }

func (m *Map) DisplayRows() int { return m.def.DisplayRows }

func (m *Map) DisplayWidth() int { return m.def.DisplayWidth }

func (m *Map) ChannelButtons() (up, down string) { return m.def.ChannelUp, m.def.ChannelDown }

func (m *Map) ButtonCode(name string) (byte, bool) {
	code, ok := m.def.Buttons[NormalizeButtonName(name)]
	return code, ok
}

func (m *Map) ButtonName(code byte) (string, bool) {
	name, ok := m.buttonNames[code]
	return name, ok
}

func (m *Map) IndicatorCode(name string) (byte, bool) {
	code, ok := m.def.Indicators[name]
	return code, ok
}

func (m *Map) IndicatorName(code byte) (string, bool) {
	name, ok := m.indicatorNames[code]
	return name, ok
}

// Role reports the named meaning of an indicator, RoleNone for positional ones.
func (m *Map) Role(indicator string) IndicatorRole {
	return m.def.Roles[indicator]
}

// Ignored reports whether text is a placeholder the head shows instead of zone or channel text.
func (m *Map) Ignored(text string) bool {
	return slices.Contains(m.def.IgnoredStrings, text)
}

// ButtonNames returns every button name in sorted order.
func (m *Map) ButtonNames() []string {
	return sortedKeys(m.def.Buttons)
}

// IndicatorNames returns every indicator name in sorted order.
func (m *Map) IndicatorNames() []string {
	return sortedKeys(m.def.Indicators)
}

func sortedKeys(table map[string]byte) []string {
	out := make([]string, 0, len(table))
	for name := range table {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// SlotButton maps a positional indicator ("ind_<row>_<n>") to the button in
// the same slot ("btn_<row>_<n>") when the head has one.
func (m *Map) SlotButton(indicator string) (string, bool) {
	rest, ok := strings.CutPrefix(indicator, "ind_")
	if !ok {
		return "", false
	}
	row, slot, ok := strings.Cut(rest, "_")
	if !ok || row == "" || !isDigits(slot) {
		return "", false
	}
	button := "btn_" + row + "_" + slot
	if _, ok := m.def.Buttons[button]; !ok {
		return "", false
	}
	return button, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeButtonName accepts the config-safe keypad aliases btn_kp_s and btn_kp_p.
func NormalizeButtonName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "btn_kp_s":
		return "btn_kp_*"
	case "btn_kp_p":
		return "btn_kp_#"
	default:
		return name
	}
}
