package controlhead

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownHead      = errors.New("unknown control head")
	ErrUnknownButton    = errors.New("unknown button")
	ErrUnknownIndicator = errors.New("unknown indicator")
	ErrUnboundSoftkey   = errors.New("softkey has no button binding")
	ErrDuplicateCode    = errors.New("duplicate code in head table")
	ErrDuplicateBinding = errors.New("softkey bound to more than one button")
)

// HeadType selects the control head family attached to the radio.
type HeadType int

const (
	HeadW9 HeadType = iota + 1
	HeadM3
)

func (h HeadType) String() string {
	switch h {
	case HeadW9:
		return "W9"
	case HeadM3:
		return "M3"
	default:
		return fmt.Sprintf("HeadType(%d)", int(h))
	}
}

// ParseHeadType validates a configured head type name.
func ParseHeadType(raw string) (HeadType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "W9":
		return HeadW9, nil
	case "M3":
		return HeadM3, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownHead, raw)
	}
}

// IndicatorRole is the named meaning of a non-positional indicator.
type IndicatorRole int

const (
	RoleNone IndicatorRole = iota
	RoleMonitor
	RoleScan
	RolePriority
	RolePriority2
	RoleDirect
	RoleReceive
	RoleTransmit
)

// Definition is the static data describing one control head family.
type Definition struct {
	Head           HeadType
	Buttons        map[string]byte
	Indicators     map[string]byte
	Roles          map[string]IndicatorRole
	IgnoredStrings []string
	DisplayRows    int
	DisplayWidth   int
	ChannelUp      string
	ChannelDown    string
}

// W9Definition describes the W9 desk/remote head: single-row display and a
// top row of six softkey buttons with matching indicators.
func W9Definition() Definition {
	return Definition{
		Head: HeadW9,
		Buttons: map[string]byte{
			"ptt":       0x01,
			"mode_down": 0x50,
			"mode_up":   0x51,
			"vol_down":  0x52,
			"vol_up":    0x53,
			"btn_top_1": 0x63,
			"btn_top_2": 0x64,
			"btn_top_3": 0x65,
			"btn_top_4": 0x66,
			"btn_top_5": 0x67,
			"btn_top_6": 0x68,
			"btn_kp_1":  0x31,
			"btn_kp_2":  0x32,
			"btn_kp_3":  0x33,
			"btn_kp_4":  0x34,
			"btn_kp_5":  0x35,
			"btn_kp_6":  0x36,
			"btn_kp_7":  0x37,
			"btn_kp_8":  0x38,
			"btn_kp_9":  0x39,
			"btn_kp_*":  0x3A,
			"btn_kp_0":  0x30,
			"btn_kp_#":  0x3B,
			"btn_home":  0x61,
			"btn_sel":   0x60,
			"btn_dim":   0x62,
		},
		Indicators: map[string]byte{
			"ind_top_1":  0x07,
			"ind_top_2":  0x08,
			"ind_top_3":  0x09,
			"ind_top_4":  0x0A,
			"ind_top_5":  0x0B,
			"ind_top_6":  0x0C,
			"ind_pri":    0x0D,
			"ind_nonpri": 0x0E,
			"ind_busy":   0x0F,
			"ind_xmit":   0x10,
		},
		Roles: map[string]IndicatorRole{
			"ind_pri":    RolePriority,
			"ind_nonpri": RolePriority2,
			"ind_busy":   RoleReceive,
			"ind_xmit":   RoleTransmit,
		},
		DisplayRows:  1,
		DisplayWidth: 14,
		ChannelUp:    "mode_up",
		ChannelDown:  "mode_down",
	}
}

// M3Definition describes the M3 mobile head: two-row display, three left
// buttons and a bottom row of six softkey buttons with matching indicators.
func M3Definition() Definition {
	return Definition{
		Head: HeadM3,
		Buttons: map[string]byte{
			"ptt":          0x01,
			"knob_vol":     0x02,
			"btn_left_top": 0x60,
			"btn_left_mid": 0x61,
			"btn_left_bot": 0x62,
			"btn_bot_1":    0x63,
			"btn_bot_2":    0x64,
			"btn_bot_3":    0x65,
			"btn_bot_4":    0x66,
			"btn_bot_5":    0x67,
			"btn_bot_6":    0x68,
			"btn_kp_1":     0x31,
			"btn_kp_2":     0x32,
			"btn_kp_3":     0x33,
			"btn_kp_4":     0x34,
			"btn_kp_5":     0x35,
			"btn_kp_6":     0x36,
			"btn_kp_7":     0x37,
			"btn_kp_8":     0x38,
			"btn_kp_9":     0x39,
			"btn_kp_*":     0x3A,
			"btn_kp_0":     0x30,
			"btn_kp_#":     0x3B,
			"btn_kp_a":     0x69,
			"btn_kp_b":     0x6A,
			"btn_kp_c":     0x6B,
			"btn_kp_d":     0x6D,
		},
		Indicators: map[string]byte{
			"monitor":   0x01,
			"scan":      0x04,
			"scan_pri":  0x05,
			"direct":    0x07,
			"led_amber": 0x0D,
			"led_red":   0x0B,
			"ind_bot_1": 0x14,
			"ind_bot_2": 0x15,
			"ind_bot_3": 0x16,
			"ind_bot_4": 0x17,
			"ind_bot_5": 0x18,
			"ind_bot_6": 0x19,
		},
		Roles: map[string]IndicatorRole{
			"monitor":   RoleMonitor,
			"scan":      RoleScan,
			"scan_pri":  RolePriority,
			"direct":    RoleDirect,
			"led_amber": RoleReceive,
			"led_red":   RoleTransmit,
		},
		IgnoredStrings: []string{
			"SELF TEST",
			"LAST RCVD/XMIT",
		},
		DisplayRows:  2,
		DisplayWidth: 14,
	}
}

// DefinitionFor returns the built-in definition for head.
func DefinitionFor(head HeadType) (Definition, error) {
	switch head {
	case HeadW9:
		return W9Definition(), nil
	case HeadM3:
		return M3Definition(), nil
	default:
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownHead, head)
	}
}
