package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownSoftkey is returned when a configured softkey name is not a known radio function.
var ErrUnknownSoftkey = errors.New("unknown softkey")

// SoftkeyName identifies an operator-facing radio function.
type SoftkeyName string

const (
	SoftkeyCALL SoftkeyName = "CALL"
	SoftkeyCHAN SoftkeyName = "CHAN"
	SoftkeyCHDN SoftkeyName = "CHDN"
	SoftkeyCHUP SoftkeyName = "CHUP"
	SoftkeyDEL  SoftkeyName = "DEL"
	SoftkeyDIR  SoftkeyName = "DIR"
	SoftkeyDYNP SoftkeyName = "DYNP"
	SoftkeyEMER SoftkeyName = "EMER"
	SoftkeyHOME SoftkeyName = "HOME"
	SoftkeyLOCK SoftkeyName = "LOCK"
	SoftkeyLPWR SoftkeyName = "LPWR"
	SoftkeyMODE SoftkeyName = "MODE"
	SoftkeyMON  SoftkeyName = "MON"
	SoftkeyMUTE SoftkeyName = "MUTE"
	SoftkeyPAGE SoftkeyName = "PAGE"
	SoftkeyPHON SoftkeyName = "PHON"
	SoftkeyPRI  SoftkeyName = "PRI"
	SoftkeyRAB1 SoftkeyName = "RAB1"
	SoftkeyRAB2 SoftkeyName = "RAB2"
	SoftkeyRCL  SoftkeyName = "RCL"
	SoftkeyRPT  SoftkeyName = "RPT"
	SoftkeySCAN SoftkeyName = "SCAN"
	SoftkeySEC  SoftkeyName = "SEC"
	SoftkeySEL  SoftkeyName = "SEL"
	SoftkeySITE SoftkeyName = "SITE"
	SoftkeyTGRP SoftkeyName = "TGRP"
	SoftkeyTMS  SoftkeyName = "TMS"
	SoftkeyZNDN SoftkeyName = "ZNDN"
	SoftkeyZNUP SoftkeyName = "ZNUP"
	SoftkeyZONE SoftkeyName = "ZONE"
)

var softkeyDescriptions = map[SoftkeyName]string{
	SoftkeyCALL: "Call response",
	SoftkeyCHAN: "Channel select",
	SoftkeyCHDN: "Channel down",
	SoftkeyCHUP: "Channel up",
	SoftkeyDEL:  "Delete nuisance channel",
	SoftkeyDIR:  "Talkaround / direct",
	SoftkeyDYNP: "Dynamic priority",
	SoftkeyEMER: "Emergency",
	SoftkeyHOME: "Home channel",
	SoftkeyLOCK: "Site lock",
	SoftkeyLPWR: "Low power",
	SoftkeyMODE: "Mode select",
	SoftkeyMON:  "Monitor",
	SoftkeyMUTE: "Mute tones",
	SoftkeyPAGE: "Page",
	SoftkeyPHON: "Phone",
	SoftkeyPRI:  "Priority",
	SoftkeyRAB1: "Repeater access 1",
	SoftkeyRAB2: "Repeater access 2",
	SoftkeyRCL:  "Recall",
	SoftkeyRPT:  "Repeater",
	SoftkeySCAN: "Scan",
	SoftkeySEC:  "Secure",
	SoftkeySEL:  "Select",
	SoftkeySITE: "Site",
	SoftkeyTGRP: "Talkgroup",
	SoftkeyTMS:  "Text messaging",
	SoftkeyZNDN: "Zone down",
	SoftkeyZNUP: "Zone up",
	SoftkeyZONE: "Zone select",
}

// ParseSoftkeyName validates a configured softkey name.
func ParseSoftkeyName(raw string) (SoftkeyName, error) {
	name := SoftkeyName(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := softkeyDescriptions[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSoftkey, raw)
	}
	return name, nil
}

func (n SoftkeyName) Description() string {
	return softkeyDescriptions[n]
}

// Button is a physical control head button.
type Button struct {
	Name string `json:"name"`
	Code byte   `json:"code"`
}

// Softkey is a configured radio function and its bound button. Only State
// changes after configuration.
type Softkey struct {
	Name        SoftkeyName  `json:"name"`
	Description string       `json:"description"`
	State       SoftkeyState `json:"state"`
	Button      Button       `json:"button"`
}

// TextLookup replaces display text containing Match with Replacement.
type TextLookup struct {
	Match       string `json:"match" yaml:"match"`
	Replacement string `json:"replace" yaml:"replace"`
}
