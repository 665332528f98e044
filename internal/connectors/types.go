package connectors

import (
	"time"

	"github.com/radioconsole/rcd/internal/domain"
)

// LinkState describes the serial link lifecycle.
type LinkState string

const (
	LinkStateDisconnected LinkState = "disconnected"
	LinkStateConnecting   LinkState = "connecting"
	LinkStateConnected    LinkState = "connected"
	LinkStateFailed       LinkState = "failed"
)

type LinkStatus struct {
	State     LinkState
	Err       string
	Port      string
	Timestamp time.Time
}

// RawFrame carries frame diagnostics for the monitor tool and debug logs.
type RawFrame struct {
	Hex      string
	Len      int
	Extended bool
	Err      string
}

// StatusEvent is a published RadioStatus snapshot.
type StatusEvent struct {
	Status    domain.RadioStatus
	Timestamp time.Time
}

// CommandResult reports the outcome of one queued command after send-and-verify.
type CommandResult struct {
	Command   string
	OK        bool
	Attempts  int
	Timestamp time.Time
}
