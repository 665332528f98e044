package platform

import (
	"errors"
	"strings"
)

// ErrPortInUse indicates another process already owns the serial port lock.
var ErrPortInUse = errors.New("serial port already in use by another instance")

// PortLock is an acquired per-port lock. Two daemons writing to one SB9600 bus
// would corrupt each other's echo checks.
type PortLock interface {
	Release() error
}

// AcquirePortLock takes an exclusive advisory lock named after the port.
func AcquirePortLock(appID, port string) (PortLock, error) {
	return acquirePortLock(
		normalizeLockComponent(appID, "app"),
		normalizeLockComponent(port, "port"),
	)
}

func normalizeLockComponent(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	normalized := strings.Trim(b.String(), "_-.")
	if normalized == "" {
		return fallback
	}

	return normalized
}
