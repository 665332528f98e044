package transport

import "errors"

var (
	ErrNotOpen     = errors.New("serial line is not open")
	ErrPortMissing = errors.New("serial port not found")
	ErrReadTimeout = errors.New("timed out waiting for bytes")
)

// Line is a half-duplex serial line with a repurposed busy/ready handshake.
// Read returns (0, nil) when no bytes arrive within the line's read timeout.
type Line interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	// SetBusy reserves (true) or releases (false) the bus.
	SetBusy(busy bool) error
	// Busy reports whether the hardware side is holding the bus.
	Busy() (bool, error)
	ResetInput() error
	Close() error
}
