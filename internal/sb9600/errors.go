package sb9600

import "errors"

var (
	// ErrCRC is returned when a received checksum does not match the computed one.
	ErrCRC = errors.New("crc mismatch")
	// ErrFrameLength is returned when a fixed frame is not exactly FrameSize bytes.
	ErrFrameLength = errors.New("invalid frame length")
	// ErrShortBuffer means more bytes are required before an SBEP message can be decoded.
	ErrShortBuffer = errors.New("short buffer")
	// ErrInvalidLength is returned for an SBEP length field of zero.
	ErrInvalidLength = errors.New("invalid sbep length")
	// ErrPayloadTooLarge is returned when an SBEP payload does not fit the extended length field.
	ErrPayloadTooLarge = errors.New("sbep payload too large")
)
