package sb9600

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	nibbleExtended = 0x0F
	maxNibbleLen   = 0x0E
	// MaxSBEPHeader is the largest header: flags byte, extended opcode, two length bytes.
	MaxSBEPHeader = 4
	// MaxSBEPPayload is the largest payload the extended length field can describe.
	MaxSBEPPayload = math.MaxUint16 - 1
)

// SBEPFrame is a variable-length expanded protocol message.
type SBEPFrame struct {
	Opcode byte
	Data   []byte
}

func (f SBEPFrame) String() string {
	return fmt.Sprintf("SBEP %02X [% X]", f.Opcode, f.Data)
}

// Encode builds the wire form, using the extended opcode and extended length
// fields only when the values do not fit a nibble.
func (f SBEPFrame) Encode() ([]byte, error) {
	if len(f.Data) > MaxSBEPPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(f.Data))
	}
	// #nosec G115 -- bounded by MaxSBEPPayload above.
	length := uint16(len(f.Data) + 1)

	out := make([]byte, 1, MaxSBEPHeader+int(length))
	if f.Opcode >= nibbleExtended {
		out[0] = nibbleExtended << 4
		out = append(out, f.Opcode)
	} else {
		out[0] = f.Opcode << 4
	}
	if length > maxNibbleLen {
		out[0] |= nibbleExtended
		out = binary.BigEndian.AppendUint16(out, length)
	} else {
		out[0] |= byte(length)
	}
	out = append(out, f.Data...)
	out = append(out, SBEPCRC(out))

	return out, nil
}

// SBEPLength reports the total encoded size of the message starting at b[0].
// It returns ErrShortBuffer until enough header bytes are present to tell.
func SBEPLength(b []byte) (int, error) {
	if len(b) < 1 {
		return 0, ErrShortBuffer
	}
	header := 1
	if b[0]>>4 == nibbleExtended {
		header++
	}
	var length int
	if b[0]&0x0F == nibbleExtended {
		if len(b) < header+2 {
			return 0, ErrShortBuffer
		}
		length = int(binary.BigEndian.Uint16(b[header : header+2]))
		header += 2
	} else {
		length = int(b[0] & 0x0F)
	}
	if length == 0 {
		return 0, ErrInvalidLength
	}

	return header + length, nil
}

// DecodeSBEP parses one expanded message from the start of b and returns it
// with the number of bytes it occupied.
func DecodeSBEP(b []byte) (SBEPFrame, int, error) {
	total, err := SBEPLength(b)
	if err != nil {
		return SBEPFrame{}, 0, err
	}
	if len(b) < total {
		return SBEPFrame{}, 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, total, len(b))
	}
	if want := SBEPCRC(b[:total-1]); b[total-1] != want {
		return SBEPFrame{}, 0, fmt.Errorf("%w: got %02X want %02X", ErrCRC, b[total-1], want)
	}

	start := 1
	opcode := b[0] >> 4
	if opcode == nibbleExtended {
		opcode = b[1]
		start++
	}
	if b[0]&0x0F == nibbleExtended {
		start += 2
	}
	data := make([]byte, total-1-start)
	copy(data, b[start:total-1])

	return SBEPFrame{Opcode: opcode, Data: data}, total, nil
}
