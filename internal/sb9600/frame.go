package sb9600

import "fmt"

// FrameSize is the length of an encoded link-layer frame.
const FrameSize = 5

// Frame is a fixed-size SB9600 link-layer message.
type Frame struct {
	Address Address
	Data    [2]byte
	Opcode  Opcode
}

func (f Frame) CRC() byte {
	return FrameCRC([]byte{byte(f.Address), f.Data[0], f.Data[1], byte(f.Opcode)})
}

func (f Frame) Encode() []byte {
	out := make([]byte, FrameSize)
	out[0] = byte(f.Address)
	out[1] = f.Data[0]
	out[2] = f.Data[1]
	out[3] = byte(f.Opcode)
	out[4] = FrameCRC(out[:4])
	return out
}

func (f Frame) String() string {
	return fmt.Sprintf("%s %s [%02X %02X]", f.Address, f.Opcode, f.Data[0], f.Data[1])
}

// DecodeFrame parses exactly FrameSize bytes and verifies the trailing CRC.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) != FrameSize {
		return Frame{}, fmt.Errorf("%w: got %d bytes", ErrFrameLength, len(b))
	}
	if want := FrameCRC(b[:4]); b[4] != want {
		return Frame{}, fmt.Errorf("%w: got %02X want %02X", ErrCRC, b[4], want)
	}
	return Frame{
		Address: Address(b[0]),
		Data:    [2]byte{b[1], b[2]},
		Opcode:  Opcode(b[3]),
	}, nil
}
