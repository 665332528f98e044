package radio

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/radioconsole/rcd/internal/sb9600"
)

// inbound is one result of framing the receive buffer: a decoded frame, a
// decoded extended message, or a framing error with the bytes it dropped.
type inbound struct {
	Frame    *sb9600.Frame
	SBEP     *sb9600.SBEPFrame
	Raw      []byte
	Extended bool
	Err      error
}

var errStalled = errors.New("partial message dropped")

// linkReader frames received bytes in either fixed or extended mode. An extended
// message is read from its header alone, so short messages never wait for more
// bytes than they carry. A partial message that stops growing for stallTimeout
// is dropped and fixed framing resumes.
type linkReader struct {
	logger       *slog.Logger
	stallTimeout time.Duration

	buf          []byte
	extended     bool
	lastProgress time.Time

	leadingAck    bool
	awaitTrailAck bool
}

func newLinkReader(logger *slog.Logger, stallTimeout time.Duration) *linkReader {
	return &linkReader{logger: logger, stallTimeout: stallTimeout}
}

func (r *linkReader) Feed(b []byte, now time.Time) {
	if len(b) == 0 {
		return
	}
	r.buf = append(r.buf, b...)
	r.lastProgress = now
}

// EnterExtended switches framing for exactly the next message.
func (r *linkReader) EnterExtended(now time.Time) {
	r.extended = true
	r.leadingAck = false
	r.lastProgress = now
}

func (r *linkReader) Extended() bool { return r.extended }

// Busy reports a message in flight, in which case sends must wait.
func (r *linkReader) Busy() bool {
	return r.extended || len(r.buf) > 0
}

func (r *linkReader) Reset() {
	r.buf = nil
	r.extended = false
	r.leadingAck = false
	r.awaitTrailAck = false
}

// Next returns the next framing result, or false when more bytes are needed.
func (r *linkReader) Next(now time.Time) (inbound, bool) {
	if r.extended {
		return r.nextExtended(now)
	}
	return r.nextFixed(now)
}

func (r *linkReader) nextExtended(now time.Time) (inbound, bool) {
	for len(r.buf) > 0 && r.buf[0] == sb9600.AckByte {
		r.buf = r.buf[1:]
		r.leadingAck = true
	}

	total, err := sb9600.SBEPLength(r.buf)
	switch {
	case errors.Is(err, sb9600.ErrShortBuffer):
		return r.stalled(now)
	case err != nil:
		raw := r.take(len(r.buf))
		r.extended = false
		return inbound{Raw: raw, Extended: true, Err: err}, true
	case len(r.buf) < total:
		return r.stalled(now)
	}

	raw := r.take(total)
	r.extended = false
	r.awaitTrailAck = true
	msg, _, err := sb9600.DecodeSBEP(raw)
	if err != nil {
		return inbound{Raw: raw, Extended: true, Err: err}, true
	}
	return inbound{SBEP: &msg, Raw: raw, Extended: true}, true
}

func (r *linkReader) nextFixed(now time.Time) (inbound, bool) {
	if r.awaitTrailAck && len(r.buf) > 0 {
		trailing := r.buf[0] == sb9600.AckByte
		if trailing {
			r.buf = r.buf[1:]
		}
		if !trailing && !r.leadingAck {
			r.logger.Debug("extended message had no ack byte on either side")
		}
		r.awaitTrailAck = false
		r.leadingAck = false
	}

	if len(r.buf) < sb9600.FrameSize {
		return r.stalled(now)
	}
	f, err := sb9600.DecodeFrame(r.buf[:sb9600.FrameSize])
	if err != nil {
		// slide one byte to find the next frame boundary
		return inbound{Raw: r.take(1), Err: err}, true
	}
	raw := r.take(sb9600.FrameSize)
	return inbound{Frame: &f, Raw: raw}, true
}

// stalled drops a partial message that has not grown within stallTimeout.
func (r *linkReader) stalled(now time.Time) (inbound, bool) {
	if !r.Busy() || now.Sub(r.lastProgress) < r.stallTimeout {
		return inbound{}, false
	}
	raw := r.take(len(r.buf))
	extended := r.extended
	r.extended = false
	r.awaitTrailAck = false
	return inbound{
		Raw:      raw,
		Extended: extended,
		Err:      fmt.Errorf("%w: %d bytes after %s", errStalled, len(raw), r.stallTimeout),
	}, true
}

func (r *linkReader) take(n int) []byte {
	out := make([]byte, n)
	copy(out, r.buf[:n])
	r.buf = r.buf[n:]
	if len(r.buf) == 0 {
		r.buf = nil
	}
	return out
}
