package transport

import (
	"context"
	"fmt"
	"time"
)

// WaitBusyClear polls the hardware busy line until it is released. The poll
// sleeps between reads so a held bus does not spin a core.
func WaitBusyClear(ctx context.Context, line Line, interval time.Duration) error {
	for {
		busy, err := line.Busy()
		if err != nil {
			return fmt.Errorf("poll busy: %w", err)
		}
		if !busy {
			return nil
		}
		if err := sleepWithContext(ctx, interval); err != nil {
			return err
		}
	}
}

// ReadFull reads exactly len(buf) bytes or fails once timeout passes without
// completing. Line read timeouts (0, nil) are retried until then.
func ReadFull(ctx context.Context, line Line, buf []byte, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	read := 0
	for read < len(buf) {
		if err := ctx.Err(); err != nil {
			return read, err
		}
		n, err := line.Read(buf[read:])
		if err != nil {
			return read, err
		}
		read += n
		if read < len(buf) && time.Now().After(deadline) {
			return read, fmt.Errorf("%w: got %d of %d", ErrReadTimeout, read, len(buf))
		}
	}
	return read, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
