package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type scriptedLine struct {
	mu        sync.Mutex
	busy      []bool
	busyPolls int
	chunks    [][]byte
}

func (l *scriptedLine) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, l.chunks[0])
	if n < len(l.chunks[0]) {
		l.chunks[0] = l.chunks[0][n:]
	} else {
		l.chunks = l.chunks[1:]
	}
	return n, nil
}

func (l *scriptedLine) Write(p []byte) (int, error) { return len(p), nil }
func (l *scriptedLine) SetBusy(bool) error          { return nil }
func (l *scriptedLine) ResetInput() error           { return nil }
func (l *scriptedLine) Close() error                { return nil }

func (l *scriptedLine) Busy() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.busyPolls++
	if len(l.busy) == 0 {
		return false, nil
	}
	b := l.busy[0]
	l.busy = l.busy[1:]
	return b, nil
}

func TestWaitBusyClearPollsUntilReleased(t *testing.T) {
	line := &scriptedLine{busy: []bool{true, true, false}}

	if err := WaitBusyClear(context.Background(), line, time.Millisecond); err != nil {
		t.Fatalf("wait busy: %v", err)
	}
	if line.busyPolls != 3 {
		t.Fatalf("expected 3 polls, got %d", line.busyPolls)
	}
}

func TestWaitBusyClearHonorsContext(t *testing.T) {
	busy := make([]bool, 1000)
	for i := range busy {
		busy[i] = true
	}
	line := &scriptedLine{busy: busy}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := WaitBusyClear(ctx, line, 5*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestReadFullAssemblesChunks(t *testing.T) {
	line := &scriptedLine{chunks: [][]byte{{0x01, 0x02}, {0x03}, {0x04, 0x05, 0x06}}}
	buf := make([]byte, 5)

	n, err := ReadFull(context.Background(), line, buf, time.Second)
	if err != nil {
		t.Fatalf("read full: %v", err)
	}
	if n != 5 || buf[4] != 0x05 {
		t.Fatalf("unexpected read: n=%d buf=% X", n, buf)
	}
}

func TestReadFullTimesOut(t *testing.T) {
	line := &scriptedLine{chunks: [][]byte{{0xAA}}}
	buf := make([]byte, 5)

	n, err := ReadFull(context.Background(), line, buf, 10*time.Millisecond)
	if !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("expected read timeout, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 byte before timeout, got %d", n)
	}
}

func TestCheckPortExists(t *testing.T) {
	prev := portsList
	t.Cleanup(func() { portsList = prev })
	portsList = func() ([]string, error) { return []string{"/dev/ttyUSB0"}, nil }

	if err := checkPortExists("/dev/ttyUSB0"); err != nil {
		t.Fatalf("expected port to exist, got %v", err)
	}
	if err := checkPortExists("/dev/ttyUSB9"); !errors.Is(err, ErrPortMissing) {
		t.Fatalf("expected missing port error, got %v", err)
	}
}

func TestOpenSerialRejectsMissingPort(t *testing.T) {
	prev := portsList
	t.Cleanup(func() { portsList = prev })
	portsList = func() ([]string, error) { return nil, nil }

	_, err := OpenSerial(context.Background(), "/dev/ttyUSB0", nil)
	if !errors.Is(err, ErrPortMissing) {
		t.Fatalf("expected missing port error, got %v", err)
	}
}

func TestClosedSerialLine(t *testing.T) {
	line := &SerialLine{portName: "/dev/null"}

	if err := line.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := line.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := line.Read(make([]byte, 1)); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected not open error, got %v", err)
	}
	if _, err := line.Busy(); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected not open error, got %v", err)
	}
}
