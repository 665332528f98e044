package radio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/radioconsole/rcd/internal/bus"
	"github.com/radioconsole/rcd/internal/connectors"
	"github.com/radioconsole/rcd/internal/controlhead"
	"github.com/radioconsole/rcd/internal/domain"
	"github.com/radioconsole/rcd/internal/logging"
	"github.com/radioconsole/rcd/internal/sb9600"
	"github.com/radioconsole/rcd/internal/transport"
)

// fakeLine echoes every write back into the receive buffer unless a scripted
// echo replaces it.
type fakeLine struct {
	mu      sync.Mutex
	rx      []byte
	writes  [][]byte
	echoes  [][]byte
	busy    bool
	// busyScript answers Busy calls in order before falling back to busy
	busyScript []bool
	busyCalls  int
	reserve    []bool
	readErr    error
	closed     int
}

func (l *fakeLine) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return 0, l.readErr
	}
	n := copy(p, l.rx)
	l.rx = l.rx[n:]
	return n, nil
}

func (l *fakeLine) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writes = append(l.writes, append([]byte(nil), p...))
	echo := p
	if len(l.echoes) > 0 {
		if l.echoes[0] != nil {
			echo = l.echoes[0]
		}
		l.echoes = l.echoes[1:]
	}
	l.rx = append(l.rx, echo...)
	return len(p), nil
}

func (l *fakeLine) SetBusy(busy bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reserve = append(l.reserve, busy)
	return nil
}

func (l *fakeLine) Busy() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.busyCalls++
	if len(l.busyScript) > 0 {
		busy := l.busyScript[0]
		l.busyScript = l.busyScript[1:]
		return busy, nil
	}
	return l.busy, nil
}

func (l *fakeLine) ResetInput() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rx = nil
	return nil
}

func (l *fakeLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed++
	return nil
}

func (l *fakeLine) inject(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rx = append(l.rx, b...)
}

func (l *fakeLine) setBusy(busy bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.busy = busy
}

func (l *fakeLine) scriptBusy(busy bool, script ...bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.busy = busy
	l.busyScript = script
	l.busyCalls = 0
}

func (l *fakeLine) busyPolls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busyCalls
}

func (l *fakeLine) setEchoes(echoes ...[]byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.echoes = echoes
}

func (l *fakeLine) setReadErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readErr = err
}

func (l *fakeLine) writeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.writes)
}

func (l *fakeLine) wrote(raw []byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.writes {
		if bytes.Equal(w, raw) {
			return true
		}
	}
	return false
}

func (l *fakeLine) closeCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func newTestEngine(t *testing.T, line *fakeLine, b bus.MessageBus, mutate func(*Config)) *Engine {
	t.Helper()
	return newLoggedTestEngine(t, slog.New(slog.NewTextHandler(io.Discard, nil)), line, b, mutate)
}

func newLoggedTestEngine(t *testing.T, logger *slog.Logger, line *fakeLine, b bus.MessageBus, mutate func(*Config)) *Engine {
	t.Helper()
	m, err := controlhead.ForHead(controlhead.HeadW9)
	if err != nil {
		t.Fatalf("head map: %v", err)
	}
	binding, err := controlhead.NewBinding(m, map[string]domain.SoftkeyName{
		"btn_top_1": domain.SoftkeySCAN,
		"btn_top_2": domain.SoftkeyMON,
	})
	if err != nil {
		t.Fatalf("binding: %v", err)
	}
	cfg := Config{
		Name:     "test",
		Port:     "/dev/ttyFAKE",
		Binding:  binding,
		Softkeys: []domain.SoftkeyName{domain.SoftkeySCAN, domain.SoftkeyMON},
		Timing: Timing{
			PollInterval:   time.Millisecond,
			EchoTimeout:    20 * time.Millisecond,
			ChannelRelease: 10 * time.Millisecond,
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	open := func(context.Context) (transport.Line, error) { return line, nil }
	e, err := NewEngine(logger, b, open, cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(e.Stop)
	return e
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSendVerifyRetriesAfterMismatchedEcho(t *testing.T) {
	line := &fakeLine{echoes: [][]byte{{0x00, 0x00, 0x01, 0x08, 0x00}, nil}}
	e := newTestEngine(t, line, nil, nil)

	if err := e.Start(context.Background(), false); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := line.writeCount(); got != 2 {
		t.Fatalf("expected exactly 2 write attempts, got %d", got)
	}
	if !line.wrote([]byte{0x00, 0x00, 0x01, 0x08, 0x7C}) {
		t.Fatalf("expected reset frame on the wire")
	}
	if state := e.Status().State; state != domain.StateIdle {
		t.Fatalf("expected Idle after reset, got %s", state)
	}
}

func TestStartFailsWhenResetNeverVerifies(t *testing.T) {
	bad := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	line := &fakeLine{echoes: [][]byte{bad, bad, bad}}
	e := newTestEngine(t, line, nil, nil)

	err := e.Start(context.Background(), false)
	if !errors.Is(err, ErrResetFailed) {
		t.Fatalf("expected reset failure, got %v", err)
	}
	if got := line.writeCount(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if line.closeCount() != 1 {
		t.Fatalf("expected line closed once, got %d", line.closeCount())
	}
	if last := line.reserve[len(line.reserve)-1]; last {
		t.Fatalf("expected bus released after failed send")
	}
	if state := e.Status().State; state != domain.StateDisconnected {
		t.Fatalf("expected Disconnected, got %s", state)
	}
	if e.Running() {
		t.Fatalf("expected engine not running")
	}
}

func TestStartWithoutResetAndIdempotentStop(t *testing.T) {
	line := &fakeLine{}
	e := newTestEngine(t, line, nil, nil)

	if err := e.Start(context.Background(), true); err != nil {
		t.Fatalf("start: %v", err)
	}
	if line.writeCount() != 0 {
		t.Fatalf("expected no reset when skipped")
	}
	if err := e.Start(context.Background(), true); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected already running, got %v", err)
	}

	e.Stop()
	e.Stop()

	if line.closeCount() != 1 {
		t.Fatalf("expected one close, got %d", line.closeCount())
	}
	if state := e.Status().State; state != domain.StateDisconnected {
		t.Fatalf("expected Disconnected, got %s", state)
	}
	if e.Err() != nil {
		t.Fatalf("expected no error after clean stop, got %v", e.Err())
	}
}

func TestEngineAppliesInboundTraffic(t *testing.T) {
	line := &fakeLine{}
	e := newTestEngine(t, line, nil, nil)
	if err := e.Start(context.Background(), true); err != nil {
		t.Fatalf("start: %v", err)
	}
	drainChanges(e)

	line.inject(sb9600.Frame{Address: sb9600.AddrRadio, Data: [2]byte{0x00, 0x01}, Opcode: sb9600.OpRADKEY}.Encode())

	select {
	case <-e.Changes():
	case <-time.After(2 * time.Second):
		t.Fatalf("expected status change signal")
	}
	waitFor(t, "transmitting", func() bool { return e.Status().State == domain.StateTransmitting })

	display, err := sb9600.SBEPFrame{Opcode: sb9600.SBEPDisplay, Data: displayData(0, 0, "OPS 1")}.Encode()
	if err != nil {
		t.Fatalf("encode display: %v", err)
	}
	stream := sb9600.Frame{Address: sb9600.AddrBroadcast, Data: [2]byte{0x12, 0x00}, Opcode: sb9600.OpEPREQ}.Encode()
	stream = append(stream, sb9600.AckByte)
	stream = append(stream, display...)
	stream = append(stream, sb9600.AckByte)
	line.inject(stream)

	waitFor(t, "channel text", func() bool { return e.Status().ChannelName == "OPS 1" })
}

func drainChanges(e *Engine) {
	for {
		select {
		case <-e.Changes():
		default:
			return
		}
	}
}

func TestEngineSendsQueuedCommands(t *testing.T) {
	line := &fakeLine{}
	b := bus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(b.Close) // runs after the engine cleanup
	results := b.Subscribe(connectors.TopicCommandResult)
	e := newTestEngine(t, line, b, nil)
	if err := e.Start(context.Background(), true); err != nil {
		t.Fatalf("start: %v", err)
	}

	if !e.PressButton(domain.SoftkeySCAN) {
		t.Fatalf("expected SCAN press to be accepted")
	}
	press := sb9600.ButtonFrame(0x63, true).Encode()
	waitFor(t, "SCAN press", func() bool { return line.wrote(press) })

	select {
	case msg := <-results:
		res, ok := msg.(connectors.CommandResult)
		if !ok || !res.OK {
			t.Fatalf("expected successful command result, got %#v", msg)
		}
		if res.Attempts != 1 {
			t.Fatalf("expected 1 attempt, got %d", res.Attempts)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected command result on the bus")
	}

	if !e.ChangeChannel(false) {
		t.Fatalf("expected channel up to use the head's default button")
	}
	waitFor(t, "channel button press and release", func() bool {
		return line.wrote(sb9600.ButtonFrame(0x51, true).Encode()) && line.wrote(sb9600.ButtonFrame(0x51, false).Encode())
	})

	if e.PressButton(domain.SoftkeyEMER) {
		t.Fatalf("expected unbound softkey to be refused")
	}
}

func TestCommandsWaitForBusyLine(t *testing.T) {
	line := &fakeLine{}
	e := newTestEngine(t, line, nil, nil)
	if err := e.Start(context.Background(), true); err != nil {
		t.Fatalf("start: %v", err)
	}

	line.setBusy(true)
	if !e.ReleaseButton(domain.SoftkeyMON) {
		t.Fatalf("expected release to be accepted")
	}
	time.Sleep(30 * time.Millisecond)
	if line.writeCount() != 0 {
		t.Fatalf("expected no writes while the radio holds the bus")
	}

	line.setBusy(false)
	waitFor(t, "MON release", func() bool { return line.wrote(sb9600.ButtonFrame(0x64, false).Encode()) })
}

func TestTransmitRules(t *testing.T) {
	line := &fakeLine{}
	rx := newTestEngine(t, line, nil, func(cfg *Config) { cfg.RxOnly = true })

	if rx.SetTransmit(false) {
		t.Fatalf("expected stopped engine to refuse commands")
	}
	if err := rx.Start(context.Background(), true); err != nil {
		t.Fatalf("start: %v", err)
	}
	if rx.SetTransmit(true) {
		t.Fatalf("expected rx-only radio to refuse transmit")
	}
	if !rx.SetTransmit(false) {
		t.Fatalf("expected unkey to be accepted")
	}
	waitFor(t, "PTT release", func() bool { return line.wrote(sb9600.ButtonFrame(0x01, false).Encode()) })
}

func TestLineFaultStopsEngine(t *testing.T) {
	line := &fakeLine{}
	e := newTestEngine(t, line, nil, nil)
	if err := e.Start(context.Background(), true); err != nil {
		t.Fatalf("start: %v", err)
	}

	line.setReadErr(errors.New("device unplugged"))

	select {
	case <-e.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("expected worker to exit on line fault")
	}
	if e.Err() == nil {
		t.Fatalf("expected fault to be reported")
	}
	if state := e.Status().State; state != domain.StateDisconnected {
		t.Fatalf("expected Disconnected, got %s", state)
	}
	if line.closeCount() != 1 {
		t.Fatalf("expected line closed, got %d", line.closeCount())
	}
	e.Stop()
}

func TestCommandResultCountsRetries(t *testing.T) {
	line := &fakeLine{}
	b := bus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(b.Close)
	results := b.Subscribe(connectors.TopicCommandResult)
	e := newTestEngine(t, line, b, nil)
	if err := e.Start(context.Background(), true); err != nil {
		t.Fatalf("start: %v", err)
	}

	line.setEchoes([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, nil)
	if !e.PressButton(domain.SoftkeyMON) {
		t.Fatalf("expected MON press to be accepted")
	}

	select {
	case msg := <-results:
		res, ok := msg.(connectors.CommandResult)
		if !ok || !res.OK {
			t.Fatalf("expected successful command result, got %#v", msg)
		}
		if res.Attempts != 2 {
			t.Fatalf("expected 2 attempts, got %d", res.Attempts)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected command result on the bus")
	}
	if got := line.writeCount(); got != 2 {
		t.Fatalf("expected 2 writes, got %d", got)
	}
}

func TestStopWhileWaitingForBusIsClean(t *testing.T) {
	line := &fakeLine{}
	e := newTestEngine(t, line, nil, nil)
	if err := e.Start(context.Background(), true); err != nil {
		t.Fatalf("start: %v", err)
	}

	// free for the queue check, then held once the send starts waiting
	line.scriptBusy(true, false)
	if !e.PressButton(domain.SoftkeySCAN) {
		t.Fatalf("expected SCAN press to be accepted")
	}
	waitFor(t, "send to wait on the held bus", func() bool { return line.busyPolls() > 3 })

	e.Stop()

	if err := e.Err(); err != nil {
		t.Fatalf("expected no error after clean stop, got %v", err)
	}
	if line.writeCount() != 0 {
		t.Fatalf("expected nothing written while the bus was held")
	}
}

type levelCounter struct {
	mu     sync.Mutex
	counts map[slog.Level]int
}

func (h *levelCounter) Enabled(context.Context, slog.Level) bool { return true }

func (h *levelCounter) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[r.Level]++
	return nil
}

func (h *levelCounter) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *levelCounter) WithGroup(string) slog.Handler      { return h }

func (h *levelCounter) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[level]
}

func TestVerboseTracesEveryChunkAndWrite(t *testing.T) {
	counter := &levelCounter{counts: map[slog.Level]int{}}
	line := &fakeLine{}
	e := newLoggedTestEngine(t, slog.New(counter), line, nil, nil)
	if err := e.Start(context.Background(), false); err != nil {
		t.Fatalf("start: %v", err)
	}
	// reset write and its echo
	if got := counter.count(logging.LevelVerbose); got != 2 {
		t.Fatalf("expected 2 verbose records after reset, got %d", got)
	}

	line.inject(sb9600.Frame{Address: sb9600.AddrRadio, Data: [2]byte{0x00, 0x01}, Opcode: sb9600.OpRADKEY}.Encode())
	waitFor(t, "verbose rx trace", func() bool { return counter.count(logging.LevelVerbose) >= 3 })
}
