package radio

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/radioconsole/rcd/internal/bus"
	"github.com/radioconsole/rcd/internal/connectors"
	"github.com/radioconsole/rcd/internal/controlhead"
	"github.com/radioconsole/rcd/internal/domain"
	"github.com/radioconsole/rcd/internal/logging"
	"github.com/radioconsole/rcd/internal/sb9600"
	"github.com/radioconsole/rcd/internal/transport"
)

var (
	ErrResetFailed    = errors.New("radio reset was not acknowledged")
	ErrSendVerify     = errors.New("send verify failed")
	ErrNotRunning     = errors.New("radio engine is not running")
	ErrAlreadyRunning = errors.New("radio engine is already running")
)

const pttButton = "ptt"

// LineOpener opens the physical line for one session.
type LineOpener func(ctx context.Context) (transport.Line, error)

// Timing holds the loop's tunables. Zero fields take defaults.
type Timing struct {
	// PollInterval is the idle yield of the loop and the busy-line poll period.
	PollInterval time.Duration
	// EchoTimeout bounds the wait for the bus echo of one write.
	EchoTimeout time.Duration
	// StallTimeout drops partial inbound messages that stop growing.
	StallTimeout   time.Duration
	ChannelRelease time.Duration
	SendAttempts   int
}

func DefaultTiming() Timing {
	return Timing{
		PollInterval:   5 * time.Millisecond,
		EchoTimeout:    250 * time.Millisecond,
		StallTimeout:   500 * time.Millisecond,
		ChannelRelease: 100 * time.Millisecond,
		SendAttempts:   3,
	}
}

func (t Timing) withDefaults() Timing {
	def := DefaultTiming()
	if t.PollInterval <= 0 {
		t.PollInterval = def.PollInterval
	}
	if t.EchoTimeout <= 0 {
		t.EchoTimeout = def.EchoTimeout
	}
	if t.StallTimeout <= 0 {
		t.StallTimeout = def.StallTimeout
	}
	if t.ChannelRelease <= 0 {
		t.ChannelRelease = def.ChannelRelease
	}
	if t.SendAttempts <= 0 {
		t.SendAttempts = def.SendAttempts
	}
	return t
}

type Config struct {
	Name           string
	Description    string
	Port           string
	Binding        *controlhead.Binding
	Softkeys       []domain.SoftkeyName
	ZoneLookups    []domain.TextLookup
	ChannelLookups []domain.TextLookup
	UseLEDsForRx   bool
	RxOnly         bool
	Timing         Timing
}

// Engine owns one radio's serial line. All line I/O and decoding happen on a
// single worker goroutine; command methods only enqueue.
type Engine struct {
	logger     *slog.Logger
	bus        bus.MessageBus
	open       LineOpener
	cfg        Config
	timing     Timing
	status     *domain.Status
	dispatcher *Dispatcher
	queue      *commandQueue
	reader     *linkReader
	changes    chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	running bool
}

func NewEngine(logger *slog.Logger, b bus.MessageBus, open LineOpener, cfg Config) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binding == nil {
		return nil, errors.New("radio engine requires a softkey binding")
	}
	if open == nil {
		return nil, errors.New("radio engine requires a line opener")
	}
	softkeys, err := cfg.Binding.Softkeys(cfg.Softkeys)
	if err != nil {
		return nil, fmt.Errorf("build softkeys: %w", err)
	}

	timing := cfg.Timing.withDefaults()
	status := domain.NewStatus(cfg.Name, cfg.Description, softkeys)
	logger = logger.With("radio", cfg.Name, "head", cfg.Binding.Head().Head().String())
	done := make(chan struct{})
	close(done)

	return &Engine{
		logger: logger,
		bus:    b,
		open:   open,
		cfg:    cfg,
		timing: timing,
		status: status,
		dispatcher: NewDispatcher(logger, status, DispatcherConfig{
			Binding:        cfg.Binding,
			ZoneLookups:    cfg.ZoneLookups,
			ChannelLookups: cfg.ChannelLookups,
			UseLEDsForRx:   cfg.UseLEDsForRx,
		}),
		queue:   newCommandQueue(),
		reader:  newLinkReader(logger, timing.StallTimeout),
		changes: make(chan struct{}, 1),
		done:    done,
	}, nil
}

// Status returns a snapshot of the current radio status.
func (e *Engine) Status() domain.RadioStatus {
	return e.status.Snapshot()
}

// Changes signals after every status change. Signals coalesce; read Status
// after receiving.
func (e *Engine) Changes() <-chan struct{} {
	return e.changes
}

// Done is closed when the worker exits, after Stop or on a fatal line error.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Err returns the fatal error that ended the last session, nil after Stop.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start opens the line, waits out a held bus, resets the radio unless
// skipReset is set and then starts the worker.
func (e *Engine) Start(ctx context.Context, skipReset bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}
	e.err = nil

	e.queue.Drain()
	e.reader.Reset()
	e.dispatcher.Reset()
	e.setState(domain.StateConnecting)
	e.publishLinkStatus(connectors.LinkStateConnecting, nil)

	line, err := e.open(ctx)
	if err != nil {
		e.abortStart(nil, err)
		return fmt.Errorf("open line: %w", err)
	}
	if err := transport.WaitBusyClear(ctx, line, e.timing.PollInterval); err != nil {
		e.abortStart(line, err)
		return fmt.Errorf("wait for bus: %w", err)
	}
	if !skipReset {
		reset := frameCommand(sb9600.ResetFrame())
		_, ok, err := e.sendVerify(ctx, line, reset)
		if err != nil {
			e.abortStart(line, err)
			return fmt.Errorf("send reset: %w", err)
		}
		if !ok {
			e.abortStart(line, ErrResetFailed)
			return ErrResetFailed
		}
		e.logger.Info("radio reset")
	} else {
		e.logger.Info("skipping radio reset")
	}

	e.dispatcher.MarkReady()
	e.notifyIfChanged()
	e.publishLinkStatus(connectors.LinkStateConnected, nil)

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.running = true
	go e.run(loopCtx, line, done)

	return nil
}

func (e *Engine) abortStart(line transport.Line, err error) {
	if line != nil {
		if cerr := line.Close(); cerr != nil {
			e.logger.Warn("close line after failed start", "error", cerr)
		}
	}
	e.logger.Error("radio start failed", "error", err)
	e.setState(domain.StateDisconnected)
	e.publishLinkStatus(connectors.LinkStateFailed, err)
}

// Stop ends the worker and closes the line. Calling it again is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel = nil
	e.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (e *Engine) run(ctx context.Context, line transport.Line, done chan struct{}) {
	defer close(done)
	defer e.shutdown(line)

	buf := make([]byte, 256)
	for {
		if ctx.Err() != nil {
			return
		}

		n, err := line.Read(buf)
		if err != nil {
			e.fail(fmt.Errorf("serial read: %w", err))
			return
		}
		if n > 0 {
			e.logger.Log(ctx, logging.LevelVerbose, "rx bytes", "bytes", fmt.Sprintf("% X", buf[:n]))
		}
		now := time.Now()
		e.reader.Feed(buf[:n], now)
		e.drainInbound(now)

		if !e.reader.Busy() {
			if err := e.sendNext(ctx, line); err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return
				}
				e.fail(err)
				return
			}
		}

		e.notifyIfChanged()

		if n == 0 {
			if !sleepWithContext(ctx, e.timing.PollInterval) {
				return
			}
		}
	}
}

func (e *Engine) drainInbound(now time.Time) {
	for {
		in, ok := e.reader.Next(now)
		if !ok {
			return
		}
		e.publishRaw(connectors.TopicRawFrameIn, in)
		switch {
		case in.Err != nil:
			e.logger.Error("inbound framing error", "error", in.Err, "extended", in.Extended, "bytes", fmt.Sprintf("% X", in.Raw))
		case in.SBEP != nil:
			e.logger.Debug("rx SBEP", "msg", in.SBEP.String())
			e.dispatcher.HandleSBEP(*in.SBEP)
		case in.Frame != nil:
			e.logger.Debug("rx SB9600", "frame", in.Frame.String())
			e.dispatcher.MarkReady()
			if e.dispatcher.HandleFrame(*in.Frame) {
				e.reader.EnterExtended(now)
			}
		}
	}
}

// sendNext transmits one due command when the hardware is not holding the bus.
// The returned error is a line fault; a failed verify is not.
func (e *Engine) sendNext(ctx context.Context, line transport.Line) error {
	if e.queue.Len() == 0 {
		return nil
	}
	busy, err := line.Busy()
	if err != nil {
		return fmt.Errorf("poll busy: %w", err)
	}
	if busy {
		return nil
	}
	cmd, ok := e.queue.Pop()
	if !ok {
		return nil
	}
	attempts, sent, err := e.sendVerify(ctx, line, cmd)
	if err != nil {
		return err
	}
	if e.bus != nil {
		e.bus.Publish(connectors.TopicCommandResult, connectors.CommandResult{
			Command:   cmd.Desc,
			OK:        sent,
			Attempts:  attempts,
			Timestamp: time.Now(),
		})
	}
	if !sent {
		e.logger.Error("command dropped", "command", cmd.Desc, "error", ErrSendVerify)
	}
	return nil
}

// sendVerify reserves the bus, writes the message and compares the echo,
// retrying on mismatch. It reports how many writes were made. The bus is
// released whatever the outcome.
func (e *Engine) sendVerify(ctx context.Context, line transport.Line, cmd command) (int, bool, error) {
	if err := transport.WaitBusyClear(ctx, line, e.timing.PollInterval); err != nil {
		return 0, false, err
	}
	if err := line.SetBusy(true); err != nil {
		return 0, false, fmt.Errorf("reserve bus: %w", err)
	}
	defer func() {
		if err := line.SetBusy(false); err != nil {
			e.logger.Warn("release bus failed", "error", err)
		}
	}()

	// a started send runs to the end of its attempt budget
	sendCtx := context.WithoutCancel(ctx)
	echo := make([]byte, len(cmd.Raw))
	for attempt := 1; attempt <= e.timing.SendAttempts; attempt++ {
		if err := line.ResetInput(); err != nil {
			return attempt - 1, false, fmt.Errorf("flush input: %w", err)
		}
		if _, err := line.Write(cmd.Raw); err != nil {
			return attempt, false, fmt.Errorf("serial write: %w", err)
		}
		e.logger.Log(sendCtx, logging.LevelVerbose, "tx bytes", "command", cmd.Desc, "attempt", attempt, "bytes", fmt.Sprintf("% X", cmd.Raw))
		e.publishRaw(connectors.TopicRawFrameOut, inbound{Raw: cmd.Raw})

		clear(echo)
		n, err := transport.ReadFull(sendCtx, line, echo, e.timing.EchoTimeout)
		if err != nil && !errors.Is(err, transport.ErrReadTimeout) {
			return attempt, false, fmt.Errorf("read echo: %w", err)
		}
		e.logger.Log(sendCtx, logging.LevelVerbose, "echo bytes", "command", cmd.Desc, "attempt", attempt, "bytes", fmt.Sprintf("% X", echo[:n]))
		if bytes.Equal(echo[:n], cmd.Raw) {
			e.logger.Debug("tx", "command", cmd.Desc, "attempt", attempt)
			return attempt, true, nil
		}
		e.logger.Error("send verify mismatch",
			"command", cmd.Desc,
			"sent", fmt.Sprintf("% X", cmd.Raw),
			"echo", fmt.Sprintf("% X", echo[:n]),
			"attempts_left", e.timing.SendAttempts-attempt,
		)
	}
	return e.timing.SendAttempts, false, nil
}

func (e *Engine) shutdown(line transport.Line) {
	e.setState(domain.StateDisconnecting)
	if err := line.SetBusy(false); err != nil {
		e.logger.Debug("release bus on shutdown failed", "error", err)
	}
	if err := line.Close(); err != nil {
		e.logger.Warn("close line failed", "error", err)
	}
	if dropped := e.queue.Drain(); dropped > 0 {
		e.logger.Info("discarded queued commands", "count", dropped)
	}
	e.reader.Reset()
	e.setState(domain.StateDisconnected)

	e.mu.Lock()
	e.running = false
	cancel := e.cancel
	e.cancel = nil
	err := e.err
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if err != nil {
		e.publishLinkStatus(connectors.LinkStateFailed, err)
	} else {
		e.publishLinkStatus(connectors.LinkStateDisconnected, nil)
	}
	e.logger.Info("radio stopped")
}

func (e *Engine) fail(err error) {
	e.logger.Error("serial line fault, stopping radio", "error", err)
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

func (e *Engine) setState(state domain.RadioState) {
	e.dispatcher.SetState(state)
	e.notifyIfChanged()
}

func (e *Engine) notifyIfChanged() {
	if !e.dispatcher.TakeChanged() {
		return
	}
	select {
	case e.changes <- struct{}{}:
	default:
	}
}

func (e *Engine) publishRaw(topic string, in inbound) {
	if e.bus == nil {
		return
	}
	frame := connectors.RawFrame{
		Hex:      strings.ToUpper(hex.EncodeToString(in.Raw)),
		Len:      len(in.Raw),
		Extended: in.Extended,
	}
	if in.Err != nil {
		frame.Err = in.Err.Error()
	}
	e.bus.Publish(topic, frame)
}

func (e *Engine) publishLinkStatus(state connectors.LinkState, err error) {
	if e.bus == nil {
		return
	}
	status := connectors.LinkStatus{
		State:     state,
		Port:      e.cfg.Port,
		Timestamp: time.Now(),
	}
	if err != nil {
		status.Err = err.Error()
	}
	e.bus.Publish(connectors.TopicLinkStatus, status)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
