package persistence

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultWriterCapacity = 256
	writeAttempts         = 3
)

type writeCmd struct {
	name string
	fn   func(context.Context) error
}

// WriterQueue serializes journal writes off the radio worker.
type WriterQueue struct {
	logger  *slog.Logger
	queue   chan writeCmd
	backoff time.Duration
	done    chan struct{}
}

func NewWriterQueue(logger *slog.Logger, capacity int) *WriterQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = defaultWriterCapacity
	}
	return &WriterQueue{
		logger:  logger,
		queue:   make(chan writeCmd, capacity),
		backoff: 300 * time.Millisecond,
		done:    make(chan struct{}),
	}
}

// Enqueue never blocks; a full queue drops the write.
func (w *WriterQueue) Enqueue(name string, fn func(context.Context) error) {
	select {
	case w.queue <- writeCmd{name: name, fn: fn}:
	default:
		w.logger.Warn("journal queue full, dropping write", "cmd", name)
	}
}

// Start runs writes until ctx ends, then flushes what is already queued with a
// single attempt each and closes Done.
func (w *WriterQueue) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				w.flush(context.WithoutCancel(ctx))
				return
			case cmd := <-w.queue:
				w.runWithRetry(ctx, cmd)
			}
		}
	}()
}

func (w *WriterQueue) Done() <-chan struct{} {
	return w.done
}

func (w *WriterQueue) flush(ctx context.Context) {
	for {
		select {
		case cmd := <-w.queue:
			if err := cmd.fn(ctx); err != nil {
				w.logger.Error("journal write failed during flush", "cmd", cmd.name, "error", err)
			}
		default:
			return
		}
	}
}

func (w *WriterQueue) runWithRetry(ctx context.Context, cmd writeCmd) {
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		if err := cmd.fn(ctx); err != nil {
			w.logger.Error("journal write failed", "cmd", cmd.name, "attempt", attempt, "error", err)
			if attempt == writeAttempts {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * w.backoff):
			}
			continue
		}
		return
	}
}
