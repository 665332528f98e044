package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/radioconsole/rcd/internal/bus"
	"github.com/radioconsole/rcd/internal/connectors"
)

// LinkMonitor keeps the last published link status and logs transitions.
type LinkMonitor struct {
	logger *slog.Logger

	mu     sync.RWMutex
	status connectors.LinkStatus
	known  bool
}

func NewLinkMonitor(logger *slog.Logger) *LinkMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkMonitor{logger: logger}
}

// Start subscribes before returning so no status published afterwards is missed.
func (m *LinkMonitor) Start(ctx context.Context, b bus.MessageBus) {
	sub := b.Subscribe(connectors.TopicLinkStatus)
	go func() {
		defer b.Unsubscribe(sub, connectors.TopicLinkStatus)
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-sub:
				if !ok {
					return
				}
				status, ok := raw.(connectors.LinkStatus)
				if !ok {
					continue
				}
				m.record(status)
			}
		}
	}()
}

func (m *LinkMonitor) record(status connectors.LinkStatus) {
	m.mu.Lock()
	prev, known := m.status, m.known
	m.status = status
	m.known = true
	m.mu.Unlock()

	if known && prev.State == status.State && prev.Err == status.Err {
		return
	}
	switch status.State {
	case connectors.LinkStateFailed:
		m.logger.Error("radio link failed", "port", status.Port, "error", status.Err)
	case connectors.LinkStateConnected:
		m.logger.Info("radio link up", "port", status.Port)
	default:
		m.logger.Info("radio link", "state", status.State, "port", status.Port)
	}
}

// Current returns the last status seen and whether any was seen.
func (m *LinkMonitor) Current() (connectors.LinkStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status, m.known
}
