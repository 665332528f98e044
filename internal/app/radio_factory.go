package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/radioconsole/rcd/internal/config"
	"github.com/radioconsole/rcd/internal/platform"
	"github.com/radioconsole/rcd/internal/radio"
	"github.com/radioconsole/rcd/internal/transport"
)

// EngineConfig maps the daemon config onto the radio engine.
func EngineConfig(cfg config.AppConfig, resolved config.Resolved) radio.Config {
	sb := cfg.Control.SB9600
	return radio.Config{
		Name:           cfg.Daemon.Name,
		Description:    cfg.Daemon.Desc,
		Port:           sb.SerialPort,
		Binding:        resolved.Binding,
		Softkeys:       resolved.Softkeys,
		ZoneLookups:    cfg.TextLookups.Zone,
		ChannelLookups: cfg.TextLookups.Channel,
		UseLEDsForRx:   sb.UseLEDsForRx,
		RxOnly:         cfg.Control.RxOnly,
	}
}

// lockedLine releases the port lock once the line is closed.
type lockedLine struct {
	transport.Line
	lock platform.PortLock
}

func (l *lockedLine) Close() error {
	err := l.Line.Close()
	if l.lock != nil {
		if lerr := l.lock.Release(); lerr != nil {
			err = errors.Join(err, lerr)
		}
		l.lock = nil
	}
	return err
}

// SerialOpener opens the configured port for each engine session, holding a
// per-port lock for as long as the line stays open.
func SerialOpener(port string, logger *slog.Logger) radio.LineOpener {
	return func(ctx context.Context) (transport.Line, error) {
		lock, err := platform.AcquirePortLock(Name, port)
		if err != nil {
			return nil, err
		}
		line, err := transport.OpenSerial(ctx, port, logger)
		if err != nil {
			if rerr := lock.Release(); rerr != nil {
				logger.Warn("release port lock", "port", port, "error", rerr)
			}
			return nil, fmt.Errorf("open %s: %w", port, err)
		}
		return &lockedLine{Line: line, lock: lock}, nil
	}
}
