package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/radioconsole/rcd/internal/bus"
	"github.com/radioconsole/rcd/internal/config"
	"github.com/radioconsole/rcd/internal/connectors"
	"github.com/radioconsole/rcd/internal/domain"
	"github.com/radioconsole/rcd/internal/logging"
	"github.com/radioconsole/rcd/internal/persistence"
	"github.com/radioconsole/rcd/internal/radio"
)

const journalFlushTimeout = 5 * time.Second

// Options adjust a runtime on top of the config file.
type Options struct {
	ConfigFile string
	// LogLevel overrides logging.level when set.
	LogLevel string
	// Port overrides control.sb9600.serial_port when set.
	Port    string
	NoReset bool
	// Passive opens the line without reset, never transmits, keeps no journal
	// and logs to stdout only.
	Passive bool
	// Opener replaces the serial line opener.
	Opener radio.LineOpener
}

type Runtime struct {
	Ctx    context.Context
	cancel context.CancelFunc

	Paths    Paths
	Config   config.AppConfig
	Resolved config.Resolved
	Options  Options

	LogManager *logging.Manager
	Bus        *bus.PubSubBus
	DB         *sql.DB

	StatusRepo  *persistence.StatusRepo
	CommandRepo *persistence.CommandRepo
	WriterQueue *persistence.WriterQueue

	Link  *LinkMonitor
	Radio *radio.Engine

	logger    *slog.Logger
	lastState domain.RadioState
}

func Initialize(parent context.Context, opts Options) (*Runtime, error) {
	paths, err := ResolvePaths(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return nil, err
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	if port := strings.TrimSpace(opts.Port); port != "" {
		cfg.Control.SB9600.SerialPort = port
	}
	if opts.Passive {
		cfg.Logging.LogToFile = false
		cfg.Journal.Enabled = false
		cfg.Control.RxOnly = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", paths.ConfigFile, err)
	}
	resolved, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	rt := &Runtime{
		Ctx:       ctx,
		cancel:    cancel,
		Paths:     paths,
		Config:    cfg,
		Resolved:  resolved,
		Options:   opts,
		lastState: domain.StateDisconnected,
	}

	logMgr := logging.NewManager()
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		_ = logMgr.Close()
		cancel()
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	rt.LogManager = logMgr
	rt.logger = logMgr.Logger("app")
	rt.logger.Info("starting rcd runtime",
		"version", BuildVersion(),
		"build_date", BuildDateYMD(),
		"config", paths.ConfigFile,
		"port", cfg.Control.SB9600.SerialPort,
		"head", resolved.Head.String(),
		"passive", opts.Passive,
	)

	b := bus.New(logMgr.Logger("bus"))
	rt.Bus = b
	rt.Link = NewLinkMonitor(logMgr.Logger("link"))
	rt.Link.Start(ctx, b)

	if cfg.Journal.Enabled {
		if err := rt.openJournal(); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}

	opener := opts.Opener
	if opener == nil {
		opener = SerialOpener(cfg.Control.SB9600.SerialPort, logMgr.Logger("transport"))
	}
	engine, err := radio.NewEngine(logMgr.Logger("radio"), b, opener, EngineConfig(cfg, resolved))
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("initialize radio: %w", err)
	}
	rt.Radio = engine

	return rt, nil
}

func (r *Runtime) openJournal() error {
	path := r.Paths.JournalFile(r.Config.Journal.Path)
	db, err := persistence.Open(r.Ctx, path)
	if err != nil {
		return fmt.Errorf("open journal %s: %w", path, err)
	}
	r.DB = db
	r.StatusRepo = persistence.NewStatusRepo(db)
	r.CommandRepo = persistence.NewCommandRepo(db)

	r.WriterQueue = persistence.NewWriterQueue(r.LogManager.Logger("persistence"), WriterQueueSize)
	r.WriterQueue.Start(r.Ctx)
	persistence.StartJournalProjection(r.Ctx, r.Bus, r.WriterQueue, r.StatusRepo, r.CommandRepo, r.Config.Journal.Keep)

	return nil
}

// Run starts the radio and forwards status changes to the bus until the
// context ends or the link fails. A link failure is returned.
func (r *Runtime) Run() error {
	skipReset := r.Options.Passive || r.Options.NoReset || r.Config.Control.SB9600.NoReset
	if err := r.Radio.Start(r.Ctx, skipReset); err != nil {
		return fmt.Errorf("start radio: %w", err)
	}
	r.publishStatus()

	done := r.Radio.Done()
	for {
		select {
		case <-r.Ctx.Done():
			return nil
		case <-r.Radio.Changes():
			r.publishStatus()
		case <-done:
			r.publishStatus()
			if err := r.Radio.Err(); err != nil {
				return fmt.Errorf("radio link: %w", err)
			}
			return nil
		}
	}
}

func (r *Runtime) publishStatus() {
	snap := r.Radio.Status()
	if snap.State != r.lastState {
		attrs := []any{"from", r.lastState, "to", snap.State}
		if snap.Error {
			attrs = append(attrs, "error", snap.ErrorMsg)
		}
		r.logger.Info("radio state", attrs...)
		r.lastState = snap.State
	}
	r.Bus.Publish(connectors.TopicRadioStatus, connectors.StatusEvent{Status: snap, Timestamp: time.Now()})
}

// Close stops the radio before the bus so the final link status is delivered,
// then lets the journal flush.
func (r *Runtime) Close() error {
	if r.Radio != nil {
		r.Radio.Stop()
	}
	if r.cancel != nil {
		r.cancel()
	}
	if r.WriterQueue != nil {
		select {
		case <-r.WriterQueue.Done():
		case <-time.After(journalFlushTimeout):
			r.logger.Warn("journal flush timed out")
		}
	}
	if r.Bus != nil {
		r.Bus.Close()
	}

	var errs []error
	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	if r.LogManager != nil {
		if err := r.LogManager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log: %w", err))
		}
	}
	return errors.Join(errs...)
}
