package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/radioconsole/rcd/internal/app"
	"github.com/radioconsole/rcd/internal/bus"
	"github.com/radioconsole/rcd/internal/connectors"
	"github.com/radioconsole/rcd/internal/domain"
)

const maxHexPreviewLen = 64

var eventTopics = []string{connectors.TopicLinkStatus, connectors.TopicRadioStatus}

type monitorOptions struct {
	ConfigFile string
	Port       string
	ListenFor  time.Duration
	Verbose    bool
}

func parseMonitorOptions(args []string, output io.Writer) (monitorOptions, error) {
	var opts monitorOptions
	fs := pflag.NewFlagSet("sbmon", pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVarP(&opts.ConfigFile, "config", "c", "", "Config file shared with rcd.")
	fs.StringVarP(&opts.Port, "port", "p", "", "Serial port, overrides the config.")
	fs.DurationVarP(&opts.ListenFor, "listen-for", "l", 0, "Stop after this long, e.g. 30s. 0 listens until interrupted.")
	fs.BoolVarP(&opts.Verbose, "verbose", "v", false, "Also log per-byte link traces.")
	if err := fs.Parse(args); err != nil {
		return monitorOptions{}, err
	}
	if fs.NArg() > 0 {
		return monitorOptions{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.ListenFor < 0 {
		return monitorOptions{}, fmt.Errorf("listen-for must not be negative")
	}

	return opts, nil
}

func main() {
	opts, err := parseMonitorOptions(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		slog.Error("run sbmon", "error", err)
		os.Exit(1)
	}
}

// run watches the bus without resetting the radio and never transmits.
func run(opts monitorOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.ListenFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ListenFor)
		defer cancel()
	}

	level := "debug"
	if opts.Verbose {
		level = "verbose"
	}
	rt, err := app.Initialize(ctx, app.Options{
		ConfigFile: opts.ConfigFile,
		LogLevel:   level,
		Port:       opts.Port,
		Passive:    true,
	})
	if err != nil {
		return fmt.Errorf("initialize runtime: %w", err)
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			slog.Warn("close runtime", "error", closeErr)
		}
	}()

	logger := rt.LogManager.Logger("sbmon")
	logger.Info("starting sbmon", "version", app.BuildVersion(), "port", rt.Config.Control.SB9600.SerialPort)

	go watch(ctx, rt.Bus, logger)

	err = rt.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Info("listen period over", "duration", opts.ListenFor)
	}

	return err
}

func watch(ctx context.Context, b bus.MessageBus, logger *slog.Logger) {
	eventSub := b.Subscribe(eventTopics...)
	rawInSub := b.Subscribe(connectors.TopicRawFrameIn)
	rawOutSub := b.Subscribe(connectors.TopicRawFrameOut)
	defer b.Unsubscribe(eventSub, eventTopics...)
	defer b.Unsubscribe(rawInSub, connectors.TopicRawFrameIn)
	defer b.Unsubscribe(rawOutSub, connectors.TopicRawFrameOut)

	var inFrames, outFrames, badFrames int
	for {
		select {
		case <-ctx.Done():
			logger.Info("frame summary", "in_frames", inFrames, "out_frames", outFrames, "bad_frames", badFrames)
			return
		case raw, ok := <-eventSub:
			if !ok {
				return
			}
			switch ev := raw.(type) {
			case connectors.LinkStatus:
				logger.Info("link", "state", ev.State, "port", ev.Port, "error", ev.Err)
			case connectors.StatusEvent:
				logStatus(logger, ev.Status)
			}
		case raw, ok := <-rawInSub:
			if !ok {
				return
			}
			if frame, ok := raw.(connectors.RawFrame); ok {
				inFrames++
				if frame.Err != "" {
					badFrames++
				}
				logFrame(logger, "raw-in", frame)
			}
		case raw, ok := <-rawOutSub:
			if !ok {
				return
			}
			if frame, ok := raw.(connectors.RawFrame); ok {
				outFrames++
				logFrame(logger, "raw-out", frame)
			}
		}
	}
}

func logFrame(logger *slog.Logger, msg string, frame connectors.RawFrame) {
	attrs := []any{"len", frame.Len, "hex", previewHex(frame.Hex)}
	if frame.Extended {
		attrs = append(attrs, "extended", true)
	}
	if frame.Err != "" {
		attrs = append(attrs, "error", frame.Err)
	}
	logger.Info(msg, attrs...)
}

func logStatus(logger *slog.Logger, st domain.RadioStatus) {
	keys := make([]string, 0, len(st.Softkeys))
	for _, k := range st.Softkeys {
		keys = append(keys, fmt.Sprintf("%s=%s", k.Name, k.State))
	}
	logger.Info(
		"status",
		"state", st.State,
		"zone", st.ZoneName,
		"channel", st.ChannelName,
		"scan", st.ScanState,
		"priority", st.PriorityState,
		"power", st.PowerState,
		"monitor", st.Monitor,
		"direct", st.Direct,
		"error", st.ErrorMsg,
		"softkeys", strings.Join(keys, " "),
	)
}

func previewHex(hex string) string {
	hex = strings.TrimSpace(hex)
	if len(hex) <= maxHexPreviewLen {
		return hex
	}
	return hex[:maxHexPreviewLen] + "..."
}
