package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/radioconsole/rcd/internal/app"
	"github.com/radioconsole/rcd/internal/config"
)

// placeholderSerialPort is written by --init-config so the file validates;
// edit it to the radio's port before starting.
const placeholderSerialPort = "/dev/ttyUSB0"

type launchOptions struct {
	ConfigFile string
	Debug      bool
	Verbose    bool
	NoReset    bool
	InitConfig bool
	Version    bool
}

func (o launchOptions) logLevel() string {
	switch {
	case o.Verbose:
		return "verbose"
	case o.Debug:
		return "debug"
	default:
		return ""
	}
}

func parseLaunchOptions(args []string, output io.Writer) (launchOptions, error) {
	var opts launchOptions
	fs := pflag.NewFlagSet(app.Name, pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVarP(&opts.ConfigFile, "config", "c", "", "Config file (default: <user config dir>/rcd/config.yaml).")
	fs.BoolVarP(&opts.Debug, "debug", "d", false, "Log at debug level.")
	fs.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log every byte on the bus. Implies --debug.")
	fs.BoolVar(&opts.NoReset, "no-reset", false, "Do not reset the radio when connecting.")
	fs.BoolVar(&opts.InitConfig, "init-config", false, "Write a default config file and exit.")
	fs.BoolVar(&opts.Version, "version", false, "Print the version and exit.")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(output, "%s - SB9600 radio control daemon\n\nUsage: %s [options]\n", app.Name, app.Name)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return launchOptions{}, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected arguments: %v", fs.Args())
		_, _ = fmt.Fprintln(output, err)
		fs.Usage()
		return launchOptions{}, err
	}

	return opts, nil
}

func main() {
	opts, err := parseLaunchOptions(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	switch {
	case opts.Version:
		fmt.Println(app.Name, app.BuildVersionWithDate())
		return
	case opts.InitConfig:
		if err := initConfig(opts.ConfigFile); err != nil {
			slog.Error("write default config", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(opts); err != nil {
		slog.Error("rcd stopped", "error", err)
		os.Exit(1)
	}
}

func run(opts launchOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Initialize(ctx, app.Options{
		ConfigFile: opts.ConfigFile,
		LogLevel:   opts.logLevel(),
		NoReset:    opts.NoReset,
	})
	if err != nil {
		return fmt.Errorf("initialize runtime: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Warn("close runtime", "error", err)
		}
	}()

	return rt.Run()
}

func initConfig(configFile string) error {
	paths, err := app.ResolvePaths(configFile)
	if err != nil {
		return err
	}
	if _, err := os.Stat(paths.ConfigFile); err == nil {
		return fmt.Errorf("%s already exists", paths.ConfigFile)
	}
	cfg := config.Default()
	cfg.Control.SB9600.SerialPort = placeholderSerialPort
	if err := config.Save(paths.ConfigFile, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s, set control.sb9600.serial_port before starting\n", paths.ConfigFile)

	return nil
}
