package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/radioconsole/rcd/internal/controlhead"
	"github.com/radioconsole/rcd/internal/domain"
)

const (
	DefaultName        = "Radio"
	DefaultLogLevel    = "info"
	DefaultMaxSizeMB   = 10
	DefaultMaxBackups  = 3
	DefaultJournalKeep = 5000
)

var logLevels = []string{"verbose", "debug", "info", "warn", "error"}

// ValidationError names the config field that failed to validate.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// DaemonConfig identifies the radio towards consoles.
type DaemonConfig struct {
	Name string `yaml:"name"`
	Desc string `yaml:"desc"`
}

// LoggingConfig defines runtime logging behavior.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogToFile  bool   `yaml:"log_to_file"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// JournalConfig controls the sqlite status journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Keep    int    `yaml:"keep"`
}

type SB9600Config struct {
	SerialPort      string            `yaml:"serial_port"`
	ControlHead     string            `yaml:"control_head"`
	UseLEDsForRx    bool              `yaml:"use_leds_for_rx"`
	NoReset         bool              `yaml:"no_reset"`
	SoftkeyBindings map[string]string `yaml:"softkey_bindings"`
}

type ControlConfig struct {
	RxOnly bool         `yaml:"rx_only"`
	SB9600 SB9600Config `yaml:"sb9600"`
}

type TextLookupsConfig struct {
	Zone    []domain.TextLookup `yaml:"zone"`
	Channel []domain.TextLookup `yaml:"channel"`
}

// AppConfig is the root daemon configuration.
type AppConfig struct {
	Daemon      DaemonConfig      `yaml:"daemon"`
	Logging     LoggingConfig     `yaml:"logging"`
	Journal     JournalConfig     `yaml:"journal"`
	Control     ControlConfig     `yaml:"control"`
	TextLookups TextLookupsConfig `yaml:"text_lookups"`
	Softkeys    []string          `yaml:"softkeys"`
}

func Default() AppConfig {
	return AppConfig{
		Daemon: DaemonConfig{Name: DefaultName},
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  DefaultMaxSizeMB,
			MaxBackups: DefaultMaxBackups,
		},
		Journal: JournalConfig{
			Enabled: true,
			Keep:    DefaultJournalKeep,
		},
		Control: ControlConfig{
			SB9600: SB9600Config{
				ControlHead:     controlhead.HeadW9.String(),
				SoftkeyBindings: map[string]string{},
			},
		},
	}
}

// Load reads a YAML config over the defaults. Unknown keys are rejected so
// typos in binding tables do not go unnoticed.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	cleanPath := filepath.Clean(path)
	// #nosec G304 -- path comes from the command line.
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return AppConfig{}, fmt.Errorf("decode config yaml: %w", err)
	}

	cfg.FillMissingDefaults()

	return cfg, nil
}

func (c *AppConfig) FillMissingDefaults() {
	c.Daemon.Name = strings.TrimSpace(c.Daemon.Name)
	if c.Daemon.Name == "" {
		c.Daemon.Name = DefaultName
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = DefaultMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = DefaultMaxBackups
	}
	if c.Journal.Keep <= 0 {
		c.Journal.Keep = DefaultJournalKeep
	}
	c.Control.SB9600.SerialPort = strings.TrimSpace(c.Control.SB9600.SerialPort)
	if strings.TrimSpace(c.Control.SB9600.ControlHead) == "" {
		c.Control.SB9600.ControlHead = controlhead.HeadW9.String()
	}
	if c.Control.SB9600.SoftkeyBindings == nil {
		c.Control.SB9600.SoftkeyBindings = map[string]string{}
	}
}

func (c AppConfig) Validate() error {
	if !slices.Contains(logLevels, strings.ToLower(c.Logging.Level)) {
		return invalid("logging.level", fmt.Errorf("unknown level %q", c.Logging.Level))
	}
	if c.Logging.MaxSizeMB <= 0 {
		return invalid("logging.max_size_mb", errors.New("must be positive"))
	}
	if c.Control.SB9600.SerialPort == "" {
		return invalid("control.sb9600.serial_port", errors.New("serial port is required"))
	}
	for i, l := range c.TextLookups.Zone {
		if l.Match == "" {
			return invalid(fmt.Sprintf("text_lookups.zone[%d].match", i), errors.New("match is empty"))
		}
	}
	for i, l := range c.TextLookups.Channel {
		if l.Match == "" {
			return invalid(fmt.Sprintf("text_lookups.channel[%d].match", i), errors.New("match is empty"))
		}
	}
	if _, err := c.Resolve(); err != nil {
		return err
	}

	return nil
}

// Resolved holds the typed values parsed from the string config.
type Resolved struct {
	Head     controlhead.HeadType
	Binding  *controlhead.Binding
	Softkeys []domain.SoftkeyName
}

// Resolve parses the head type, the softkey binding table and the softkey
// list. Every softkey listed must be bound to a button on the head; with no
// list, every bound softkey is used in button order.
func (c AppConfig) Resolve() (Resolved, error) {
	head, err := controlhead.ParseHeadType(c.Control.SB9600.ControlHead)
	if err != nil {
		return Resolved{}, invalid("control.sb9600.control_head", err)
	}
	headMap, err := controlhead.ForHead(head)
	if err != nil {
		return Resolved{}, invalid("control.sb9600.control_head", err)
	}

	bindings := make(map[string]domain.SoftkeyName, len(c.Control.SB9600.SoftkeyBindings))
	buttons := make([]string, 0, len(c.Control.SB9600.SoftkeyBindings))
	for button, raw := range c.Control.SB9600.SoftkeyBindings {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		key, err := domain.ParseSoftkeyName(raw)
		if err != nil {
			return Resolved{}, invalid("control.sb9600.softkey_bindings."+button, err)
		}
		bindings[button] = key
		buttons = append(buttons, button)
	}
	binding, err := controlhead.NewBinding(headMap, bindings)
	if err != nil {
		return Resolved{}, invalid("control.sb9600.softkey_bindings", err)
	}

	var softkeys []domain.SoftkeyName
	if len(c.Softkeys) == 0 {
		slices.Sort(buttons)
		for _, button := range buttons {
			softkeys = append(softkeys, bindings[button])
		}
	}
	seen := make(map[domain.SoftkeyName]bool, len(c.Softkeys))
	for i, raw := range c.Softkeys {
		key, err := domain.ParseSoftkeyName(raw)
		if err != nil {
			return Resolved{}, invalid(fmt.Sprintf("softkeys[%d]", i), err)
		}
		if seen[key] {
			return Resolved{}, invalid(fmt.Sprintf("softkeys[%d]", i), fmt.Errorf("softkey %s listed twice", key))
		}
		seen[key] = true
		if _, err := binding.Button(key); err != nil {
			return Resolved{}, invalid(fmt.Sprintf("softkeys[%d]", i), err)
		}
		softkeys = append(softkeys, key)
	}

	return Resolved{Head: head, Binding: binding, Softkeys: softkeys}, nil
}

func Save(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp config: %w", err)
	}

	return nil
}
