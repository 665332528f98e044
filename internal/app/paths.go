package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths stores resolved runtime file locations for config, journal and logs.
type Paths struct {
	RootDir    string
	ConfigFile string
	DBFile     string
	LogFile    string
}

// ResolvePaths places every file under the user config dir. A non-empty
// configFile overrides the config location, and the journal and log default
// to its directory.
func ResolvePaths(configFile string) (Paths, error) {
	configFile = strings.TrimSpace(configFile)
	if configFile != "" {
		abs, err := filepath.Abs(configFile)
		if err != nil {
			return Paths{}, fmt.Errorf("resolve config path: %w", err)
		}
		root := filepath.Dir(abs)

		return Paths{
			RootDir:    root,
			ConfigFile: abs,
			DBFile:     filepath.Join(root, DBFilename),
			LogFile:    filepath.Join(root, LogFilename),
		}, nil
	}

	cfgRoot, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve config dir: %w", err)
	}
	root := filepath.Join(cfgRoot, Name)
	if err := os.MkdirAll(root, 0o750); err != nil {
		return Paths{}, fmt.Errorf("create app config dir: %w", err)
	}

	return Paths{
		RootDir:    root,
		ConfigFile: filepath.Join(root, ConfigFilename),
		DBFile:     filepath.Join(root, DBFilename),
		LogFile:    filepath.Join(root, LogFilename),
	}, nil
}

// JournalFile returns the configured journal path or the default one.
func (p Paths) JournalFile(configured string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		return configured
	}
	return p.DBFile
}
