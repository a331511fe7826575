// Package config loads the optional hooks.yaml used by the hooks CLI.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/hooks/pkg/errors"
	"github.com/go-drift/hooks/pkg/log"
	"github.com/go-drift/hooks/pkg/platform"
)

// FileName is the configuration file looked up in the project root.
const FileName = "hooks.yaml"

// Config represents the optional hooks.yaml configuration.
type Config struct {
	Timer TimerConfig `yaml:"timer"`
	Log   LogConfig   `yaml:"log"`
}

// TimerConfig contains timer settings.
type TimerConfig struct {
	// MaxDelay caps a single platform timer, as a Go duration string.
	MaxDelay string `yaml:"max_delay,omitempty"`
	// Chaining splits delays longer than MaxDelay across several timers.
	Chaining *bool `yaml:"chaining,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level       string `yaml:"level,omitempty"`
	Verbose     bool   `yaml:"verbose,omitempty"`
	Development bool   `yaml:"development,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Root        string
	ModulePath  string
	MaxDelay    time.Duration
	Chaining    bool
	LogLevel    log.Level
	Verbose     bool
	Development bool
}

// LoadOptional reads hooks.yaml if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	return &cfg, nil
}

// Resolve loads hooks.yaml (if present) and resolves defaults.
func Resolve(dir string) (*Resolved, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	maxDelay := platform.MaxTimerDelay
	if s := strings.TrimSpace(cfg.Timer.MaxDelay); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, invalid("timer.max_delay", err)
		}
		if d <= 0 || d > platform.MaxTimerDelay {
			return nil, invalid("timer.max_delay", fmt.Errorf("%v is outside (0, %v]", d, platform.MaxTimerDelay))
		}
		maxDelay = d
	}

	chaining := true
	if cfg.Timer.Chaining != nil {
		chaining = *cfg.Timer.Chaining
	}

	level, ok := log.ParseLevel(cfg.Log.Level)
	if !ok {
		return nil, invalid("log.level", fmt.Errorf("unknown level %q", cfg.Log.Level))
	}

	return &Resolved{
		Root:        dir,
		ModulePath:  modulePath(dir),
		MaxDelay:    maxDelay,
		Chaining:    chaining,
		LogLevel:    level,
		Verbose:     cfg.Log.Verbose,
		Development: cfg.Log.Development,
	}, nil
}

func invalid(field string, err error) error {
	return &errors.HookError{
		Op:   "config.Resolve",
		Kind: errors.KindConfig,
		Err:  fmt.Errorf("%s: %w", field, err),
	}
}

// FindProjectRoot walks up from the current directory to find hooks.yaml or
// go.mod. It falls back to the current directory.
func FindProjectRoot() (string, error) {
	start, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for dir := start; ; {
		for _, marker := range []string{FileName, "go.mod"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start, nil
		}
		dir = parent
	}
}

// modulePath returns the module declared in dir/go.mod, or "" when there is none.
func modulePath(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return ""
	}
	return modfile.ModulePath(data)
}
