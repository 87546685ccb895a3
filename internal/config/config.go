// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads, validates and persists hitreg settings.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/hitreg/internal/xdg"
)

// FileName is the settings file name inside the config directory.
const FileName = "hitreg.yaml"

// DefaultWorld is the zone written back when enabled-worlds is empty.
const DefaultWorld = "world"

// Defaults for settings not present in the file or on the command line.
const (
	DefaultListenAddr  = "127.0.0.1:7650"
	DefaultMetricsAddr = "127.0.0.1:7651"
	DefaultLogFormat   = "json"
	DefaultLogLevel    = "info"
	DefaultWorkers     = 4
	DefaultQueueSize   = 1024
)

// Settings is the full hitreg configuration.
type Settings struct {
	Enabled       bool              `koanf:"enabled" json:"enabled,omitempty" yaml:"enabled" jsonschema:"description=Master switch for hit correlation"`
	Debug         bool              `koanf:"debug" json:"debug,omitempty" yaml:"debug" jsonschema:"description=Send outcome notifications to authorized attackers"`
	EnabledWorlds []string          `koanf:"enabled-worlds" json:"enabled-worlds,omitempty" yaml:"enabled-worlds" jsonschema:"description=Zones where correlation is active,uniqueItems=true"`
	ListenAddr    string            `koanf:"listen-addr" json:"listen-addr,omitempty" yaml:"listen-addr" jsonschema:"description=Bridge websocket listen address"`
	MetricsAddr   string            `koanf:"metrics-addr" json:"metrics-addr,omitempty" yaml:"metrics-addr" jsonschema:"description=Metrics and health listen address (empty disables)"`
	LogFormat     string            `koanf:"log-format" json:"log-format,omitempty" yaml:"log-format" jsonschema:"enum=json,enum=text"`
	LogLevel      string            `koanf:"log-level" json:"log-level,omitempty" yaml:"log-level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Workers       int               `koanf:"workers" json:"workers,omitempty" yaml:"workers" jsonschema:"minimum=1,maximum=256"`
	QueueSize     int               `koanf:"queue-size" json:"queue-size,omitempty" yaml:"queue-size" jsonschema:"minimum=1"`
	Roles         map[string]string `koanf:"roles" json:"roles,omitempty" yaml:"roles,omitempty" jsonschema:"description=Subject to role assignment (admin moderator player)"`
}

// Defaults returns settings with every default applied except enabled-worlds,
// which is filled by ApplyDefaultWorlds so the caller can write it back.
func Defaults() Settings {
	return Settings{
		Enabled:     true,
		ListenAddr:  DefaultListenAddr,
		MetricsAddr: DefaultMetricsAddr,
		LogFormat:   DefaultLogFormat,
		LogLevel:    DefaultLogLevel,
		Workers:     DefaultWorkers,
		QueueSize:   DefaultQueueSize,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/hitreg/hitreg.yaml.
func DefaultPath() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", oops.Code("CONFIG_PATH_FAILED").Wrap(err)
	}
	return filepath.Join(dir, FileName), nil
}

// RegisterFlags adds the command-line overrides for serve.
// Flag names match settings keys so posflag can map them directly.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Defaults()
	flags.String("listen-addr", d.ListenAddr, "bridge websocket listen address")
	flags.String("metrics-addr", d.MetricsAddr, "metrics/health listen address (empty to disable)")
	flags.String("log-format", d.LogFormat, "log format (json, text)")
	flags.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	flags.Int("workers", d.Workers, "packet resolution workers")
	flags.Int("queue-size", d.QueueSize, "packet resolution queue capacity")
}

// Load reads path (if it exists), validates it against the settings schema,
// and applies flag overrides. A missing file yields defaults.
// Flags that were not changed only fill keys absent from the file.
func Load(path string, flags *pflag.FlagSet) (*Settings, error) {
	k := koanf.New(".")

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	switch {
	case err == nil:
		if err := ValidateSchema(data); err != nil {
			return nil, oops.With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	s := Defaults()
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ApplyDefaultWorlds sets enabled-worlds to the default zone when empty and
// reports whether it did.
func (s *Settings) ApplyDefaultWorlds() bool {
	if len(s.EnabledWorlds) > 0 {
		return false
	}
	s.EnabledWorlds = []string{DefaultWorld}
	return true
}

// Validate performs the semantic checks the schema cannot express.
func (s *Settings) Validate() error {
	if s.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "listen-addr").Errorf("listen-addr is required")
	}
	if s.Workers < 1 {
		return oops.Code("CONFIG_INVALID").With("key", "workers").Errorf("workers must be at least 1, got %d", s.Workers)
	}
	if s.QueueSize < 1 {
		return oops.Code("CONFIG_INVALID").With("key", "queue-size").Errorf("queue-size must be at least 1, got %d", s.QueueSize)
	}
	switch s.LogFormat {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").With("key", "log-format").Errorf("log-format must be json or text, got %q", s.LogFormat)
	}
	for i, w := range s.EnabledWorlds {
		if w == "" {
			return oops.Code("CONFIG_INVALID").With("key", "enabled-worlds").With("index", i).Errorf("world names must not be empty")
		}
		if slices.Index(s.EnabledWorlds, w) != i {
			return oops.Code("CONFIG_INVALID").With("key", "enabled-worlds").With("world", w).Errorf("world %q listed twice", w)
		}
	}
	return nil
}

// Runtime extracts the fields that commands mutate at runtime.
func (s *Settings) Runtime() State {
	return State{
		Enabled:       s.Enabled,
		Debug:         s.Debug,
		EnabledWorlds: slices.Clone(s.EnabledWorlds),
	}
}
