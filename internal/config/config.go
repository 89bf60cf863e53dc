// Package config loads hafiza's TOML configuration.
//
// Load resolves the path (explicit, else ~/.config/hafiza/config.toml),
// falls back to defaults when the file does not exist, and fills in
// defaults for any field left empty. Tilde paths are expanded.
//
//	[devtools]
//	name = "Hafiza Store"
//	max_age = 50
//
//	[history]
//	max_entries = 50
//
//	[persist]
//	key = "hafiza"
//	database = "~/.local/share/hafiza/state.db"
//	codec = "json"
//
//	[log]
//	level = "info"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultPath = "~/.config/hafiza/config.toml"

	defaultDevtoolsName = "Hafiza Store"
	defaultMaxAge       = 50
	defaultMaxEntries   = 50
	defaultPersistKey   = "hafiza"
	defaultDatabase     = "~/.local/share/hafiza/state.db"
	defaultCodec        = "json"
	defaultLogLevel     = "info"
)

// Config is the resolved configuration.
type Config struct {
	Devtools Devtools `toml:"devtools"`
	History  History  `toml:"history"`
	Persist  Persist  `toml:"persist"`
	Log      Log      `toml:"log"`
}

type Devtools struct {
	Name   string `toml:"name"`
	MaxAge int    `toml:"max_age"`
}

type History struct {
	MaxEntries int `toml:"max_entries"`
}

type Persist struct {
	Key      string `toml:"key"`
	Database string `toml:"database"`
	Codec    string `toml:"codec"`
}

type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("parse config: %s", strict.String())
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return Config{}, err
	}
	if cfg.Devtools.MaxAge < 0 || cfg.History.MaxEntries < 0 {
		return Config{}, fmt.Errorf("parse config: max_age and max_entries must not be negative")
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Devtools.Name = strings.TrimSpace(c.Devtools.Name)
	if c.Devtools.Name == "" {
		c.Devtools.Name = defaultDevtoolsName
	}
	if c.Devtools.MaxAge == 0 {
		c.Devtools.MaxAge = defaultMaxAge
	}
	if c.History.MaxEntries == 0 {
		c.History.MaxEntries = defaultMaxEntries
	}

	c.Persist.Key = strings.TrimSpace(c.Persist.Key)
	if c.Persist.Key == "" {
		c.Persist.Key = defaultPersistKey
	}
	c.Persist.Database = strings.TrimSpace(c.Persist.Database)
	if c.Persist.Database == "" {
		c.Persist.Database = defaultDatabase
	}
	c.Persist.Database = mustExpand(c.Persist.Database)
	c.Persist.Codec = strings.ToLower(strings.TrimSpace(c.Persist.Codec))
	if c.Persist.Codec == "" {
		c.Persist.Codec = defaultCodec
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
}

// SlogLevel returns the configured log level. Invalid levels are rejected
// by Load, so this falls back to info only for hand-built configs.
func (c Config) SlogLevel() slog.Level {
	lvl, err := ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(DefaultPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if trimmed == ":memory:" {
		return trimmed, nil
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
