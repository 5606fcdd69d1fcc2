package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pixil98/go-errors"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig selects and parameterises the persistence backend.
type DatabaseConfig struct {
	Driver     string `yaml:"driver"` // postgres | sqlite
	DSN        string `yaml:"dsn"`
	SQLitePath string `yaml:"sqlite_path"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func (d DatabaseConfig) validate() error {
	el := errors.NewErrorList()
	switch d.Driver {
	case DriverPostgres:
		if d.DSN == "" {
			el.Add(fmt.Errorf("dsn is required for postgres"))
		}
	case DriverSQLite:
		if d.SQLitePath == "" {
			el.Add(fmt.Errorf("sqlite_path is required for sqlite"))
		}
	default:
		el.Add(fmt.Errorf("driver %q must be %s or %s", d.Driver, DriverPostgres, DriverSQLite))
	}
	return el.Err()
}

// LogLevel is a slog level that unmarshals from "debug", "info", "warn" or "error".
type LogLevel slog.Level

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *LogLevel) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	*l = LogLevel(lvl)
	return nil
}

// Level returns the slog level.
func (l LogLevel) Level() slog.Level {
	return slog.Level(l)
}

// load overlays the YAML file at path onto cfg. A missing file keeps cfg.
func load(path string, cfg any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}
