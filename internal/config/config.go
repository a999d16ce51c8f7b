// Package config loads application configuration.
//
// Sources, in priority order:
//  1. A command-line flag:      --config=/path/to/config.yaml
//  2. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  3. Environment variables and defaults only, when no file is named.
//
// Environment variables always override values read from the file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/aanand-mishra/scms/internal/storage"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "CONFIG_PATH"

// Config is the root configuration structure.
type Config struct {
	// Env selects the log format and level: "dev", "staging" or "prod".
	Env string `yaml:"env" env:"SCMS_ENV" env-default:"dev"`

	// DataPath is the JSON data file used by the json driver.
	DataPath string `yaml:"data_path" env:"SCMS_DATA_PATH" env-default:"scms_data.json"`

	Storage Storage `yaml:"storage"`
}

// Storage holds settings for the persistence backend.
type Storage struct {
	// Driver is "json" (default) or "sqlite".
	Driver string `yaml:"driver" env:"SCMS_STORAGE_DRIVER" env-default:"json"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `yaml:"sqlite_path" env:"SCMS_SQLITE_PATH" env-default:"scms_data.db"`
}

// Load reads the config file at path, or only the environment when path
// is empty. A named file that does not exist is an error.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	} else {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolvePath returns flagPath, or CONFIG_PATH when the flag is empty.
// An empty result means no config file.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return os.Getenv(PathEnv)
}

// MustLoad is Load(ResolvePath(flagPath)). It exits the process on failure.
func MustLoad(flagPath string) *Config {
	cfg, err := Load(ResolvePath(flagPath))
	if err != nil {
		log.Fatalf("cannot load config: %s", err.Error())
	}
	return cfg
}

func (c *Config) validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case storage.DriverJSON:
		if c.DataPath == "" {
			return errors.New("config: data_path is empty")
		}
	case storage.DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("config: storage.sqlite_path is empty")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q (want %s or %s)", c.Storage.Driver, storage.DriverJSON, storage.DriverSQLite)
	}
	return nil
}
