// Package config loads service settings from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageLocal  = "local"
	StorageGCS    = "gcs"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Alert providers.
const (
	AlertNone  = ""
	AlertMock  = "mock"
	AlertBrevo = "brevo"
	AlertGmail = "gmail"
)

// Config holds all service settings.
type Config struct {
	Storage struct {
		Backend   string `yaml:"backend"`    // local, gcs, sqlite or memory
		LocalPath string `yaml:"local_path"` // Directory for the local backend
		Bucket    string `yaml:"bucket"`     // Bucket for the gcs backend
		Prefix    string `yaml:"prefix"`     // Object name prefix for the gcs backend
		SQLite    string `yaml:"sqlite"`     // Database file for the sqlite backend
	} `yaml:"storage"`

	Alert struct {
		Provider        string `yaml:"provider"` // empty disables alerts
		To              string `yaml:"to"`
		From            string `yaml:"from"`
		FromName        string `yaml:"from_name"`
		BrevoAPIKey     string `yaml:"brevo_api_key"`
		CredentialsJSON string `yaml:"-"` // Only ever read from the environment
	} `yaml:"alert"`

	LogLevel string `yaml:"log_level"`
	Port     int    `yaml:"port"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	var c Config
	c.Port = 8080
	c.LogLevel = "info"
	c.Storage.Backend = StorageLocal
	c.Storage.LocalPath = "./data"
	c.Storage.SQLite = "./data/widget.db"
	c.Alert.FromName = "Wise Jobs Widget"
	return c
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables.
func Load(getenv func(string) string) (Config, error) {
	cfg := Default()

	if path := getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	return cfg, Validate(cfg)
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse PORT: %w", err)
		}
		cfg.Port = port
	}
	set(&cfg.LogLevel, "LOG_LEVEL")

	set(&cfg.Storage.Backend, "STORAGE")
	set(&cfg.Storage.LocalPath, "LOCAL_STORAGE")
	set(&cfg.Storage.Bucket, "STORAGE_BUCKET")
	set(&cfg.Storage.Prefix, "STORAGE_PREFIX")
	set(&cfg.Storage.SQLite, "SQLITE_PATH")

	// A bucket alone selects Cloud Storage, matching how the service is
	// deployed on Cloud Run.
	if getenv("STORAGE") == "" && getenv("STORAGE_BUCKET") != "" {
		cfg.Storage.Backend = StorageGCS
	}

	set(&cfg.Alert.Provider, "ALERT_PROVIDER")
	set(&cfg.Alert.To, "ALERT_TO")
	set(&cfg.Alert.From, "ALERT_FROM")
	set(&cfg.Alert.BrevoAPIKey, "BREVO_API_KEY")
	set(&cfg.Alert.CredentialsJSON, "GOOGLE_CREDENTIALS_JSON")
	return nil
}

// Validate reports every problem with cfg at once.
func Validate(cfg Config) error {
	var errs []string

	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, "port must be 1..65535")
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	switch cfg.Storage.Backend {
	case StorageLocal:
		if cfg.Storage.LocalPath == "" {
			errs = append(errs, "storage.local_path is required for the local backend")
		}
	case StorageGCS:
		if cfg.Storage.Bucket == "" {
			errs = append(errs, "storage.bucket is required for the gcs backend")
		}
	case StorageSQLite:
		if cfg.Storage.SQLite == "" {
			errs = append(errs, "storage.sqlite is required for the sqlite backend")
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Sprintf("unknown storage backend %q", cfg.Storage.Backend))
	}

	switch cfg.Alert.Provider {
	case AlertNone, AlertMock:
	case AlertBrevo:
		if cfg.Alert.BrevoAPIKey == "" {
			errs = append(errs, "alert.brevo_api_key is required for the brevo provider")
		}
		if cfg.Alert.From == "" {
			errs = append(errs, "alert.from is required for the brevo provider")
		}
	case AlertGmail:
		if cfg.Alert.CredentialsJSON == "" {
			errs = append(errs, "GOOGLE_CREDENTIALS_JSON is required for the gmail provider")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown alert provider %q", cfg.Alert.Provider))
	}
	if cfg.Alert.Provider != AlertNone && cfg.Alert.To == "" {
		errs = append(errs, "alert.to is required when alerts are enabled")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
