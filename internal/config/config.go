// Package config loads and saves the TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/ramonehamilton/swu-binder/internal/cards"
	"github.com/ramonehamilton/swu-binder/internal/ledger"
)

// DirName is the per-user directory holding config, database, and backups.
const DirName = ".swu-binder"

// Config represents the application configuration.
type Config struct {
	// Catalog source configuration
	Catalog CatalogConfig `toml:"catalog"`

	// Ledger database and backups
	Storage StorageConfig `toml:"storage"`

	// HTTP API
	Server ServerConfig `toml:"server"`

	// Drop-folder auto import
	Inbox InboxConfig `toml:"inbox"`

	// Rarity and type synonyms layered over the built-in table
	Rules cards.Synonyms `toml:"rules"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// CatalogConfig contains set catalog source settings.
type CatalogConfig struct {
	Location       string `toml:"location"`        // Manifest base URL or local directory
	ManifestFile   string `toml:"manifest_file"`   // Manifest file name (default "sets.json")
	RequestTimeout string `toml:"request_timeout"` // Per-request timeout (e.g., "30s")
	RateLimit      string `toml:"rate_limit"`      // Minimum spacing between requests (e.g., "100ms")
	FetchTimeout   string `toml:"fetch_timeout"`   // Bound on one set build
	Prewarm        bool   `toml:"prewarm"`         // Build every set at startup for cross-set search
	PrewarmWorkers int    `toml:"prewarm_workers"` // Concurrent builds during prewarm
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	DBPath         string `toml:"db_path"`         // SQLite file; empty means <config dir>/ledger.db
	BackupEnabled  bool   `toml:"backup_enabled"`  // Run scheduled snapshot backups
	BackupDir      string `toml:"backup_dir"`      // Empty means <config dir>/backups
	BackupSchedule string `toml:"backup_schedule"` // Cron expression or descriptor (e.g., "@daily")
	BackupKeep     int    `toml:"backup_keep"`     // Newest snapshots to keep (0 = keep all)
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	RequestTimeout string   `toml:"request_timeout"`
}

// InboxConfig contains drop-folder import settings.
type InboxConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`  // Empty means <config dir>/inbox
	Mode    string `toml:"mode"` // "merge" or "replace"
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode  bool   `toml:"debug_mode"`  // Enable debug logging
	DefaultSet string `toml:"default_set"` // Active set when none is given
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Location:       "",
			ManifestFile:   "sets.json",
			RequestTimeout: "30s",
			RateLimit:      "100ms",
			FetchTimeout:   "60s",
			Prewarm:        true,
			PrewarmWorkers: 4,
		},
		Storage: StorageConfig{
			BackupEnabled:  true,
			BackupSchedule: "@daily",
			BackupKeep:     14,
		},
		Server: ServerConfig{
			Port:           8787,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			RequestTimeout: "60s",
		},
		Inbox: InboxConfig{
			Enabled: false,
			Mode:    string(ledger.ModeMerge),
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// Dir returns the per-user configuration directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return dir, nil
}

// Path returns the path to the configuration file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default path.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration at path. Missing keys keep their default
// values; a missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return config, nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	durations := map[string]string{
		"catalog.request_timeout": c.Catalog.RequestTimeout,
		"catalog.rate_limit":      c.Catalog.RateLimit,
		"catalog.fetch_timeout":   c.Catalog.FetchTimeout,
		"server.request_timeout":  c.Server.RequestTimeout,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		if d < 0 {
			return fmt.Errorf("%s cannot be negative: %s", name, value)
		}
	}

	if c.Catalog.PrewarmWorkers < 0 {
		return fmt.Errorf("prewarm workers cannot be negative: %d", c.Catalog.PrewarmWorkers)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Storage.BackupKeep < 0 {
		return fmt.Errorf("backup keep count cannot be negative: %d", c.Storage.BackupKeep)
	}
	if c.Storage.BackupEnabled {
		if _, err := cron.ParseStandard(c.Storage.BackupSchedule); err != nil {
			return fmt.Errorf("invalid backup schedule %q: %w", c.Storage.BackupSchedule, err)
		}
	}
	if _, err := ledger.ParseImportMode(c.Inbox.Mode); err != nil {
		return fmt.Errorf("invalid inbox mode: %w", err)
	}
	return nil
}

// Synonyms returns the built-in synonym table with the configured rules layered on top.
func (c *Config) Synonyms() *cards.Synonyms {
	return cards.DefaultSynonyms().Merge(&c.Rules)
}

// GetRequestTimeout returns the catalog request timeout.
func (c *Config) GetRequestTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Catalog.RequestTimeout)
}

// GetRateLimit returns the minimum spacing between catalog requests.
func (c *Config) GetRateLimit() (time.Duration, error) {
	return time.ParseDuration(c.Catalog.RateLimit)
}

// GetFetchTimeout returns the bound on one set build.
func (c *Config) GetFetchTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Catalog.FetchTimeout)
}

// GetServerTimeout returns the HTTP request timeout.
func (c *Config) GetServerTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Server.RequestTimeout)
}

// DBPath returns the configured database path or the default under dir.
func (c *Config) DBPath(dir string) string {
	return orDefault(c.Storage.DBPath, filepath.Join(dir, "ledger.db"))
}

// BackupDir returns the configured backup directory or the default under dir.
func (c *Config) BackupDir(dir string) string {
	return orDefault(c.Storage.BackupDir, filepath.Join(dir, "backups"))
}

// InboxDir returns the configured inbox directory or the default under dir.
func (c *Config) InboxDir(dir string) string {
	return orDefault(c.Inbox.Dir, filepath.Join(dir, "inbox"))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
