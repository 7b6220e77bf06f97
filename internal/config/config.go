// Package config loads and validates catalog-sync configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob the sync pipeline reads, loaded via Viper from a
// YAML file and CATALOGSYNC_* environment overrides.
type Config struct {
	DB       DBConfig       `mapstructure:"db"`
	Docstore DocstoreConfig `mapstructure:"docstore"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Sync     SyncConfig     `mapstructure:"sync"`
}

// DBConfig controls access to the relational catalog and pagination behavior.
type DBConfig struct {
	DSN            string `mapstructure:"dsn"`
	MaxConns       int32  `mapstructure:"max_conns"`
	MinConns       int32  `mapstructure:"min_conns"`
	PageSize       int    `mapstructure:"page_size"`
	MaxHandles     int    `mapstructure:"max_handles"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DocstoreConfig locates the downstream document store holding listings.
type DocstoreConfig struct {
	Provider   string `mapstructure:"provider"`
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// EnrichConfig describes the external classification/enrichment endpoint.
type EnrichConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	SecretHeader   string `mapstructure:"secret_header"`
	SecretValue    string `mapstructure:"secret_value"`
	Environment    string `mapstructure:"environment"`
	App            string `mapstructure:"app"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LedgerConfig sets where the run outcome artifacts are persisted.
type LedgerConfig struct {
	Dir string `mapstructure:"dir"`
}

// ServerConfig controls the optional status/metrics HTTP surface.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// SyncConfig holds run-level defaults; CLI flags override these.
type SyncConfig struct {
	Force bool `mapstructure:"force"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.max_conns", 32)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.page_size", 50)
	v.SetDefault("db.max_handles", 30)
	v.SetDefault("db.timeout_seconds", 300)
	v.SetDefault("docstore.provider", "mongo")
	v.SetDefault("docstore.collection", "price_v2")
	v.SetDefault("enrich.secret_header", "x-bbb-secret-client")
	v.SetDefault("enrich.app", "catalog-sync")
	v.SetDefault("enrich.timeout_seconds", 300)
	v.SetDefault("ledger.dir", "data")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("sync.force", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.DB.PageSize <= 0 {
		return fmt.Errorf("db.page_size must be > 0")
	}
	if c.DB.MaxHandles <= 0 {
		return fmt.Errorf("db.max_handles must be > 0")
	}
	if int(c.DB.MaxConns) < c.DB.MaxHandles+1 {
		return fmt.Errorf("db.max_conns must be at least db.max_handles+1")
	}
	if c.Docstore.Provider == "mongo" {
		if c.Docstore.URI == "" || c.Docstore.Database == "" {
			return fmt.Errorf("docstore.uri and docstore.database are required when provider is mongo")
		}
	}
	if c.Enrich.BaseURL == "" {
		return fmt.Errorf("enrich.base_url is required")
	}
	if c.Enrich.SecretHeader == "" {
		return fmt.Errorf("enrich.secret_header is required")
	}
	if c.Ledger.Dir == "" {
		return fmt.Errorf("ledger.dir is required")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the status server is enabled")
	}
	return nil
}

// DBTimeout converts the relational request timeout into a duration.
func (c Config) DBTimeout() time.Duration {
	return time.Duration(c.DB.TimeoutSeconds) * time.Second
}

// EnrichTimeout converts the enrichment request timeout into a duration.
func (c Config) EnrichTimeout() time.Duration {
	return time.Duration(c.Enrich.TimeoutSeconds) * time.Second
}
