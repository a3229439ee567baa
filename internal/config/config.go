// Package config provides application configuration loading.
//
// Configuration is resolved in order: defaults, then an optional YAML file,
// then environment variables with the PG_ prefix (PG_SERVER_PORT maps to
// server.port).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PG_"

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Log        LogConfig        `koanf:"log"`
	JWT        JWTConfig        `koanf:"jwt"`
	Cookie     CookieConfig     `koanf:"cookie"`
	CORS       CORSConfig       `koanf:"cors"`
	Automation AutomationConfig `koanf:"automation"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	MigrationsPath  string        `koanf:"migrations_path"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// JWTConfig contains token settings.
type JWTConfig struct {
	SecretKey            string        `koanf:"secret_key"`
	AccessTokenDuration  time.Duration `koanf:"access_token_duration"`
	RefreshTokenDuration time.Duration `koanf:"refresh_token_duration"`
}

// CookieConfig contains auth cookie settings.
type CookieConfig struct {
	Secure bool   `koanf:"secure"`
	Domain string `koanf:"domain"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// AutomationConfig contains scheduled job settings.
//
// EscalationInterval is the period of the stale-incident escalation job.
// RemindersCron and DigestCron are standard 5-field cron expressions
// evaluated in UTC.
type AutomationConfig struct {
	Enabled            bool          `koanf:"enabled"`
	EscalationInterval time.Duration `koanf:"escalation_interval"`
	RemindersCron      string        `koanf:"reminders_cron"`
	DigestCron         string        `koanf:"digest_cron"`
	TriggersPerMinute  int           `koanf:"triggers_per_minute"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
			MigrationsPath:  "migrations",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		JWT: JWTConfig{
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 720 * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Automation: AutomationConfig{
			Enabled:            true,
			EscalationInterval: 15 * time.Minute,
			RemindersCron:      "0 9 * * *",
			DigestCron:         "0 9 * * 1",
			TriggersPerMinute:  2,
		},
	}
}

// Load reads configuration from the optional YAML file at path and the
// environment, layered over defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	// PG_DATABASE_URL -> database.url; only the first underscore separates
	// the section from the key, so key names may contain underscores.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.Replace(s, "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("jwt.secret_key is required")
	}
	if c.Automation.TriggersPerMinute < 1 {
		return fmt.Errorf("automation.triggers_per_minute must be positive")
	}
	return nil
}
