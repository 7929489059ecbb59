package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap/zapcore"

	"github.com/youthhire/safety-engine/pkg/agegate"
	"github.com/youthhire/safety-engine/pkg/models"
)

// Config holds all configuration for the safety engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis is optional; when Host is empty, policy changes are not broadcast to other instances.
	Redis RedisConfig `yaml:"redis"`

	Safety SafetyConfig `yaml:"safety"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"safety"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"safety_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Enabled reports whether a Redis host is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// SafetyConfig holds settings for the messaging safety core.
type SafetyConfig struct {
	// CatalogPath overrides the embedded intent catalog. Empty uses the built-in one.
	CatalogPath    string `yaml:"catalog_path" env:"INTENT_CATALOG_PATH" env-default:""`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// PolicyResyncInterval bounds how long an instance can evaluate against a
	// superseded policy when a Redis announcement is missed.
	PolicyResyncInterval time.Duration `yaml:"policy_resync_interval" env:"POLICY_RESYNC_INTERVAL" env-default:"30s"`

	// Seed thresholds for the version 1 age policy, only used when no policy exists yet.
	SeedMinAgeLow    int `yaml:"seed_min_age_low" env:"SEED_MIN_AGE_LOW" env-default:"15"`
	SeedMinAgeMedium int `yaml:"seed_min_age_medium" env:"SEED_MIN_AGE_MEDIUM" env-default:"16"`
	SeedMinAgeHigh   int `yaml:"seed_min_age_high" env:"SEED_MIN_AGE_HIGH" env-default:"18"`
}

// SeedPolicy returns the policy document used to bootstrap version 1.
func (c *SafetyConfig) SeedPolicy() models.PolicyDocument {
	return models.PolicyDocument{
		models.RiskLow:    {MinAge: c.SeedMinAgeLow},
		models.RiskMedium: {MinAge: c.SeedMinAgeMedium},
		models.RiskHigh:   {MinAge: c.SeedMinAgeHigh},
	}
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// A missing config.yaml is not an error; defaults and environment are used.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.Database.Host = ResolveHostForDocker(cfg.Database.Host)
	cfg.Redis.Host = ResolveHostForDocker(cfg.Redis.Host)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if c.Safety.PolicyResyncInterval <= 0 {
		return fmt.Errorf("policy_resync_interval must be positive, got %s", c.Safety.PolicyResyncInterval)
	}

	if err := agegate.ValidatePolicyShape(c.Safety.SeedPolicy()); err != nil {
		return fmt.Errorf("seed policy: %w", err)
	}

	return nil
}

// IsProduction reports whether the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ConnectionString returns a PostgreSQL keyword/value connection string.
// Values are quoted so an empty or space-containing password stays intact.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteConnValue(c.Host), c.Port, quoteConnValue(c.User), quoteConnValue(c.Password),
		quoteConnValue(c.Database), quoteConnValue(c.SSLMode),
	)
}

func quoteConnValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
