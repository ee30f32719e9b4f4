// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/artpar/postmeta/core/registry"
	"github.com/artpar/postmeta/domain/field"
	"github.com/artpar/postmeta/domain/key"
	"github.com/artpar/postmeta/domain/post"
	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "POSTMETA_"

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	OpenAPI  OpenAPIConfig  `yaml:"openapi"`
	Tracing  TracingConfig  `yaml:"tracing"`

	// Fields are registered at startup. An empty list registers the
	// default custom_meta field.
	Fields []FieldConfig `yaml:"fields"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host           string        `yaml:"host" env:"HOST"`
	Port           int           `yaml:"port" env:"PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
}

// DatabaseConfig configures storage.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"` // "sqlite" or "memory"
	DSN    string `yaml:"dsn" env:"DSN"`
}

// AuthConfig configures API keys and bearer tokens.
type AuthConfig struct {
	KeyPrefix  string        `yaml:"key_prefix" env:"KEY_PREFIX"`
	JWTSecret  string        `yaml:"jwt_secret,omitempty" env:"JWT_SECRET"`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	BcryptCost int           `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" env:"FORMAT"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// OpenAPIConfig configures the generated API document and Swagger UI.
type OpenAPIConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	Endpoint    string  `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRatio float64 `yaml:"sample_ratio" env:"SAMPLE_RATIO"`
}

// FieldConfig declares one registered field.
type FieldConfig struct {
	ResourceTypes []string     `yaml:"resource_types"`
	Name          string       `yaml:"name"`
	StorageKey    string       `yaml:"storage_key,omitempty"`
	Schema        field.Schema `yaml:"schema"`
	Gate          field.Gate   `yaml:"gate,omitempty"`
}

// Definition converts the declaration into a field definition.
func (f FieldConfig) Definition() field.Definition {
	return field.Definition{
		ResourceTypes: f.ResourceTypes,
		Name:          f.Name,
		StorageKey:    f.StorageKey,
		Schema:        f.Schema,
		Gate:          f.Gate,
	}
}

// DefaultFields returns the fields registered when none are configured.
func DefaultFields() []FieldConfig {
	return []FieldConfig{
		{
			ResourceTypes: []string{post.ResourceType},
			Name:          "custom_meta",
			StorageKey:    "_custom_meta",
			Schema: field.Schema{
				Description: "Custom meta value.",
				Type:        field.TypeString,
				Context:     []field.Context{field.ContextView, field.ContextEdit},
			},
			Gate: field.GateWrite,
		},
	}
}

// Load reads configuration from a YAML file, then applies environment
// overrides, defaults and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return finish(&cfg)
}

// LoadFromEnv creates configuration from defaults and POSTMETA_*
// environment variables only.
//
// Environment variables:
//
//	POSTMETA_SERVER_HOST, POSTMETA_SERVER_PORT
//	POSTMETA_DATABASE_DRIVER, POSTMETA_DATABASE_DSN
//	POSTMETA_AUTH_KEY_PREFIX, POSTMETA_AUTH_JWT_SECRET, POSTMETA_AUTH_TOKEN_TTL
//	POSTMETA_LOG_LEVEL, POSTMETA_LOG_FORMAT
//	POSTMETA_METRICS_ENABLED, POSTMETA_OPENAPI_ENABLED
//	POSTMETA_TRACING_ENABLED, POSTMETA_TRACING_ENDPOINT
func LoadFromEnv() (*Config, error) {
	return finish(&Config{})
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	setDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies POSTMETA_* variables. Environment variables
// always override file-based configuration.
func applyEnvOverrides(cfg *Config) error {
	sections := []struct {
		prefix string
		target any
	}{
		{"SERVER_", &cfg.Server},
		{"DATABASE_", &cfg.Database},
		{"AUTH_", &cfg.Auth},
		{"LOG_", &cfg.Logging},
		{"METRICS_", &cfg.Metrics},
		{"OPENAPI_", &cfg.OpenAPI},
		{"TRACING_", &cfg.Tracing},
	}
	for _, s := range sections {
		if err := env.ParseWithOptions(s.target, env.Options{Prefix: EnvPrefix + s.prefix}); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "postmeta.db"
	}

	if cfg.Auth.KeyPrefix == "" {
		cfg.Auth.KeyPrefix = key.DefaultPrefix
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 10
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "postmeta"
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}

	if len(cfg.Fields) == 0 {
		cfg.Fields = DefaultFields()
	}
}

// Validate checks a configuration that already has defaults applied.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.DSN == "" {
			return errors.New("database.dsn is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be 'sqlite' or 'memory', got %q", cfg.Database.Driver)
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", cfg.Auth.BcryptCost)
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		return errors.New("tracing.endpoint is required when tracing is enabled")
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be between 0 and 1, got %v", cfg.Tracing.SampleRatio)
	}

	if _, err := BuildRegistry(cfg.Fields); err != nil {
		return err
	}
	return nil
}

// BuildRegistry registers fields in order on a fresh post registry.
// The first invalid or conflicting declaration fails the whole set.
func BuildRegistry(fields []FieldConfig) (*registry.Registry, error) {
	reg := registry.New(registry.ResourceType{Name: post.ResourceType, Builtins: post.Attributes})
	for i, f := range fields {
		if err := reg.Register(f.Definition()); err != nil {
			return nil, fmt.Errorf("fields[%d] (%s): %w", i, f.Name, err)
		}
	}
	return reg, nil
}
