package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g.
// DENTAL_STORAGE_DRIVER=sqlite. Field names are split on case changes, so
// KeyPrefix reads DENTAL_STORAGE_KEY_PREFIX.
const EnvPrefix = "DENTAL"

type ServerConfig struct {
	Port         int           `mapstructure:"port" split_words:"true"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" split_words:"true"`
	// RateLimit is requests per second per account on authenticated routes;
	// 0 disables it. Login is never limited.
	RateLimit    float64       `mapstructure:"rate_limit" split_words:"true"`
	RateBurst    int           `mapstructure:"rate_burst" split_words:"true"`
}

type LogConfig struct {
	Level string `mapstructure:"level" split_words:"true"`
	JSON  bool   `mapstructure:"json" split_words:"true"`
}

type StorageConfig struct {
	Driver      string        `mapstructure:"driver" split_words:"true"`
	Path        string        `mapstructure:"path" split_words:"true"`
	DSN         string        `mapstructure:"dsn" split_words:"true"`
	SQLDriver   string        `mapstructure:"sql_driver" split_words:"true"`
	RedisURL    string        `mapstructure:"redis_url" split_words:"true"`
	S3Bucket    string        `mapstructure:"s3_bucket" split_words:"true"`
	S3Region    string        `mapstructure:"s3_region" split_words:"true"`
	S3Endpoint  string        `mapstructure:"s3_endpoint" split_words:"true"`
	S3PathStyle bool          `mapstructure:"s3_path_style" split_words:"true"`
	KeyPrefix   string        `mapstructure:"key_prefix" split_words:"true"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl" split_words:"true"`
	// BreakerFailures consecutive backend failures open the circuit for
	// BreakerTimeout. Only applies to network drivers; 0 disables it.
	BreakerFailures int           `mapstructure:"breaker_failures" split_words:"true"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout" split_words:"true"`
}

type AuthConfig struct {
	PasswordMode string        `mapstructure:"password_mode" split_words:"true"`
	BcryptCost   int           `mapstructure:"bcrypt_cost" split_words:"true"`
	JWTSecret    string        `mapstructure:"jwt_secret" split_words:"true"`
	TokenExpiry  time.Duration `mapstructure:"token_expiry" split_words:"true"`
}

type AttachmentsConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes" split_words:"true"`
}

type EventsConfig struct {
	RedisURL string `mapstructure:"redis_url" split_words:"true"`
	Channel  string `mapstructure:"channel" split_words:"true"`
}

type MonitoringConfig struct {
	MetricsEnabled bool   `mapstructure:"metrics_enabled" split_words:"true"`
	MetricsPath    string `mapstructure:"metrics_path" split_words:"true"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server" split_words:"true"`
	Log         LogConfig         `mapstructure:"log" split_words:"true"`
	Storage     StorageConfig     `mapstructure:"storage" split_words:"true"`
	Auth        AuthConfig        `mapstructure:"auth" split_words:"true"`
	Attachments AttachmentsConfig `mapstructure:"attachments" split_words:"true"`
	Events      EventsConfig      `mapstructure:"events" split_words:"true"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring" split_words:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "./data/dental.db")
	v.SetDefault("storage.sql_driver", "postgres")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.cache_ttl", time.Duration(0))
	v.SetDefault("storage.breaker_failures", 5)
	v.SetDefault("storage.breaker_timeout", 10*time.Second)

	v.SetDefault("auth.password_mode", "plaintext")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.jwt_secret", "change-me")
	v.SetDefault("auth.token_expiry", 12*time.Hour)

	v.SetDefault("attachments.max_bytes", int64(10<<20))

	v.SetDefault("events.channel", "dental.changes")

	v.SetDefault("monitoring.metrics_enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults are static; decoding them cannot fail
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// LoadConfig reads config.yml from path (or the usual search paths when path
// is empty), then applies DENTAL_* environment overrides. A missing file is
// not an error; every key has a default.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "fs", "sqlite", "postgres", "redis", "s3":
	default:
		return fmt.Errorf("invalid storage.driver %q", c.Storage.Driver)
	}
	switch c.Auth.PasswordMode {
	case "plaintext", "bcrypt":
	default:
		return fmt.Errorf("invalid auth.password_mode %q", c.Auth.PasswordMode)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("server.rate_limit and server.rate_burst must not be negative")
	}
	if c.Attachments.MaxBytes < 0 {
		return fmt.Errorf("attachments.max_bytes must not be negative")
	}
	return nil
}
