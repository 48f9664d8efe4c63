package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is prepended to every configuration key when read from the environment.
const EnvPrefix = "NUTRIADMIN_"

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

// Config holds runtime settings for the API server and its dependencies.
type Config struct {
	HTTPAddr    string `koanf:"http_addr" validate:"required"`
	PGDSN       string `koanf:"pg_dsn"`
	Environment string `koanf:"environment" validate:"oneof=development production"`

	PGMaxConns        int           `koanf:"pg_max_conns" validate:"gte=1"`
	PGMaxIdleConns    int           `koanf:"pg_max_idle_conns" validate:"gte=0,ltefield=PGMaxConns"`
	PGConnMaxLifetime time.Duration `koanf:"pg_conn_max_lifetime" validate:"gte=0"`

	AuthSecret   string        `koanf:"auth_secret" validate:"required,min=16"`
	AuthIssuer   string        `koanf:"auth_issuer" validate:"required"`
	AuthAudience string        `koanf:"auth_audience"`
	TokenTTL     time.Duration `koanf:"token_ttl" validate:"gt=0"`

	DevTemporaryPassword string `koanf:"dev_temporary_password" validate:"required,min=8"`

	CacheBackend  string        `koanf:"cache_backend" validate:"oneof=memory redis none"`
	CacheTTL      time.Duration `koanf:"cache_ttl" validate:"gte=0"`
	CacheSize     int           `koanf:"cache_size" validate:"gte=1"`
	RedisAddr     string        `koanf:"redis_addr" validate:"required_if=CacheBackend redis"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db" validate:"gte=0"`

	MailRelayURL string `koanf:"mail_relay_url" validate:"omitempty,url"`
	MailAPIKey   string `koanf:"mail_api_key"`
	MailFrom     string `koanf:"mail_from" validate:"required,email"`
	LoginURL     string `koanf:"login_url" validate:"required"`
	FilesBaseURL string `koanf:"files_base_url" validate:"required"`

	// AdminEmail and AdminPassword bootstrap an Administrator on startup when
	// no user with that email exists yet.
	AdminEmail    string `koanf:"admin_email" validate:"omitempty,email"`
	AdminPassword string `koanf:"admin_password" validate:"required_with=AdminEmail,omitempty,min=8"`

	RateBurst    int    `koanf:"rate_burst" validate:"gte=1"`
	RatePerSec   int    `koanf:"rate_per_sec" validate:"gte=1"`
	LogLevel     string `koanf:"log_level" validate:"oneof=debug info warn warning error"`
	MaxBodyBytes int64  `koanf:"max_body_bytes" validate:"gte=1024"`
}

// Default returns the baseline configuration used before environment overrides.
func Default() Config {
	return Config{
		HTTPAddr:             ":8080",
		Environment:          EnvironmentProduction,
		PGMaxConns:           50,
		PGMaxIdleConns:       25,
		PGConnMaxLifetime:    15 * time.Minute,
		AuthIssuer:           "nutriadmin",
		AuthAudience:         "nutriadmin-api",
		TokenTTL:             48 * time.Hour,
		DevTemporaryPassword: "9c272156",
		CacheBackend:         "memory",
		CacheTTL:             10 * time.Minute,
		CacheSize:            4096,
		RedisAddr:            "",
		MailFrom:             "no-reply@nutriadmin.org",
		LoginURL:             "http://localhost:3000/login",
		FilesBaseURL:         "/files/agencies",
		RateBurst:            200,
		RatePerSec:           100,
		LogLevel:             "info",
		MaxBodyBytes:         1 << 20,
	}
}

// IsDevelopment reports whether development conveniences (fixed temporary
// password, inactive-login bypass) are enabled.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, EnvironmentDevelopment)
}

// Load builds the configuration from defaults overlaid with NUTRIADMIN_* variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key string, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			return key, strings.TrimSpace(value)
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks struct-level constraints.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}
