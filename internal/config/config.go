// Package config loads service settings from the environment, an optional
// .env file and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Aayan-infotech/bitcoin-admin/internal/platform"
)

// EnvPrefix is prepended to every environment variable, e.g.
// REWARDS_ADMIN_PORT.
const EnvPrefix = "REWARDS_ADMIN"

// Settlement endpoint modes.
const (
	EndpointApproveRequest = platform.EndpointApproveRequest
	EndpointTransfer       = platform.EndpointTransfer
)

const devJWTSecret = "dev-only-secret-change-me"

// Config holds all runtime settings.
type Config struct {
	Env       string
	Port      int
	LogLevel  string
	LogFormat string

	DatabaseDriver string
	DatabaseURL    string

	PlatformBaseURL    string
	PlatformTimeout    time.Duration
	SettlementEndpoint string
	MaxInFlight        int64

	JWTSecret  string
	SessionTTL time.Duration

	AllowedOrigins []string
}

func defaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_url", "./data/rewards-admin.db")
	v.SetDefault("platform_base_url", "http://localhost:3210/api")
	v.SetDefault("platform_timeout", 30*time.Second)
	v.SetDefault("settlement_endpoint", EndpointApproveRequest)
	v.SetDefault("max_in_flight", 1)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("session_ttl", 12*time.Hour)
	v.SetDefault("allowed_origins", "*")
}

// Load reads configuration. A .env file at dotEnvPath is loaded first if it
// exists; pass "" to skip it. Real environment variables win over .env.
func Load(dotEnvPath string) (Config, error) {
	if dotEnvPath != "" {
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return Config{}, fmt.Errorf("failed to load %s: %w", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to stat %s: %w", dotEnvPath, err)
		}
	}

	v := viper.New()
	defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg := Config{
		Env:                strings.ToLower(v.GetString("env")),
		Port:               v.GetInt("port"),
		LogLevel:           strings.ToLower(v.GetString("log_level")),
		LogFormat:          strings.ToLower(v.GetString("log_format")),
		DatabaseDriver:     strings.ToLower(v.GetString("db_driver")),
		DatabaseURL:        v.GetString("db_url"),
		PlatformBaseURL:    strings.TrimRight(v.GetString("platform_base_url"), "/"),
		PlatformTimeout:    v.GetDuration("platform_timeout"),
		SettlementEndpoint: strings.ToLower(v.GetString("settlement_endpoint")),
		MaxInFlight:        v.GetInt64("max_in_flight"),
		JWTSecret:          v.GetString("jwt_secret"),
		SessionTTL:         v.GetDuration("session_ttl"),
		AllowedOrigins:     splitList(v.GetString("allowed_origins")),
	}

	if cfg.JWTSecret == "" && cfg.IsDev() {
		cfg.JWTSecret = devJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "test"
}

// Validate checks that settings are usable.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported db_driver %q (use sqlite or postgres)", c.DatabaseDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("db_url is required"))
	}
	if c.PlatformBaseURL == "" {
		errs = append(errs, errors.New("platform_base_url is required"))
	}
	if c.PlatformTimeout <= 0 {
		errs = append(errs, errors.New("platform_timeout must be positive"))
	}
	switch c.SettlementEndpoint {
	case EndpointApproveRequest, EndpointTransfer:
	default:
		errs = append(errs, fmt.Errorf("unsupported settlement_endpoint %q", c.SettlementEndpoint))
	}
	if c.MaxInFlight < 1 {
		errs = append(errs, errors.New("max_in_flight must be at least 1"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required outside dev"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
