// Package config loads the gateway configuration from a JSON file using Viper.
//
// A missing config file is created with defaults so operators get a template
// to edit. A malformed file falls back to defaults in memory without touching
// the broken file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	// VerifiedRoleID is the platform role granted on successful verification.
	// Empty means no role is configured; verification still completes.
	VerifiedRoleID string `mapstructure:"verified_role_id"`

	Captcha      CaptchaConfig      `mapstructure:"captcha"`
	Verification VerificationConfig `mapstructure:"verification"`
	Messages     MessagesConfig     `mapstructure:"messages"`
	Server       ServerConfig       `mapstructure:"server"`
	Platform     PlatformConfig     `mapstructure:"platform"`
	Audit        AuditConfig        `mapstructure:"audit"`
}

// CaptchaConfig controls challenge text and image rendering.
type CaptchaConfig struct {
	Length   int    `mapstructure:"length"`
	Width    int    `mapstructure:"width"`
	Height   int    `mapstructure:"height"`
	FontSize int    `mapstructure:"font_size"`
	FontPath string `mapstructure:"font_path"`
}

// VerificationConfig controls retry policy and durable storage.
type VerificationConfig struct {
	MaxAttempts    int    `mapstructure:"max_attempts"`
	TimeoutMinutes int    `mapstructure:"timeout_minutes"`
	StoreDriver    string `mapstructure:"store_driver"`
	StoreLocation  string `mapstructure:"store_location"`
	PostgresURL    string `mapstructure:"postgres_url"`
}

// Timeout returns the lockout window as a duration.
func (v VerificationConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutMinutes) * time.Minute
}

// MessagesConfig holds the user-facing message templates.
type MessagesConfig struct {
	Welcome         string `mapstructure:"welcome"`
	AlreadyVerified string `mapstructure:"already_verified"`
	Success         string `mapstructure:"success"`
	Failed          string `mapstructure:"failed"`
	Timeout         string `mapstructure:"timeout"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// JWTSigningKey guards admin routes. Empty disables them.
	JWTSigningKey string `mapstructure:"jwt_signing_key"`
	Debug         bool   `mapstructure:"debug"`
}

// PlatformConfig points at the chat platform bridge. Empty BaseURL selects the
// no-op adapter (useful for local development without a live platform).
type PlatformConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// AuditConfig controls the optional Kafka audit sink.
type AuditConfig struct {
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
}

// DefaultPath is used when no explicit config path is provided.
const DefaultPath = "warden.json"

func setDefaults(v *viper.Viper) {
	v.SetDefault("verified_role_id", "")

	v.SetDefault("captcha.length", 6)
	v.SetDefault("captcha.width", 280)
	v.SetDefault("captcha.height", 90)
	v.SetDefault("captcha.font_size", 40)
	v.SetDefault("captcha.font_path", "")

	v.SetDefault("verification.max_attempts", 5)
	v.SetDefault("verification.timeout_minutes", 10)
	v.SetDefault("verification.store_driver", "sqlite")
	v.SetDefault("verification.store_location", "verification.db")
	v.SetDefault("verification.postgres_url", "")

	v.SetDefault("messages.welcome", "Welcome. Please complete the captcha verification to gain access.")
	v.SetDefault("messages.already_verified", "Your account has already been verified.")
	v.SetDefault("messages.success", "Verification completed successfully. You now have full access.")
	v.SetDefault("messages.failed", "The captcha entry was incorrect. Please try again.")
	v.SetDefault("messages.timeout", "Maximum verification attempts exceeded. Please try again after the timeout period.")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.jwt_signing_key", "")
	v.SetDefault("server.debug", false)

	v.SetDefault("platform.base_url", "")
	v.SetDefault("platform.token", "")

	v.SetDefault("audit.kafka_brokers", []string{})
	v.SetDefault("audit.kafka_topic", "warden-audit")
}

// Load reads the config file at path, creating it with defaults when absent.
// A file that exists but cannot be parsed is left untouched and defaults are
// used in memory; the problem is logged so operators notice.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if err := v.WriteConfigAs(path); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		logger.Info("created default configuration file", "path", path)
	} else if err := v.ReadInConfig(); err != nil {
		logger.Warn("config file is malformed, using defaults in memory",
			"path", path, "error", err)
		v = viper.New()
		setDefaults(v)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Verification.MaxAttempts < 1 {
		cfg.Verification.MaxAttempts = 5
	}
	if cfg.Verification.TimeoutMinutes < 1 {
		cfg.Verification.TimeoutMinutes = 10
	}
	if cfg.Captcha.Length < 1 {
		cfg.Captcha.Length = 6
	}

	return &cfg, nil
}
