package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the ZapPedido bot.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Backend  BackendConfig  `mapstructure:"backend" validate:"required"`
	Payments PaymentsConfig `mapstructure:"payments" validate:"required"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Bot      BotConfig      `mapstructure:"bot"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

// ServerConfig configures the HTTP server that receives webhooks and serves
// health and metrics endpoints.
type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WhatsAppConfig configures the WhatsApp Cloud API channel.
type WhatsAppConfig struct {
	APIBaseURL    string `mapstructure:"api_base_url" validate:"required,url"`
	PhoneNumberID string `mapstructure:"phone_number_id" validate:"required"`
	Token         string `mapstructure:"token" validate:"required"`
	VerifyToken   string `mapstructure:"verify_token" validate:"required"`
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

// DatabaseConfig configures the PostgreSQL connection for customer profiles.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslMode,
	)
}

// BackendConfig configures the order backend client.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PaymentsConfig configures the payment-link service and the status poller.
type PaymentsConfig struct {
	BaseURL      string        `mapstructure:"base_url" validate:"required,url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
}

// DeliveryConfig configures delivery fee computation.
type DeliveryConfig struct {
	BaseFee       float64 `mapstructure:"base_fee"`
	FreeAboveOver float64 `mapstructure:"free_above"`
}

// BotConfig holds conversation flow tunables.
type BotConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MenuURL         string        `mapstructure:"menu_url"`
	FollowUpDelay   time.Duration `mapstructure:"follow_up_delay"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateWindow      time.Duration `mapstructure:"rate_window"`
	RateWhitelist   []string      `mapstructure:"rate_whitelist"`
}

// MaxRetriesOrDefault caps repeated invalid input before escalation.
func (c BotConfig) MaxRetriesOrDefault() int {
	if c.MaxRetries <= 0 {
		return 3
	}
	return c.MaxRetries
}

// LoggerConfig configures the slog pipeline.
type LoggerConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	File   FileConfig `mapstructure:"file"`
}

// FileConfig enables rotated file output.
type FileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}
