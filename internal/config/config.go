package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Gateway   GatewayConfig   `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
}

type ServerConfig struct {
	Port string `mapstructure:"SERVER_PORT"`
	Host string `mapstructure:"SERVER_HOST"`
	Env  string `mapstructure:"ENV"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime string `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

// GatewayConfig carries the payment provider credentials. They are read once
// at startup and passed to the adapter as an explicit dependency.
type GatewayConfig struct {
	ID        string `mapstructure:"GATEWAY_ID"`
	Key       string `mapstructure:"GATEWAY_KEY"`
	ResultURL string `mapstructure:"GATEWAY_RESULT_URL"`
	ReturnURL string `mapstructure:"GATEWAY_RETURN_URL"`
	BaseURL   string `mapstructure:"GATEWAY_BASE_URL"`
	Timeout   string `mapstructure:"GATEWAY_TIMEOUT"`
}

type SchedulerConfig struct {
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`
	PaymentExpiry string `mapstructure:"PAYMENT_EXPIRY"`
	Timezone      string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	DefaultCurrency   string `mapstructure:"DEFAULT_CURRENCY"`
	CogsFallbackRatio string `mapstructure:"COGS_FALLBACK_RATIO"`
	IDRetryAttempts   int    `mapstructure:"ID_RETRY_ATTEMPTS"`
	ReportCacheTTL    string `mapstructure:"REPORT_CACHE_TTL"`
}

// Load reads configuration from environment variables and an optional .env.
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("GATEWAY_BASE_URL", "https://www.paynow.co.zw")
	viper.SetDefault("GATEWAY_TIMEOUT", "30s")
	viper.SetDefault("SWEEP_INTERVAL", "2m")
	viper.SetDefault("PAYMENT_EXPIRY", "24h")
	viper.SetDefault("SCHEDULER_TIMEZONE", "Africa/Harare")
	viper.SetDefault("DEFAULT_CURRENCY", "USD")
	viper.SetDefault("COGS_FALLBACK_RATIO", "0.6")
	viper.SetDefault("ID_RETRY_ATTEMPTS", 3)
	viper.SetDefault("REPORT_CACHE_TTL", "5m")

	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if _, err := decimal.NewFromString(c.Business.CogsFallbackRatio); err != nil {
		return fmt.Errorf("COGS_FALLBACK_RATIO must be a valid decimal: %w", err)
	}

	if c.Business.IDRetryAttempts <= 0 {
		return fmt.Errorf("ID_RETRY_ATTEMPTS must be greater than 0")
	}

	for name, value := range map[string]string{
		"DATABASE_CONN_MAX_LIFETIME": c.Database.ConnMaxLifetime,
		"GATEWAY_TIMEOUT":            c.Gateway.Timeout,
		"SWEEP_INTERVAL":             c.Scheduler.SweepInterval,
		"PAYMENT_EXPIRY":             c.Scheduler.PaymentExpiry,
		"REPORT_CACHE_TTL":           c.Business.ReportCacheTTL,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", name, err)
		}
	}

	return nil
}

// IsDevelopment returns true when running in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true when running in a production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetCogsFallbackRatio returns the configured sale-price fraction used as cost
// of goods when an asset has no evaluated value.
func (c *Config) GetCogsFallbackRatio() decimal.Decimal {
	ratio, _ := decimal.NewFromString(c.Business.CogsFallbackRatio)
	return ratio
}

// GetGatewayTimeout returns the outbound gateway timeout.
func (c *Config) GetGatewayTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Gateway.Timeout)
	return timeout
}

// GetSweepInterval returns the pending-payment sweep interval.
func (c *Config) GetSweepInterval() time.Duration {
	interval, _ := time.ParseDuration(c.Scheduler.SweepInterval)
	return interval
}

// GetPaymentExpiry returns the age after which a pending gateway payment is
// cancelled.
func (c *Config) GetPaymentExpiry() time.Duration {
	expiry, _ := time.ParseDuration(c.Scheduler.PaymentExpiry)
	return expiry
}

// GetConnMaxLifetime returns the database connection lifetime.
func (c *Config) GetConnMaxLifetime() time.Duration {
	lifetime, _ := time.ParseDuration(c.Database.ConnMaxLifetime)
	return lifetime
}

// GetReportCacheTTL returns the report projection cache TTL.
func (c *Config) GetReportCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Business.ReportCacheTTL)
	return ttl
}
