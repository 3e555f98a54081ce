package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Funnel   FunnelConfig
	Webhook  WebhookConfig
	CORS     CORSConfig
	OTEL     OTELConfig
	Log      LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// FunnelConfig holds the event engine settings
type FunnelConfig struct {
	// Timezone is the IANA zone in which day, week and month buckets are cut
	Timezone           string
	StorageTimeout     time.Duration
	LockTTL            time.Duration
	LockWait           time.Duration
	ProcedureCacheTTL  time.Duration
	MaxReportRangeDays int

	location *time.Location
}

// WebhookConfig holds inbound webhook settings
type WebhookConfig struct {
	// SigningSecret enables HMAC-SHA256 verification of deliveries when set
	SigningSecret string
}

// CORSConfig holds cross-origin settings for the dashboard
type CORSConfig struct {
	AllowedOrigins []string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string
}

// Load loads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefaults(v)

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{
		Env: v.GetString("APP_ENV"),
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Database:     v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Funnel: FunnelConfig{
			Timezone:           v.GetString("FUNNEL_TIMEZONE"),
			StorageTimeout:     v.GetDuration("FUNNEL_STORAGE_TIMEOUT"),
			LockTTL:            v.GetDuration("FUNNEL_LOCK_TTL"),
			LockWait:           v.GetDuration("FUNNEL_LOCK_WAIT"),
			ProcedureCacheTTL:  v.GetDuration("FUNNEL_PROCEDURE_CACHE_TTL"),
			MaxReportRangeDays: v.GetInt("FUNNEL_MAX_REPORT_RANGE_DAYS"),
		},
		Webhook: WebhookConfig{
			SigningSecret: v.GetString("WEBHOOK_SIGNING_SECRET"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		OTEL: OTELConfig{
			ServiceName:    v.GetString("OTEL_SERVICE_NAME"),
			ServiceVersion: v.GetString("OTEL_SERVICE_VERSION"),
			Endpoint:       v.GetString("OTEL_ENDPOINT"),
			Enabled:        v.GetBool("OTEL_ENABLED"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "clinic_funnel")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("FUNNEL_TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("FUNNEL_STORAGE_TIMEOUT", "5s")
	v.SetDefault("FUNNEL_LOCK_TTL", "10s")
	v.SetDefault("FUNNEL_LOCK_WAIT", "3s")
	v.SetDefault("FUNNEL_PROCEDURE_CACHE_TTL", "300s")
	v.SetDefault("FUNNEL_MAX_REPORT_RANGE_DAYS", 366)
	v.SetDefault("WEBHOOK_SIGNING_SECRET", "")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("OTEL_SERVICE_NAME", "clinic-funnel")
	v.SetDefault("OTEL_SERVICE_VERSION", "1.0.0")
	v.SetDefault("OTEL_ENDPOINT", "")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("LOG_LEVEL", "info")
}

// Validate checks the values that would otherwise fail at first use
func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Funnel.Timezone)
	if err != nil {
		return fmt.Errorf("FUNNEL_TIMEZONE %q is not a valid IANA zone: %w", c.Funnel.Timezone, err)
	}
	c.Funnel.location = loc

	if c.Funnel.StorageTimeout <= 0 {
		return fmt.Errorf("FUNNEL_STORAGE_TIMEOUT must be positive, got %s", c.Funnel.StorageTimeout)
	}
	if c.Funnel.LockTTL <= 0 {
		return fmt.Errorf("FUNNEL_LOCK_TTL must be positive, got %s", c.Funnel.LockTTL)
	}
	if c.Funnel.MaxReportRangeDays <= 0 {
		return fmt.Errorf("FUNNEL_MAX_REPORT_RANGE_DAYS must be positive, got %d", c.Funnel.MaxReportRangeDays)
	}
	return nil
}

// IsDev reports whether the service runs in development mode
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Location returns the reporting time zone, UTC if Validate was never called
func (c *FunnelConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
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
