package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Storage      StorageConfig
	Email        EmailConfig
	Provisioning ProvisioningConfig
	RateLimit    RateLimitConfig
	Sentry       SentryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	WorkerMetricsAddr  string // cmd/worker serves /metrics here when set
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string // if set, used as-is (e.g. postgres://localhost:5432/talentdesk?sslmode=disable)
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxConnLifetime time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds session token signing settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// StorageConfig holds object store credentials and the profile picture bucket.
type StorageConfig struct {
	Region                string
	AccessKeyID           string
	SecretAccessKey       string
	ProfilePicturesBucket string
	Endpoint              string // S3-compatible endpoint; empty = AWS
	PublicBaseURL         string
}

// Email delivery modes.
const (
	EmailDeliveryDirect = "direct"
	EmailDeliveryQueue  = "queue"
)

// Email providers.
const (
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSMTP     = "smtp"
	EmailProviderLog      = "log"
)

// EmailConfig selects how welcome emails are delivered.
type EmailConfig struct {
	Provider    string // sendgrid, smtp or log
	Delivery    string // direct (detached goroutine) or queue (Redis + worker)
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	APIKey      string // SendGrid
	SendTimeout time.Duration
}

// ProvisioningConfig tunes the artist provisioning workflow.
type ProvisioningConfig struct {
	// Compensate deletes the created user and uploaded picture when the artist insert fails.
	Compensate bool
}

// RateLimitConfig applies to the sign-in and sign-up endpoints, per client IP.
type RateLimitConfig struct {
	AuthPerMinute int
	AuthBurst     int
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN         string
	Environment string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			WorkerMetricsAddr:  getEnv("WORKER_METRICS_ADDR", ""),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "talentdesk"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 10),
			MaxConnLifetime: time.Duration(getEnvInt("DB_MAX_CONN_LIFETIME_MIN", 30)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Storage: StorageConfig{
			Region:                getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:           getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:       getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ProfilePicturesBucket: getEnv("PROFILE_PICTURES_BUCKET", "profile-pictures"),
			Endpoint:              getEnv("S3_ENDPOINT", ""),
			PublicBaseURL:         getEnv("S3_PUBLIC_BASE_URL", ""),
		},
		Email: EmailConfig{
			Provider:    strings.ToLower(getEnv("EMAIL_PROVIDER", EmailProviderLog)),
			Delivery:    strings.ToLower(getEnv("EMAIL_DELIVERY", EmailDeliveryDirect)),
			FromAddress: getEnv("EMAIL_FROM", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Talent Desk"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
			APIKey:      getEnv("EMAIL_API_KEY", ""),
			SendTimeout: time.Duration(getEnvInt("EMAIL_SEND_TIMEOUT_SEC", 30)) * time.Second,
		},
		Provisioning: ProvisioningConfig{
			Compensate: getEnvBool("PROVISIONING_COMPENSATE", false),
		},
		RateLimit: RateLimitConfig{
			AuthPerMinute: getEnvInt("AUTH_RATE_PER_MINUTE", 20),
			AuthBurst:     getEnvInt("AUTH_RATE_BURST", 10),
		},
		Sentry: SentryConfig{
			DSN:         getEnv("SENTRY_DSN", ""),
			Environment: getEnv("SENTRY_ENVIRONMENT", "development"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Email.Provider {
	case EmailProviderSendGrid:
		if c.Email.APIKey == "" {
			return fmt.Errorf("EMAIL_API_KEY is required for the sendgrid provider")
		}
	case EmailProviderSMTP:
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required for the smtp provider")
		}
	case EmailProviderLog:
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q", c.Email.Provider)
	}
	switch c.Email.Delivery {
	case EmailDeliveryDirect, EmailDeliveryQueue:
	default:
		return fmt.Errorf("unknown EMAIL_DELIVERY %q", c.Email.Delivery)
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
