package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

// Config holds all configuration for the application
type Config struct {
	Port string `validate:"required,numeric"`
	Env  string `validate:"oneof=development staging production test"`

	DBHost     string `validate:"required"`
	DBPort     string `validate:"required,numeric"`
	DBUser     string `validate:"required"`
	DBPassword string
	DBName     string `validate:"required"`
	DBSSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`

	// Webhook secrets are checked per request, not at startup: a missing one only
	// breaks the endpoint that needs it.
	RazorpayKey           string
	RazorpaySecret        string
	RazorpayWebhookSecret string
	CashfreeAppID         string
	CashfreeSecret        string
	CashfreeWebhookSecret string
	CashfreeEnv           string `validate:"oneof=sandbox production"`
	WebhookVerifyMode     string `validate:"oneof=enforce log_only"`
	// WebhookTolerance bounds the age of signed webhook timestamps; zero disables it
	WebhookTolerance time.Duration `validate:"gte=0"`

	SupabaseJWTSecret string
	CORSAllowOrigin   string

	RedisURL  string
	DedupeTTL time.Duration `validate:"gte=0"`

	SMTPHost     string
	SMTPPort     int `validate:"gte=0,lte=65535"`
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	AlertEmail   string `validate:"omitempty,email"`
}

var validate = validator.New()

// LoadConfig loads configuration from the environment, reading .env when present
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %v", err)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %v", err)
	}
	dedupeTTL, err := time.ParseDuration(getEnv("DEDUPE_TTL", "72h"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEDUPE_TTL: %v", err)
	}
	webhookTolerance, err := time.ParseDuration(getEnv("WEBHOOK_TOLERANCE", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TOLERANCE: %v", err)
	}

	config := &Config{
		Port:                  getEnv("PORT", utils.DefaultPort),
		Env:                   getEnv("ENV", utils.EnvDevelopment),
		DBHost:                getEnv("DB_HOST", utils.DefaultDBHost),
		DBPort:                getEnv("DB_PORT", utils.DefaultDBPort),
		DBUser:                getEnv("DB_USER", utils.DefaultDBUser),
		DBPassword:            os.Getenv("DB_PASSWORD"),
		DBName:                getEnv("DB_NAME", utils.DefaultDBName),
		DBSSLMode:             getEnv("DB_SSLMODE", utils.DefaultDBSSLMode),
		RazorpayKey:           os.Getenv("RAZORPAY_KEY"),
		RazorpaySecret:        os.Getenv("RAZORPAY_SECRET"),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		CashfreeAppID:         os.Getenv("CASHFREE_APP_ID"),
		CashfreeSecret:        os.Getenv("CASHFREE_SECRET"),
		CashfreeWebhookSecret: getEnv("CASHFREE_WEBHOOK_SECRET", os.Getenv("CASHFREE_SECRET")),
		CashfreeEnv:           getEnv("CASHFREE_ENV", "sandbox"),
		WebhookVerifyMode:     getEnv("WEBHOOK_VERIFY_MODE", utils.VerifyModeEnforce),
		WebhookTolerance:      webhookTolerance,
		SupabaseJWTSecret:     os.Getenv("SUPABASE_JWT_SECRET"),
		CORSAllowOrigin:       os.Getenv("CORS_ALLOW_ORIGIN"),
		RedisURL:              os.Getenv("REDIS_URL"),
		DedupeTTL:             dedupeTTL,
		SMTPHost:              os.Getenv("SMTP_HOST"),
		SMTPPort:              smtpPort,
		SMTPUsername:          os.Getenv("SMTP_USERNAME"),
		SMTPPassword:          os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:              os.Getenv("SMTP_FROM"),
		AlertEmail:            os.Getenv("ALERT_EMAIL"),
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", utils.FieldErrors(err))
	}
	if config.IsProduction() && config.WebhookVerifyMode == utils.VerifyModeLogOnly {
		return nil, fmt.Errorf("invalid configuration: WEBHOOK_VERIFY_MODE=%s is not allowed in production", utils.VerifyModeLogOnly)
	}

	return config, nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Env == utils.EnvProduction
}

// DSN builds the Postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
