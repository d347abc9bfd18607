package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds application configuration
type Config struct {
	Store         string
	DBConn        string
	LogLevel      string
	LockTimeout   time.Duration
	AuditSchedule string
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SenderEmail   string
	ReceiptEmail  string
	SeedDemo      bool
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Store:         getEnv("STORE", "memory"),
		DBConn:        getEnv("DB_CONN", "host=localhost port=5432 user=ledger password=ledger dbname=ledger sslmode=disable"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		AuditSchedule: getEnv("AUDIT_SCHEDULE", "@every 5m"),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SenderEmail:   getEnv("SENDER_EMAIL", "no-reply@oakline.example"),
		ReceiptEmail:  getEnv("RECEIPT_EMAIL", ""),
		SeedDemo:      getEnv("SEED_DEMO", "false") == "true",
	}

	lockTimeout, err := time.ParseDuration(getEnv("LOCK_TIMEOUT", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOCK_TIMEOUT: %w", err)
	}
	if lockTimeout <= 0 {
		return nil, fmt.Errorf("LOCK_TIMEOUT must be positive")
	}
	cfg.LockTimeout = lockTimeout

	if cfg.Store != "memory" && cfg.Store != "postgres" {
		return nil, fmt.Errorf("STORE must be memory or postgres, got %q", cfg.Store)
	}
	if cfg.Store == "postgres" && cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required for the postgres store")
	}

	return cfg, nil
}

// SMTPEnabled reports whether enough SMTP settings are present to send
// receipt emails.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.ReceiptEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
