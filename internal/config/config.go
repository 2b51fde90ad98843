// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backends names the supported account stores.
var Backends = []string{"sqlite", "memory"}

type Config struct {
	// HTTP Server
	Port          string
	PublicBaseURL string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP. An empty URL disables the broker; triggered syncs then run
	// in-process.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Transaction feed
	PlaidClientID    string
	PlaidSecret      string
	PlaidEnv         string
	PlaidClientName  string
	PlaidWebhookURL  string
	PlaidRedirectURI string

	// Text channel. An empty SID logs outbound messages instead of sending.
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// Ledger archive. An empty spreadsheet id disables archiving.
	GoogleSpreadsheetID   string
	GoogleLedgerSheetName string

	// Sync
	SyncInterval    time.Duration
	SyncConcurrency int
	SyncMaxPages    int
	SyncPageSize    int

	RateLimitPerMinute int

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spendsync.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spendsync"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_requests"),

		PlaidClientID:    getEnv("PLAID_CLIENT_ID", ""),
		PlaidSecret:      getEnv("PLAID_SECRET", ""),
		PlaidEnv:         getEnv("PLAID_ENV", "sandbox"),
		PlaidClientName:  getEnv("PLAID_CLIENT_NAME", "SpendSync"),
		PlaidWebhookURL:  getEnv("PLAID_WEBHOOK_URL", ""),
		PlaidRedirectURI: getEnv("PLAID_REDIRECT_URI", ""),

		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleLedgerSheetName: getEnv("GOOGLE_LEDGER_SHEET_NAME", "Ledger"),

		SyncInterval:    getEnvDuration("SYNC_INTERVAL", time.Hour),
		SyncConcurrency: getEnvInt("SYNC_CONCURRENCY", 4),
		SyncMaxPages:    getEnvInt("SYNC_MAX_PAGES", 50),
		SyncPageSize:    getEnvInt("SYNC_PAGE_SIZE", 100),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate checks everything the daemon needs and reports every problem at
// once.
func (c *Config) Validate() error {
	errors := c.storageErrors()

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	errors = append(errors, c.amqpErrors()...)

	if c.PlaidClientID == "" || c.PlaidSecret == "" {
		errors = append(errors, "PLAID_CLIENT_ID and PLAID_SECRET are required")
	}
	if c.PlaidEnv != "sandbox" && c.PlaidEnv != "production" {
		errors = append(errors, fmt.Sprintf("invalid Plaid environment '%s': must be sandbox or production", c.PlaidEnv))
	}
	for name, raw := range map[string]string{
		"PLAID_WEBHOOK_URL":  c.PlaidWebhookURL,
		"PLAID_REDIRECT_URI": c.PlaidRedirectURI,
		"PUBLIC_BASE_URL":    c.PublicBaseURL,
	} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': must be an absolute http(s) URL", name, raw))
		}
	}

	if c.TwilioAccountSID != "" {
		if c.TwilioAuthToken == "" {
			errors = append(errors, "TWILIO_AUTH_TOKEN is required when TWILIO_ACCOUNT_SID is set")
		}
		if c.TwilioPhoneNumber == "" {
			errors = append(errors, "TWILIO_PHONE_NUMBER is required when TWILIO_ACCOUNT_SID is set")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleLedgerSheetName == "" {
		errors = append(errors, "GOOGLE_LEDGER_SHEET_NAME cannot be empty when GOOGLE_SPREADSHEET_ID is set")
	}

	if c.SyncInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 minute", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	errors = appendRange(errors, "sync concurrency", c.SyncConcurrency, 1, 64)
	errors = appendRange(errors, "sync max pages", c.SyncMaxPages, 1, 1000)
	errors = appendRange(errors, "sync page size", c.SyncPageSize, 1, 500)
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	errors = append(errors, c.logErrors()...)

	return combine(errors)
}

// ValidateStorage checks only what operator commands need: the store, the
// broker and logging.
func (c *Config) ValidateStorage() error {
	errors := c.storageErrors()
	errors = append(errors, c.amqpErrors()...)
	errors = append(errors, c.logErrors()...)
	return combine(errors)
}

// AMQPEnabled reports whether sync requests go through the broker.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// SignatureCheckEnabled reports whether inbound SMS signatures can be verified.
func (c *Config) SignatureCheckEnabled() bool {
	return c.PublicBaseURL != "" && c.TwilioAuthToken != ""
}

func (c *Config) storageErrors() []string {
	var errors []string
	if !slices.Contains(Backends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}
	return errors
}

func (c *Config) amqpErrors() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func (c *Config) logErrors() []string {
	var errors []string
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}
	return errors
}

func appendRange(errors []string, name string, v, lo, hi int) []string {
	if v < lo || v > hi {
		return append(errors, fmt.Sprintf("invalid %s %d: must be between %d and %d", name, v, lo, hi))
	}
	return errors
}

func combine(errors []string) error {
	if len(errors) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
