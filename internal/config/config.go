package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port     string
	CacheTTL time.Duration
	LogLevel string

	// Backend selection
	DataBackend string
	DataDir     string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID        string
	GoogleTransactionsSheet    string
	GoogleCardsSheet           string
	GoogleUsersSheet           string
	GoogleServiceAccountJSON   string
	GoogleServiceAccountFile   string
	GoogleApplicationCredsFile string
	GoogleOAuthClientJSON      string
	GoogleOAuthClientFile      string
	GoogleOAuthTokenFile       string
	OAuthRedirectPort          string

	// Auth
	JWTSecret              string
	AuthRequireToken       bool
	AuthAllowResetSentinel bool

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration

	// Dashboard client
	DashboardEndpoint string
	RefreshInterval   time.Duration
	ChartMonths       int
	PrefsFile         string
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		CacheTTL: getEnvDuration("CACHE_TTL", 30*time.Second),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		DataDir:      getEnv("DATA_DIR", "data"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/findash.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "findash"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_mutations"),

		GoogleSpreadsheetID:        getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleTransactionsSheet:    getEnv("GOOGLE_TRANSACTIONS_SHEET", ""),
		GoogleCardsSheet:           getEnv("GOOGLE_CARDS_SHEET", ""),
		GoogleUsersSheet:           getEnv("GOOGLE_USERS_SHEET", ""),
		GoogleServiceAccountJSON:   getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:   getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleOAuthClientJSON:      getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:      getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:       getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		OAuthRedirectPort:          getEnv("OAUTH_REDIRECT_PORT", "8085"),

		JWTSecret:              getEnv("JWT_SECRET", ""),
		AuthRequireToken:       getEnvBool("AUTH_REQUIRE_TOKEN", false),
		AuthAllowResetSentinel: getEnvBool("AUTH_ALLOW_RESET_SENTINEL", false),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),

		DashboardEndpoint: getEnv("DASHBOARD_ENDPOINT", ""),
		RefreshInterval:   getEnvDuration("REFRESH_INTERVAL", 60*time.Second),
		ChartMonths:       getEnvInt("CHART_MONTHS", 6),
		PrefsFile:         getEnv("PREFS_FILE", defaultPrefsFile()),
	}

	return cfg
}

func defaultPrefsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".findash", "prefs.json")
	}
	return filepath.Join(dir, "findash", "prefs.json")
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sheets", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
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
	}

	// Validate Google Sheets configuration if backend is sheets
	if c.DataBackend == "sheets" {
		errors = append(errors, c.validateSheets()...)
	}

	// Validate auth configuration
	if c.AuthRequireToken && c.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required when AUTH_REQUIRE_TOKEN is enabled")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateClient checks the settings used by the dashboard client.
func (c *Config) ValidateClient() error {
	var errors []string

	if c.DashboardEndpoint != "" {
		if u, err := url.Parse(c.DashboardEndpoint); err != nil {
			errors = append(errors, fmt.Sprintf("invalid dashboard endpoint '%s': %v", c.DashboardEndpoint, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid dashboard endpoint scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	}
	if c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	}
	if c.ChartMonths < 1 || c.ChartMonths > 24 {
		errors = append(errors, fmt.Sprintf("invalid chart months %d: must be between 1 and 24", c.ChartMonths))
	}
	if c.PrefsFile == "" {
		errors = append(errors, "preferences file path cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateSheets() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
	}

	if c.GoogleOAuthTokenFile != "" {
		if c.GoogleOAuthClientJSON == "" && c.GoogleOAuthClientFile == "" {
			errors = append(errors, "GOOGLE_OAUTH_TOKEN_FILE requires GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
		}
		if _, err := os.Stat(c.GoogleOAuthTokenFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("OAuth token file does not exist: %s (run oauth-init)", c.GoogleOAuthTokenFile))
		}
		return errors
	}

	hasJSON := c.GoogleServiceAccountJSON != ""
	file := c.GoogleServiceAccountFile
	if file == "" {
		file = c.GoogleApplicationCredsFile
	}
	if !hasJSON && file == "" {
		errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
	}
	if !hasJSON && file != "" {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", file))
		}
	}
	return errors
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
