package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Session  SessionConfig
	Gateway  GatewayConfig
	Email    EmailConfig
	SMS      SMSConfig
	Receipts ReceiptsConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// RedisConfig points at the session cart store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds the staff API key and the user token settings.
type AuthConfig struct {
	APIKey    string
	JWTSecret string
	TokenTTL  time.Duration
}

// SessionConfig controls the visitor cookie and session cart lifetime.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool

	// AllowedOrigins may call the API with the visitor's cookies.
	AllowedOrigins []string
}

// GatewayConfig holds payment gateway credentials.
type GatewayConfig struct {
	KeyID     string
	KeySecret string
	Currency  string
	BaseURL   string
	Timeout   time.Duration
}

// Configured reports whether both gateway credentials are present.
func (c GatewayConfig) Configured() bool {
	return c.KeyID != "" && c.KeySecret != ""
}

// EmailConfig holds SMTP settings for order confirmations.
type EmailConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	From         string
	ContactEmail string
}

// Configured reports whether outgoing mail can be sent.
func (c EmailConfig) Configured() bool {
	return c.Host != "" && c.Sender() != ""
}

// Sender is the From address: DEFAULT_FROM_EMAIL, then the SMTP user, then
// the contact address.
func (c EmailConfig) Sender() string {
	switch {
	case c.From != "":
		return c.From
	case c.User != "":
		return c.User
	default:
		return c.ContactEmail
	}
}

// SMSConfig holds MSG91 settings.
type SMSConfig struct {
	AuthKey    string
	SenderID   string
	TemplateID string
	BaseURL    string
}

// Configured reports whether SMS notifications can be sent.
func (c SMSConfig) Configured() bool {
	return c.AuthKey != "" && c.TemplateID != ""
}

// ReceiptsConfig controls where paid-order receipts are archived.
type ReceiptsConfig struct {
	S3Enabled bool
	Bucket    string
	Region    string
	Prefix    string // Path prefix within bucket (e.g., "receipts/")
	LocalDir  string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "ochre"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey:    getEnv("API_KEY", ""),
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 72*time.Hour),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE", "ochre_session"),
			TTL:        getEnvAsDuration("SESSION_TTL", 14*24*time.Hour),
			Secure:     getEnvAsBool("SESSION_SECURE", false),

			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),
		},
		Gateway: GatewayConfig{
			KeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
			Currency:  getEnv("PAYMENT_CURRENCY", "INR"),
			BaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
			Timeout:   getEnvAsDuration("RAZORPAY_TIMEOUT", 10*time.Second),
		},
		Email: EmailConfig{
			Host:         getEnv("EMAIL_HOST", ""),
			Port:         getEnvAsInt("EMAIL_PORT", 587),
			User:         getEnv("EMAIL_HOST_USER", ""),
			Password:     getEnv("EMAIL_HOST_PASSWORD", ""),
			From:         getEnv("DEFAULT_FROM_EMAIL", ""),
			ContactEmail: getEnv("CONTACT_EMAIL", ""),
		},
		SMS: SMSConfig{
			AuthKey:    getEnv("MSG91_AUTH_KEY", ""),
			SenderID:   getEnv("MSG91_SENDER_ID", "OCHRE"),
			TemplateID: getEnv("MSG91_TEMPLATE_ID", ""),
			BaseURL:    getEnv("MSG91_BASE_URL", "https://control.msg91.com"),
		},
		Receipts: ReceiptsConfig{
			S3Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:    getEnv("S3_BUCKET", ""),
			Region:    getEnv("S3_REGION", "ap-south-1"),
			Prefix:    getEnv("S3_PREFIX", "receipts/"),
			LocalDir:  getEnv("RECEIPTS_DIR", "data/receipts"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT TTL must be positive")
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway timeout must be positive")
	}

	if c.Gateway.Currency == "" {
		return fmt.Errorf("payment currency is required")
	}

	if c.Receipts.S3Enabled {
		if c.Receipts.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.Receipts.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("10s", "72h").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable, dropping blanks.
func getEnvAsSlice(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
