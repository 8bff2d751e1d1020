package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the catalog and checkout backend configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	S3       S3Config
	Coupon   CouponConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
}

// StorefrontConfig holds the storefront session service configuration.
type StorefrontConfig struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Backend  BackendConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	Checkout CheckoutConfig
	Pricing  PricingConfig
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
	MigrateOnStart  bool
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string
}

// S3Config holds AWS S3 configuration for coupon files.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "coupons/")
}

// CouponConfig lists the coupon files checked at checkout. No files means
// coupons are accepted as entered.
type CouponConfig struct {
	Files         []string
	MinMatchCount int
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CatalogConfig holds search and category listing settings.
type CatalogConfig struct {
	SearchDefaultLimit int
	SearchMaxLimit     int
	CategoryCacheTTL   time.Duration
}

// BackendConfig points the storefront at the catalog and checkout backend.
type BackendConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// StorageConfig selects where the storefront keeps the cart snapshot and
// the saved order draft.
type StorageConfig struct {
	Backend  string // "file", "redis" or "memory"
	Dir      string
	CartKey  string
	DraftKey string
	TTL      time.Duration
	Timeout  time.Duration
}

// CheckoutConfig holds checkout protocol settings.
type CheckoutConfig struct {
	AlertTimeout time.Duration
}

// PricingConfig holds display settings for amounts.
type PricingConfig struct {
	Currency string
}

// Load loads the backend configuration from environment variables.
func Load() (*Config, error) {
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
			Database:        getEnv("DB_NAME", "kasa"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			MigrateOnStart:  getEnvAsBool("DB_MIGRATE", true),
		},
		Logger: loadLogger(),
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "eu-central-1"),
			Prefix:  getEnv("S3_PREFIX", "coupons/"),
		},
		Coupon: CouponConfig{
			Files:         getEnvAsList("COUPON_FILES", nil),
			MinMatchCount: getEnvAsInt("COUPON_MIN_MATCH", 2),
		},
		Redis:   loadRedis(),
		Catalog: loadCatalog(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadStorefront loads the storefront configuration from environment variables.
func LoadStorefront() (*StorefrontConfig, error) {
	apiKey := getEnv("API_KEY", "")

	cfg := &StorefrontConfig{
		Server: ServerConfig{
			Host: getEnv("STOREFRONT_HOST", "0.0.0.0"),
			Port: getEnvAsInt("STOREFRONT_PORT", 3000),
		},
		Logger: loadLogger(),
		Auth: AuthConfig{
			APIKey: apiKey,
		},
		Backend: BackendConfig{
			BaseURL: getEnv("BACKEND_URL", "http://localhost:8080"),
			APIKey:  getEnv("BACKEND_API_KEY", apiKey),
			Timeout: getEnvAsDuration("CHECKOUT_TIMEOUT", 15*time.Second),
		},
		Storage: StorageConfig{
			Backend:  getEnv("STORAGE_BACKEND", "file"),
			Dir:      getEnv("STORAGE_DIR", "data/session"),
			CartKey:  getEnv("STORAGE_CART_KEY", "kasa-cart"),
			DraftKey: getEnv("STORAGE_DRAFT_KEY", "kasa-order-draft"),
			TTL:      getEnvAsDuration("STORAGE_TTL", 30*24*time.Hour),
			Timeout:  getEnvAsDuration("STORAGE_TIMEOUT", 2*time.Second),
		},
		Redis:   loadRedis(),
		Catalog: loadCatalog(),
		Checkout: CheckoutConfig{
			AlertTimeout: getEnvAsDuration("CHECKOUT_ALERT_TIMEOUT", 10*time.Second),
		},
		Pricing: PricingConfig{
			Currency: getEnv("PRICING_CURRENCY", "EUR"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadLogger() LoggerConfig {
	return LoggerConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}
}

func loadRedis() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("REDIS_DB", 0),
	}
}

func loadCatalog() CatalogConfig {
	return CatalogConfig{
		SearchDefaultLimit: getEnvAsInt("SEARCH_DEFAULT_LIMIT", 10),
		SearchMaxLimit:     getEnvAsInt("SEARCH_MAX_LIMIT", 50),
		CategoryCacheTTL:   getEnvAsDuration("CATEGORY_CACHE_TTL", 5*time.Minute),
	}
}

// Validate validates the backend configuration.
func (c *Config) Validate() error {
	if err := c.Server.validate(); err != nil {
		return err
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

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if err := c.Logger.validate(); err != nil {
		return err
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if len(c.Coupon.Files) > 0 {
		if c.Coupon.MinMatchCount < 1 || c.Coupon.MinMatchCount > len(c.Coupon.Files) {
			return fmt.Errorf("coupon min match must be between 1 and %d", len(c.Coupon.Files))
		}
	}

	return c.Catalog.validate()
}

// Validate validates the storefront configuration.
func (c *StorefrontConfig) Validate() error {
	if err := c.Server.validate(); err != nil {
		return err
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if err := c.Logger.validate(); err != nil {
		return err
	}

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend URL is required")
	}

	if c.Backend.Timeout < 0 {
		return fmt.Errorf("checkout timeout cannot be negative")
	}

	switch c.Storage.Backend {
	case "file":
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage dir is required for the file backend")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis backend")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid storage backend: %s (must be file, redis, or memory)", c.Storage.Backend)
	}

	if c.Storage.CartKey == "" || c.Storage.DraftKey == "" {
		return fmt.Errorf("storage keys are required")
	}

	if c.Storage.CartKey == c.Storage.DraftKey {
		return fmt.Errorf("cart and draft storage keys must differ")
	}

	if c.Pricing.Currency == "" {
		return fmt.Errorf("pricing currency is required")
	}

	return c.Catalog.validate()
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Port)
	}
	return nil
}

func (c *LoggerConfig) validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}

	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Format)
	}

	return nil
}

func (c *CatalogConfig) validate() error {
	if c.SearchDefaultLimit < 1 || c.SearchMaxLimit < c.SearchDefaultLimit {
		return fmt.Errorf("search limits must satisfy 1 <= default (%d) <= max (%d)", c.SearchDefaultLimit, c.SearchMaxLimit)
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

// getEnvAsDuration parses values such as "15s" or "5m".
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
