// ============================================================================
// backend/internal/shared/config.go
// Service configuration and environment variable helpers
// ============================================================================

package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ============================================================================
// Configuration Structs
// ============================================================================

// ServiceConfig holds the configuration for the marks server
type ServiceConfig struct {
	ServiceName string
	Version     string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error

	HTTP HTTPConfig

	// Store selects the marks backend: "mongo", "postgres" or "memory"
	StoreDriver string
	MongoDB     MongoConfig
	Postgres    PostgresConfig

	Security  SecurityConfig
	CAS       CASConfig
	CORS      CORSConfig
	NATS      NATSConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig

	// Path to the academic catalog (subjects, TAs, branch table)
	CatalogFile string
}

// HTTPConfig holds listener settings
type HTTPConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// PostgresConfig holds the bun/pgdriver connection settings
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SecurityConfig holds session token settings
type SecurityConfig struct {
	JWTSecret          string
	JWTExpirationHours int
	CookieSecure       bool
}

// CASConfig holds the single-sign-on endpoint settings
type CASConfig struct {
	BaseURL    string // e.g. https://login.iiit.ac.in/cas
	ServiceURL string // default service URL when the client does not send one
	Timeout    time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int // in seconds
}

// NATSConfig holds the optional event publisher settings. Empty URL disables it.
type NATSConfig struct {
	URL     string
	Subject string
}

// RedisConfig holds the optional session revocation store. Empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// TelemetryConfig holds OTLP metrics exporter settings. Empty endpoint keeps metrics in-process.
type TelemetryConfig struct {
	OTLPEndpoint string
	Interval     time.Duration
}

const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// ============================================================================
// Configuration Loading Functions
// ============================================================================

// LoadEnv loads environment variables from .env file
func LoadEnv(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}

	if err := godotenv.Load(envFile); err != nil {
		log.Warn().Str("file", envFile).Msg("env file not found, using system environment variables")
		return err
	}

	log.Info().Str("file", envFile).Msg("loaded environment")
	return nil
}

// LoadServiceConfig loads the service configuration from environment
func LoadServiceConfig(serviceName string) (*ServiceConfig, error) {
	config := &ServiceConfig{
		ServiceName: serviceName,
		Version:     GetEnv("SERVICE_VERSION", "dev"),
		Environment: GetEnv("ENVIRONMENT", "development"),
		LogLevel:    GetEnv("LOG_LEVEL", "info"),
		StoreDriver: strings.ToLower(GetEnv("STORE_DRIVER", StoreDriverMongo)),
		CatalogFile: GetEnv("CATALOG_FILE", ""),
	}

	config.HTTP = HTTPConfig{
		Port:           GetEnv("HTTP_PORT", DefaultHTTPPort),
		ReadTimeout:    GetDurationEnv("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   GetDurationEnv("HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    GetDurationEnv("HTTP_IDLE_TIMEOUT", 60*time.Second),
		RequestTimeout: GetDurationEnv("HTTP_REQUEST_TIMEOUT", 60*time.Second),
	}

	mongoDefaults := DefaultMongoConfig(GetEnv("MONGO_URI", ""), GetEnv("MONGO_DB_NAME", "marksboard"))
	config.MongoDB = MongoConfig{
		URI:            mongoDefaults.URI,
		Database:       mongoDefaults.Database,
		ConnectTimeout: GetDurationEnv("MONGO_CONNECT_TIMEOUT", mongoDefaults.ConnectTimeout),
		MaxPoolSize:    uint64(GetIntEnv("MONGO_MAX_POOL_SIZE", int(mongoDefaults.MaxPoolSize))),
		MinPoolSize:    uint64(GetIntEnv("MONGO_MIN_POOL_SIZE", int(mongoDefaults.MinPoolSize))),
		MaxIdleTime:    GetDurationEnv("MONGO_MAX_IDLE_TIME", mongoDefaults.MaxIdleTime),
	}

	config.Postgres = PostgresConfig{
		DSN:             GetEnv("POSTGRES_DSN", ""),
		MaxOpenConns:    GetIntEnv("POSTGRES_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    GetIntEnv("POSTGRES_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime: GetDurationEnv("POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	config.Security = SecurityConfig{
		JWTSecret:          GetEnv("JWT_SECRET", ""),
		JWTExpirationHours: GetIntEnv("JWT_EXPIRATION_HOURS", 24),
		CookieSecure:       GetBoolEnv("COOKIE_SECURE", false),
	}

	config.CAS = CASConfig{
		BaseURL:    strings.TrimRight(GetEnv("CAS_BASE_URL", "https://login.iiit.ac.in/cas"), "/"),
		ServiceURL: GetEnv("CAS_SERVICE_URL", ""),
		Timeout:    GetDurationEnv("CAS_TIMEOUT", 10*time.Second),
	}

	config.CORS = CORSConfig{
		AllowedOrigins:   GetStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		AllowedMethods:   GetStringSliceEnv("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
		AllowedHeaders:   GetStringSliceEnv("CORS_ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type"}),
		AllowCredentials: GetBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		MaxAge:           GetIntEnv("CORS_MAX_AGE", 300),
	}

	config.NATS = NATSConfig{
		URL:     GetEnv("NATS_URL", ""),
		Subject: GetEnv("NATS_SUBJECT", "marks.submitted"),
	}

	config.Redis = RedisConfig{
		Addr:     GetEnv("REDIS_ADDR", ""),
		Password: GetEnv("REDIS_PASSWORD", ""),
		DB:       GetIntEnv("REDIS_DB", 0),
	}

	config.Telemetry = TelemetryConfig{
		OTLPEndpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Interval:     GetDurationEnv("OTEL_METRIC_INTERVAL", 10*time.Second),
	}

	return config, nil
}

// ============================================================================
// Environment Variable Helper Functions
// ============================================================================

// GetEnv retrieves an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetIntEnv retrieves an integer environment variable or returns a default value
func GetIntEnv(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Int("default", defaultValue).Msg("invalid integer value, using default")
		return defaultValue
	}

	return value
}

// GetBoolEnv retrieves a boolean environment variable or returns a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Bool("default", defaultValue).Msg("invalid boolean value, using default")
		return defaultValue
	}

	return value
}

// GetDurationEnv retrieves a duration environment variable or returns a default value
// Supports format like "30s", "5m", "1h"
func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Dur("default", defaultValue).Msg("invalid duration value, using default")
		return defaultValue
	}

	return value
}

// GetStringSliceEnv retrieves a comma-separated string list or returns a default value
func GetStringSliceEnv(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var result []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

// ============================================================================
// Configuration Validation
// ============================================================================

// ValidateServiceConfig validates service configuration
func ValidateServiceConfig(config *ServiceConfig) error {
	if config.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}

	if config.HTTP.Port == "" {
		return fmt.Errorf("HTTP port is required")
	}

	switch config.StoreDriver {
	case StoreDriverMongo:
		if config.MongoDB.URI == "" {
			return fmt.Errorf("MONGO_URI environment variable is required")
		}
		if config.MongoDB.Database == "" {
			return fmt.Errorf("MongoDB database name is required")
		}
	case StoreDriverPostgres:
		if config.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN environment variable is required")
		}
	case StoreDriverMemory:
		if !config.IsDevelopment() {
			return fmt.Errorf("STORE_DRIVER %q is only allowed in development", StoreDriverMemory)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want %q, %q or %q)", config.StoreDriver, StoreDriverMongo, StoreDriverPostgres, StoreDriverMemory)
	}

	if config.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if config.Security.JWTExpirationHours <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be positive")
	}

	if config.CAS.BaseURL == "" {
		return fmt.Errorf("CAS base URL is required")
	}

	return nil
}

// IsDevelopment reports whether the service runs in development mode
func (c *ServiceConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// ============================================================================
// Configuration Display (for debugging)
// ============================================================================

// PrintConfig logs configuration (sanitized) for debugging
func PrintConfig(config *ServiceConfig) {
	log.Info().
		Str("service", config.ServiceName).
		Str("version", config.Version).
		Str("environment", config.Environment).
		Str("log_level", config.LogLevel).
		Str("http_port", config.HTTP.Port).
		Str("store_driver", config.StoreDriver).
		Str("mongo_database", config.MongoDB.Database).
		Uint64("mongo_max_pool", config.MongoDB.MaxPoolSize).
		Int("postgres_max_open", config.Postgres.MaxOpenConns).
		Int("jwt_expiration_hours", config.Security.JWTExpirationHours).
		Str("cas_base_url", config.CAS.BaseURL).
		Strs("cors_origins", config.CORS.AllowedOrigins).
		Bool("nats_enabled", config.NATS.URL != "").
		Bool("redis_enabled", config.Redis.Addr != "").
		Bool("otlp_enabled", config.Telemetry.OTLPEndpoint != "").
		Str("catalog_file", config.CatalogFile).
		Msg("service configuration")
}

const DefaultHTTPPort = "8080"
