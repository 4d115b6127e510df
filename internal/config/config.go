package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Client    ClientConfig
	Scheduler SchedulerConfig
	App       AppConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	ConnectTimeout  time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ServerConfig holds the admin API server configuration
type ServerConfig struct {
	ListenAddr    string
	AdminAPIToken string
	UploadDir     string
}

// ClientConfig holds the admin API client configuration
type ClientConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// SchedulerConfig holds the test-run scheduler configuration
type SchedulerConfig struct {
	Enabled  bool
	Timezone string
}

// AppConfig holds application configuration
type AppConfig struct {
	LogLevel    string
	LogFormat   string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	config := &Config{}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	maxOpenConns, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}

	maxIdleConns, err := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}

	connectTimeout, err := time.ParseDuration(getEnv("DB_CONNECT_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONNECT_TIMEOUT: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            dbPort,
		Name:            getEnv("DB_NAME", "pentest_portal"),
		User:            getEnv("DB_USER", "pentest_portal"),
		Password:        getEnv("DB_PASSWORD", ""),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		ConnectTimeout:  connectTimeout,
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: connMaxLifetime,
	}

	config.Server = ServerConfig{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		AdminAPIToken: getEnv("ADMIN_API_TOKEN", ""),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
	}

	clientTimeout, err := time.ParseDuration(getEnv("API_CLIENT_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_CLIENT_TIMEOUT: %w", err)
	}

	config.Client = ClientConfig{
		BaseURL:  getEnv("API_BASE_URL", "http://localhost:8080"),
		APIToken: getEnv("API_TOKEN", getEnv("ADMIN_API_TOKEN", "")),
		Timeout:  clientTimeout,
	}

	schedulerEnabled, err := strconv.ParseBool(getEnv("SCHEDULER_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_ENABLED: %w", err)
	}

	config.Scheduler = SchedulerConfig{
		Enabled:  schedulerEnabled,
		Timezone: getEnv("SCHEDULER_TIMEZONE", "UTC"),
	}

	config.App = AppConfig{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if err := c.validateDatabase(); err != nil {
		errs = append(errs, fmt.Sprintf("database: %v", err))
	}

	if err := c.validateServer(); err != nil {
		errs = append(errs, fmt.Sprintf("server: %v", err))
	}

	if err := c.validateApp(); err != nil {
		errs = append(errs, fmt.Sprintf("application: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateDatabase validates database configuration
func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	validSSLMode := false
	for _, mode := range validSSLModes {
		if c.Database.SSLMode == mode {
			validSSLMode = true
			break
		}
	}
	if !validSSLMode {
		return fmt.Errorf("DB_SSL_MODE must be one of: %s", strings.Join(validSSLModes, ", "))
	}

	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be greater than 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("DB_MAX_IDLE_CONNS must be greater than 0")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}
	if c.Database.ConnMaxLifetime <= 0 {
		return fmt.Errorf("DB_CONN_MAX_LIFETIME must be greater than 0")
	}
	if c.Database.ConnectTimeout <= 0 {
		return fmt.Errorf("DB_CONNECT_TIMEOUT must be greater than 0")
	}

	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR is required")
	}

	if c.App.Environment == "production" && c.Server.AdminAPIToken == "" {
		return fmt.Errorf("ADMIN_API_TOKEN is required in production")
	}

	if c.Server.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR is required")
	}

	return nil
}

// validateApp validates application configuration
func (c *Config) validateApp() error {
	validLogLevels := []string{"debug", "info", "warn", "error", "fatal"}
	validLogLevel := false
	for _, level := range validLogLevels {
		if c.App.LogLevel == level {
			validLogLevel = true
			break
		}
	}
	if !validLogLevel {
		return fmt.Errorf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", "))
	}

	if c.App.LogFormat != "text" && c.App.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json")
	}

	validEnvironments := []string{"development", "staging", "production"}
	validEnvironment := false
	for _, env := range validEnvironments {
		if c.App.Environment == env {
			validEnvironment = true
			break
		}
	}
	if !validEnvironment {
		return fmt.Errorf("ENVIRONMENT must be one of: %s", strings.Join(validEnvironments, ", "))
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d",
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.User,
		c.Database.Password,
		c.Database.SSLMode,
		int(c.Database.ConnectTimeout.Seconds()),
	)
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
