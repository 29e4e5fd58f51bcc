// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the greeting agent service
type Config struct {
	Database Database       `json:"database"`
	Server   Server         `json:"server"`
	JWT      JWT            `json:"jwt"`
	Admin    Admin          `json:"admin"`
	Agent    Agent          `json:"agent"`
	Delivery DeliveryPolicy `json:"delivery"`
	SMTP     SMTP           `json:"smtp"`
	LLM      LLM            `json:"llm"`
	Image    Image          `json:"image"`
	Cache    Cache          `json:"cache"`
	Logging  Logging        `json:"logging"`
	Metrics  Metrics        `json:"metrics"`
}

type Database struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type Server struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	EnableMetrics   bool          `json:"enable_metrics"`
	ProxyHeader     string        `json:"proxy_header"`
}

type JWT struct {
	SecretKey      string        `json:"secret_key"`
	AccessTokenTTL time.Duration `json:"access_token_ttl"`
	Issuer         string        `json:"issuer"`
	Audience       string        `json:"audience"`
}

// Admin holds the operator account used to review and approve greetings.
type Admin struct {
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	BcryptCost   int    `json:"bcrypt_cost"`
}

// Agent controls the materialization and delivery sweep.
type Agent struct {
	Enabled          bool          `json:"enabled"`
	Interval         time.Duration `json:"interval"`
	LookaheadDays    int           `json:"lookahead_days"`
	MaxHolidayFanout int           `json:"max_holiday_fanout"`
	RunTimeout       time.Duration `json:"run_timeout"`
}

// DeliveryPolicy is the channel safety gate configuration.
type DeliveryPolicy struct {
	DefaultChannel  string        `json:"default_channel"`
	OutboxDir       string        `json:"outbox_dir"`
	AllowedDomains  []string      `json:"allowed_domains"`
	AllowAllDomains bool          `json:"allow_all_domains"`
	SendLockTTL     time.Duration `json:"send_lock_ttl"`
}

type SMTP struct {
	Host        string        `json:"host"`
	Port        int           `json:"port"`
	Username    string        `json:"username"`
	Password    string        `json:"password"`
	FromEmail   string        `json:"from_email"`
	FromName    string        `json:"from_name"`
	UseSSL      bool          `json:"use_ssl"`
	UseSTARTTLS bool          `json:"use_starttls"`
	Timeout     time.Duration `json:"timeout"`
}

// Configured reports whether SMTP has enough settings to attempt a send.
func (s SMTP) Configured() bool {
	return s.Host != "" && s.FromEmail != ""
}

type LLM struct {
	BaseURL       string        `json:"base_url"`
	APIKey        string        `json:"api_key"`
	Model         string        `json:"model"`
	Temperature   float64       `json:"temperature"`
	MaxTokens     int           `json:"max_tokens"`
	Timeout       time.Duration `json:"timeout"`
	RetryAttempts int           `json:"retry_attempts"`
	Enabled       bool          `json:"enabled"`
}

type Image struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

type Cache struct {
	Enabled     bool          `json:"enabled"`
	RedisURL    string        `json:"redis_url"`
	RedisDB     int           `json:"redis_db"`
	RedisPrefix string        `json:"redis_prefix"`
	DefaultTTL  time.Duration `json:"default_ttl"`
}

type Logging struct {
	Level      string `json:"level"`
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type Metrics struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Database: Database{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "hermes"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: Server{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 4*1024*1024), // 4MB
			EnableMetrics:   getEnvBool("SERVER_ENABLE_METRICS", true),
			ProxyHeader:     getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
		},
		JWT: JWT{
			SecretKey:      getEnvString("JWT_SECRET_KEY", ""),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
			Issuer:         getEnvString("JWT_ISSUER", "hermes"),
			Audience:       getEnvString("JWT_AUDIENCE", "hermes-api"),
		},
		Admin: Admin{
			Email:        getEnvString("ADMIN_EMAIL", "admin@localhost"),
			PasswordHash: getEnvString("ADMIN_PASSWORD_HASH", ""),
			BcryptCost:   getEnvInt("BCRYPT_COST", 12),
		},
		Agent: Agent{
			Enabled:          getEnvBool("AGENT_ENABLED", true),
			Interval:         getEnvDuration("AGENT_INTERVAL", 1*time.Hour),
			LookaheadDays:    getEnvInt("AGENT_LOOKAHEAD_DAYS", 7),
			MaxHolidayFanout: getEnvInt("AGENT_MAX_HOLIDAY_FANOUT", 200),
			RunTimeout:       getEnvDuration("AGENT_RUN_TIMEOUT", 10*time.Minute),
		},
		Delivery: DeliveryPolicy{
			DefaultChannel:  getEnvString("DELIVERY_DEFAULT_CHANNEL", "file"),
			OutboxDir:       getEnvString("DELIVERY_OUTBOX_DIR", "./outbox"),
			AllowedDomains:  getEnvStringSlice("DELIVERY_ALLOWED_DOMAINS", []string{}),
			AllowAllDomains: getEnvBool("DELIVERY_ALLOW_ALL_DOMAINS", false),
			SendLockTTL:     getEnvDuration("DELIVERY_SEND_LOCK_TTL", 2*time.Minute),
		},
		SMTP: SMTP{
			Host:        getEnvString("SMTP_HOST", ""),
			Port:        getEnvInt("SMTP_PORT", 587),
			Username:    getEnvString("SMTP_USERNAME", ""),
			Password:    getEnvString("SMTP_PASSWORD", ""),
			FromEmail:   getEnvString("SMTP_FROM_EMAIL", ""),
			FromName:    getEnvString("SMTP_FROM_NAME", "Hermes"),
			UseSSL:      getEnvBool("SMTP_USE_SSL", false),
			UseSTARTTLS: getEnvBool("SMTP_USE_STARTTLS", true),
			Timeout:     getEnvDuration("SMTP_TIMEOUT", 30*time.Second),
		},
		LLM: LLM{
			BaseURL:       getEnvString("LLM_BASE_URL", ""),
			APIKey:        getEnvString("LLM_API_KEY", ""),
			Model:         getEnvString("LLM_MODEL", "gpt-4o-mini"),
			Temperature:   getEnvFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:     getEnvInt("LLM_MAX_TOKENS", 700),
			Timeout:       getEnvDuration("LLM_TIMEOUT", 40*time.Second),
			RetryAttempts: getEnvInt("LLM_RETRY_ATTEMPTS", 3),
			Enabled:       getEnvBool("LLM_ENABLED", false),
		},
		Image: Image{
			Enabled: getEnvBool("IMAGE_ENABLED", true),
			Dir:     getEnvString("IMAGE_DIR", "./cards"),
			Width:   getEnvInt("IMAGE_WIDTH", 800),
			Height:  getEnvInt("IMAGE_HEIGHT", 400),
		},
		Cache: Cache{
			Enabled:     getEnvBool("CACHE_ENABLED", false),
			RedisURL:    getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:     getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix: getEnvString("CACHE_REDIS_PREFIX", "hermes:"),
			DefaultTTL:  getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
		},
		Logging: Logging{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Output:     getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:   getEnvString("LOG_FILE_PATH", "/var/log/hermes/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: Metrics{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
	}

	// Validate the loaded configuration
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() error {
	envFile := ".env"

	// Check if .env file exists
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// .env file doesn't exist, continue with environment variables
		return nil
	}

	// Open .env file
	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	// Read file line by line
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key=value pairs
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				// Remove quotes if present
				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}

				// Set environment variable if not already set
				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func Validate(cfg *Config) error {
	var errors []string

	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}

	if cfg.JWT.SecretKey == "" {
		errors = append(errors, "JWT_SECRET_KEY is required")
	}
	if len(cfg.JWT.SecretKey) > 0 && len(cfg.JWT.SecretKey) < 32 {
		errors = append(errors, "JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		errors = append(errors, "JWT_ACCESS_TOKEN_TTL must be positive")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	if cfg.Agent.Interval <= 0 {
		errors = append(errors, "AGENT_INTERVAL must be positive")
	}
	if cfg.Agent.LookaheadDays <= 0 {
		errors = append(errors, "AGENT_LOOKAHEAD_DAYS must be positive")
	}
	if cfg.Agent.MaxHolidayFanout <= 0 {
		errors = append(errors, "AGENT_MAX_HOLIDAY_FANOUT must be positive")
	}

	switch cfg.Delivery.DefaultChannel {
	case "file", "email", "noop":
	default:
		errors = append(errors, "DELIVERY_DEFAULT_CHANNEL must be one of file, email, noop")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
