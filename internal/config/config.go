// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTIssuer   string `mapstructure:"JWT_ISSUER"`
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"APP_ENV"`

	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`

	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	FeedDefaultLimit int `mapstructure:"FEED_DEFAULT_LIMIT"`
	FeedMaxLimit     int `mapstructure:"FEED_MAX_LIMIT"`

	VoteRateLimit          int `mapstructure:"VOTE_RATE_LIMIT"`
	VoteRateWindowSeconds  int `mapstructure:"VOTE_RATE_WINDOW_SECONDS"`
	CommentRateLimit       int `mapstructure:"COMMENT_RATE_LIMIT"`
	CommentRateWindowSecs  int `mapstructure:"COMMENT_RATE_WINDOW_SECONDS"`
	MembershipCacheMinutes int `mapstructure:"MEMBERSHIP_CACHE_MINUTES"`

	CounterAuditSchedule string `mapstructure:"COUNTER_AUDIT_SCHEDULE"`
	SeedBuiltins         bool   `mapstructure:"SEED_BUILTINS"`

	DevBootstrapRoot bool   `mapstructure:"DEV_BOOTSTRAP_ROOT"`
	DevRootUsername  string `mapstructure:"DEV_ROOT_USERNAME"`
	DevRootEmail     string `mapstructure:"DEV_ROOT_EMAIL"`
	DevRootPassword  string `mapstructure:"DEV_ROOT_PASSWORD"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "collectorhub")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_ISSUER", "collectorhub-api")
	viper.SetDefault("JWT_AUDIENCE", "collectorhub-client")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
	viper.SetDefault("FEED_DEFAULT_LIMIT", 20)
	viper.SetDefault("FEED_MAX_LIMIT", 100)
	viper.SetDefault("VOTE_RATE_LIMIT", 60)
	viper.SetDefault("VOTE_RATE_WINDOW_SECONDS", 60)
	viper.SetDefault("COMMENT_RATE_LIMIT", 10)
	viper.SetDefault("COMMENT_RATE_WINDOW_SECONDS", 60)
	viper.SetDefault("MEMBERSHIP_CACHE_MINUTES", 10)
	viper.SetDefault("COUNTER_AUDIT_SCHEDULE", "@daily")
	viper.SetDefault("SEED_BUILTINS", true)
	viper.SetDefault("DEV_BOOTSTRAP_ROOT", false)
	viper.SetDefault("DEV_ROOT_USERNAME", "collectorhub_root")
	viper.SetDefault("DEV_ROOT_EMAIL", "root@collectorhub.local")
}

// IsProduction reports whether the process runs with a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// VoteRateWindow is the fixed window the vote limiter counts in.
func (c *Config) VoteRateWindow() time.Duration {
	return time.Duration(c.VoteRateWindowSeconds) * time.Second
}

// CommentRateWindow is the fixed window the comment limiter counts in.
func (c *Config) CommentRateWindow() time.Duration {
	return time.Duration(c.CommentRateWindowSecs) * time.Second
}

// MembershipCacheTTL bounds how long cached membership ids are served.
func (c *Config) MembershipCacheTTL() time.Duration {
	return time.Duration(c.MembershipCacheMinutes) * time.Minute
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DBConnMaxLifetimeMinutes < 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must not be negative")
	}
	if c.FeedDefaultLimit <= 0 || c.FeedMaxLimit <= 0 {
		return errors.New("FEED_DEFAULT_LIMIT and FEED_MAX_LIMIT must be positive")
	}
	if c.FeedDefaultLimit > c.FeedMaxLimit {
		return errors.New("FEED_DEFAULT_LIMIT must not exceed FEED_MAX_LIMIT")
	}
	if c.VoteRateLimit <= 0 || c.VoteRateWindowSeconds <= 0 {
		return errors.New("VOTE_RATE_LIMIT and VOTE_RATE_WINDOW_SECONDS must be positive")
	}
	if c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1 {
		return errors.New("TRACING_SAMPLER_RATIO must be between 0 and 1")
	}

	// Strict checks for production
	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
