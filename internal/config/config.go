package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"stockflow/pkg/database"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	ListPolicyUser  = "user"
	ListPolicyStaff = "staff"
)

// Config holds the application configuration
type Config struct {
	Environment string
	Port        string
	LogLevel    string
	Store       string
	Database    database.Config

	JWTSecret       string
	JWTPublicKeyPEM string

	WebhookSecret     string
	IdentityAPIURL    string
	IdentitySecretKey string

	RedisURL string
	CacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	OTLPEndpoint string

	SKUAllocationAttempts int
	TransactionListPolicy string
	ReverseOnUpdate       bool
	RestoreOnDelete       bool
	LowStockThreshold     int

	CORSAllowedOrigins string
}

// IsDevelopment reports whether the app runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "3000"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Store:       getEnv("STORE", StorePostgres),
		Database: database.Config{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "stockflow"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWTPublicKeyPEM:       os.Getenv("JWT_PUBLIC_KEY"),
		WebhookSecret:         os.Getenv("WEBHOOK_SECRET"),
		IdentityAPIURL:        getEnv("IDENTITY_API_URL", "https://api.clerk.com"),
		IdentitySecretKey:     os.Getenv("IDENTITY_SECRET_KEY"),
		RedisURL:              os.Getenv("REDIS_URL"),
		KafkaTopic:            getEnv("KAFKA_TOPIC", "stock-movements"),
		OTLPEndpoint:          os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TransactionListPolicy: getEnv("TRANSACTION_LIST_POLICY", ListPolicyUser),
		CORSAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", "*"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.CacheTTL, err = time.ParseDuration(getEnv("CACHE_TTL", "30s")); err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	if cfg.SKUAllocationAttempts, err = strconv.Atoi(getEnv("SKU_ALLOCATION_ATTEMPTS", "3")); err != nil {
		return nil, fmt.Errorf("invalid SKU_ALLOCATION_ATTEMPTS: %w", err)
	}
	if cfg.LowStockThreshold, err = strconv.Atoi(getEnv("LOW_STOCK_THRESHOLD", "10")); err != nil {
		return nil, fmt.Errorf("invalid LOW_STOCK_THRESHOLD: %w", err)
	}
	if cfg.ReverseOnUpdate, err = strconv.ParseBool(getEnv("REVERSE_ON_UPDATE", "false")); err != nil {
		return nil, fmt.Errorf("invalid REVERSE_ON_UPDATE: %w", err)
	}
	if cfg.RestoreOnDelete, err = strconv.ParseBool(getEnv("RESTORE_ON_DELETE", "false")); err != nil {
		return nil, fmt.Errorf("invalid RESTORE_ON_DELETE: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SKUAllocationAttempts < 1 {
		return fmt.Errorf("SKU_ALLOCATION_ATTEMPTS must be at least 1")
	}
	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q (want %s or %s)", c.Store, StorePostgres, StoreMemory)
	}
	switch c.TransactionListPolicy {
	case ListPolicyUser, ListPolicyStaff:
	default:
		return fmt.Errorf("unknown TRANSACTION_LIST_POLICY %q (want %s or %s)", c.TransactionListPolicy, ListPolicyUser, ListPolicyStaff)
	}
	if c.JWTSecret == "" && c.JWTPublicKeyPEM == "" {
		return fmt.Errorf("one of JWT_SECRET or JWT_PUBLIC_KEY is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
