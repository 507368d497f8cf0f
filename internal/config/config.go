package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName      string
	AppVersion   string
	Environment  string
	HTTPAddr     string
	DefaultOrgID int64

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	Business  BusinessConfig

	FinanceConfigDir string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// RateLimitConfig bounds API requests per organization. A zero rate disables it.
type RateLimitConfig struct {
	PerOrgRate  float64
	PerOrgBurst int
}

type StorageConfig struct {
	Bucket               string
	Region               string
	Endpoint             string
	AccessKey            string
	SecretKey            string
	PresignExpirySeconds int64
}

func (c StorageConfig) Enabled() bool {
	return strings.TrimSpace(c.Bucket) != ""
}

type SchedulerConfig struct {
	Enabled            bool
	RunIntervalSeconds int
	JobTimeoutSeconds  int
}

// BusinessConfig is printed on rendered invoices and receipts.
type BusinessConfig struct {
	Name        string
	Address     string
	Email       string
	GSTNumber   string
	BankDetails string
	LogoPath    string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:           getenv("APP_SERVICE", "ledgercraft"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DefaultOrgID:      getenvInt64("DEFAULT_ORG", 0),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "ledgercraft"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			PerOrgRate:  getenvFloat("RATE_LIMIT_PER_ORG_RATE", 0),
			PerOrgBurst: getenvInt("RATE_LIMIT_PER_ORG_BURST", 20),
		},
		Storage: StorageConfig{
			Bucket:               strings.TrimSpace(getenv("S3_BUCKET", "")),
			Region:               getenv("S3_REGION", "ap-southeast-2"),
			Endpoint:             strings.TrimSpace(getenv("S3_ENDPOINT", "")),
			AccessKey:            strings.TrimSpace(getenv("S3_ACCESS_KEY", "")),
			SecretKey:            strings.TrimSpace(getenv("S3_SECRET_KEY", "")),
			PresignExpirySeconds: getenvInt64("S3_PRESIGN_EXPIRY_SECONDS", 900),
		},
		Scheduler: SchedulerConfig{
			Enabled:            getenvBool("SCHEDULER_ENABLED", true),
			RunIntervalSeconds: getenvInt("SCHEDULER_RUN_INTERVAL_SECONDS", 300),
			JobTimeoutSeconds:  getenvInt("SCHEDULER_JOB_TIMEOUT_SECONDS", 60),
		},
		Business: BusinessConfig{
			Name:        getenv("BUSINESS_NAME", "ledgercraft"),
			Address:     getenv("BUSINESS_ADDRESS", ""),
			Email:       getenv("BUSINESS_EMAIL", ""),
			GSTNumber:   getenv("BUSINESS_GST_NUMBER", ""),
			BankDetails: getenv("BUSINESS_BANK_DETAILS", ""),
			LogoPath:    strings.TrimSpace(getenv("BUSINESS_LOGO_PATH", "")),
		},
		FinanceConfigDir: strings.TrimSpace(getenv("FINANCE_CONFIG_DIR", "")),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
