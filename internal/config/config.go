package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	TenantID    string
	AppName     string
	AppVersion  string
	Environment string

	AuthJWTSecret   string
	AuthJWTIssuer   string
	AuthJWTAudience string

	HoldThresholdDefault   float64
	ReviewThresholdDefault float64
	DupModelPath           string

	OTLPEndpoint string
	SearchHost   string
	RedisURL     string

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

	// Object storage fields are accepted for interface completeness; no
	// component in this repo constructs an S3 client (object storage and
	// PDF capture are out of scope).
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	RateLimit RateLimitConfig
}

// RateLimitConfig configures the Redis-backed token bucket guarding
// POST /scoreInvoice and the distributed lock serializing the vendor
// baseline recompute job across replicas.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ScoreInvoiceRate  float64
	ScoreInvoiceBurst int

	BaselineLockTTLSeconds int
}

// Load loads configuration from environment variables and an optional .env
// file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		TenantID:    strings.TrimSpace(getenv("TENANT_ID", "")),
		AppName:     getenv("APP_SERVICE", "sieve"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: environment,

		AuthJWTSecret:   strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthJWTIssuer:   getenv("AUTH_JWT_ISSUER", "invoice-anomaly-sieve"),
		AuthJWTAudience: getenv("AUTH_JWT_AUDIENCE", "invoice-anomaly-sieve"),

		HoldThresholdDefault:   getenvFloat("HOLD_THRESHOLD_DEFAULT", 80.0),
		ReviewThresholdDefault: getenvFloat("REVIEW_THRESHOLD_DEFAULT", 40.0),
		DupModelPath:           strings.TrimSpace(getenv("DUP_MODEL_PATH", "")),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		SearchHost:   strings.TrimSpace(getenv("SEARCH_HOST", "")),
		RedisURL:     getenv("REDIS_URL", "localhost:6379"),

		DBType:     getenv("DB_TYPE", "postgres"),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5433"),
		DBName:     getenv("DB_NAME", "postgres"),
		DBUser:     getenv("DB_USER", "postgres"),
		DBPassword: getenv("DB_PASSWORD", ""),
		DBSSLMode:  getenv("DB_SSL_MODE", "disable"),

		S3Endpoint:  strings.TrimSpace(getenv("S3_ENDPOINT", "")),
		S3Bucket:    strings.TrimSpace(getenv("S3_BUCKET", "")),
		S3AccessKey: strings.TrimSpace(getenv("S3_ACCESS_KEY", "")),
		S3SecretKey: strings.TrimSpace(getenv("S3_SECRET_KEY", "")),

		RateLimit: RateLimitConfig{
			Enabled:                getenvBool("RATE_LIMIT_ENABLED", true),
			RedisAddr:              getenv("RATE_LIMIT_REDIS_ADDR", "localhost:6379"),
			RedisPassword:          getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:                int(getenvInt64("RATE_LIMIT_REDIS_DB", 0)),
			ScoreInvoiceRate:       getenvFloat("RATE_LIMIT_SCORE_INVOICE_RATE", 5.0),
			ScoreInvoiceBurst:      int(getenvInt64("RATE_LIMIT_SCORE_INVOICE_BURST", 20)),
			BaselineLockTTLSeconds: int(getenvInt64("RATE_LIMIT_BASELINE_LOCK_TTL_SECONDS", 900)),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
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

func parseServices(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		log.Println("no services enabled for migration")
	}
	return out
}
