package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	StoreDriver string
	DatabaseURL string

	JWTSecret      []byte
	TokenTTL       time.Duration
	RequestTimeout time.Duration

	LowStockThreshold   int
	DeductStockOnAccept bool

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	RedisAddr      string
	RedisPassword  string
	IdempotencyTTL time.Duration

	SeedDemo bool
}

// Load reads .env when present and then the process environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("notice: .env not loaded: %v", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "retail_market"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		StoreDriver: strings.ToLower(EnvDefault("STORE_DRIVER", StoreMemory)),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:      []byte(os.Getenv("JWT_SECRET")),
		TokenTTL:       EnvDurationDefault("TOKEN_TTL", 24*time.Hour),
		RequestTimeout: EnvDurationDefault("REQUEST_TIMEOUT", 10*time.Second),

		LowStockThreshold:   EnvIntDefault("LOW_STOCK_THRESHOLD", 10),
		DeductStockOnAccept: EnvBoolDefault("DEDUCT_STOCK_ON_ACCEPT", false),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		IdempotencyTTL: EnvDurationDefault("IDEMPOTENCY_TTL", 24*time.Hour),

		SeedDemo: EnvBoolDefault("SEED_DEMO", false),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvDurationDefault accepts Go durations ("90s") and bare seconds ("90").
func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
