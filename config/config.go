package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// API modes select the catalog backend.
const (
	ModeMock      = "mock"
	ModeFirestore = "firestore"
	ModePostgres  = "postgres"
)

// Storage backends hold per-device preferences and recent searches.
const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port           string
	AllowedOrigins []string

	APIMode             string
	DatabaseURL         string
	FirebaseProjectID   string
	FirebaseCredentials string
	FirestoreCollection string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StorageBackend string
	StoragePath    string
	GeoIPPath      string

	AMQPURL    string
	AMQPPrefix string

	PageSize    int
	StaleTime   time.Duration
	Retries     int
	RetryDelay  time.Duration
	Debounce    time.Duration
	MockLatency time.Duration
	SessionTTL  time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads the .env file, if any, and returns a populated Config. It reports whether
// a .env file was found so the caller can log it once logging is set up.
func Load() (*Config, bool) {
	found := godotenv.Load() == nil

	return &Config{
		Port:           getEnv("PORT", "3003"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),

		APIMode:             strings.ToLower(getEnv("API_MODE", ModeMock)),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		FirestoreCollection: getEnv("FIRESTORE_COLLECTION", "restaurants"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageSQLite)),
		StoragePath:    getEnv("STORAGE_PATH", "data/chopfinder.db"),
		GeoIPPath:      getEnv("GEOIP_DB_PATH", ""),

		AMQPURL:    getEnv("AMQP_URL", ""),
		AMQPPrefix: getEnv("AMQP_PREFIX", "chopfinder"),

		PageSize:    getEnvInt("PAGE_SIZE", 20),
		StaleTime:   getEnvDuration("STALE_TIME", 5*time.Minute),
		Retries:     getEnvInt("FETCH_RETRIES", 2),
		RetryDelay:  getEnvDuration("RETRY_DELAY", time.Second),
		Debounce:    getEnvDuration("DEBOUNCE", 300*time.Millisecond),
		MockLatency: getEnvDuration("MOCK_LATENCY", 300*time.Millisecond),
		SessionTTL:  getEnvDuration("SESSION_TTL", 30*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}, found
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.APIMode {
	case ModeMock:
	case ModeFirestore:
		if c.FirebaseProjectID == "" && c.FirebaseCredentials == "" {
			return fmt.Errorf("API_MODE=firestore needs FIREBASE_PROJECT_ID or GOOGLE_APPLICATION_CREDENTIALS")
		}
	case ModePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("API_MODE=postgres needs DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown API_MODE %q (want mock, firestore or postgres)", c.APIMode)
	}
	switch c.StorageBackend {
	case StorageSQLite, StorageMemory:
	case StorageRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("STORAGE_BACKEND=redis needs REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want sqlite, redis or memory)", c.StorageBackend)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.Retries < 0 {
		return fmt.Errorf("FETCH_RETRIES must not be negative, got %d", c.Retries)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("1.5s") and bare integers as milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
