// Package config loads application configuration from environment
// variables.  A .env file in the working directory, when present, is read
// first and never overrides variables already set.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env      string // application environment (dev/test/prod)
	Port     string // HTTP port to listen on
	LogLevel string // logrus level name

	DBDriver   string // "mysql" or "sqlite"
	DBUser     string
	DBPass     string // empty allowed
	DBHost     string
	DBPort     string
	DBName     string
	SQLitePath string // database file when DBDriver is sqlite

	JWTSecret    string // secret used to sign and verify JWTs
	AccessTTLMin int    // lifetime of tokens issued by ticketctl

	RabbitURL string // empty disables activity publishing and the consumer
	LogDir    string // where the consumer writes tickets.log

	QRBaseURL   string // prefix of the external QR image service
	BlobDir     string // filesystem root of uploaded images
	BlobBaseURL string // public URL BlobDir is served under

	SeatHoldTTL time.Duration

	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// Load reads configuration values and returns a Config.  Required variables
// are enforced by must() and missing values stop the program with a fatal
// log entry.
func Load() Config {
	LoadDotEnv()
	cfg := Config{
		Env:      envStr("APP_ENV", "dev"),
		Port:     must("APP_PORT"),
		LogLevel: envStr("LOG_LEVEL", "info"),

		DBDriver:   envStr("DB_DRIVER", "mysql"),
		SQLitePath: envStr("SQLITE_PATH", "ingressos.db"),

		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),

		RabbitURL: os.Getenv("RABBITMQ_URL"),
		LogDir:    envStr("ACTIVITY_LOG_DIR", "logs"),

		QRBaseURL:   envStr("QR_BASE_URL", "https://api.qrserver.com/v1/create-qr-code/?size=300x300&data="),
		BlobDir:     envStr("BLOB_DIR", "uploads"),
		BlobBaseURL: envStr("BLOB_BASE_URL", "/uploads"),

		SeatHoldTTL: envDur("SEAT_HOLD_TTL", 10*time.Minute),

		Redis:     LoadRedisConfig(),
		Cache:     LoadCacheConfig(),
		RateLimit: LoadRateLimitConfig(),
	}
	switch cfg.DBDriver {
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case "sqlite":
	default:
		logrus.Fatalf("unsupported DB_DRIVER %q (want mysql or sqlite)", cfg.DBDriver)
	}
	return cfg
}

// LoadDotEnv reads .env into the environment when the file exists.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("config: could not read .env")
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
