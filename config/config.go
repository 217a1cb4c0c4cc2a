package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The types reflect how the values are used:
// strings for identifiers and secrets, durations for lifetimes.
type Config struct {
	Env        string // application environment (e.g. "dev", "prod")
	DBUser     string // database username
	DBPass     string // database password (optional)
	DBHost     string // database host address
	DBPort     string // database port number
	DBName     string // database name
	JWTSecret  string // secret used to sign access tokens (optional; disables issuing when empty)
	AccessTTL  time.Duration // access token time-to-live
	SessionTTL time.Duration // session lifetime used when callers do not supply an expiry
	TokenTTL   time.Duration // verification/reset token lifetime
	BcryptCost int           // bcrypt cost for password hashing
	AMQPURL    string        // message broker URL (optional; disables change events when empty)
	LogLevel   string        // zerolog level name ("debug", "info", ...)
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:        getenv("APP_ENV", "dev"),
		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"), // empty allowed
		DBHost:     must("DB_HOST"),
		DBPort:     must("DB_PORT"),
		DBName:     must("DB_NAME"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		AccessTTL:  minutes(getenv("ACCESS_TOKEN_TTL_MIN", "15")),
		SessionTTL: hours(getenv("SESSION_TTL_HOURS", "168")),
		TokenTTL:   minutes(getenv("TOKEN_TTL_MIN", "60")),
		BcryptCost: atoi(getenv("BCRYPT_COST", "10")),
		AMQPURL:    os.Getenv("AMQP_URL"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int value: %q", s)
	}
	return n
}

func minutes(s string) time.Duration { return time.Duration(atoi(s)) * time.Minute }

func hours(s string) time.Duration { return time.Duration(atoi(s)) * time.Hour }
