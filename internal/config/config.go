// Package config loads application configuration from environment
// variables. A .env file in the working directory is read first when
// present; variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable.
type Config struct {
	Env      string // APP_ENV: application environment (dev, test, prod)
	Port     string // APP_PORT: HTTP port to listen on
	LogLevel string // LOG_LEVEL: zap level name (debug, info, warn, error)

	DBUser         string // DB_USER
	DBPass         string // DB_PASS (optional)
	DBHost         string // DB_HOST
	DBPort         string // DB_PORT
	DBName         string // DB_NAME
	DBMaxOpenConns int    // DB_MAX_OPEN_CONNS

	JWTSecret string // JWT_SECRET: HMAC key used to verify access tokens

	Booking BookingConfig

	AMQPURL         string // AMQP_URL: empty disables publishing
	AMQPQueue       string // AMQP_QUEUE
	ConsumerEnabled bool   // AMQP_CONSUMER_ENABLED

	ShutdownTimeout time.Duration // SHUTDOWN_TIMEOUT
}

// BookingConfig tunes the transaction coordinator.
type BookingConfig struct {
	OperationTimeout time.Duration // BOOKING_OPERATION_TIMEOUT
	MaxRetries       int           // BOOKING_TX_MAX_RETRIES
	RetryInterval    time.Duration // BOOKING_TX_RETRY_INTERVAL
	MaxRetryInterval time.Duration // BOOKING_TX_MAX_RETRY_INTERVAL
}

// Load reads configuration values from the environment. Every missing
// required variable and every malformed value is reported in the
// returned error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	l := &loader{}
	cfg := Config{
		Env:            l.must("APP_ENV"),
		Port:           l.must("APP_PORT"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		DBUser:         l.must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         l.must("DB_HOST"),
		DBPort:         l.must("DB_PORT"),
		DBName:         l.must("DB_NAME"),
		DBMaxOpenConns: l.intOr("DB_MAX_OPEN_CONNS", 25),
		JWTSecret:      l.must("JWT_SECRET"),
		Booking: BookingConfig{
			OperationTimeout: l.durOr("BOOKING_OPERATION_TIMEOUT", 5*time.Second),
			MaxRetries:       l.intOr("BOOKING_TX_MAX_RETRIES", 3),
			RetryInterval:    l.durOr("BOOKING_TX_RETRY_INTERVAL", 20*time.Millisecond),
			MaxRetryInterval: l.durOr("BOOKING_TX_MAX_RETRY_INTERVAL", 500*time.Millisecond),
		},
		AMQPURL:         os.Getenv("AMQP_URL"),
		AMQPQueue:       envStr("AMQP_QUEUE", "booking.activity"),
		ConsumerEnabled: envBool("AMQP_CONSUMER_ENABLED", false),
		ShutdownTimeout: l.durOr("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if cfg.Booking.MaxRetries < 0 {
		l.errs = append(l.errs, fmt.Errorf("BOOKING_TX_MAX_RETRIES must not be negative"))
	}
	if err := errors.Join(l.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProd reports whether the service runs in production mode.
func (c Config) IsProd() bool {
	return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}

// loader collects problems instead of stopping at the first one.
type loader struct {
	errs []error
}

// must retrieves a required variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

func (l *loader) intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, v))
		return def
	}
	return n
}

func (l *loader) durOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid duration for %s: %q", key, v))
		return def
	}
	return d
}
