// Package config loads server settings from LABCONSOLE_* environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvProduction is the LABCONSOLE_ENV value that turns on strict settings.
const EnvProduction = "production"

// DefaultAPIBaseURL is the cloud functions endpoint the console talks to.
const DefaultAPIBaseURL = "https://europe-central2-co-op-world-game.cloudfunctions.net"

// DefaultWelcome is the home page text when LABCONSOLE_WELCOME is unset.
const DefaultWelcome = "# Welcome to the Admin Panel\n\nUse the navigation bar to explore different sections."

// Config errors.
var (
	ErrCSRFKeyRequired = errors.New("LABCONSOLE_CSRF_KEY is required in production")
	ErrInvalidKey      = errors.New("invalid hex key")
)

// Config holds all runtime settings.
type Config struct {
	Addr            string
	Env             string
	APIBaseURL      string
	APITimeout      time.Duration
	CSRFKey         []byte
	DBPath          string
	AuditKey        []byte
	ResendKey       string
	ResendFrom      string
	NotifyEmail     string
	LogLevel        slog.Level
	SlowRequestMs   int
	SlowRemoteMs    int
	SlowQueryMs     int
	RateLimitPerSec int
	Welcome         string
	TrustedOrigins  []string
}

// Production reports whether the server runs in production mode.
func (c Config) Production() bool { return c.Env == EnvProduction }

// Load reads the configuration through getenv.
// PRE: getenv is non-nil; os.Getenv in production code
// POST: Returns a config with every field defaulted, or an error for
// malformed values. CSRFKey is nil outside production when unset; the
// caller generates a per-process key.
func Load(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	c := Config{
		Addr:        env("LABCONSOLE_ADDR", ":8080"),
		Env:         env("LABCONSOLE_ENV", "development"),
		APIBaseURL:  env("LABCONSOLE_API_BASE_URL", DefaultAPIBaseURL),
		DBPath:      env("LABCONSOLE_DB_PATH", "labconsole.db"),
		ResendKey:   getenv("LABCONSOLE_RESEND_KEY"),
		ResendFrom:  env("LABCONSOLE_RESEND_FROM", "Lab Console <noreply@labconsole.local>"),
		NotifyEmail: getenv("LABCONSOLE_NOTIFY_EMAIL"),
		Welcome:     env("LABCONSOLE_WELCOME", DefaultWelcome),
	}

	var err error
	if c.APITimeout, err = time.ParseDuration(env("LABCONSOLE_API_TIMEOUT", "15s")); err != nil {
		return Config{}, fmt.Errorf("LABCONSOLE_API_TIMEOUT: %w", err)
	}
	if c.SlowRequestMs, err = strconv.Atoi(env("LABCONSOLE_SLOW_REQUEST_MS", "200")); err != nil {
		return Config{}, fmt.Errorf("LABCONSOLE_SLOW_REQUEST_MS: %w", err)
	}
	if c.SlowRemoteMs, err = strconv.Atoi(env("LABCONSOLE_SLOW_REMOTE_MS", "1000")); err != nil {
		return Config{}, fmt.Errorf("LABCONSOLE_SLOW_REMOTE_MS: %w", err)
	}
	if c.SlowQueryMs, err = strconv.Atoi(env("LABCONSOLE_SLOW_QUERY_MS", "50")); err != nil {
		return Config{}, fmt.Errorf("LABCONSOLE_SLOW_QUERY_MS: %w", err)
	}
	if c.RateLimitPerSec, err = strconv.Atoi(env("LABCONSOLE_RATE_LIMIT", "10")); err != nil {
		return Config{}, fmt.Errorf("LABCONSOLE_RATE_LIMIT: %w", err)
	}
	if err := c.LogLevel.UnmarshalText([]byte(env("LABCONSOLE_LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("LABCONSOLE_LOG_LEVEL: %w", err)
	}

	if c.CSRFKey, err = decodeKey("LABCONSOLE_CSRF_KEY", getenv("LABCONSOLE_CSRF_KEY"), 32); err != nil {
		return Config{}, err
	}
	if c.CSRFKey == nil && c.Production() {
		return Config{}, ErrCSRFKeyRequired
	}
	if c.AuditKey, err = decodeKey("LABCONSOLE_AUDIT_KEY", getenv("LABCONSOLE_AUDIT_KEY"), 0); err != nil {
		return Config{}, err
	}

	for _, o := range strings.Split(getenv("LABCONSOLE_TRUSTED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.TrustedOrigins = append(c.TrustedOrigins, o)
		}
	}
	return c, nil
}

// decodeKey decodes a hex key. size 0 accepts any non-empty length.
func decodeKey(name, value string, size int) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, ErrInvalidKey, err)
	}
	if size > 0 && len(key) != size {
		return nil, fmt.Errorf("%s: %w: want %d bytes, got %d", name, ErrInvalidKey, size, len(key))
	}
	return key, nil
}

// FromEnv loads the configuration from the process environment.
func FromEnv() (Config, error) {
	return Load(os.Getenv)
}
