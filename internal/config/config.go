package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/naveenspark/household/internal/callback"
)

// Config holds everything the client reads from the environment.
type Config struct {
	// Remote finance API
	APIURL         string
	RequestTimeout time.Duration

	// Identity provider
	AuthURL      string
	AuthAnonKey  string
	AuthProvider string

	// Canonical location of the sign-in callback. Empty disables host correction.
	CanonicalURL string

	// Session bootstrap
	ExchangeTimeout time.Duration
	SessionTimeout  time.Duration
	RefreshInterval time.Duration

	// Local files
	TokenFile string
	LogFile   string
	LogLevel  string
}

// Load reads .env files (without overriding the real environment) and then
// the environment itself.
func Load() *Config {
	dir := DefaultDir()
	_ = godotenv.Load()
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	return &Config{
		APIURL:         strings.TrimRight(getEnv("HOUSEHOLD_API_URL", "http://localhost:8000"), "/"),
		RequestTimeout: getEnvDuration("HOUSEHOLD_REQUEST_TIMEOUT", 10*time.Second),

		AuthURL:      strings.TrimRight(getEnv("HOUSEHOLD_AUTH_URL", ""), "/"),
		AuthAnonKey:  getEnv("HOUSEHOLD_AUTH_ANON_KEY", ""),
		AuthProvider: getEnv("HOUSEHOLD_AUTH_PROVIDER", "google"),

		CanonicalURL: getEnv("HOUSEHOLD_CANONICAL_URL", ""),

		ExchangeTimeout: getEnvDuration("HOUSEHOLD_EXCHANGE_TIMEOUT", 10*time.Second),
		SessionTimeout:  getEnvDuration("HOUSEHOLD_SESSION_TIMEOUT", 5*time.Second),
		RefreshInterval: getEnvDuration("HOUSEHOLD_REFRESH_INTERVAL", 30*time.Second),

		TokenFile: getEnv("HOUSEHOLD_TOKEN_FILE", filepath.Join(dir, "token.json")),
		LogFile:   getEnv("HOUSEHOLD_LOG_FILE", filepath.Join(dir, "household.log")),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}
}

// DefaultDir is ~/.household, or .household when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".household"
	}
	return filepath.Join(home, ".household")
}

// Validate returns every configuration problem in one error.
func (c *Config) Validate() error {
	var errs []string

	if err := checkHTTPURL(c.APIURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid HOUSEHOLD_API_URL %q: %v", c.APIURL, err))
	}
	if c.AuthURL == "" {
		errs = append(errs, "HOUSEHOLD_AUTH_URL is required (your identity provider URL, e.g. https://xyz.supabase.co)")
	} else if err := checkHTTPURL(c.AuthURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid HOUSEHOLD_AUTH_URL %q: %v", c.AuthURL, err))
	}
	if c.AuthAnonKey == "" {
		errs = append(errs, "HOUSEHOLD_AUTH_ANON_KEY is required")
	}
	if c.AuthProvider == "" {
		errs = append(errs, "HOUSEHOLD_AUTH_PROVIDER cannot be empty")
	}
	if c.CanonicalURL != "" {
		if err := checkCanonicalURL(c.CanonicalURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid HOUSEHOLD_CANONICAL_URL %q: %v", c.CanonicalURL, err))
		}
	}

	errs = checkRange(errs, "HOUSEHOLD_REQUEST_TIMEOUT", c.RequestTimeout, time.Second, 2*time.Minute)
	errs = checkRange(errs, "HOUSEHOLD_EXCHANGE_TIMEOUT", c.ExchangeTimeout, time.Second, 2*time.Minute)
	errs = checkRange(errs, "HOUSEHOLD_SESSION_TIMEOUT", c.SessionTimeout, time.Second, time.Minute)
	errs = checkRange(errs, "HOUSEHOLD_REFRESH_INTERVAL", c.RefreshInterval, 5*time.Second, time.Hour)

	if c.TokenFile == "" {
		errs = append(errs, "HOUSEHOLD_TOKEN_FILE cannot be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// checkCanonicalURL accepts only addresses the local callback listener can
// serve: http on a loopback host with an explicit port and the callback page
// path.
func checkCanonicalURL(raw string) error {
	if err := checkHTTPURL(raw); err != nil {
		return err
	}
	u, _ := url.Parse(raw) //nolint:errcheck
	if u.Scheme != "http" {
		return fmt.Errorf("scheme must be http, the callback listener does not serve TLS")
	}
	host := u.Hostname()
	if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return fmt.Errorf("host %s is not a loopback address", host)
	}
	if u.Port() == "" {
		return fmt.Errorf("missing port")
	}
	if u.Path != callback.PagePath {
		return fmt.Errorf("path must be %s", callback.PagePath)
	}
	return nil
}

func checkRange(errs []string, key string, d, lo, hi time.Duration) []string {
	if d < lo || d > hi {
		return append(errs, fmt.Sprintf("invalid %s %v: must be between %v and %v", key, d, lo, hi))
	}
	return errs
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
