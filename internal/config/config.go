// Package config reads process configuration from the environment, with an
// optional .env file, and resolves the classifier rule tables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/zerosight/zerosight-go/internal/classify"
)

var (
	// ErrInvalidPort is returned when PORT is not a number in 1..65535.
	ErrInvalidPort = errors.New("invalid port")
	// ErrInvalidLimit is returned for non-positive sample limits.
	ErrInvalidLimit = errors.New("invalid limit")
)

const (
	defaultPort        = 5001
	defaultBindAddr    = "0.0.0.0"
	defaultMaxSamples  = 1000
	defaultLatestLimit = 200
)

// Config is the service configuration.
type Config struct {
	Port        int
	BindAddr    string
	LogLevel    string
	CORSOrigins []string
	RulesFile   string
	MaxSamples  int
	LatestLimit int
	TLSDomains  []string
	ACMEEmail   string
	Production  bool
}

// Addr is the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}

// TLSEnabled reports whether certmagic should serve HTTPS.
func (c *Config) TLSEnabled() bool {
	return len(c.TLSDomains) > 0
}

// Load reads a .env file if present and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		BindAddr:    envOr(getenv, "BIND_ADDR", defaultBindAddr),
		LogLevel:    getenv("LOG_LEVEL"),
		CORSOrigins: splitList(envOr(getenv, "CORS_ALLOWED_ORIGINS", "*")),
		RulesFile:   strings.TrimSpace(getenv("ZEROSIGHT_RULES_FILE")),
		TLSDomains:  splitList(getenv("ZEROSIGHT_TLS_DOMAINS")),
		ACMEEmail:   getenv("ACME_EMAIL"),
		Production:  getenv("ZEROSIGHT_ENV") == "production",
	}

	var err error
	if cfg.Port, err = intEnv(getenv, "PORT", defaultPort); err != nil {
		return nil, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT=%d: %w", cfg.Port, ErrInvalidPort)
	}
	if cfg.MaxSamples, err = intEnv(getenv, "ZEROSIGHT_MAX_SAMPLES", defaultMaxSamples); err != nil {
		return nil, err
	}
	if cfg.LatestLimit, err = intEnv(getenv, "ZEROSIGHT_LATEST_LIMIT", defaultLatestLimit); err != nil {
		return nil, err
	}
	if cfg.MaxSamples <= 0 || cfg.LatestLimit <= 0 {
		return nil, fmt.Errorf("max samples %d, latest limit %d: %w", cfg.MaxSamples, cfg.LatestLimit, ErrInvalidLimit)
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	return cfg, nil
}

// LoadRules returns the production rule tables, overlaid with RulesFile when set.
func (c *Config) LoadRules() (classify.RuleSet, error) {
	if c.RulesFile == "" {
		return classify.DefaultRules(), nil
	}
	return classify.LoadRulesFile(c.RulesFile)
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(getenv func(string) string, key string, fallback int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		if key == "PORT" {
			return 0, fmt.Errorf("PORT=%q: %w", v, ErrInvalidPort)
		}
		return 0, fmt.Errorf("%s=%q: %w", key, v, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
