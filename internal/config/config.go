// Package config loads tweetharvest CLI settings from a YAML file, .env files
// and TWEETHARVEST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go-stealth/ratelimit"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	twitter "github.com/anatolykoptev/go-tweetharvest"
	"github.com/anatolykoptev/go-tweetharvest/collect"
)

const envPrefix = "TWEETHARVEST_"

// Config holds all configuration options for a collection run.
type Config struct {
	Search   SearchConfig   `yaml:"search"`
	Pacing   PacingConfig   `yaml:"pacing"`
	Sessions SessionsConfig `yaml:"sessions"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SearchConfig controls query construction.
type SearchConfig struct {
	Accounts []string `yaml:"accounts"`
	Language string   `yaml:"language"`
	Product  string   `yaml:"product"`
	PageSize int      `yaml:"page_size"`
}

// PacingConfig controls waits between pages and around rate limits.
type PacingConfig struct {
	Min          time.Duration `yaml:"min"`
	Max          time.Duration `yaml:"max"`
	RetryHorizon time.Duration `yaml:"retry_horizon"`
}

// SessionsConfig lists the cookie files and how sessions are used.
type SessionsConfig struct {
	Files             []string      `yaml:"files"`
	TTL               time.Duration `yaml:"ttl"`
	Proxy             string        `yaml:"proxy"`
	Parallel          bool          `yaml:"parallel"`
	RequestsPerWindow int           `yaml:"requests_per_window"`
}

// OutputConfig selects the result renderer: text, json, or auto (text on a
// terminal, json otherwise).
type OutputConfig struct {
	Format string `yaml:"format"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns a Config with the defaults of a plain run.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			Language: collect.DefaultLanguage,
			Product:  "Top",
			PageSize: 20,
		},
		Pacing: PacingConfig{
			Min: 2 * time.Second,
			Max: 4 * time.Second,
		},
		Sessions: SessionsConfig{
			Files: []string{"cookies_1.json"},
			TTL:   24 * time.Hour,
		},
		Output:  OutputConfig{Format: "auto"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration from, in increasing precedence: defaults, the
// YAML file at path (or the first one found in the standard locations), .env
// files, and the process environment. Flags are applied by the caller.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".tweetharvest.env"))
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile merges a YAML file into c. An empty path searches the standard
// locations; finding nothing there is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	locations := []string{".tweetharvest.yaml", ".tweetharvest.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations,
			filepath.Join(home, ".config", "tweetharvest", "config.yaml"),
			filepath.Join(home, ".tweetharvest.yaml"),
		)
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// LoadFromEnv overrides c with TWEETHARVEST_* variables.
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := getEnv("ACCOUNTS"); v != "" {
		c.Search.Accounts = splitList(v)
	}
	if v := getEnv("LANGUAGE"); v != "" {
		c.Search.Language = v
	}
	if v := getEnv("PRODUCT"); v != "" {
		c.Search.Product = v
	}
	if v := getEnv("SESSIONS"); v != "" {
		c.Sessions.Files = splitList(v)
	}
	if v := getEnv("PROXY"); v != "" {
		c.Sessions.Proxy = v
	}
	if v := getEnv("PARALLEL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sPARALLEL: %w", envPrefix, err))
		}
		c.Sessions.Parallel = b
	}
	for name, dst := range map[string]*time.Duration{
		"PACE_MIN":      &c.Pacing.Min,
		"PACE_MAX":      &c.Pacing.Max,
		"RETRY_HORIZON": &c.Pacing.RetryHorizon,
		"SESSION_TTL":   &c.Sessions.TTL,
	} {
		if v := getEnv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				continue
			}
			*dst = d
		}
	}
	if v := getEnv("FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := getEnv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getEnv("LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	return errors.Join(errs...)
}

func getEnv(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Search.Accounts) == 0 {
		errs = append(errs, errors.New("at least one account is required"))
	}
	if c.Search.Language == "" {
		errs = append(errs, errors.New("language is required"))
	}
	if c.Search.Product != "Top" && c.Search.Product != "Latest" {
		errs = append(errs, fmt.Errorf("invalid product %q (want Top or Latest)", c.Search.Product))
	}
	if c.Search.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.Pacing.Min < 0 || c.Pacing.Max < 0 || c.Pacing.RetryHorizon < 0 {
		errs = append(errs, errors.New("pacing durations cannot be negative"))
	}
	if c.Pacing.Max == 0 {
		errs = append(errs, errors.New("pacing max must be positive"))
	}
	if c.Pacing.Min > c.Pacing.Max {
		errs = append(errs, fmt.Errorf("pacing min %s exceeds max %s", c.Pacing.Min, c.Pacing.Max))
	}
	if len(c.Sessions.Files) == 0 {
		errs = append(errs, errors.New("at least one session file is required"))
	}
	if c.Sessions.RequestsPerWindow < 0 {
		errs = append(errs, errors.New("requests per window cannot be negative"))
	}
	switch c.Output.Format {
	case "text", "json", "auto":
	default:
		errs = append(errs, fmt.Errorf("invalid output format %q", c.Output.Format))
	}
	if _, ok := parseLogLevel(c.Logging.Level); !ok {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// LogLevel returns the configured slog level, info when unrecognized.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLogLevel(c.Logging.Level)
	return level
}

func parseLogLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO", "":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Collect converts c into the engine configuration.
func (c *Config) Collect(logger *slog.Logger) collect.Config {
	return collect.Config{
		Language:     c.Search.Language,
		PaceMin:      c.Pacing.Min,
		PaceMax:      c.Pacing.Max,
		RetryHorizon: c.Pacing.RetryHorizon,
		Logger:       logger,
	}
}

// Twitter converts c into the upstream client configuration.
func (c *Config) Twitter(hook func(endpoint string, success, rateLimited bool)) twitter.Config {
	tc := twitter.Config{
		Proxy:       c.Sessions.Proxy,
		Product:     c.Search.Product,
		PageSize:    c.Search.PageSize,
		SessionTTL:  c.Sessions.TTL,
		MetricsHook: hook,
	}
	if c.Sessions.RequestsPerWindow > 0 {
		tc.RateLimit = ratelimit.DefaultConfig
		tc.RateLimit.RequestsPerWindow = c.Sessions.RequestsPerWindow
	}
	return tc
}
