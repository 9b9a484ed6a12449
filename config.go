package twitter

import (
	"time"

	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Config holds all configuration for the search client.
type Config struct {
	// Proxy is the proxy URL every session's HTTP client goes through.
	Proxy string

	// Product selects the search tab: "Top" or "Latest".
	Product string

	// PageSize is the number of results requested per page.
	PageSize int

	// SessionTTL is how long a saved session file (one carrying saved_at) is
	// considered valid. Plain cookie exports have no timestamp and never expire.
	SessionTTL time.Duration

	// RateLimit configures the per-session local request budget.
	RateLimit ratelimit.Config

	// DisableJitter turns off the anti-fingerprint delay before each request.
	DisableJitter bool

	// MetricsHook is called on each API request for external metrics collection.
	// endpoint is the operation name, success and rateLimited indicate the outcome.
	MetricsHook func(endpoint string, success, rateLimited bool)
}

// defaults fills in zero-value config fields with sensible defaults.
func (cfg *Config) defaults() {
	if cfg.Product == "" {
		cfg.Product = "Top"
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 20
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.RateLimit.RequestsPerWindow == 0 {
		cfg.RateLimit = ratelimit.DefaultConfig
	}
}
