// Package twitter implements the X/Twitter search upstream for the collect
// engine: authenticated sessions built from exported cookies, and the
// SearchTimeline GraphQL operation with cursor pagination.
package twitter

import (
	"fmt"
	"log/slog"
	"sync"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// Client creates sessions that share one configuration. Sessions never share
// HTTP clients or rate limiters, so each can run on its own goroutine.
type Client struct {
	cfg Config

	mu     sync.Mutex
	opened int
}

// NewClient returns a Client with zero-value fields of cfg defaulted.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg}
}

// NewSession wraps pre-validated credentials in a Session.
func (c *Client) NewSession(name, authToken, ct0 string) (*Session, error) {
	if authToken == "" {
		return nil, fmt.Errorf("session %s: missing auth_token", name)
	}
	if ct0 == "" {
		ct0 = GenerateCT0()
	}

	c.mu.Lock()
	idx := c.opened
	c.opened++
	c.mu.Unlock()

	s := &Session{
		Name:          name,
		AuthToken:     authToken,
		CT0:           ct0,
		cfg:           &c.cfg,
		retryDelay:    stealth.DefaultBackoff.Duration,
		rateLimiter:   ratelimit.NewLimiter(c.cfg.RateLimit),
		HealthTracker: pool.DefaultHealthTracker(),
	}
	AssignBrowserProfile(s, idx)
	s.markCT0Fresh()

	opts := []stealth.ClientOption{
		stealth.WithProfile(s.Profile.TLSProfile),
		stealth.WithHeaderOrder(twitterHeaderOrder),
	}
	if c.cfg.Proxy != "" {
		opts = append(opts, stealth.WithProxy(c.cfg.Proxy))
		slog.Debug("session uses proxy", slog.String("session", name), slog.String("proxy", stealth.MaskProxy(c.cfg.Proxy)))
	}
	bc, err := stealth.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("stealth client for %s: %w", name, err)
	}
	s.client = bc
	return s, nil
}

// recordAPICall calls the metrics hook if configured.
func (c *Config) recordAPICall(endpoint string, success, rateLimited bool) {
	if c.MetricsHook != nil {
		c.MetricsHook(endpoint, success, rateLimited)
	}
}
