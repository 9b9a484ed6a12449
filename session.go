package twitter

import (
	"io"
	"sync"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/pool"
	"github.com/anatolykoptev/go-stealth/ratelimit"
)

// requestDoer sends one request with a fixed header order. It is satisfied by
// *stealth.BrowserClient.
type requestDoer interface {
	DoWithHeaderOrder(method, url string, headers map[string]string, body io.Reader, order []string) ([]byte, map[string]string, int, error)
}

// Session is an authenticated handle for issuing search requests. Search calls
// on one Session are serialized.
type Session struct {
	Name      string
	AuthToken string
	CT0       string
	UserAgent string
	Profile   stealth.BrowserProfile

	cfg        *Config
	client     requestDoer
	retryDelay func(attempt int) time.Duration

	reqMu sync.Mutex // serializes requests

	mu             sync.Mutex
	ct0RefreshedAt time.Time
	rateLimiter    *ratelimit.Limiter

	pool.HealthTracker
}

// CT0Age returns the time since the ct0 token was last refreshed.
func (s *Session) CT0Age() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ct0RefreshedAt.IsZero() {
		return 24 * time.Hour
	}
	return time.Since(s.ct0RefreshedAt)
}

// RotateCT0 generates a fresh ct0 token and updates the refresh timestamp.
func (s *Session) RotateCT0() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CT0 = GenerateCT0()
	s.ct0RefreshedAt = time.Now()
}

// SetCT0 updates the ct0 from a server response.
func (s *Session) SetCT0(ct0 string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CT0 = ct0
	s.ct0RefreshedAt = time.Now()
}

func (s *Session) markCT0Fresh() {
	s.mu.Lock()
	s.ct0RefreshedAt = time.Now()
	s.mu.Unlock()
}

// Credentials returns a snapshot of (authToken, ct0, userAgent) under lock.
func (s *Session) Credentials() (authToken, ct0, userAgent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.AuthToken, s.CT0, s.UserAgent
}

// allowRequest checks the local budget for endpoint. When it is spent the
// returned time is when the next request may go out.
func (s *Session) allowRequest(endpoint string) (bool, time.Time) {
	if s.rateLimiter == nil {
		return true, time.Time{}
	}
	if s.rateLimiter.Allow(endpoint) {
		return true, time.Time{}
	}
	return false, s.rateLimiter.AvailableAt(endpoint)
}

// markRateLimited blocks endpoint for this session until the upstream reset.
func (s *Session) markRateLimited(endpoint string, until time.Time) {
	if s.rateLimiter == nil {
		return
	}
	s.rateLimiter.MarkRateLimited(endpoint, until)
}

// AssignBrowserProfile sets a browser profile based on index.
func AssignBrowserProfile(s *Session, idx int) {
	p := stealth.BuiltinProfiles[idx%len(stealth.BuiltinProfiles)]
	s.Profile = p
	s.UserAgent = p.UserAgent
}
