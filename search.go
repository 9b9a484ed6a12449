package twitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"

	"github.com/anatolykoptev/go-tweetharvest/collect"
)

const (
	maxRetries     = 3
	rateLimitFloor = 30 * time.Second
)

var _ collect.Searcher = (*Session)(nil)

// Search fetches one SearchTimeline page for query. An empty cursor requests
// the first page.
//
// Rate limits (HTTP 429, error 88, or the session's local budget being spent)
// are returned as *collect.RateLimitedError and not retried here. Transport
// errors, 5xx and error 131 without data are retried up to maxRetries times;
// a CSRF mismatch rotates ct0 and retries. Everything else is returned as
// *collect.UpstreamError.
func (s *Session) Search(ctx context.Context, query, cursor string) (collect.Page, error) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	if ok, availableAt := s.allowRequest(searchEndpoint); !ok {
		if now := time.Now(); !availableAt.After(now) {
			availableAt = now.Add(time.Second)
		}
		return collect.Page{}, &collect.RateLimitedError{ResetAt: availableAt}
	}

	// Anti-fingerprint jitter
	if !s.cfg.DisableJitter {
		if err := stealth.DefaultJitter.Sleep(ctx); err != nil {
			return collect.Page{}, err
		}
	}

	url := searchURL(query, cursor, s.cfg.Product, s.cfg.PageSize)

	var lastErr error
	var lastStatus int
	for attempt := range maxRetries {
		if attempt > 0 {
			delay := s.retryDelay(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return collect.Page{}, ctx.Err()
			}
		}

		// Proactive ct0 rotation
		if s.CT0Age() > ct0MaxAge {
			s.RotateCT0()
			slog.Info("ct0 rotated (proactive)", slog.String("session", s.Name))
		}

		authTok, ct0, ua := s.Credentials()
		body, respHdrs, status, err := s.client.DoWithHeaderOrder("GET", url, searchHeaders(authTok, ct0, ua), nil, twitterHeaderOrder)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return collect.Page{}, ctxErr
			}
			s.recordFailure()
			slog.Warn("search request failed", slog.String("session", s.Name), slog.Int("attempt", attempt+1), slog.Any("error", err))
			lastErr, lastStatus = err, 0
			continue
		}

		action, detail := interpretResponse(status, body)
		switch action {
		case outcomeOK:
			page, err := parseSearchPage(body)
			if err != nil {
				s.cfg.recordAPICall(searchEndpoint, false, false)
				s.recordFailure()
				return collect.Page{}, &collect.UpstreamError{Op: searchEndpoint, Status: status, Err: err}
			}
			if newCT0 := extractCT0FromHeaders(respHdrs); newCT0 != "" && newCT0 != ct0 {
				s.SetCT0(newCT0)
			}
			s.cfg.recordAPICall(searchEndpoint, true, false)
			s.RecordSuccess()
			return page, nil

		case outcomeRateLimited:
			s.cfg.recordAPICall(searchEndpoint, false, true)
			now := time.Now()
			reset := parseRateLimitReset(respHdrs["x-rate-limit-reset"], now)
			if !reset.After(now) {
				// Skewed clock or stale header; never retry a refused request at once.
				reset = now.Add(rateLimitFloor)
			}
			s.markRateLimited(searchEndpoint, reset)
			slog.Warn("search rate limited",
				slog.String("session", s.Name),
				slog.String("reason", detail.Error()),
				slog.Time("reset", reset))
			return collect.Page{}, &collect.RateLimitedError{ResetAt: reset}

		case outcomeRotateCT0:
			s.cfg.recordAPICall(searchEndpoint, false, false)
			slog.Warn("CSRF error 353, rotating ct0", slog.String("session", s.Name))
			s.RotateCT0()
			lastErr, lastStatus = detail, status
			continue

		case outcomeRetry:
			s.cfg.recordAPICall(searchEndpoint, false, false)
			slog.Warn("search transient error, retrying", slog.String("session", s.Name), slog.Int("attempt", attempt+1), slog.Any("error", detail))
			lastErr, lastStatus = detail, status
			continue

		default:
			s.cfg.recordAPICall(searchEndpoint, false, false)
			s.recordFailure()
			return collect.Page{}, &collect.UpstreamError{Op: searchEndpoint, Status: status, Err: detail}
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no attempt made")
	}
	return collect.Page{}, &collect.UpstreamError{
		Op:     searchEndpoint,
		Status: lastStatus,
		Err:    fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr),
	}
}

// recordFailure updates health accounting and warns once the session looks unusable.
func (s *Session) recordFailure() {
	if unhealthy := s.RecordFailure(); unhealthy {
		total, failed, consec := s.Stats()
		slog.Warn("session unhealthy",
			slog.String("session", s.Name),
			slog.Int("total", total),
			slog.Int("failed", failed),
			slog.Int("consec", consec))
	}
}
