package collect

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff paces requests against one session and waits out rate limits.
// It is not safe for concurrent use; each session gets its own. The retry
// horizon is charged per query: every new Paginator starts a fresh budget.
type Backoff struct {
	paceMin time.Duration
	paceMax time.Duration
	horizon time.Duration
	log     *slog.Logger

	waited time.Duration // rate-limit wait of the current query, checked against horizon
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewBackoff builds a Backoff from the pacing fields of cfg.
func NewBackoff(cfg Config) *Backoff {
	cfg.defaults()
	return &Backoff{
		paceMin: cfg.PaceMin,
		paceMax: cfg.PaceMax,
		horizon: cfg.RetryHorizon,
		log:     cfg.Logger,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Pace waits a random interval in [PaceMin, PaceMax] between page fetches.
func (b *Backoff) Pace(ctx context.Context) error {
	d := b.paceMin
	if span := b.paceMax - b.paceMin; span > 0 {
		d += rand.N(span + 1)
	}
	b.log.Debug("pacing before next page", slog.Duration("wait", d))
	return b.sleep(ctx, d)
}

// OnRateLimited waits until resetAt so the refused request can be retried.
// A reset time in the past returns immediately.
func (b *Backoff) OnRateLimited(ctx context.Context, resetAt time.Time) error {
	d := resetAt.Sub(b.now())
	if d <= 0 {
		return nil
	}
	if b.horizon > 0 && b.waited+d > b.horizon {
		return fmt.Errorf("%w: next wait %s, already waited %s", ErrRetryHorizon, d, b.waited)
	}
	b.waited += d
	b.log.Warn("rate limited, waiting for reset",
		slog.Time("reset_at", resetAt),
		slog.Duration("wait", d))
	return b.sleep(ctx, d)
}

// startQuery resets the rate-limit wait budget for a new query.
func (b *Backoff) startQuery() {
	b.waited = 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
