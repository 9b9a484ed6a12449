package collect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config holds the engine's tunables. It is passed explicitly; the engine
// keeps no process-wide state.
type Config struct {
	// Language restricts every query. Default: DefaultLanguage.
	Language string

	// PaceMin and PaceMax bound the random wait between pages.
	// A zero PaceMax means unset and selects the default of 2s to 4s.
	PaceMin time.Duration
	PaceMax time.Duration

	// RetryHorizon caps the total time one query may spend waiting for rate
	// limits to reset. Zero waits indefinitely.
	RetryHorizon time.Duration

	// Logger receives progress logs. Default: slog.Default().
	Logger *slog.Logger
}

func (cfg *Config) defaults() {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.PaceMax == 0 {
		cfg.PaceMin = 2 * time.Second
		cfg.PaceMax = 4 * time.Second
	}
	if cfg.PaceMin > cfg.PaceMax {
		cfg.PaceMin = cfg.PaceMax
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// Engine collects posts for a set of accounts.
type Engine struct {
	cfg Config
}

// NewEngine returns an Engine with zero-value fields of cfg defaulted.
func NewEngine(cfg Config) *Engine {
	cfg.defaults()
	return &Engine{cfg: cfg}
}

// Assignment binds a group of accounts to the session that will collect them.
type Assignment struct {
	Session  Searcher
	Accounts []string
}

// Run collects every account in order against a single session. It never
// fails as a whole: per-account failures are recorded on the account's result.
// When ctx is canceled the partial run is returned.
func (e *Engine) Run(ctx context.Context, accounts []string, r DateRange, session Searcher) *CollectionRun {
	return e.RunConcurrent(ctx, r, []Assignment{{Session: session, Accounts: accounts}})
}

// RunConcurrent runs each assignment on its own goroutine with its own
// Backoff. Accounts inside an assignment are collected sequentially. Sessions
// must not be shared between assignments. Accounts naming the same handle
// ("a", "@a", "A") are collected once, under the first spelling given.
func (e *Engine) RunConcurrent(ctx context.Context, r DateRange, assignments []Assignment) *CollectionRun {
	groups := make([][]string, len(assignments))
	seen := make(map[string]struct{})
	var order []string
	for i, a := range assignments {
		for _, acc := range a.Accounts {
			key := accountKey(acc)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			groups[i] = append(groups[i], acc)
			order = append(order, acc)
		}
	}

	run := newCollectionRun(order)
	results := make([][]*AccountResult, len(assignments))

	var g errgroup.Group
	for i, a := range assignments {
		g.Go(func() error {
			results[i] = e.collectGroup(ctx, groups[i], r, a.Session)
			return nil
		})
	}
	_ = g.Wait()

	for _, group := range results {
		for _, res := range group {
			run.Results[res.Account] = res
		}
	}
	run.FinishedAt = time.Now()

	e.cfg.Logger.Info("collection finished",
		slog.String("run", run.ID),
		slog.Int("accounts", len(order)),
		slog.Int("records", run.Total()),
		slog.Int("failed", len(run.Failed())),
		slog.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))
	return run
}

func (e *Engine) collectGroup(ctx context.Context, accounts []string, r DateRange, session Searcher) []*AccountResult {
	backoff := NewBackoff(e.cfg)
	out := make([]*AccountResult, 0, len(accounts))
	for _, acc := range accounts {
		if err := ctx.Err(); err != nil {
			out = append(out, &AccountResult{
				Account: acc,
				Records: []Record{},
				Err:     &AccountError{Account: acc, Kind: KindCanceled, Err: fmt.Errorf("not started: %w", err)},
			})
			continue
		}
		out = append(out, e.collectAccount(ctx, acc, r, session, backoff))
	}
	return out
}

// collectAccount is the failure boundary for one account.
func (e *Engine) collectAccount(ctx context.Context, account string, r DateRange, session Searcher, backoff *Backoff) *AccountResult {
	res := &AccountResult{Account: account, Records: []Record{}}
	log := e.cfg.Logger.With(slog.String("account", account))

	fail := func(err error) *AccountResult {
		res.Err = &AccountError{Account: account, Kind: classify(err), Err: err}
		log.Warn("account collection failed",
			slog.String("kind", res.Err.Kind.String()),
			slog.Int("records", len(res.Records)),
			slog.Any("error", err))
		return res
	}

	q, err := BuildQuery(account, e.cfg.Language, r)
	if err != nil {
		return fail(err)
	}
	res.Query = q.String()
	log.Info("collecting", slog.String("query", res.Query))

	p := NewPaginator(session, q, backoff, e.cfg.Logger)
	for page, err := range p.Pages(ctx) {
		if err != nil {
			res.Pages = p.Fetched()
			return fail(err)
		}
		for _, it := range page.Items {
			res.Records = append(res.Records, Normalize(it))
		}
		log.Debug("page collected",
			slog.Int("page", p.Fetched()),
			slog.Int("items", len(page.Items)),
			slog.Int("total", len(res.Records)))
	}
	res.Pages = p.Fetched()

	log.Info("account collected", slog.Int("records", len(res.Records)), slog.Int("pages", res.Pages))
	return res
}
