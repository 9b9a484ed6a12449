package collect

import (
	"context"
	"errors"
	"iter"
	"log/slog"
)

// Paginator walks the pages of one query. It is single-use: build a new one
// per query.
type Paginator struct {
	searcher Searcher
	query    string
	backoff  *Backoff
	log      *slog.Logger

	cursor  string
	fetched int
	done    bool
	seen    map[string]struct{} // permalinks already emitted
	cursors map[string]struct{} // cursors already requested
}

// NewPaginator prepares pagination for q and starts a fresh retry-horizon
// budget on b. A nil logger uses slog.Default.
func NewPaginator(s Searcher, q AccountQuery, b *Backoff, logger *slog.Logger) *Paginator {
	if logger == nil {
		logger = slog.Default()
	}
	b.startQuery()
	return &Paginator{
		searcher: s,
		query:    q.String(),
		backoff:  b,
		log:      logger.With(slog.String("account", q.Account)),
		seen:     make(map[string]struct{}),
		cursors:  make(map[string]struct{}),
	}
}

// Fetched returns the number of pages received so far.
func (p *Paginator) Fetched() int { return p.fetched }

// Next returns the next page with already-emitted items removed. It returns
// ErrExhausted after the final page. Rate limits are waited out and the same
// cursor is retried; any other error is returned as is.
func (p *Paginator) Next(ctx context.Context) (Page, error) {
	if p.done {
		return Page{}, ErrExhausted
	}
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if p.fetched > 0 {
		if err := p.backoff.Pace(ctx); err != nil {
			return Page{}, err
		}
	}

	page, err := p.fetch(ctx)
	if err != nil {
		return Page{}, err
	}
	p.fetched++

	fresh := make([]Item, 0, len(page.Items))
	for _, it := range page.Items {
		link := it.Permalink()
		if _, dup := p.seen[link]; dup {
			continue
		}
		p.seen[link] = struct{}{}
		fresh = append(fresh, it)
	}
	if dropped := len(page.Items) - len(fresh); dropped > 0 {
		p.log.Debug("dropped duplicate items", slog.Int("count", dropped))
	}

	switch {
	case page.Cursor == "":
		p.done = true
	case p.requested(page.Cursor):
		p.log.Warn("upstream returned an already requested cursor, stopping",
			slog.Int("page", p.fetched))
		p.done = true
	default:
		p.cursor = page.Cursor
	}
	return Page{Items: fresh, Cursor: page.Cursor}, nil
}

// Pages adapts Next to a range-over-func sequence. Iteration stops after the
// first error, which is yielded with a zero Page.
func (p *Paginator) Pages(ctx context.Context) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		for {
			page, err := p.Next(ctx)
			if errors.Is(err, ErrExhausted) {
				return
			}
			if !yield(page, err) || err != nil {
				return
			}
		}
	}
}

func (p *Paginator) fetch(ctx context.Context) (Page, error) {
	p.cursors[p.cursor] = struct{}{}
	for {
		page, err := p.searcher.Search(ctx, p.query, p.cursor)
		if err == nil {
			return page, nil
		}
		var rl *RateLimitedError
		if !errors.As(err, &rl) {
			return Page{}, err
		}
		if werr := p.backoff.OnRateLimited(ctx, rl.ResetAt); werr != nil {
			return Page{}, werr
		}
	}
}

func (p *Paginator) requested(cursor string) bool {
	_, ok := p.cursors[cursor]
	return ok
}
