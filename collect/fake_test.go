package collect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// step is one scripted upstream response. A non-zero limitFor answers with a
// rate limit that resets limitFor after the call is made.
type step struct {
	page     Page
	err      error
	limitFor time.Duration
}

// fakeSearcher replays scripted responses per query and records every call.
type fakeSearcher struct {
	mu      sync.Mutex
	scripts map[string][]step // keyed by account handle
	calls   []call
}

type call struct {
	query  string
	cursor string
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{scripts: make(map[string][]step)}
}

func (f *fakeSearcher) script(account string, steps ...step) {
	f.scripts["from:"+account+" lang:"+DefaultLanguage] = steps
}

func (f *fakeSearcher) Search(ctx context.Context, query, cursor string) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{query: query, cursor: cursor})
	steps := f.scripts[query]
	if len(steps) == 0 {
		return Page{}, fmt.Errorf("unscripted call for %q cursor %q", query, cursor)
	}
	f.scripts[query] = steps[1:]
	if d := steps[0].limitFor; d > 0 {
		return Page{}, &RateLimitedError{ResetAt: time.Now().Add(d)}
	}
	return steps[0].page, steps[0].err
}

func (f *fakeSearcher) cursors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.cursor)
	}
	return out
}

func item(handle, id string) Item {
	return Item{
		ID:            id,
		AuthorName:    "Name " + handle,
		AuthorHandle:  handle,
		Text:          "post " + id,
		CreatedAt:     "Mon Jan 02 15:04:05 +0000 2024",
		RetweetCount:  1,
		FavoriteCount: 2,
	}
}

func page(cursor string, items ...Item) step {
	return step{page: Page{Items: items, Cursor: cursor}}
}

func rateLimited(resetAt time.Time) step {
	return step{err: &RateLimitedError{ResetAt: resetAt}}
}

func limitedFor(d time.Duration) step {
	return step{limitFor: d}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig keeps pacing negligible so tests run fast.
func testConfig() Config {
	return Config{
		PaceMin: time.Millisecond,
		PaceMax: time.Millisecond,
		Logger:  quietLogger(),
	}
}

func testQuery(account string) AccountQuery {
	q, err := BuildQuery(account, "", DateRange{})
	if err != nil {
		panic(err)
	}
	return q
}
