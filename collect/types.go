// Package collect gathers posts authored by a set of accounts through a
// paginated, rate-limited search upstream.
//
// The engine is transport-agnostic: anything implementing Searcher can feed
// it. Accounts are collected one at a time against a single session unless the
// caller hands RunConcurrent one session per group of accounts.
package collect

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Searcher issues one search request. An empty cursor requests the first page.
// A rate limit must be reported as *RateLimitedError.
type Searcher interface {
	Search(ctx context.Context, query, cursor string) (Page, error)
}

// DateRange is the half-open window [Start, End). It only restricts a query
// when both ends are set.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsSet reports whether both ends of the window are present.
func (r DateRange) IsSet() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

// Item is one raw result as returned by the upstream search.
type Item struct {
	ID              string
	AuthorName      string
	AuthorHandle    string
	AuthorAvatarURL string
	Text            string
	CreatedAt       string
	RetweetCount    int
	FavoriteCount   int
}

// Permalink returns the canonical URL of the post.
func (it Item) Permalink() string {
	if it.AuthorHandle == "" {
		return fmt.Sprintf("https://twitter.com/i/web/status/%s", it.ID)
	}
	return fmt.Sprintf("https://twitter.com/%s/status/%s", it.AuthorHandle, it.ID)
}

// Page is one upstream response. An empty Cursor means there is nothing after it.
type Page struct {
	Items  []Item
	Cursor string
}

// Record is the normalized form of an Item.
type Record struct {
	AuthorName      string    `json:"author_name"`
	AuthorHandle    string    `json:"author_handle"`
	AuthorAvatarURL string    `json:"author_avatar_url"`
	Text            string    `json:"text"`
	CreatedAt       Timestamp `json:"created_at"`
	RetweetCount    int       `json:"retweet_count"`
	FavoriteCount   int       `json:"favorite_count"`
	Permalink       string    `json:"permalink"`
}

// AccountResult holds everything collected for one account, in upstream order.
type AccountResult struct {
	Account string        `json:"account"`
	Query   string        `json:"query,omitempty"`
	Records []Record      `json:"records"`
	Pages   int           `json:"pages"`
	Err     *AccountError `json:"error,omitempty"`
}

// Failed reports whether collection for this account did not finish cleanly.
// Records may still hold a partial result.
func (r *AccountResult) Failed() bool { return r.Err != nil }

// Empty reports whether no records were collected.
func (r *AccountResult) Empty() bool { return len(r.Records) == 0 }

// SortNewestFirst orders records by creation time, newest first. Records whose
// timestamp could not be parsed keep their relative order after the rest.
func (r *AccountResult) SortNewestFirst() {
	slices.SortStableFunc(r.Records, func(a, b Record) int {
		ta, okA := a.CreatedAt.Time()
		tb, okB := b.CreatedAt.Time()
		switch {
		case okA && okB:
			return tb.Compare(ta)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
}

// CollectionRun is the output of one engine invocation.
type CollectionRun struct {
	ID         string                    `json:"id"`
	Accounts   []string                  `json:"accounts"`
	Results    map[string]*AccountResult `json:"results"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
}

func newCollectionRun(accounts []string) *CollectionRun {
	return &CollectionRun{
		ID:        uuid.NewString(),
		Accounts:  accounts,
		Results:   make(map[string]*AccountResult, len(accounts)),
		StartedAt: time.Now(),
	}
}

// Result returns the result for account, or nil if it was not part of the run.
func (r *CollectionRun) Result(account string) *AccountResult {
	return r.Results[account]
}

// Failed lists the accounts whose collection did not finish cleanly, in input order.
func (r *CollectionRun) Failed() []string {
	var out []string
	for _, acc := range r.Accounts {
		if res := r.Results[acc]; res != nil && res.Failed() {
			out = append(out, acc)
		}
	}
	return out
}

// Total returns the number of records across all accounts.
func (r *CollectionRun) Total() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Records)
	}
	return n
}
