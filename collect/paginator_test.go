package collect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, p *Paginator) ([]Page, error) {
	t.Helper()
	var pages []Page
	for {
		pg, err := p.Next(context.Background())
		if errors.Is(err, ErrExhausted) {
			return pages, nil
		}
		if err != nil {
			return pages, err
		}
		pages = append(pages, pg)
	}
}

func permalinks(pages []Page) []string {
	var out []string
	for _, pg := range pages {
		for _, it := range pg.Items {
			out = append(out, it.Permalink())
		}
	}
	return out
}

func TestPaginator_StopsWithoutCursor(t *testing.T) {
	fs := newFakeSearcher()
	fs.script("a",
		page("c1", item("a", "1"), item("a", "2")),
		page("c2", item("a", "3")),
		page("", item("a", "4")),
	)
	p := NewPaginator(fs, testQuery("a"), NewBackoff(testConfig()), quietLogger())

	pages, err := drain(t, p)
	require.NoError(t, err)
	assert.Len(t, pages, 3)
	assert.Equal(t, 3, p.Fetched())
	assert.Equal(t, []string{"", "c1", "c2"}, fs.cursors())

	_, err = p.Next(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Len(t, fs.cursors(), 3, "no request after exhaustion")
}

func TestPaginator_EmptyFinalPage(t *testing.T) {
	fs := newFakeSearcher()
	fs.script("a",
		page("c1", item("a", "1")),
		page(""),
	)
	p := NewPaginator(fs, testQuery("a"), NewBackoff(testConfig()), quietLogger())

	pages, err := drain(t, p)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Empty(t, pages[1].Items)
}

func TestPaginator_DropsRepeatedPage(t *testing.T) {
	fs := newFakeSearcher()
	fs.script("a",
		page("c1", item("a", "1"), item("a", "2")),
		page("c2", item("a", "1"), item("a", "2")),
		page("c3", item("a", "2"), item("a", "3")),
		page("", item("a", "3"), item("a", "4")),
	)
	p := NewPaginator(fs, testQuery("a"), NewBackoff(testConfig()), quietLogger())

	pages, err := drain(t, p)
	require.NoError(t, err)
	links := permalinks(pages)
	assert.Equal(t, []string{
		"https://twitter.com/a/status/1",
		"https://twitter.com/a/status/2",
		"https://twitter.com/a/status/3",
		"https://twitter.com/a/status/4",
	}, links)
}

func TestPaginator_StaleCursorLoop(t *testing.T) {
	fs := newFakeSearcher()
	fs.script("a",
		page("c1", item("a", "1")),
		page("c1", item("a", "1")),
		page("c1", item("a", "1")),
	)
	p := NewPaginator(fs, testQuery("a"), NewBackoff(testConfig()), quietLogger())

	pages, err := drain(t, p)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	assert.Len(t, permalinks(pages), 1)
	assert.Equal(t, []string{"", "c1"}, fs.cursors())
}

func TestPaginator_RetriesSameCursorOnRateLimit(t *testing.T) {
	fs := newFakeSearcher()
	fs.script("a",
		page("c1", item("a", "1")),
		rateLimited(time.Now().Add(-time.Second)),
		rateLimited(time.Now().Add(20*time.Millisecond)),
		page("", item("a", "2"), item("a", "3")),
	)
	p := NewPaginator(fs, testQuery("a"), NewBackoff(testConfig()), quietLogger())

	pages, err := drain(t, p)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "c1", "c1", "c1"}, fs.cursors())
	assert.Equal(t, []string{
		"https://twitter.com/a/status/1",
		"https://twitter.com/a/status/2",
		"https://twitter.com/a/status/3",
	}, permalinks(pages))
	assert.Equal(t, 2, p.Fetched())
}

func TestPaginator_UpstreamErrorNotRetried(t *testing.T) {
	boom := &UpstreamError{Op: "search", Status: 401, Err: errors.New("could not authenticate")}
	fs := newFakeSearcher()
	fs.script("a",
		page("c1", item("a", "1")),
		step{err: boom},
	)
	p := NewPaginator(fs, testQuery("a"), NewBackoff(testConfig()), quietLogger())

	pages, err := drain(t, p)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, pages, 1)
	assert.Len(t, fs.cursors(), 2)
}

func TestPaginator_Canceled(t *testing.T) {
	fs := newFakeSearcher()
	fs.script("a", page("c1", item("a", "1")))
	p := NewPaginator(fs, testQuery("a"), NewBackoff(testConfig()), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	_, err := p.Next(ctx)
	require.NoError(t, err)
	cancel()
	_, err = p.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, fs.cursors(), 1)
}

func TestPaginator_PacesBetweenPages(t *testing.T) {
	fs := newFakeSearcher()
	fs.script("a",
		page("c1", item("a", "1")),
		page("c2", item("a", "2")),
		page("", item("a", "3")),
	)
	b := NewBackoff(testConfig())
	paces := 0
	b.sleep = func(context.Context, time.Duration) error {
		paces++
		return nil
	}
	p := NewPaginator(fs, testQuery("a"), b, quietLogger())

	_, err := drain(t, p)
	require.NoError(t, err)
	assert.Equal(t, 2, paces)
}

func TestPaginator_PagesIterator(t *testing.T) {
	fs := newFakeSearcher()
	fs.script("a",
		page("c1", item("a", "1")),
		page("", item("a", "2")),
	)
	p := NewPaginator(fs, testQuery("a"), NewBackoff(testConfig()), quietLogger())

	n := 0
	for pg, err := range p.Pages(context.Background()) {
		require.NoError(t, err)
		n += len(pg.Items)
	}
	assert.Equal(t, 2, n)
}
