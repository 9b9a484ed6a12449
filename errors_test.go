package twitter

import (
	"strings"
	"testing"
	"time"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected errorClass
	}{
		{"no errors", `{"data":{"user":{}}}`, errNone},
		{"empty errors", `{"errors":[]}`, errNone},
		{"rate limit 88", `{"errors":[{"code":88}]}`, errRateLimit},
		{"suspended 64", `{"errors":[{"code":64}]}`, errSuspended},
		{"locked 326", `{"errors":[{"code":326}]}`, errLocked},
		{"csrf 353", `{"errors":[{"code":353}]}`, errCSRF},
		{"auth expired 32", `{"errors":[{"code":32}]}`, errAuthExpired},
		{"blocked 161", `{"errors":[{"code":161}]}`, errBlocked},
		{"not authorized 179", `{"errors":[{"code":179}]}`, errNotAuthorized},
		{"not authorized 219", `{"errors":[{"code":219}]}`, errNotAuthorized},
		{"internal 131", `{"errors":[{"code":131}]}`, errInternal},
		{"unknown code", `{"errors":[{"code":999}]}`, errNone},
		{"invalid json", `{invalid`, errNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifyError([]byte(tt.body))
			if result != tt.expected {
				t.Fatalf("classifyError(%s) = %d, want %d", tt.body, result, tt.expected)
			}
		})
	}
}

func TestInterpretResponse(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected outcome
	}{
		{"ok", 200, `{"data":{}}`, outcomeOK},
		{"429", 429, `{"errors":[{"code":88}]}`, outcomeRateLimited},
		{"88 in 200", 200, `{"errors":[{"code":88}]}`, outcomeRateLimited},
		{"csrf 403", 403, `{"errors":[{"code":353}]}`, outcomeRotateCT0},
		{"csrf in 200", 200, `{"errors":[{"code":353}]}`, outcomeRotateCT0},
		{"auth expired 401", 401, `{"errors":[{"code":32}]}`, outcomeFatal},
		{"bare 403", 403, `forbidden`, outcomeFatal},
		{"suspended", 200, `{"errors":[{"code":64}]}`, outcomeFatal},
		{"internal with data", 200, `{"data":{"x":1},"errors":[{"code":131}]}`, outcomeOK},
		{"internal without data", 200, `{"errors":[{"code":131}]}`, outcomeRetry},
		{"502", 502, `bad gateway`, outcomeRetry},
		{"404", 404, `not found`, outcomeFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := interpretResponse(tt.status, []byte(tt.body))
			if got != tt.expected {
				t.Fatalf("interpretResponse(%d, %s) = %d, want %d", tt.status, tt.body, got, tt.expected)
			}
			if (got == outcomeOK) != (err == nil) {
				t.Fatalf("error %v inconsistent with outcome %d", err, got)
			}
		})
	}
}

func TestParseRateLimitReset(t *testing.T) {
	now := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)

	// Valid timestamp
	got := parseRateLimitReset("1704208500", now)
	if !got.Equal(time.Unix(1704208500, 0)) {
		t.Fatalf("expected unix reset, got %s", got)
	}

	// Missing
	if got := parseRateLimitReset("", now); !got.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("expected 15min fallback, got %s", got)
	}

	// Invalid
	if got := parseRateLimitReset("not-a-number", now); !got.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("expected 15min fallback for invalid input, got %s", got)
	}
}

func TestSearchURL(t *testing.T) {
	u := searchURL("from:bmkg_semarang lang:id", "", "Top", 20)
	if !strings.HasPrefix(u, twitterBase+"/"+searchOperationID+"/SearchTimeline?") {
		t.Fatalf("unexpected base: %s", u)
	}
	if !strings.Contains(u, "from%3Abmkg_semarang+lang%3Aid") {
		t.Fatalf("query not encoded in variables: %s", u)
	}
	if strings.Contains(u, "cursor") {
		t.Fatalf("first page must not carry a cursor: %s", u)
	}

	u = searchURL("from:a lang:id", "DAAB", "Latest", 20)
	if !strings.Contains(u, "%22cursor%22%3A%22DAAB%22") {
		t.Fatalf("cursor missing: %s", u)
	}
	if !strings.Contains(u, "%22product%22%3A%22Latest%22") {
		t.Fatalf("product missing: %s", u)
	}
}
