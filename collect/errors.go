package collect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput marks a malformed account identifier.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExhausted is returned by Paginator.Next once the last page was served.
	ErrExhausted = errors.New("pagination exhausted")

	// ErrRetryHorizon is returned when rate-limit waits exceed Config.RetryHorizon.
	ErrRetryHorizon = errors.New("rate limit retry horizon exceeded")
)

// RateLimitedError signals that the upstream refused the request until ResetAt.
type RateLimitedError struct {
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.ResetAt.Format(time.RFC3339))
}

// UpstreamError is a non-retryable upstream failure: transport, auth or an
// unexpected response.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ErrorKind categorizes why collection for an account did not finish.
type ErrorKind int

const (
	KindUpstream ErrorKind = iota
	KindInvalidInput
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindCanceled:
		return "canceled"
	default:
		return "upstream_failure"
	}
}

// AccountError describes a failed or partial collection for one account.
type AccountError struct {
	Account string
	Kind    ErrorKind
	Err     error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("account %s: %s: %v", e.Account, e.Kind, e.Err)
}

func (e *AccountError) Unwrap() error { return e.Err }

// MarshalJSON renders the descriptor for presentation layers.
func (e *AccountError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}{e.Kind.String(), e.Err.Error()})
}

// classify maps an error that ended an account's collection to its kind.
func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	return KindUpstream
}
