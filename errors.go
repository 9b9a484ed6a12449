package twitter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// errorClass categorizes Twitter API error responses for targeted handling.
type errorClass int

const (
	errNone          errorClass = iota
	errRateLimit                // 88 rate limit exceeded
	errSuspended                // 64 account suspended
	errLocked                   // 326 account locked (captcha needed)
	errCSRF                     // 353 csrf token mismatch
	errAuthExpired              // 32 could not authenticate
	errBlocked                  // 161 blocked from performing action
	errNotAuthorized            // 179, 219 not authorized
	errInternal                 // 131 Twitter internal error
)

func (c errorClass) String() string {
	switch c {
	case errRateLimit:
		return "rate limit exceeded (88)"
	case errSuspended:
		return "account suspended (64)"
	case errLocked:
		return "account locked (326)"
	case errCSRF:
		return "csrf token mismatch (353)"
	case errAuthExpired:
		return "could not authenticate (32)"
	case errBlocked:
		return "blocked (161)"
	case errNotAuthorized:
		return "not authorized"
	case errInternal:
		return "internal error (131)"
	}
	return "none"
}

// classifyError inspects a response body for known Twitter error codes.
func classifyError(body []byte) errorClass {
	var errResp struct {
		Errors []struct {
			Code int `json:"code"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &errResp) != nil || len(errResp.Errors) == 0 {
		return errNone
	}

	for _, e := range errResp.Errors {
		switch e.Code {
		case 88:
			return errRateLimit
		case 64:
			return errSuspended
		case 326:
			return errLocked
		case 353:
			return errCSRF
		case 32:
			return errAuthExpired
		case 161:
			return errBlocked
		case 179, 219:
			return errNotAuthorized
		case 131:
			return errInternal
		}
	}
	return errNone
}

// parseRateLimitReset parses the X-Rate-Limit-Reset unix timestamp header.
// Falls back to 15 minutes after now if missing or invalid.
func parseRateLimitReset(v string, now time.Time) time.Time {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(ts, 0)
	}
	return now.Add(15 * time.Minute)
}

// outcome is what Search should do with one HTTP response.
type outcome int

const (
	outcomeOK          outcome = iota
	outcomeRateLimited         // wait for reset, surfaced to the caller
	outcomeRotateCT0           // rotate ct0 and retry within the adapter
	outcomeRetry               // transient, retry within the adapter
	outcomeFatal               // give up on this request
)

// interpretResponse decides how to handle a SearchTimeline response.
// The error carries detail for every outcome other than outcomeOK.
func interpretResponse(status int, body []byte) (outcome, error) {
	switch {
	case status == 429:
		return outcomeRateLimited, fmt.Errorf("HTTP 429")
	case status == 401 || status == 403:
		class := classifyError(body)
		if class == errCSRF {
			return outcomeRotateCT0, fmt.Errorf("HTTP %d: %s", status, class)
		}
		if class == errNone {
			return outcomeFatal, fmt.Errorf("HTTP %d: %s", status, truncateBytes(body, 200))
		}
		return outcomeFatal, fmt.Errorf("HTTP %d: %s", status, class)
	case status >= 500:
		return outcomeRetry, fmt.Errorf("HTTP %d: %s", status, truncateBytes(body, 200))
	case status != 200:
		return outcomeFatal, fmt.Errorf("HTTP %d: %s", status, truncateBytes(body, 200))
	}

	// HTTP 200 check for error codes in response body
	switch class := classifyError(body); class {
	case errNone:
		return outcomeOK, nil
	case errRateLimit:
		return outcomeRateLimited, fmt.Errorf("%s", class)
	case errCSRF:
		return outcomeRotateCT0, fmt.Errorf("%s", class)
	case errInternal:
		if hasResponseData(body) {
			return outcomeOK, nil
		}
		return outcomeRetry, fmt.Errorf("%s", class)
	default:
		return outcomeFatal, fmt.Errorf("%s", class)
	}
}

// hasResponseData returns true if the JSON body contains a non-null "data" field.
func hasResponseData(body []byte) bool {
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return false
	}
	return len(probe.Data) > 0 && string(probe.Data) != "null"
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
