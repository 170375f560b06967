package retry

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"keeper/internal/venue"

	"github.com/tidwall/gjson"
)

// Class is the closed classification for a failed venue call.
type Class int

const (
	// ClassUnknown gets exactly one extra attempt: the error carried no
	// recognizable signal, so it is conservatively treated as transient once.
	ClassUnknown Class = iota
	// ClassRateLimited is retried with backoff up to the attempt budget.
	ClassRateLimited
	// ClassFatal propagates immediately; retrying cannot help.
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassRateLimited:
		return "rate_limited"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify maps an error from a venue adapter onto a Class. Rate-limit
// signals: HTTP 429, "Too Many Requests" text, or a JSON error payload that
// lacks any status field (venues under load are known to emit those).
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassFatal
	}
	if errors.Is(err, venue.ErrBlocked) {
		return ClassFatal
	}

	var apiErr *venue.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return ClassRateLimited
		}
		if containsRateLimitText(apiErr.Body) {
			return ClassRateLimited
		}
		if apiErr.StatusCode == 0 && bodyLacksStatus(apiErr.Body) {
			return ClassRateLimited
		}
		if apiErr.StatusCode >= 400 {
			return ClassFatal
		}
		return ClassUnknown
	}

	if containsRateLimitText(err.Error()) {
		return ClassRateLimited
	}
	return ClassUnknown
}

func containsRateLimitText(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "too many requests") || strings.Contains(s, "rate limit")
}

// bodyLacksStatus reports whether a JSON error body is missing a status
// field entirely. Malformed payloads without one are treated as the venue
// shedding load rather than rejecting the request.
func bodyLacksStatus(body string) bool {
	body = strings.TrimSpace(body)
	if body == "" || !gjson.Valid(body) {
		return true
	}
	for _, key := range []string{"status", "statusCode", "code"} {
		if gjson.Get(body, key).Exists() {
			return false
		}
	}
	return true
}
