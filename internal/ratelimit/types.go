package ratelimit

import (
	"strconv"
	"time"
)

// DeniedMessage is the client-facing body text for a denied decision.
const DeniedMessage = "Too many requests. Please slow down."

// Operation classes covered by the built-in tier registry.
const (
	ClassAI      = "ai"
	ClassUpload  = "upload"
	ClassWrite   = "write"
	ClassRead    = "read"
	ClassAdmin   = "admin"
	ClassWebhook = "webhook"
)

// Tier is an immutable admission policy for one operation class.
type Tier struct {
	// Class namespaces the per-identity counters; identities tracked under
	// different classes never interact.
	Class string `json:"class" yaml:"class"`

	// MaxOperations is the number of operations allowed per rolling window.
	MaxOperations int `json:"max_operations" yaml:"max_operations"`

	// Window is the rolling window length.
	Window time.Duration `json:"window" yaml:"window"`
}

// Decision is the outcome of one admission check. A deny is a normal return
// value, not an error: callers branch on Allowed and surface the retry
// metadata to the original requester.
type Decision struct {
	Allowed bool `json:"allowed"`

	// RetryAfter is how long the identity must wait before retrying, rounded
	// up to whole seconds. Zero when allowed.
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	// Limit echoes the tier's MaxOperations.
	Limit int `json:"limit"`

	// Remaining is the number of operations left in the current window.
	// Always zero on a deny.
	Remaining int `json:"remaining"`

	// ResetAt is the absolute instant the identity may retry. Only set on a
	// deny.
	ResetAt time.Time `json:"reset_at,omitempty"`
}

// RetryAfterSeconds returns the retry delay as integer seconds for the
// Retry-After header.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(d.RetryAfter / time.Second)
}

// RetryAfterHeader renders the Retry-After header value.
func (d Decision) RetryAfterHeader() string {
	return strconv.Itoa(d.RetryAfterSeconds())
}

// LimitHeader renders the X-RateLimit-Limit header value.
func (d Decision) LimitHeader() string {
	return strconv.Itoa(d.Limit)
}

// ResetHeader renders the X-RateLimit-Reset header value in RFC3339.
func (d Decision) ResetHeader() string {
	return d.ResetAt.UTC().Format(time.RFC3339)
}
