// Package ratelimit provides per-key sliding-window rate limiting. Each key
// keeps the arrival times of its recently admitted requests; a key is full
// once it holds Limit timestamps younger than the window. The package also
// includes HTTP middleware that sets standard rate limit response headers.
package ratelimit

// Limiter defines the rate limiting contract. Implementations must be safe for
// concurrent use.
type Limiter interface {
	// Admit checks whether a request identified by key should be admitted,
	// recording it against the key's window when it is.
	Admit(key string) Decision

	// Close stops background goroutines and releases resources.
	Close()
}

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed    bool
	Limit      int // Maximum requests per window
	Remaining  int // Slots left in the window after this request
	RetryAfter int // Seconds to wait (meaningful only when denied, always >= 1 then)
}
