package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"intake/internal/models"
)

// KeyFunc derives the rate limit key for a request.
type KeyFunc func(r *http.Request) string

// Middleware returns HTTP middleware that enforces rate limits using the given
// limiter. When keyFunc is nil requests are keyed by client IP.
func Middleware(limiter Limiter, keyFunc KeyFunc) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = IPKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			decision := limiter.Admit(key)

			// Always set rate limit headers
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				WriteRejection(w, decision.RetryAfter, w.Header().Get(requestIDHeader))
				slog.Warn("Rate limit exceeded",
					"key", key,
					"limit", decision.Limit,
					"retry_after", decision.RetryAfter,
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestIDHeader is set on the response by the request ID middleware before
// any limiter runs.
const requestIDHeader = "X-Request-ID"

// WriteRejection writes a 429 response carrying the retry-after hint both as
// a header and in the JSON body.
func WriteRejection(w http.ResponseWriter, retryAfter int, requestID string) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	errorResp := models.NewErrorResponse("Too many requests", models.ErrorCodeRateLimited)
	errorResp.RetryAfter = retryAfter
	errorResp.RequestID = requestID
	errorResp.Timestamp = time.Now().UTC()
	json.NewEncoder(w).Encode(errorResp)
}

// IPKey keys a request by its peer address.
func IPKey(r *http.Request) string {
	return "ip:" + ClientIP(r)
}

// ClientIP returns the host part of r.RemoteAddr. Forwarding headers are
// ignored; see ForwardedClientIP for deployments behind a reverse proxy.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ForwardedClientIP resolves the client address of a request that passed
// through trustedProxies reverse proxies. Each proxy appends the address it
// saw to X-Forwarded-For, so the client is the entry trustedProxies places
// from the right. Entries further left were sent by the client and are
// never used. X-Real-IP is consulted only when no X-Forwarded-For is present.
// With no trusted proxies the headers are ignored.
func ForwardedClientIP(r *http.Request, trustedProxies int) string {
	if trustedProxies <= 0 {
		return ClientIP(r)
	}

	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		for _, part := range strings.Split(header, ",") {
			if hop := strings.TrimSpace(part); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	if len(hops) == 0 {
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
		return ClientIP(r)
	}

	// A shorter chain than configured means every hop came from a proxy.
	idx := len(hops) - trustedProxies
	if idx < 0 {
		idx = 0
	}
	return hops[idx]
}
