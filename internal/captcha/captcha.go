// Package captcha verifies CAPTCHA proof tokens submitted with contact forms.
//
// A Gate resolves, once, which vendor secret is active: the first configured
// secret in priority order that is not empty and not a template placeholder.
// Verification then follows a fixed policy:
//
//   - kill-switch off: allow, no network call
//   - no active secret: allow (CAPTCHA not configured)
//   - active secret, empty token: deny
//   - otherwise: one siteverify call; only an explicit success allows
//
// Verification never returns an error. Transport, timeout and decoding
// failures are logged and count as a failed verification.
package captcha

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Vendor identifies a CAPTCHA provider.
type Vendor string

const (
	VendorTurnstile Vendor = "turnstile"
	VendorReCAPTCHA Vendor = "recaptcha"
)

// DefaultTimeout bounds a single verification request.
const DefaultTimeout = 10 * time.Second

// DefaultEndpoints are the public siteverify URLs per vendor.
var DefaultEndpoints = map[Vendor]string{
	VendorTurnstile: "https://challenges.cloudflare.com/turnstile/v0/siteverify",
	VendorReCAPTCHA: "https://www.google.com/recaptcha/api/siteverify",
}

// placeholderPrefixes mark template values that were never replaced with a
// real credential. Matching is case-insensitive.
var placeholderPrefixes = []string{
	"cole_aqui",
	"paste_",
	"paste-here",
	"your_",
	"your-",
	"change_me",
	"changeme",
	"<",
}

// Secret is one vendor credential candidate.
type Secret struct {
	Vendor   Vendor
	Value    string
	Endpoint string // empty means DefaultEndpoints[Vendor]
}

// Config is the immutable gate configuration. Secrets are in priority order.
type Config struct {
	Enabled bool
	Secrets []Secret
	Timeout time.Duration
}

// IsPlaceholder reports whether a secret value should be treated as unset.
func IsPlaceholder(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return true
	}
	for _, prefix := range placeholderPrefixes {
		if strings.HasPrefix(v, prefix) {
			return true
		}
	}
	return false
}

// Active returns the first usable secret in priority order.
func (c Config) Active() (Secret, bool) {
	for _, s := range c.Secrets {
		if IsPlaceholder(s.Value) {
			continue
		}
		s.Value = strings.TrimSpace(s.Value)
		if s.Endpoint == "" {
			s.Endpoint = DefaultEndpoints[s.Vendor]
		}
		if s.Endpoint == "" {
			continue
		}
		return s, true
	}
	return Secret{}, false
}

// Gate decides whether a submission's CAPTCHA proof is acceptable. It is safe
// for concurrent use.
type Gate struct {
	enabled bool
	active  Secret
	hasKey  bool
	timeout time.Duration
	client  *http.Client
}

// Option configures a Gate.
type Option func(*Gate)

// WithHTTPClient sets the client used for verification requests.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gate) { g.client = client }
}

// NewGate builds a gate from cfg. The active vendor is fixed at construction.
func NewGate(cfg Config, opts ...Option) *Gate {
	g := &Gate{
		enabled: cfg.Enabled,
		timeout: cfg.Timeout,
		client:  http.DefaultClient,
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	g.active, g.hasKey = cfg.Active()
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Vendor returns the active vendor, if any. A disabled gate has none.
func (g *Gate) Vendor() (Vendor, bool) {
	if !g.enabled || !g.hasKey {
		return "", false
	}
	return g.active.Vendor, true
}

// Verify checks token for the caller at remoteIP. remoteIP may be empty.
func (g *Gate) Verify(ctx context.Context, token, remoteIP string) bool {
	if !g.enabled {
		return true
	}
	if !g.hasKey {
		return true
	}

	token = strings.TrimSpace(token)
	if token == "" {
		slog.Info("CAPTCHA token missing", "vendor", g.active.Vendor)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.siteVerify(ctx, token, remoteIP)
	if err != nil {
		slog.Warn("CAPTCHA verification request failed",
			"vendor", g.active.Vendor,
			"error", err,
		)
		return false
	}
	if !result.Success {
		slog.Warn("CAPTCHA verification rejected",
			"vendor", g.active.Vendor,
			"error_codes", result.ErrorCodes,
		)
		return false
	}
	return true
}
