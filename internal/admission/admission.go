// Package admission decides whether a submission may proceed to any
// side-effecting work. It composes the rate limiter and the CAPTCHA gate in a
// fixed order: client IP, then email address, then CAPTCHA. The first
// rejection wins and later checks are not consulted, so a rejected IP never
// consumes a slot in the email window and never costs a vendor call.
package admission

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"intake/internal/ratelimit"
)

// Reason classifies a rejection.
type Reason string

const (
	ReasonRateLimited   Reason = "rate_limited"
	ReasonCaptchaFailed Reason = "captcha_failed"
)

// Dimension names the check that produced a decision.
type Dimension string

const (
	DimensionIP      Dimension = "ip"
	DimensionEmail   Dimension = "email"
	DimensionCaptcha Dimension = "captcha"
)

// Rejection is returned when a submission is not admitted.
type Rejection struct {
	Reason     Reason
	Dimension  Dimension
	RetryAfter int // seconds; only set for ReasonRateLimited
}

func (r *Rejection) Error() string {
	if r.Reason == ReasonRateLimited {
		return fmt.Sprintf("%s: %s limit reached, retry after %ds", r.Reason, r.Dimension, r.RetryAfter)
	}
	return string(r.Reason)
}

// Submission carries what admission needs from a request.
type Submission struct {
	RemoteIP string
	Email    string
	Token    string
}

// Verifier checks a CAPTCHA proof token. *captcha.Gate satisfies it.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) bool
}

// Key builders shared with other callers of the limiter.
func IPKey(ip string) string       { return "ip:" + ip }
func EmailKey(email string) string { return "email:" + strings.ToLower(strings.TrimSpace(email)) }

// Controller runs the admission checks.
type Controller struct {
	limiter   ratelimit.Limiter
	verifier  Verifier
	decisions metric.Int64Counter
}

// New creates a controller. The limiter is shared across dimensions; the
// key prefixes keep the dimensions apart.
func New(limiter ratelimit.Limiter, verifier Verifier) (*Controller, error) {
	meter := otel.Meter("intake/admission")
	decisions, err := meter.Int64Counter(
		"admission.decisions",
		metric.WithDescription("Admission decisions by dimension and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create admission counter: %w", err)
	}

	return &Controller{
		limiter:   limiter,
		verifier:  verifier,
		decisions: decisions,
	}, nil
}

// Admit returns nil when sub may proceed, or a *Rejection.
func (c *Controller) Admit(ctx context.Context, sub Submission) error {
	if d := c.limiter.Admit(IPKey(sub.RemoteIP)); !d.Allowed {
		c.record(ctx, DimensionIP, false)
		return &Rejection{Reason: ReasonRateLimited, Dimension: DimensionIP, RetryAfter: d.RetryAfter}
	}
	c.record(ctx, DimensionIP, true)

	if d := c.limiter.Admit(EmailKey(sub.Email)); !d.Allowed {
		c.record(ctx, DimensionEmail, false)
		return &Rejection{Reason: ReasonRateLimited, Dimension: DimensionEmail, RetryAfter: d.RetryAfter}
	}
	c.record(ctx, DimensionEmail, true)

	if c.verifier != nil && !c.verifier.Verify(ctx, sub.Token, sub.RemoteIP) {
		c.record(ctx, DimensionCaptcha, false)
		return &Rejection{Reason: ReasonCaptchaFailed, Dimension: DimensionCaptcha}
	}
	c.record(ctx, DimensionCaptcha, true)

	return nil
}

func (c *Controller) record(ctx context.Context, dim Dimension, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	c.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dimension", string(dim)),
		attribute.String("outcome", outcome),
	))
}
