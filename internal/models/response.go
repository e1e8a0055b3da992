// Package models - API response types and error handling.
// This file defines all outgoing API response structures with consistent formatting.
//
// Response Design Principles:
// - Consistent JSON structure across all endpoints
// - Optional fields use omitempty to reduce response size
// - Machine-readable error codes alongside human-readable messages
// - RFC3339 timestamps for international compatibility
package models

import (
	"time"
)

// ContactResponse acknowledges an accepted submission. Notification and
// enrichment run after the response is written, so their outcome is not part
// of it.
type ContactResponse struct {
	OK     bool        `json:"ok"`
	LeadID int64       `json:"lead_id"`
	Echo   ContactEcho `json:"echo"`
}

type ContactEcho struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func NewContactResponse(lead *Lead) *ContactResponse {
	return &ContactResponse{
		OK:     true,
		LeadID: lead.ID,
		Echo: ContactEcho{
			Name:    lead.Name,
			Email:   lead.Email,
			Message: lead.Message,
		},
	}
}

type ChatResponse struct {
	Reply string   `json:"reply"`
	Echo  ChatEcho `json:"echo"`
}

type ChatEcho struct {
	Message string `json:"message"`
}

type LeadListResponse struct {
	Leads      []*Lead `json:"leads"`
	TotalCount int     `json:"total_count"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	HasMore    bool    `json:"has_more"`
}

// ErrorResponse provides structured error information.
//
// Error Categories:
// - Validation errors: Input format/constraint violations
// - Admission errors: Rate limited or CAPTCHA rejected
// - Authorization errors: Missing or wrong admin token
// - Internal errors: Server-side issues
type ErrorResponse struct {
	Error      string            `json:"error"`                 // Error type (always "error")
	Message    string            `json:"message"`               // Human-readable error description
	Code       string            `json:"code,omitempty"`        // Machine-readable error code
	Details    map[string]string `json:"details,omitempty"`     // Field-specific error details
	Timestamp  time.Time         `json:"timestamp"`             // Error occurrence time
	RequestID  string            `json:"request_id,omitempty"`  // Unique request identifier
	RetryAfter int               `json:"retry_after,omitempty"` // Seconds until a retry can succeed
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Env        string                     `json:"env,omitempty"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Health Status Constants
const (
	StatusOK        = "ok"        // All systems operational
	StatusHealthy   = "healthy"   // Component operational
	StatusUnhealthy = "unhealthy" // Component failing
	StatusDisabled  = "disabled"  // Component switched off by configuration
)

// Standard HTTP Error Codes
//
// Error Code Strategy:
// - Upper-case with underscores for consistency
// - Maps to standard HTTP status codes
// - Machine-readable for client error handling
const (
	ErrorCodeNotFound           = "NOT_FOUND"           // 404: Resource doesn't exist
	ErrorCodeBadRequest         = "BAD_REQUEST"         // 400: Invalid request format
	ErrorCodeInvalidRequest     = "INVALID_REQUEST"     // 400: Invalid request data
	ErrorCodeInvalidCaptcha     = "INVALID_CAPTCHA"     // 400: CAPTCHA proof rejected
	ErrorCodeValidation         = "VALIDATION_ERROR"    // 422: Input validation failed
	ErrorCodeRateLimited        = "RATE_LIMITED"        // 429: Too many requests
	ErrorCodeInternalError      = "INTERNAL_ERROR"      // 500: Server-side error
	ErrorCodeUnauthorized       = "UNAUTHORIZED"        // 401: Authentication required
	ErrorCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503: Service temporarily down
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewLeadListResponse(leads []*Lead, total, limit, offset int) *LeadListResponse {
	if leads == nil {
		leads = []*Lead{}
	}
	return &LeadListResponse{
		Leads:      leads,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    offset+len(leads) < total,
	}
}
