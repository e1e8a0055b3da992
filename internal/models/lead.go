// Package models - Lead domain types.
// A lead is one accepted contact-form submission. Leads are immutable once
// stored; enrichment (scoring, mirroring, notification) never rewrites them.
package models

import (
	"time"
	"unicode/utf8"
)

// Field limits shared by validation and the storage schemas.
const (
	MaxNameLength    = 255
	MaxEmailLength   = 255
	MaxMessageLength = 4000
	MaxReasonLength  = 500
	MinScore         = 0
	MaxScore         = 100
)

// Lead is a persisted contact-form submission.
type Lead struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	RemoteIP  string    `json:"remote_ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewLead builds an unsaved lead from a normalized request.
func NewLead(req *ContactRequest, remoteIP string) *Lead {
	return &Lead{
		Name:      req.Name,
		Email:     req.Email,
		Message:   req.Message,
		RemoteIP:  remoteIP,
		CreatedAt: time.Now().UTC(),
	}
}

// LeadScore is the classifier's estimate of how promising a lead is.
type LeadScore struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// NewLeadScore clamps score into range and truncates the reason.
func NewLeadScore(score int, reason string) *LeadScore {
	if score < MinScore {
		score = MinScore
	}
	if score > MaxScore {
		score = MaxScore
	}
	return &LeadScore{Score: score, Reason: Truncate(reason, MaxReasonLength)}
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
