// Package models - API request types and input validation.
// This file defines all incoming API request structures.
//
// Validation Philosophy:
// - Fail fast with clear error messages for invalid input
// - Normalize input data for consistent processing (trimmed strings, lowercase email)
// - Separate validation from normalization for clear error reporting
package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// ContactRequest is a contact-form submission.
//
// The CAPTCHA proof token is accepted under the generic captcha_token name
// and under the field names the vendor widgets post by default, so plain
// HTML forms work without client-side renaming.
type ContactRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Message           string `json:"message"`
	CaptchaToken      string `json:"captcha_token,omitempty"`
	TurnstileResponse string `json:"cf-turnstile-response,omitempty"`
	RecaptchaResponse string `json:"g-recaptcha-response,omitempty"`
}

// Token returns the first non-empty CAPTCHA proof token.
func (r *ContactRequest) Token() string {
	for _, t := range []string{r.CaptchaToken, r.TurnstileResponse, r.RecaptchaResponse} {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return ""
}

// Validate checks required fields, lengths and the email address format.
// Call Normalize first so surrounding whitespace does not count.
func (r *ContactRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if utf8.RuneCountInString(r.Name) > MaxNameLength {
		return fmt.Errorf("name must be at most %d characters", MaxNameLength)
	}

	if r.Email == "" {
		return errors.New("email is required")
	}
	if utf8.RuneCountInString(r.Email) > MaxEmailLength {
		return fmt.Errorf("email must be at most %d characters", MaxEmailLength)
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}

	if r.Message == "" {
		return errors.New("message is required")
	}
	if utf8.RuneCountInString(r.Message) > MaxMessageLength {
		return fmt.Errorf("message must be at most %d characters", MaxMessageLength)
	}

	return nil
}

// Normalize trims all fields and lowercases the email.
func (r *ContactRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Message = strings.TrimSpace(r.Message)
}

// validateEmail accepts a bare addr-spec only; display names are rejected.
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email address: %w", err)
	}
	if addr.Name != "" || !strings.EqualFold(addr.Address, email) {
		return errors.New("invalid email address: display names are not allowed")
	}
	at := strings.LastIndex(addr.Address, "@")
	if at < 1 || !strings.Contains(addr.Address[at+1:], ".") {
		return errors.New("invalid email address: domain must be fully qualified")
	}
	return nil
}

type ChatRequest struct {
	Message string `json:"message"`
}

func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return errors.New("message is required")
	}
	if utf8.RuneCountInString(r.Message) > MaxMessageLength {
		return fmt.Errorf("message must be at most %d characters", MaxMessageLength)
	}
	return nil
}

// ListLeadsRequest carries pagination for the lead listing.
type ListLeadsRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

const (
	DefaultLeadPageSize = 50
	MaxLeadPageSize     = 500
)

func (r *ListLeadsRequest) Validate() error {
	if r.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if r.Limit > MaxLeadPageSize {
		return fmt.Errorf("limit must be at most %d", MaxLeadPageSize)
	}
	if r.Offset < 0 {
		return errors.New("offset cannot be negative")
	}
	return nil
}

func (r *ListLeadsRequest) Normalize() {
	if r.Limit == 0 {
		r.Limit = DefaultLeadPageSize
	}
}
