package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validContactRequest() *ContactRequest {
	return &ContactRequest{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Message: "I would like a quote for a website.",
	}
}

func TestContactRequest_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(r *ContactRequest)
		errorMsg string
	}{
		{"valid", func(r *ContactRequest) {}, ""},
		{"missing name", func(r *ContactRequest) { r.Name = "" }, "name is required"},
		{"missing email", func(r *ContactRequest) { r.Email = "" }, "email is required"},
		{"missing message", func(r *ContactRequest) { r.Message = "" }, "message is required"},
		{"name too long", func(r *ContactRequest) { r.Name = strings.Repeat("a", MaxNameLength+1) }, "name must be at most"},
		{"message too long", func(r *ContactRequest) { r.Message = strings.Repeat("m", MaxMessageLength+1) }, "message must be at most"},
		{"message at limit", func(r *ContactRequest) { r.Message = strings.Repeat("m", MaxMessageLength) }, ""},
		{"email too long", func(r *ContactRequest) { r.Email = strings.Repeat("a", MaxEmailLength) + "@example.com" }, "email must be at most"},
		{"email without at", func(r *ContactRequest) { r.Email = "ada.example.com" }, "invalid email address"},
		{"email with display name", func(r *ContactRequest) { r.Email = "Ada <ada@example.com>" }, "invalid email address"},
		{"email with angle brackets", func(r *ContactRequest) { r.Email = "<ada@example.com>" }, "invalid email address"},
		{"email without dot in domain", func(r *ContactRequest) { r.Email = "ada@localhost" }, "fully qualified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validContactRequest()
			tt.mutate(req)

			err := req.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestContactRequest_Normalize(t *testing.T) {
	req := &ContactRequest{
		Name:    "  Ada  ",
		Email:   "  Ada@Example.COM ",
		Message: "\n hello \t",
	}
	req.Normalize()

	assert.Equal(t, "Ada", req.Name)
	assert.Equal(t, "ada@example.com", req.Email)
	assert.Equal(t, "hello", req.Message)
	assert.NoError(t, req.Validate())
}

func TestContactRequest_Token(t *testing.T) {
	tests := []struct {
		name     string
		req      ContactRequest
		expected string
	}{
		{"none", ContactRequest{}, ""},
		{"generic", ContactRequest{CaptchaToken: "generic"}, "generic"},
		{"turnstile widget", ContactRequest{TurnstileResponse: " ts "}, "ts"},
		{"recaptcha widget", ContactRequest{RecaptchaResponse: "rc"}, "rc"},
		{"generic wins", ContactRequest{CaptchaToken: "generic", TurnstileResponse: "ts"}, "generic"},
		{"blank generic falls through", ContactRequest{CaptchaToken: "  ", RecaptchaResponse: "rc"}, "rc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.req.Token())
		})
	}
}

func TestChatRequest_Validate(t *testing.T) {
	assert.NoError(t, (&ChatRequest{Message: "ping"}).Validate())
	assert.Error(t, (&ChatRequest{Message: "   "}).Validate())
	assert.Error(t, (&ChatRequest{Message: strings.Repeat("x", MaxMessageLength+1)}).Validate())
}

func TestListLeadsRequest(t *testing.T) {
	req := &ListLeadsRequest{}
	require.NoError(t, req.Validate())
	req.Normalize()
	assert.Equal(t, DefaultLeadPageSize, req.Limit)

	assert.Error(t, (&ListLeadsRequest{Limit: -1}).Validate())
	assert.Error(t, (&ListLeadsRequest{Offset: -1}).Validate())
	assert.Error(t, (&ListLeadsRequest{Limit: MaxLeadPageSize + 1}).Validate())
}
