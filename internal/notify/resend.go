package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"intake/internal/models"
)

const (
	defaultResendBaseURL = "https://api.resend.com"
	defaultResendTimeout = 20 * time.Second
)

// ResendSender posts messages to the Resend email API.
type ResendSender struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewResendSender(cfg models.ResendConfig) *ResendSender {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultResendBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultResendTimeout
	}
	return &ResendSender{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID string `json:"id"`
}

func (s *ResendSender) Name() string { return models.NotifyProviderResend }

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}

	body, err := json.Marshal(resendEmail{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("resend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result resendResponse
	if err := json.Unmarshal(payload, &result); err != nil {
		slog.Debug("Resend response not decodable", "error", err)
	}
	slog.Info("Lead notification sent",
		"provider", s.Name(),
		"status", resp.StatusCode,
		"message_id", result.ID,
	)
	return nil
}
