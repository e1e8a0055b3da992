// Package mirror copies accepted leads into a Notion database so the sales
// team can triage them there.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"intake/internal/models"
)

const (
	DefaultBaseURL       = "https://api.notion.com/v1"
	DefaultNotionVersion = "2022-06-28"
	DefaultRate          = 3.0

	maxTitleLength   = 200
	maxMessageLength = 1900
	maxIPLength      = 100
	maxErrorBody     = 4 << 10
)

type Config struct {
	APIKey            string
	DatabaseID        string
	BaseURL           string
	NotionVersion     string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// NotionClient creates one database page per lead.
type NotionClient struct {
	apiKey     string
	databaseID string
	baseURL    string
	version    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewNotionClient(cfg Config) *NotionClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.NotionVersion == "" {
		cfg.NotionVersion = DefaultNotionVersion
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &NotionClient{
		apiKey:     cfg.APIKey,
		databaseID: cfg.DatabaseID,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		version:    cfg.NotionVersion,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

type textContent struct {
	Content string `json:"content"`
}

type richText struct {
	Text textContent `json:"text"`
}

type selectOption struct {
	Name string `json:"name"`
}

type property struct {
	Title    []richText    `json:"title,omitempty"`
	RichText []richText    `json:"rich_text,omitempty"`
	Email    *string       `json:"email,omitempty"`
	Number   *float64      `json:"number,omitempty"`
	Select   *selectOption `json:"select,omitempty"`
}

type parent struct {
	DatabaseID string `json:"database_id"`
}

type createPageRequest struct {
	Parent     parent              `json:"parent"`
	Properties map[string]property `json:"properties"`
}

// PageResponse is the part of the created page the caller may want.
type PageResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateLead creates a page for lead. score may be nil.
func (c *NotionClient) CreateLead(ctx context.Context, lead *models.Lead, score *models.LeadScore) (*PageResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("notion rate limiter: %w", err)
	}

	body, err := json.Marshal(createPageRequest{
		Parent:     parent{DatabaseID: c.databaseID},
		Properties: leadProperties(lead, score),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("notion returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var page PageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode notion response: %w", err)
	}
	return &page, nil
}

func leadProperties(lead *models.Lead, score *models.LeadScore) map[string]property {
	email := lead.Email
	props := map[string]property{
		"Name":    {Title: []richText{{Text: textContent{Content: models.Truncate(lead.Name, maxTitleLength)}}}},
		"Email":   {Email: &email},
		"Message": {RichText: []richText{{Text: textContent{Content: models.Truncate(lead.Message, maxMessageLength)}}}},
		"Status":  {Select: &selectOption{Name: "New"}},
	}
	if score != nil {
		props["Score"] = property{Number: number(score.Score)}
	}
	if lead.RemoteIP != "" {
		props["IP"] = property{RichText: []richText{{Text: textContent{Content: models.Truncate(lead.RemoteIP, maxIPLength)}}}}
	}
	if lead.ID != 0 {
		props["Lead ID"] = property{Number: number(int(lead.ID))}
	}
	return props
}

func number(n int) *float64 {
	f := float64(n)
	return &f
}
