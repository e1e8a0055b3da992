// Package scoring estimates how promising a lead is with a chat-completion
// classifier.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"intake/internal/models"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 200
	fallbackScore      = 50
	fallbackReason     = "fallback"
)

const systemPrompt = "You are a B2B lead qualification assistant. " +
	"Given a name, email and message, return JSON of the form\n" +
	`{"score": 0-100, "reason": "short explanation"}.` + "\n" +
	"Criteria (weight): purchase intent/urgency (40), fit with the ideal customer profile (30), " +
	"clarity of the request (20), business contact address (10).\n" +
	"Return only the JSON, no extra text."

// Scorer scores a lead. Implementations return an error when the classifier
// could not be reached; an unparseable reply is not an error.
type Scorer interface {
	Score(ctx context.Context, lead *models.Lead) (*models.LeadScore, error)
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OpenAIScorer calls the chat completions API.
type OpenAIScorer struct {
	client *openai.Client
	model  string
}

func NewOpenAIScorer(cfg Config) *OpenAIScorer {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(opts...)
	return &OpenAIScorer{client: &client, model: model}
}

func (s *OpenAIScorer) Score(ctx context.Context, lead *models.Lead) (*models.LeadScore, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf("Name: %s\nEmail: %s\nMessage: %s\nAnswer with JSON only.",
				lead.Name, lead.Email, lead.Message)),
		},
		Temperature: openai.Float(DefaultTemperature),
		MaxTokens:   openai.Int(DefaultMaxTokens),
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openAI completions request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no completions returned")
	}

	return ParseScore(resp.Choices[0].Message.Content)
}

var jsonBlock = regexp.MustCompile(`(?s)\{.*\}`)

// ParseScore reads a classifier reply. It accepts a bare JSON object or the
// first {...} block inside surrounding prose, and falls back to a neutral
// score when neither parses. A score field that is present but not numeric
// is an error.
func ParseScore(text string) (*models.LeadScore, error) {
	text = strings.TrimSpace(text)

	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		data = nil
		if block := jsonBlock.FindString(text); block != "" {
			if err := json.Unmarshal([]byte(block), &data); err != nil {
				data = nil
			}
		}
	}
	if data == nil {
		return models.NewLeadScore(fallbackScore, fallbackReason), nil
	}

	score := fallbackScore
	if raw, ok := data["score"]; ok && raw != nil {
		v, err := toNumber(raw)
		if err == nil && math.IsNaN(v) {
			err = errors.New("not a number")
		}
		if err != nil {
			return nil, fmt.Errorf("invalid score %v: %w", raw, err)
		}
		// Clamp before converting; out-of-range float to int is undefined.
		v = math.Max(models.MinScore, math.Min(models.MaxScore, v))
		score = int(v)
	}

	reason := ""
	if raw, ok := data["reason"]; ok && raw != nil {
		if s, ok := raw.(string); ok {
			reason = s
		} else {
			reason = fmt.Sprint(raw)
		}
	}

	return models.NewLeadScore(score, reason), nil
}

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
