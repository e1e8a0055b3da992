package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/internal/models"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		score  int
		reason string
	}{
		{"plain JSON", `{"score": 82, "reason": "clear budget"}`, 82, "clear budget"},
		{"JSON in prose", "Sure! Here you go:\n{\"score\": 40, \"reason\": \"vague\"}\nThanks", 40, "vague"},
		{"float score", `{"score": 67.9, "reason": "ok"}`, 67, "ok"},
		{"string score", `{"score": "75", "reason": "ok"}`, 75, "ok"},
		{"clamped high", `{"score": 140, "reason": "ok"}`, 100, "ok"},
		{"clamped low", `{"score": -3, "reason": "ok"}`, 0, "ok"},
		{"huge score", `{"score": 1e300, "reason": "ok"}`, 100, "ok"},
		{"huge negative score", `{"score": -1e300, "reason": "ok"}`, 0, "ok"},
		{"infinite string score", `{"score": "Inf", "reason": "ok"}`, 100, "ok"},
		{"negative infinite string score", `{"score": "-Inf", "reason": "ok"}`, 0, "ok"},
		{"missing score", `{"reason": "no number"}`, 50, "no number"},
		{"missing reason", `{"score": 10}`, 10, ""},
		{"not JSON", "I cannot score this lead.", 50, "fallback"},
		{"empty", "", 50, "fallback"},
		{"JSON array", `[1, 2, 3]`, 50, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScore(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestParseScore_InvalidScore(t *testing.T) {
	for _, text := range []string{
		`{"score": "high", "reason": "x"}`,
		`{"score": "NaN", "reason": "x"}`,
	} {
		_, err := ParseScore(text)
		assert.Error(t, err, text)
	}
}

func TestParseScore_TruncatesReason(t *testing.T) {
	long := strings.Repeat("r", models.MaxReasonLength+100)
	got, err := ParseScore(`{"score": 1, "reason": "` + long + `"}`)
	require.NoError(t, err)
	assert.Len(t, got.Reason, models.MaxReasonLength)
}

// chatServer fakes the chat completions endpoint.
func chatServer(t *testing.T, status int, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
			return
		}
		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   DefaultModel,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testLead() *models.Lead {
	return &models.Lead{ID: 7, Name: "Ada", Email: "ada@example.com", Message: "Need a quote this week"}
}

func TestOpenAIScorer_Score(t *testing.T) {
	var seen map[string]any
	srv := chatServer(t, http.StatusOK, `{"score": 91, "reason": "urgent, business domain"}`, &seen)

	scorer := NewOpenAIScorer(Config{APIKey: "sk-test", BaseURL: srv.URL, Timeout: 5 * time.Second})
	got, err := scorer.Score(context.Background(), testLead())

	require.NoError(t, err)
	assert.Equal(t, 91, got.Score)
	assert.Equal(t, "urgent, business domain", got.Reason)

	assert.Equal(t, DefaultModel, seen["model"])
	assert.Equal(t, DefaultTemperature, seen["temperature"])
	assert.Equal(t, float64(DefaultMaxTokens), seen["max_tokens"])
	messages, ok := seen["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	assert.Contains(t, user["content"], "Ada")
	assert.Contains(t, user["content"], "ada@example.com")
}

func TestOpenAIScorer_CustomModel(t *testing.T) {
	var seen map[string]any
	srv := chatServer(t, http.StatusOK, "no json here", &seen)

	scorer := NewOpenAIScorer(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4.1-mini"})
	got, err := scorer.Score(context.Background(), testLead())

	require.NoError(t, err)
	assert.Equal(t, 50, got.Score)
	assert.Equal(t, "fallback", got.Reason)
	assert.Equal(t, "gpt-4.1-mini", seen["model"])
}

func TestOpenAIScorer_APIError(t *testing.T) {
	srv := chatServer(t, http.StatusUnauthorized, "", nil)

	scorer := NewOpenAIScorer(Config{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := scorer.Score(context.Background(), testLead())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "openAI completions request failed")
}
