package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func judgeStub(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Messages)

		w.WriteHeader(status)
		if status == http.StatusOK {
			body := map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"content": content}},
				},
			}
			json.NewEncoder(w).Encode(body)
		}
	}))
}

func TestOpenAIJudge(t *testing.T) {
	server := judgeStub(t, http.StatusOK, `{"score": 0.82, "reasoning": "high demand, sane commission"}`)
	defer server.Close()

	judge := NewOpenAIJudge(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)
	score, err := judge.Judge(context.Background(), product(97, 48, 80))

	require.NoError(t, err)
	assert.Equal(t, 0.82, score)
}

func TestOpenAIJudgeToleratesFencedJSON(t *testing.T) {
	server := judgeStub(t, http.StatusOK, "Sure! Here is the verdict:\n```json\n{\"score\": 0.4, \"reasoning\": \"saturated niche\"}\n```")
	defer server.Close()

	judge := NewOpenAIJudge(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)
	score, err := judge.Judge(context.Background(), product(97, 48, 80))

	require.NoError(t, err)
	assert.Equal(t, 0.4, score)
}

func TestOpenAIJudgeServerError(t *testing.T) {
	server := judgeStub(t, http.StatusInternalServerError, "")
	defer server.Close()

	judge := NewOpenAIJudge(server.URL, "test-key", "gpt-4o-mini", 5*time.Second)
	_, err := judge.Judge(context.Background(), product(97, 48, 80))

	assert.Error(t, err)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected float64
		wantErr  bool
	}{
		{"plain json", `{"score": 0.5}`, 0.5, false},
		{"clamps above one", `{"score": 3.2}`, 1.0, false},
		{"clamps below zero", `{"score": -0.4}`, 0.0, false},
		{"no json", "I cannot help with that.", 0, true},
		{"broken json", `{"score": }`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := parseVerdict(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, score)
		})
	}
}
