package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/offerscout/offerscout/internal/models"
)

// Judge produces an external profitability judgment in [0,1] for a product.
// Any error from a Judge downgrades the scoring result to the deterministic
// blend; it never aborts scoring.
type Judge interface {
	Judge(ctx context.Context, p models.NormalizedProduct) (float64, error)
}

// OpenAIJudge calls an OpenAI-compatible chat-completions endpoint and asks
// for a JSON verdict on the product's affiliate potential.
type OpenAIJudge struct {
	apiURL string
	apiKey string
	model  string
	http   *http.Client
}

func NewOpenAIJudge(apiURL, apiKey, model string, timeout time.Duration) *OpenAIJudge {
	return &OpenAIJudge{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		http:   &http.Client{Timeout: timeout},
	}
}

type (
	chatRequest struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
	}
	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	chatResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	judgeVerdict struct {
		Score     float64 `json:"score"`
		Reasoning string  `json:"reasoning"`
	}
)

const judgePromptFmt = `You evaluate affiliate marketplace products. Given the product below,
reply with JSON only: {"score": <0.0-1.0>, "reasoning": "<one sentence>"}.
Score the likelihood that promoting it is profitable for an affiliate.

name: %s
price: %.2f %s
commission: %.2f
temperature: %.1f
category: %s
platform: %s`

func (j *OpenAIJudge) Judge(ctx context.Context, p models.NormalizedProduct) (float64, error) {
	prompt := fmt.Sprintf(judgePromptFmt,
		p.Name, p.Price, p.Currency, p.Commission, p.Temperature, p.Category, p.Platform)

	body, err := json.Marshal(chatRequest{
		Model:    j.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal judge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.apiURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create judge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+j.apiKey)

	resp, err := j.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("judge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("judge returned %s: %s", resp.Status, string(data))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode judge response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return 0, fmt.Errorf("judge returned no choices")
	}

	return parseVerdict(parsed.Choices[0].Message.Content)
}

// parseVerdict extracts the JSON verdict, tolerating surrounding prose or
// markdown fences the model may add.
func parseVerdict(content string) (float64, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return 0, fmt.Errorf("no JSON object in judge reply")
	}

	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &verdict); err != nil {
		return 0, fmt.Errorf("failed to parse judge verdict: %w", err)
	}

	return clamp01(verdict.Score), nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
