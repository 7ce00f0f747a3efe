package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// upstreamTimeout bounds one model call; slower calls fall back to the
// heuristic analyzer.
const upstreamTimeout = 10 * time.Second

const analysisPrompt = `Analyze the following text and return a JSON object with:
1. "sentiment": a float between 0 and 1 where 0 is very negative and 1 is very positive
2. "keywords": an array of 3-5 most important keywords or phrases from the text
3. "emotion": a single word describing the primary emotion (e.g., "positive", "negative", "neutral", "joyful", "sad", "angry", "excited", "calm")

Text: %q

Return ONLY valid JSON in this exact format:
{"sentiment": 0.85, "keywords": ["keyword1", "keyword2", "keyword3"], "emotion": "positive"}`

type openAIClient struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
	Endpoint   string
}

func newOpenAIClient(apiKey, model string) *openAIClient {
	return &openAIClient{
		HTTPClient: &http.Client{Timeout: upstreamTimeout},
		APIKey:     apiKey,
		Model:      model,
		Endpoint:   "https://api.openai.com/v1/chat/completions",
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate runs one completion and returns the raw assistant content.
func (c *openAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("openai api key missing")
	}
	reqBody, _ := json.Marshal(chatCompletionsRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant that analyzes text sentiment and extracts keywords. Always return valid JSON."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   200,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai error: status=%d body=%s", resp.StatusCode, string(b))
	}
	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}

// extractAnalysis pulls the analysis JSON out of a model reply, tolerating
// prose around the object.
func extractAnalysis(content string) (SentimentResponse, error) {
	var out SentimentResponse
	if err := json.Unmarshal([]byte(content), &out); err == nil {
		return normalize(out), nil
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &out); err == nil {
			return normalize(out), nil
		}
	}
	return SentimentResponse{}, fmt.Errorf("no analysis JSON in model reply")
}

func normalize(r SentimentResponse) SentimentResponse {
	if r.Sentiment < 0 {
		r.Sentiment = 0
	} else if r.Sentiment > 1 {
		r.Sentiment = 1
	}
	if len(r.Keywords) > 5 {
		r.Keywords = r.Keywords[:5]
	}
	if r.Keywords == nil {
		r.Keywords = []string{}
	}
	if r.Emotion == "" {
		r.Emotion = "neutral"
	}
	return r
}

// isQuotaError mirrors the provider's rate-limit markers.
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"quota", "429", "rate limit", "insufficient_quota"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
