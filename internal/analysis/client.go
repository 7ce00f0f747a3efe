package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RequestTimeout is the fixed budget for one analysis call. A call that
// exceeds it is reported as KindTimeout and never retried automatically.
const RequestTimeout = 15 * time.Second

// Kind classifies analyzer failures.
type Kind int

const (
	KindTimeout Kind = iota + 1
	KindQuota
	KindBackend
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindQuota:
		return "quota_exceeded"
	case KindBackend:
		return "backend"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is a classified analyzer failure. Detail carries provider text when
// the backend supplied any.
type Error struct {
	Kind   Kind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("analysis %s: %s", e.Kind, e.Detail)
	}
	if e.cause != nil {
		return fmt.Sprintf("analysis %s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("analysis %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// Result is the analyzer output. Keywords preserve insertion order for
// display.
type Result struct {
	Sentiment  float64
	Keywords   []string
	Emotion    string
	ReceivedAt time.Time
}

// Client calls the sentiment analysis endpoint.
type Client struct {
	HTTPClient *http.Client
	URL        string
}

func NewClient(url string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: RequestTimeout},
		URL:        url,
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

// Pointer fields so absent values fall back to their defaults.
type analyzeResponse struct {
	Sentiment *float64 `json:"sentiment"`
	Keywords  []string `json:"keywords"`
	Emotion   string   `json:"emotion"`
}

type errorBody struct {
	Detail    string `json:"detail"`
	ErrorKind string `json:"error_kind"`
}

// Analyze posts the text and returns a Result. Failures come back as *Error
// with a Kind; missing response fields get neutral defaults and sentiment is
// clamped to [0,1].
func (c *Client) Analyze(ctx context.Context, text string) (Result, error) {
	body, _ := json.Marshal(analyzeRequest{Text: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, &Error{Kind: KindNetwork, cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return Result{}, &Error{Kind: KindTimeout, cause: err}
		}
		return Result{}, &Error{Kind: KindNetwork, cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		detail := eb.Detail
		if detail == "" {
			detail = strings.TrimSpace(string(raw))
		}
		if eb.ErrorKind == "quota" || resp.StatusCode == http.StatusTooManyRequests || looksLikeQuota(detail) {
			return Result{}, &Error{Kind: KindQuota, Detail: detail}
		}
		return Result{}, &Error{Kind: KindBackend, Detail: fmt.Sprintf("status=%d %s", resp.StatusCode, detail)}
	}

	var ar analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return Result{}, &Error{Kind: KindBackend, Detail: "unparseable response", cause: err}
	}

	res := Result{
		Sentiment:  0.5,
		Keywords:   ar.Keywords,
		Emotion:    ar.Emotion,
		ReceivedAt: time.Now(),
	}
	if ar.Sentiment != nil {
		res.Sentiment = clamp01(*ar.Sentiment)
	}
	if res.Emotion == "" {
		res.Emotion = "neutral"
	}
	if res.Keywords == nil {
		res.Keywords = []string{}
	}
	return res, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// looksLikeQuota is the fallback for backends that do not send a structured
// error_kind.
func looksLikeQuota(detail string) bool {
	d := strings.ToLower(detail)
	for _, marker := range []string{"quota", "rate limit", "insufficient_quota", "429"} {
		if strings.Contains(d, marker) {
			return true
		}
	}
	return false
}
