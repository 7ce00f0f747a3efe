package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/auralabs/sentiment-aura/internal/config"
	"github.com/auralabs/sentiment-aura/internal/metrics"
)

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	return New(cfg, metrics.NewWith(prometheus.NewRegistry()))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestProcessText_EmptyRejected(t *testing.T) {
	s := newTestServer(t, config.Config{})
	for _, body := range []string{`{"text":""}`, `{"text":"   "}`} {
		req := httptest.NewRequest(http.MethodPost, "/process_text", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		s.Echo.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
		var eb errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &eb); err != nil || eb.Detail == "" {
			t.Fatalf("expected detail in error body, got %q", rec.Body.String())
		}
	}
}

func TestProcessText_FallbackWithoutUpstreamKey(t *testing.T) {
	s := newTestServer(t, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/process_text",
		strings.NewReader(`{"text":"I love this wonderful day"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res SentimentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if res.Sentiment <= 0.5 {
		t.Fatalf("expected positive fallback sentiment, got %v", res.Sentiment)
	}
	if res.Emotion == "" {
		t.Fatalf("expected an emotion")
	}
}

func TestProcessText_UpstreamResultPassedThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"sentiment\":0.9,\"keywords\":[\"ship\"],\"emotion\":\"excited\"}"}}]}`))
	}))
	defer upstream.Close()

	s := newTestServer(t, config.Config{OpenAIKey: "key", OpenAIModelID: "model"})
	s.openai.Endpoint = upstream.URL

	req := httptest.NewRequest(http.MethodPost, "/process_text", strings.NewReader(`{"text":"we ship"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res SentimentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if res.Sentiment != 0.9 || res.Emotion != "excited" {
		t.Fatalf("upstream result mangled: %+v", res)
	}
}

func TestProcessText_QuotaFailureFallsBack(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
		_, _ = w.Write([]byte(`{"error":{"message":"insufficient_quota"}}`))
	}))
	defer upstream.Close()

	s := newTestServer(t, config.Config{OpenAIKey: "key", OpenAIModelID: "model"})
	s.openai.Endpoint = upstream.URL

	req := httptest.NewRequest(http.MethodPost, "/process_text", strings.NewReader(`{"text":"what a wonderful day"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("quota failure must degrade to fallback, got %d", rec.Code)
	}
	var res SentimentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if res.Sentiment <= 0.5 {
		t.Fatalf("fallback should still score the text, got %v", res.Sentiment)
	}
}

func TestExtractAnalysis_ToleratesSurroundingProse(t *testing.T) {
	content := `Sure! Here is the JSON: {"sentiment":0.3,"keywords":["rain"],"emotion":"sad"} hope that helps`
	res, err := extractAnalysis(content)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.Sentiment != 0.3 || res.Emotion != "sad" {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := extractAnalysis("no json here"); err == nil {
		t.Fatalf("expected error for missing JSON")
	}
}

func TestTranscribe_NoKeySendsErrorFrame(t *testing.T) {
	s := newTestServer(t, config.Config{})
	srv := httptest.NewServer(s.Echo)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/deepgram"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var frame errorFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != "Error" {
		t.Fatalf("expected Error frame, got %s", raw)
	}
}

func TestTranscribe_RelaysBothDirections(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotAudio := make(chan []byte, 1)
	fakeUpstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"Results","channel":{"alternatives":[{"transcript":"hi"}]},"is_final":true}`))
		for {
			mt, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.BinaryMessage {
				select {
				case gotAudio <- raw:
				default:
				}
			}
		}
	}))
	defer fakeUpstream.Close()

	s := newTestServer(t, config.Config{DeepgramKey: "key"})
	s.dialUpstream = func() (*websocket.Conn, error) {
		url := "ws" + strings.TrimPrefix(fakeUpstream.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		return conn, err
	}

	srv := httptest.NewServer(s.Echo)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/deepgram"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	// Transcript event relayed upstream→client.
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := client.ReadMessage()
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if !strings.Contains(string(raw), `"Results"`) {
		t.Fatalf("expected Results frame, got %s", raw)
	}

	// Audio relayed client→upstream.
	if err := client.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	select {
	case audio := <-gotAudio:
		if len(audio) != 3 {
			t.Fatalf("audio mangled: %v", audio)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("upstream never received audio")
	}
}
