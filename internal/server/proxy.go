package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/auralabs/sentiment-aura/internal/config"
	"github.com/auralabs/sentiment-aura/internal/metrics"
)

// deepgramURL carries the audio contract: linear16 PCM, 16 kHz, mono, with
// interim results on.
const deepgramURL = "wss://api.deepgram.com/v1/listen?model=nova-2&language=en-US&smart_format=true&interim_results=true&encoding=linear16&sample_rate=16000&channels=1"

// Server is the backend proxy: sentiment analysis over HTTP and a duplex
// websocket relay to the transcription provider.
type Server struct {
	cfg      config.Config
	metrics  *metrics.Metrics
	openai   *openAIClient
	upgrader websocket.Upgrader

	// dialUpstream is swapped in tests.
	dialUpstream func() (*websocket.Conn, error)

	Echo *echo.Echo
}

// New builds the configured Echo application.
func New(cfg config.Config, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:      cfg,
		metrics:  m,
		openai:   newOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModelID),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	s.dialUpstream = s.dialDeepgram

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/healthz", s.handleHealth)
	e.POST("/process_text", s.handleProcessText)
	e.GET("/ws/deepgram", s.handleTranscribe)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.Echo = e
	return s
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

type textRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// handleProcessText analyzes text with the upstream model, falling back to
// the heuristic analyzer on timeout, quota exhaustion, or any other upstream
// failure. Prior behavior is degraded, never broken.
func (s *Server) handleProcessText(c echo.Context) error {
	var req textRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Detail: "Text cannot be empty"})
	}

	s.metrics.AnalysisRequests.Inc()
	started := time.Now()
	defer func() {
		s.metrics.AnalysisDuration.Observe(time.Since(started).Seconds())
	}()

	if s.openai.APIKey == "" {
		s.metrics.AnalysisFallback.Inc()
		return c.JSON(http.StatusOK, FallbackAnalyze(text))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), upstreamTimeout)
	defer cancel()
	content, err := s.openai.Generate(ctx, analysisPromptFor(text))
	if err != nil {
		s.metrics.AnalysisFailures.Inc()
		if isQuotaError(err) {
			log.Printf("analysis: upstream quota exceeded, using fallback")
		} else {
			log.Printf("analysis: upstream failed, using fallback: %v", err)
		}
		s.metrics.AnalysisFallback.Inc()
		return c.JSON(http.StatusOK, FallbackAnalyze(text))
	}

	result, err := extractAnalysis(content)
	if err != nil {
		s.metrics.AnalysisFailures.Inc()
		log.Printf("analysis: unparseable model reply, using fallback: %v", err)
		s.metrics.AnalysisFallback.Inc()
		return c.JSON(http.StatusOK, FallbackAnalyze(text))
	}
	return c.JSON(http.StatusOK, result)
}

func analysisPromptFor(text string) string {
	return fmt.Sprintf(analysisPrompt, text)
}

func (s *Server) dialDeepgram() (*websocket.Conn, error) {
	headers := http.Header{"Authorization": {"Token " + s.cfg.DeepgramKey}}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(deepgramURL, headers)
	if err != nil && resp != nil {
		log.Printf("proxy: upstream dial failed with status %d", resp.StatusCode)
	}
	return conn, err
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func writeErrorFrame(conn *websocket.Conn, message string) {
	raw, _ := json.Marshal(errorFrame{Type: "Error", Message: message})
	_ = conn.WriteMessage(websocket.TextMessage, raw)
}

// handleTranscribe relays a client's audio to the transcription upstream and
// its transcript events back, one upstream connection per client session.
func (s *Server) handleTranscribe(c echo.Context) error {
	client, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.DeepgramKey == "" {
		writeErrorFrame(client, "DEEPGRAM_API_KEY not configured on server")
		return nil
	}

	upstream, err := s.dialUpstream()
	if err != nil {
		writeErrorFrame(client, "transcription upstream unavailable: "+err.Error())
		return nil
	}
	defer upstream.Close()

	s.metrics.ProxySessions.Inc()
	defer s.metrics.ProxySessions.Dec()

	// Upstream → client.
	upstreamDone := make(chan struct{})
	go func() {
		defer close(upstreamDone)
		for {
			mt, raw, err := upstream.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					writeErrorFrame(client, "transcription upstream closed: "+err.Error())
				}
				return
			}
			if mt == websocket.TextMessage {
				s.countTranscriptEvent(raw)
			}
			if err := client.WriteMessage(mt, raw); err != nil {
				return
			}
		}
	}()

	// Client → upstream.
	for {
		mt, raw, err := client.ReadMessage()
		if err != nil {
			break
		}
		switch mt {
		case websocket.BinaryMessage:
			s.metrics.AudioBytesRelayed.Add(float64(len(raw)))
		case websocket.TextMessage:
			// Control/metadata passthrough.
		default:
			continue
		}
		if err := upstream.WriteMessage(mt, raw); err != nil {
			break
		}
	}

	_ = upstream.Close()
	<-upstreamDone
	return nil
}

func (s *Server) countTranscriptEvent(raw []byte) {
	var evt struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &evt); err != nil || evt.Type == "" {
		s.metrics.TranscriptEvents.WithLabelValues("unknown").Inc()
		return
	}
	s.metrics.TranscriptEvents.WithLabelValues(evt.Type).Inc()
}
