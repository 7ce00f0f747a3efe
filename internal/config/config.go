package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration for both the client pipeline and
// the proxy server.
type Config struct {
	// BackendURL is the single base URL everything else derives from,
	// e.g. http://localhost:8000.
	BackendURL string

	// Server-side settings (cmd/server only).
	HTTPAddress   string
	DeepgramKey   string
	OpenAIKey     string
	OpenAIModelID string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file")
	}

	backend := os.Getenv("AURA_BACKEND_URL")
	if backend == "" {
		backend = "http://localhost:8000"
	}
	backend = strings.TrimRight(backend, "/")

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8000"
	}

	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	if deepgramKey == "" {
		log.Println("Warning: DEEPGRAM_API_KEY not set - transcription proxy will not work")
	}

	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - analysis falls back to heuristics")
	}

	openaiModel := os.Getenv("OPENAI_MODEL_ID")
	if openaiModel == "" {
		openaiModel = "gpt-3.5-turbo"
	}

	log.Printf("config: AURA_BACKEND_URL=%s HTTP_ADDRESS=%s", backend, addr)
	return Config{
		BackendURL:    backend,
		HTTPAddress:   addr,
		DeepgramKey:   deepgramKey,
		OpenAIKey:     openaiKey,
		OpenAIModelID: openaiModel,
	}
}

// AnalyzeURL returns the HTTP endpoint for sentiment analysis.
func (c Config) AnalyzeURL() string {
	return c.BackendURL + "/process_text"
}

// TranscribeURL returns the websocket endpoint for the transcription proxy,
// derived from the backend URL by scheme substitution (http→ws, https→wss).
func (c Config) TranscribeURL() string {
	base := c.BackendURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/deepgram"
}
