package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the proxy.
type Metrics struct {
	ProxySessions     prometheus.Gauge
	AudioBytesRelayed prometheus.Counter
	TranscriptEvents  *prometheus.CounterVec

	AnalysisRequests prometheus.Counter
	AnalysisFallback prometheus.Counter
	AnalysisFailures prometheus.Counter
	AnalysisDuration prometheus.Histogram
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests pass a fresh
// registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProxySessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aura_proxy_sessions",
			Help: "Current number of live transcription proxy sessions",
		}),
		AudioBytesRelayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "aura_audio_bytes_relayed_total",
			Help: "Total audio bytes forwarded to the transcription upstream",
		}),
		TranscriptEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aura_transcript_events_total",
			Help: "Transcript events relayed to clients, by upstream message type",
		}, []string{"type"}),
		AnalysisRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "aura_analysis_requests_total",
			Help: "Total sentiment analysis requests received",
		}),
		AnalysisFallback: factory.NewCounter(prometheus.CounterOpts{
			Name: "aura_analysis_fallback_total",
			Help: "Analysis requests served by the heuristic fallback",
		}),
		AnalysisFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "aura_analysis_failures_total",
			Help: "Analysis requests that failed outright",
		}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aura_analysis_duration_seconds",
			Help:    "Duration of analysis requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}
