package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Chat exchange metrics
	activeExchanges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atom_console_active_exchanges",
		Help: "Number of chat exchanges currently in flight",
	})

	exchangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atom_console_exchanges_total",
		Help: "Total number of chat exchanges by outcome",
	}, []string{"transport", "outcome"}) // transport: "streaming" or "json"; outcome: "done" or "failed"

	exchangeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "atom_console_exchange_duration_seconds",
		Help:    "Duration of chat exchanges in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	streamRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atom_console_stream_records_total",
		Help: "Decoded stream records by kind",
	}, []string{"kind"}) // kind: text, audio, done, error, malformed

	// Speech synthesis metrics
	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atom_console_synthesis_requests_total",
		Help: "Total number of speech synthesis requests",
	}, []string{"status"})

	synthesisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "atom_console_synthesis_latency_seconds",
		Help:    "Speech synthesis latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	speechQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "atom_console_speech_queue_depth",
		Help: "Number of utterances waiting in the playback queue",
	})

	playbackSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atom_console_playback_seconds_total",
		Help: "Total seconds spent playing synthesized audio",
	})

	// Transcription metrics
	transcriptionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atom_console_transcription_requests_total",
		Help: "Total number of speech-to-text requests",
	}, []string{"status"})

	transcriptionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "atom_console_transcription_latency_seconds",
		Help:    "Speech-to-text latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Capture metrics
	captureRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atom_console_capture_rejections_total",
		Help: "Recordings rejected before transcription",
	}, []string{"reason"}) // reason: undersized, device

	captureBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atom_console_capture_bytes_total",
		Help: "Total recorded audio bytes accepted for transcription",
	})

	// Speech event channel metrics
	speechEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atom_console_speech_events_total",
		Help: "Server-pushed speech events by type",
	}, []string{"type"}) // type: speak, silence, malformed

	eventChannelReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atom_console_event_channel_reconnects_total",
		Help: "Reconnection attempts for the speech event channel",
	})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "atom_console_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})
)

// ExchangeMetrics tracks metrics for a single chat exchange.
type ExchangeMetrics struct {
	startTime      time.Time
	synthesisStart time.Time
	mu             sync.Mutex
}

// NewExchangeMetrics starts tracking a chat exchange.
func NewExchangeMetrics() *ExchangeMetrics {
	activeExchanges.Inc()
	return &ExchangeMetrics{startTime: time.Now()}
}

// RecordOutcome records the terminal state of the exchange.
func (m *ExchangeMetrics) RecordOutcome(transport string, failed bool) {
	activeExchanges.Dec()
	exchangeDuration.Observe(time.Since(m.startTime).Seconds())

	outcome := "done"
	if failed {
		outcome = "failed"
	}
	exchangesTotal.WithLabelValues(transport, outcome).Inc()
}

// RecordStreamRecord counts one decoded stream record of the given kind.
func RecordStreamRecord(kind string) {
	streamRecords.WithLabelValues(kind).Inc()
}

// RecordSynthesis records one synthesis request and its latency.
func RecordSynthesis(start time.Time, success bool) {
	synthesisLatency.Observe(time.Since(start).Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	synthesisRequests.WithLabelValues(status).Inc()
}

// SetSpeechQueueDepth updates the playback queue depth gauge.
func SetSpeechQueueDepth(depth int) {
	speechQueueDepth.Set(float64(depth))
}

// RecordPlayback adds played audio wall time.
func RecordPlayback(d time.Duration) {
	playbackSeconds.Add(d.Seconds())
}

// RecordTranscription records one speech-to-text request and its latency.
func RecordTranscription(start time.Time, success bool) {
	transcriptionLatency.Observe(time.Since(start).Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	transcriptionRequests.WithLabelValues(status).Inc()
}

// RecordCaptureRejection counts a recording that never reached transcription.
func RecordCaptureRejection(reason string) {
	captureRejections.WithLabelValues(reason).Inc()
}

// RecordCaptureBytes counts accepted recording bytes.
func RecordCaptureBytes(n int) {
	captureBytes.Add(float64(n))
}

// RecordSpeechEvent counts one server-pushed speech event.
func RecordSpeechEvent(eventType string) {
	speechEvents.WithLabelValues(eventType).Inc()
}

// RecordEventChannelReconnect counts one reconnection attempt.
func RecordEventChannelReconnect() {
	eventChannelReconnects.Inc()
}

// UpdateCircuitBreakerState updates the circuit breaker state gauge.
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}
