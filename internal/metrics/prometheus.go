// Package metrics defines the Prometheus instrumentation for the capture
// pipeline. All metrics carry the asr2clip_ prefix and register against the
// default registry, so NewMetrics must be called at most once per process.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the capture daemon.
type Metrics struct {
	// Capture metrics
	ChunksCaptured prometheus.Counter
	VoiceChunks    prometheus.Counter
	NoiseFloor     prometheus.Gauge
	Threshold      prometheus.Gauge

	// Segmentation metrics
	SegmentsClosed  *prometheus.CounterVec
	SegmentDuration prometheus.Histogram
	QueueDepth      prometheus.Gauge

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionRetries   prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// Output metrics
	OutputFailures *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		ChunksCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr2clip_chunks_captured_total",
			Help: "Total number of audio chunks captured",
		}),
		VoiceChunks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr2clip_voice_chunks_total",
			Help: "Total number of chunks classified as voice",
		}),
		NoiseFloor: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "asr2clip_noise_floor",
			Help: "Current adaptive noise floor estimate (RMS)",
		}),
		Threshold: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "asr2clip_voice_threshold",
			Help: "Current effective voice detection threshold (RMS)",
		}),

		SegmentsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr2clip_segments_closed_total",
			Help: "Total number of speech segments closed, by trigger reason",
		}, []string{"reason"}),
		SegmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr2clip_segment_duration_seconds",
			Help:    "Audio duration of closed speech segments",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s to ~2 minutes
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "asr2clip_segment_queue_depth",
			Help: "Current number of segments waiting for transcription",
		}),

		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr2clip_transcription_requests_total",
			Help: "Total number of transcription requests started",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr2clip_transcription_successes_total",
			Help: "Total number of successful transcriptions",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr2clip_transcription_failures_total",
			Help: "Total number of transcriptions that failed after retries",
		}),
		TranscriptionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asr2clip_transcription_retries_total",
			Help: "Total number of transcription retry attempts",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr2clip_transcription_duration_seconds",
			Help:    "End-to-end transcription request duration",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		OutputFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr2clip_output_failures_total",
			Help: "Total number of transcript delivery failures, by sink",
		}, []string{"sink"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "asr2clip_http_requests_total",
			Help: "Total number of HTTP API requests",
		}, []string{"endpoint", "method", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asr2clip_http_request_duration_seconds",
			Help:    "HTTP API request duration",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
		}, []string{"endpoint", "method"}),
	}
}

// RecordChunk records one captured chunk and its classification.
func (m *Metrics) RecordChunk(voice bool) {
	if m == nil {
		return
	}
	m.ChunksCaptured.Inc()
	if voice {
		m.VoiceChunks.Inc()
	}
}

// RecordThreshold updates the noise floor and effective threshold gauges.
func (m *Metrics) RecordThreshold(floor, threshold float64) {
	if m == nil {
		return
	}
	m.NoiseFloor.Set(floor)
	m.Threshold.Set(threshold)
}

// RecordSegment records a closed segment.
func (m *Metrics) RecordSegment(reason string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SegmentsClosed.WithLabelValues(reason).Inc()
	m.SegmentDuration.Observe(duration.Seconds())
}

// RecordQueueDepth updates the pending segment gauge.
func (m *Metrics) RecordQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// RecordTranscription records one finished transcription attempt chain.
func (m *Metrics) RecordTranscription(success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TranscriptionRequests.Inc()
	if success {
		m.TranscriptionSuccesses.Inc()
		m.TranscriptionDuration.Observe(elapsed.Seconds())
	} else {
		m.TranscriptionFailures.Inc()
	}
}

// RecordOutputFailure records a failed transcript delivery.
func (m *Metrics) RecordOutputFailure(sink string) {
	if m == nil {
		return
	}
	m.OutputFailures.WithLabelValues(sink).Inc()
}

// RecordHTTPRequest records one HTTP API request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(endpoint, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(endpoint, method).Observe(seconds)
}
