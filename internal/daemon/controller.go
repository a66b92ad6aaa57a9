package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Oaklight/asr2clip/internal/audio"
	"github.com/Oaklight/asr2clip/internal/config"
	"github.com/Oaklight/asr2clip/internal/metrics"
	"github.com/Oaklight/asr2clip/internal/output"
	"github.com/Oaklight/asr2clip/internal/segment"
	"github.com/Oaklight/asr2clip/internal/transcription"
	"github.com/Oaklight/asr2clip/internal/vad"
)

// queueCapacity bounds pending segments; a full queue stalls capture
// rather than dropping audio.
const queueCapacity = 8

// flushTimeout bounds how long shutdown waits to hand the final segment
// to the consumer.
const flushTimeout = 5 * time.Second

// Transcriber converts a speech segment into text.
type Transcriber interface {
	Transcribe(ctx context.Context, seg *segment.Segment) (*transcription.Result, error)
}

// Controller owns the capture pipeline: microphone chunks flow through
// voice classification and segmentation on the producer side, and closed
// segments flow through transcription and output delivery on the consumer
// side. The two sides meet at a bounded queue.
type Controller struct {
	cfg    *config.Config
	logger *slog.Logger

	source     audio.Source
	capture    *audio.CaptureLoop
	estimator  *vad.NoiseEstimator
	classifier *vad.Classifier
	segmenter  *segment.Segmenter
	queue      *segment.Queue

	transcriber Transcriber
	sink        output.Sink
	metrics     *metrics.Metrics

	minSpeech time.Duration

	runCtx context.Context

	// Snapshot fields for Stats. The pipeline components are
	// single-threaded; the HTTP server reads only this snapshot.
	mu             sync.Mutex
	chunksTotal    uint64
	chunksVoice    uint64
	noiseFloor     float64
	threshold      float64
	segmentsClosed uint64
	transcribed    uint64
	skipped        uint64
	failed         uint64
}

// Stats is a snapshot of pipeline counters for the status API.
type Stats struct {
	ChunksCaptured      uint64  `json:"chunks_captured"`
	VoiceChunks         uint64  `json:"voice_chunks"`
	NoiseFloor          float64 `json:"noise_floor"`
	Threshold           float64 `json:"threshold"`
	SegmentsClosed      uint64  `json:"segments_closed"`
	SegmentsPending     int     `json:"segments_pending"`
	SegmentsTranscribed uint64  `json:"segments_transcribed"`
	SegmentsSkipped     uint64  `json:"segments_skipped"`
	SegmentsFailed      uint64  `json:"segments_failed"`
}

// New wires a controller from its parts. The metrics argument may be nil.
func New(cfg *config.Config, source audio.Source, transcriber Transcriber, sink output.Sink, logger *slog.Logger, m *metrics.Metrics) (*Controller, error) {
	var estimator *vad.NoiseEstimator
	switch cfg.VAD.ThresholdMode {
	case "fixed":
		estimator = vad.NewFixedEstimator(cfg.VAD.FixedThreshold)
	default:
		estimator = vad.NewAdaptiveEstimator(cfg.VAD.AdaptiveMultiplier)
	}

	segmenter, err := segment.NewSegmenter(segment.Config{
		ChunkDuration:   cfg.Audio.GetChunkDuration(),
		SilenceDuration: cfg.VAD.GetSilenceDuration(),
		MaxInterval:     cfg.VAD.GetMaxInterval(),
		IntervalOnly:    !cfg.VAD.Enabled,
	})
	if err != nil {
		return nil, err
	}

	return &Controller{
		cfg:         cfg,
		logger:      logger,
		source:      source,
		capture:     audio.NewCaptureLoop(source, logger),
		estimator:   estimator,
		classifier:  vad.NewClassifier(estimator),
		segmenter:   segmenter,
		queue:       segment.NewQueue(queueCapacity),
		transcriber: transcriber,
		sink:        sink,
		metrics:     m,
		minSpeech:   cfg.VAD.GetMinSpeechDuration(),
	}, nil
}

// Run operates the daemon until the context is cancelled or the audio
// device fails. On cancellation the open segment is flushed and every
// pending segment is still transcribed before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	if c.cfg.VAD.Enabled && c.estimator.Mode() != vad.ModeFixed && c.cfg.VAD.CalibrationChunks > 0 {
		if err := c.calibrate(ctx); err != nil {
			return err
		}
	}

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		c.consumeLoop()
	}()

	c.runCtx = ctx
	runErr := c.capture.Run(ctx, c.handleChunk)
	if runErr != nil {
		c.logger.Error("Capture loop failed", slog.String("error", runErr.Error()))
	}

	// Hand the in-flight segment over before closing the queue, so a
	// recording cut off by shutdown is still transcribed.
	if seg := c.segmenter.Flush(); seg != nil {
		c.recordClosed(seg)
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if err := c.queue.Push(flushCtx, seg); err != nil {
			c.logger.Warn("Dropped final segment on shutdown", slog.String("error", err.Error()))
		}
		cancel()
	}

	c.queue.Close()
	<-consumerDone

	return runErr
}

// RunOnce records a single segment, until the context is cancelled or the
// duration elapses, and runs it through the same transcription and output
// path as daemon mode.
func (c *Controller) RunOnce(ctx context.Context, duration time.Duration) error {
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	c.logger.Info("Recording", slog.Duration("duration", duration))

	// Single-shot mode records everything: no voice gating, one segment.
	seg := &segment.Segment{TriggerReason: segment.ReasonManualStop}
	err := c.capture.Run(ctx, func(chunk audio.Chunk) error {
		c.metrics.RecordChunk(true)
		if seg.StartedAt.IsZero() {
			seg.StartedAt = chunk.CapturedAt
		}
		seg.ClosedAt = chunk.CapturedAt
		seg.Chunks = append(seg.Chunks, chunk)
		return nil
	})
	if err != nil {
		return err
	}

	if len(seg.Chunks) == 0 {
		return fmt.Errorf("no audio captured")
	}
	c.recordClosed(seg)

	// An explicitly requested recording is never length-gated.
	return c.consume(seg, false)
}

// handleChunk is the producer path: classify, segment, enqueue.
func (c *Controller) handleChunk(chunk audio.Chunk) error {
	cc := c.classifier.Classify(chunk)
	c.metrics.RecordChunk(cc.IsVoice)
	c.metrics.RecordThreshold(c.estimator.NoiseFloor(), c.estimator.Threshold())

	seg := c.segmenter.Process(cc)
	c.snapshotPipeline()
	if seg == nil {
		return nil
	}

	c.recordClosed(seg)
	if err := c.queue.Push(c.runCtx, seg); err != nil {
		if !errors.Is(err, context.Canceled) {
			return fmt.Errorf("failed leaving segment for transcription: %w", err)
		}

		// A segment closed by the chunk that raced cancellation is
		// still handed over, same grace window as the shutdown flush.
		pushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := c.queue.Push(pushCtx, seg); err != nil {
			c.logger.Warn("Dropped segment on shutdown", slog.Int("chunks", len(seg.Chunks)))
		}
		return nil
	}
	c.metrics.RecordQueueDepth(c.queue.Len())
	return nil
}

// snapshotPipeline copies producer-side counters under the lock so Stats
// can be served from another goroutine.
func (c *Controller) snapshotPipeline() {
	total, voice := c.classifier.Stats()
	floor := c.estimator.NoiseFloor()
	threshold := c.estimator.Threshold()
	closed := c.segmenter.SegmentsClosed()

	c.mu.Lock()
	c.chunksTotal = total
	c.chunksVoice = voice
	c.noiseFloor = floor
	c.threshold = threshold
	c.segmentsClosed = closed
	c.mu.Unlock()
}

func (c *Controller) recordClosed(seg *segment.Segment) {
	c.logger.Info("Segment closed",
		slog.String("trigger", seg.TriggerReason.String()),
		slog.Int("chunks", len(seg.Chunks)),
		slog.Duration("audio", seg.Duration()),
	)
	c.metrics.RecordSegment(seg.TriggerReason.String(), seg.Duration())
}

// consumeLoop drains the queue until it is closed and empty. It keeps
// running through cancellation so pending segments are not lost.
func (c *Controller) consumeLoop() {
	for {
		seg, err := c.queue.Pop(context.Background())
		if err != nil {
			if !errors.Is(err, segment.ErrQueueClosed) {
				c.logger.Error("Queue receive failed", slog.String("error", err.Error()))
			}
			return
		}
		c.metrics.RecordQueueDepth(c.queue.Len())

		if err := c.consume(seg, true); err != nil {
			c.logger.Warn("Segment processing failed",
				slog.String("trigger", seg.TriggerReason.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// consume transcribes one segment and delivers the transcript. Segments
// from calibration are dropped here; enforceMinSpeech additionally drops
// segments below the speech length floor.
func (c *Controller) consume(seg *segment.Segment, enforceMinSpeech bool) error {
	if seg.TriggerReason == segment.ReasonCalibrationEnd {
		c.logger.Debug("Discarding calibration segment", slog.Duration("audio", seg.Duration()))
		return nil
	}

	if enforceMinSpeech && c.minSpeech > 0 && seg.Duration() < c.minSpeech {
		c.logger.Debug("Skipping short segment",
			slog.Duration("audio", seg.Duration()),
			slog.Duration("min_speech", c.minSpeech),
		)
		c.addSkipped()
		return nil
	}

	start := time.Now()
	result, err := c.transcriber.Transcribe(context.Background(), seg)
	if err != nil {
		c.metrics.RecordTranscription(false, time.Since(start))
		c.addFailed()
		return fmt.Errorf("transcription: %w", err)
	}
	c.metrics.RecordTranscription(true, time.Since(start))

	if result.Text == "" {
		c.logger.Debug("Empty transcript", slog.Duration("audio", seg.Duration()))
		c.addSkipped()
		return nil
	}

	c.logger.Info("Transcript ready",
		slog.Duration("audio", seg.Duration()),
		slog.Int("characters", len(result.Text)),
	)

	span := output.TimeRange{Start: seg.StartedAt, End: seg.ClosedAt}
	if err := c.sink.Write(result.Text, span); err != nil {
		c.addFailed()
		return fmt.Errorf("output: %w", err)
	}

	c.addTranscribed()
	return nil
}

// calibrate samples ambient noise before capture starts. The sampled
// chunks form a calibration segment that is logged and discarded, never
// transcribed.
func (c *Controller) calibrate(ctx context.Context) error {
	n := c.cfg.VAD.CalibrationChunks
	c.logger.Info("Calibrating noise floor", slog.Int("chunks", n))

	seg := &segment.Segment{TriggerReason: segment.ReasonCalibrationEnd}

	threshold, err := c.estimator.Calibrate(ctx, n, func(ctx context.Context) (float64, error) {
		samples, err := c.source.ReadChunk(ctx)
		if err != nil {
			return 0, err
		}

		chunk := audio.Chunk{
			Samples:    samples,
			SampleRate: c.source.SampleRate(),
			Channels:   c.source.Channels(),
			CapturedAt: time.Now(),
		}
		if seg.StartedAt.IsZero() {
			seg.StartedAt = chunk.CapturedAt
		}
		seg.ClosedAt = chunk.CapturedAt
		seg.Chunks = append(seg.Chunks, chunk)

		return chunk.RMS(), nil
	})
	if err != nil {
		return fmt.Errorf("calibration: %w", err)
	}

	c.recordClosed(seg)
	// The consumer discards it once it starts; the sample is never
	// transcribed.
	if err := c.queue.Push(ctx, seg); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}

	c.metrics.RecordThreshold(c.estimator.NoiseFloor(), threshold)
	c.logger.Info("Calibration complete",
		slog.Float64("noise_floor", c.estimator.NoiseFloor()),
		slog.Float64("threshold", threshold),
	)
	return nil
}

// Stats returns a snapshot of pipeline counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		ChunksCaptured:      c.chunksTotal,
		VoiceChunks:         c.chunksVoice,
		NoiseFloor:          c.noiseFloor,
		Threshold:           c.threshold,
		SegmentsClosed:      c.segmentsClosed,
		SegmentsPending:     c.queue.Len(),
		SegmentsTranscribed: c.transcribed,
		SegmentsSkipped:     c.skipped,
		SegmentsFailed:      c.failed,
	}
}

func (c *Controller) addTranscribed() {
	c.mu.Lock()
	c.transcribed++
	c.mu.Unlock()
}

func (c *Controller) addSkipped() {
	c.mu.Lock()
	c.skipped++
	c.mu.Unlock()
}

func (c *Controller) addFailed() {
	c.mu.Lock()
	c.failed++
	c.mu.Unlock()
}
