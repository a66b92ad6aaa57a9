package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// ErrDevice marks unrecoverable audio device failures. A capture loop that
// returns an error wrapping ErrDevice cannot be restarted on the same source.
var ErrDevice = errors.New("audio device failure")

// Source is a blocking pull-based audio input. ReadChunk fills and returns one
// chunk worth of samples; it honors ctx cancellation between device reads.
type Source interface {
	ReadChunk(ctx context.Context) ([]float32, error)
	SampleRate() int
	Channels() int
	Close() error
}

// ChunkHandler consumes one captured chunk. It is invoked synchronously from
// the capture loop, so a slow handler stalls capture rather than losing audio.
type ChunkHandler func(Chunk) error

// CaptureLoop pulls fixed-duration chunks from a Source at the source's own
// pace, stamping each with a strictly increasing sequence number.
type CaptureLoop struct {
	source Source
	logger *slog.Logger

	sequence uint64
	captured atomic.Uint64
}

// NewCaptureLoop creates a capture loop over the given source.
func NewCaptureLoop(source Source, logger *slog.Logger) *CaptureLoop {
	return &CaptureLoop{
		source: source,
		logger: logger,
	}
}

// Run pulls chunks until ctx is cancelled or the source fails, invoking
// onChunk for every chunk read. A chunk already read from the source is always
// delivered before Run returns. Device failures are returned wrapping
// ErrDevice; handler errors are returned as-is.
func (l *CaptureLoop) Run(ctx context.Context, onChunk ChunkHandler) error {
	l.logger.Debug("capture loop started",
		slog.Int("sample_rate", l.source.SampleRate()),
	)

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("capture loop stopping",
				slog.Uint64("chunks_captured", l.captured.Load()),
			)
			return nil
		default:
		}

		samples, err := l.source.ReadChunk(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("%w: %v", ErrDevice, err)
		}

		l.sequence++
		l.captured.Add(1)
		chunk := Chunk{
			Samples:    samples,
			SampleRate: l.source.SampleRate(),
			Channels:   l.source.Channels(),
			CapturedAt: time.Now(),
			Sequence:   l.sequence,
		}

		if err := onChunk(chunk); err != nil {
			return fmt.Errorf("chunk handler: %w", err)
		}
	}
}

// Captured returns the number of chunks delivered so far.
func (l *CaptureLoop) Captured() uint64 {
	return l.captured.Load()
}
