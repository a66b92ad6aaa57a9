package segment

import (
	"fmt"
	"time"

	"github.com/Oaklight/asr2clip/internal/audio"
)

// Reason records which trigger closed a segment.
type Reason int

const (
	// ReasonSilenceTimeout closes a segment after sustained silence follows speech.
	ReasonSilenceTimeout Reason = iota
	// ReasonMaxInterval closes a segment that has reached the configured length cap.
	ReasonMaxInterval
	// ReasonManualStop closes the open segment during shutdown or single-shot stop.
	ReasonManualStop
	// ReasonCalibrationEnd marks the ambient noise sample taken at startup.
	ReasonCalibrationEnd
)

func (r Reason) String() string {
	switch r {
	case ReasonSilenceTimeout:
		return "silence_timeout"
	case ReasonMaxInterval:
		return "max_interval"
	case ReasonManualStop:
		return "manual_stop"
	case ReasonCalibrationEnd:
		return "calibration_end"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Segment is a contiguous run of captured audio bounded by open/close
// triggers. It is mutable while the segmenter owns it and must be treated as
// immutable once handed to the queue.
type Segment struct {
	StartedAt     time.Time
	ClosedAt      time.Time
	Chunks        []audio.Chunk
	TriggerReason Reason
}

// Duration returns the audio length of the segment, summed over its chunks.
func (s *Segment) Duration() time.Duration {
	var d time.Duration
	for _, c := range s.Chunks {
		d += c.Duration()
	}
	return d
}

// SampleRate returns the segment's sample rate, taken from its first chunk.
func (s *Segment) SampleRate() int {
	if len(s.Chunks) == 0 {
		return 0
	}
	return s.Chunks[0].SampleRate
}

// Samples returns a flattened copy of all chunk samples in arrival order.
func (s *Segment) Samples() []float32 {
	n := 0
	for _, c := range s.Chunks {
		n += len(c.Samples)
	}

	out := make([]float32, 0, n)
	for _, c := range s.Chunks {
		out = append(out, c.Samples...)
	}
	return out
}
