package segment

import (
	"fmt"
	"time"

	"github.com/Oaklight/asr2clip/internal/audio"
	"github.com/Oaklight/asr2clip/internal/vad"
)

// State is the segmenter's position in the voice-activity state machine.
type State int

const (
	// StateIdle has no open segment; silence chunks are discarded.
	StateIdle State = iota
	// StateListening is accumulating chunks into an open segment.
	StateListening
	// StateSilence keeps the segment open while counting consecutive silence.
	StateSilence
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateSilence:
		return "silence"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config contains segmentation parameters. All durations are measured in
// chunk counts internally, so behavior is deterministic for a given chunk
// sequence regardless of scheduling.
type Config struct {
	ChunkDuration   time.Duration
	SilenceDuration time.Duration
	MaxInterval     time.Duration // 0 disables the length cap
	IntervalOnly    bool          // degenerate mode: no VAD, close purely on MaxInterval
}

// Validate rejects inconsistent segmentation parameters.
func (c Config) Validate() error {
	if c.ChunkDuration <= 0 {
		return fmt.Errorf("chunk duration must be positive, got %v", c.ChunkDuration)
	}

	if c.IntervalOnly {
		if c.MaxInterval <= 0 {
			return fmt.Errorf("interval-only mode requires a positive max interval, got %v", c.MaxInterval)
		}
		return nil
	}

	if c.SilenceDuration <= 0 {
		return fmt.Errorf("silence duration must be positive, got %v", c.SilenceDuration)
	}

	if c.MaxInterval < 0 {
		return fmt.Errorf("max interval cannot be negative, got %v", c.MaxInterval)
	}

	return nil
}

// Segmenter aggregates classified chunks into segments. It runs on the
// producer's single line of execution; no method is safe for concurrent use.
type Segmenter struct {
	cfg Config

	state      State
	current    *Segment
	silenceRun int // consecutive silence chunks while a segment is open

	segmentsClosed uint64
}

// NewSegmenter creates a segmenter, validating the configuration.
func NewSegmenter(cfg Config) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("segmenter config: %w", err)
	}

	return &Segmenter{cfg: cfg}, nil
}

// State returns the current machine state. Interval-only mode reports Idle
// when no segment is open and Listening otherwise.
func (s *Segmenter) State() State {
	return s.state
}

// SegmentsClosed returns how many segments have closed so far.
func (s *Segmenter) SegmentsClosed() uint64 {
	return s.segmentsClosed
}

// Process consumes one classified chunk and returns the segment it closed,
// or nil. A chunk that arrives after the max interval has elapsed closes the
// open segment first and is then re-evaluated against the fresh Idle state,
// so one chunk can close a segment and open the next in the same call.
func (s *Segmenter) Process(cc vad.ClassifiedChunk) *Segment {
	if s.cfg.IntervalOnly {
		return s.processIntervalOnly(cc)
	}

	// Max-interval takes precedence over every other trigger.
	var closed *Segment
	if s.current != nil && s.intervalElapsed() {
		closed = s.close(ReasonMaxInterval)
	}

	switch s.state {
	case StateIdle:
		if cc.IsVoice {
			s.open(cc)
			s.state = StateListening
		}

	case StateListening:
		s.append(cc)
		if cc.IsVoice {
			s.silenceRun = 0
		} else {
			s.silenceRun = 1
			s.state = StateSilence
			if t := s.silenceTimedOut(); t != nil {
				return t
			}
		}

	case StateSilence:
		s.append(cc)
		if cc.IsVoice {
			s.silenceRun = 0
			s.state = StateListening
		} else {
			s.silenceRun++
			if t := s.silenceTimedOut(); t != nil {
				return t
			}
		}
	}

	return closed
}

// processIntervalOnly accumulates every chunk, voice or not, and closes
// purely on elapsed interval.
func (s *Segmenter) processIntervalOnly(cc vad.ClassifiedChunk) *Segment {
	if s.current == nil {
		s.open(cc)
		s.state = StateListening
	} else {
		s.append(cc)
	}

	if s.intervalElapsed() {
		return s.close(ReasonMaxInterval)
	}
	return nil
}

// Flush closes any open segment with ManualStop, regardless of how little
// silence has elapsed. Returns nil when idle.
func (s *Segmenter) Flush() *Segment {
	if s.current == nil {
		return nil
	}
	return s.close(ReasonManualStop)
}

func (s *Segmenter) open(cc vad.ClassifiedChunk) {
	s.current = &Segment{
		StartedAt: cc.Chunk.CapturedAt,
		Chunks:    []audio.Chunk{cc.Chunk},
	}
	s.silenceRun = 0
}

func (s *Segmenter) append(cc vad.ClassifiedChunk) {
	s.current.Chunks = append(s.current.Chunks, cc.Chunk)
}

func (s *Segmenter) close(reason Reason) *Segment {
	seg := s.current
	seg.TriggerReason = reason
	if n := len(seg.Chunks); n > 0 {
		seg.ClosedAt = seg.Chunks[n-1].CapturedAt
	}

	s.current = nil
	s.silenceRun = 0
	s.state = StateIdle
	s.segmentsClosed++

	return seg
}

// intervalElapsed reports whether the open segment has reached the length
// cap, measured in accumulated chunk durations.
func (s *Segmenter) intervalElapsed() bool {
	if s.cfg.MaxInterval <= 0 {
		return false
	}
	return time.Duration(len(s.current.Chunks))*s.cfg.ChunkDuration >= s.cfg.MaxInterval
}

// silenceTimedOut closes the segment once accumulated silence strictly
// exceeds the configured duration: the trigger fires on the chunk after the
// threshold is reached, so that chunk is included in the segment.
func (s *Segmenter) silenceTimedOut() *Segment {
	if time.Duration(s.silenceRun)*s.cfg.ChunkDuration > s.cfg.SilenceDuration {
		return s.close(ReasonSilenceTimeout)
	}
	return nil
}
