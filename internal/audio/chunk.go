package audio

import (
	"math"
	"time"
)

// Chunk is one fixed-duration slice of captured audio. It is created by the
// capture loop and never mutated afterwards; downstream consumers copy its
// samples when they need to retain them.
type Chunk struct {
	Samples    []float32 // mono PCM, range [-1, 1]
	SampleRate int
	Channels   int
	CapturedAt time.Time
	Sequence   uint64 // strictly increasing, assigned by the capture loop
}

// Duration returns the chunk length as wall-clock time.
func (c Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// RMS returns the root-mean-square amplitude of the chunk.
func (c Chunk) RMS() float64 {
	return RMS(c.Samples)
}

// RMS computes the root-mean-square amplitude of a sample slice.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
