package vad

import (
	"github.com/Oaklight/asr2clip/internal/audio"
)

// ClassifiedChunk pairs a captured chunk with its voice/silence decision.
// It is derived per chunk and never persisted past the segmenter.
type ClassifiedChunk struct {
	Chunk   audio.Chunk
	RMS     float64
	IsVoice bool
}

// Classifier tags chunks as voice or silence against the estimator's current
// threshold. Silence observations feed back into the estimator so the floor
// keeps adapting. Single-threaded by contract: the classifier runs on the
// capture path only.
type Classifier struct {
	estimator *NoiseEstimator

	totalChunks uint64
	voiceChunks uint64
}

// NewClassifier creates a classifier over the given estimator.
func NewClassifier(estimator *NoiseEstimator) *Classifier {
	return &Classifier{estimator: estimator}
}

// Classify computes the chunk's RMS energy and compares it against the
// current threshold. Chunks at or below the threshold are silence and are
// fed to the estimator.
func (c *Classifier) Classify(chunk audio.Chunk) ClassifiedChunk {
	rms := chunk.RMS()
	isVoice := rms > c.estimator.Threshold()

	if !isVoice {
		c.estimator.Observe(rms)
	}

	c.totalChunks++
	if isVoice {
		c.voiceChunks++
	}

	return ClassifiedChunk{
		Chunk:   chunk,
		RMS:     rms,
		IsVoice: isVoice,
	}
}

// Stats reports how many chunks have been classified, and how many as voice.
func (c *Classifier) Stats() (total, voice uint64) {
	return c.totalChunks, c.voiceChunks
}
