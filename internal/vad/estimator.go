package vad

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Mode selects how the silence threshold is derived.
type Mode int

const (
	// ModeFixed uses the configured constant threshold; observations are ignored.
	ModeFixed Mode = iota
	// ModeAdaptive derives the threshold from a running ambient noise estimate.
	ModeAdaptive
	// ModeCalibrating is the transient state while Calibrate is measuring.
	ModeCalibrating
)

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeAdaptive:
		return "adaptive"
	case ModeCalibrating:
		return "calibrating"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

const (
	// defaultAlpha is the EMA weight for new silence observations. Small so
	// transient loud bursts cannot permanently raise the floor.
	defaultAlpha = 0.05

	// minThreshold is the lower clamp on the effective threshold. A floor of
	// zero would classify every chunk as voice forever.
	minThreshold = 0.001

	// calibrationPercentile of the measured RMS distribution becomes the floor.
	calibrationPercentile = 0.9

	// calibrationMargin scales the measured floor into a usable threshold seed.
	calibrationMargin = 1.2
)

// NoiseEstimator maintains a running estimate of ambient noise energy and
// derives the silence threshold from it. It is owned by the producer side of
// the pipeline and is not safe for concurrent use.
type NoiseEstimator struct {
	mode        Mode
	fixed       float64
	multiplier  float64
	noiseFloor  float64
	seeded      bool
	lastUpdated time.Time
}

// NewFixedEstimator returns an estimator that always reports threshold.
func NewFixedEstimator(threshold float64) *NoiseEstimator {
	return &NoiseEstimator{
		mode:  ModeFixed,
		fixed: threshold,
	}
}

// NewAdaptiveEstimator returns an estimator that tracks the noise floor with
// an exponential moving average and reports floor*multiplier as the threshold.
func NewAdaptiveEstimator(multiplier float64) *NoiseEstimator {
	return &NoiseEstimator{
		mode:       ModeAdaptive,
		multiplier: multiplier,
	}
}

// Observe feeds one silence-classified chunk's RMS into the noise floor
// estimate. Voice chunks must not be fed here: the threshold would chase
// speech upward and silences would stop being detected. A no-op in fixed mode.
func (e *NoiseEstimator) Observe(rms float64) {
	if e.mode != ModeAdaptive {
		return
	}

	if !e.seeded {
		e.noiseFloor = rms
		e.seeded = true
	} else {
		e.noiseFloor = defaultAlpha*rms + (1-defaultAlpha)*e.noiseFloor
	}
	e.lastUpdated = time.Now()
}

// Threshold returns the current effective silence threshold.
func (e *NoiseEstimator) Threshold() float64 {
	var t float64
	switch e.mode {
	case ModeFixed:
		t = e.fixed
	default:
		t = e.noiseFloor * e.multiplier
	}

	if t < minThreshold {
		t = minThreshold
	}
	return t
}

// NoiseFloor returns the current ambient noise estimate.
func (e *NoiseEstimator) NoiseFloor() float64 {
	return e.noiseFloor
}

// Mode returns the estimator's current mode.
func (e *NoiseEstimator) Mode() Mode {
	return e.mode
}

// ChunkReader supplies successive chunk RMS values during calibration.
type ChunkReader func(ctx context.Context) (rms float64, err error)

// Calibrate measures ambient noise by consuming n chunk RMS values from read,
// seeds the noise floor with a high percentile of the measured distribution
// times a safety margin, and returns the resulting threshold. The estimator is
// left in adaptive mode. Fixed-mode estimators reject calibration.
func (e *NoiseEstimator) Calibrate(ctx context.Context, n int, read ChunkReader) (float64, error) {
	if e.mode == ModeFixed {
		return 0, fmt.Errorf("cannot calibrate a fixed-threshold estimator")
	}
	if n <= 0 {
		return 0, fmt.Errorf("calibration chunk count must be positive, got %d", n)
	}

	e.mode = ModeCalibrating
	defer func() { e.mode = ModeAdaptive }()

	values := make([]float64, 0, n)
	for len(values) < n {
		rms, err := read(ctx)
		if err != nil {
			return 0, fmt.Errorf("calibration read: %w", err)
		}
		values = append(values, rms)
	}

	sort.Float64s(values)
	idx := int(float64(len(values)) * calibrationPercentile)
	if idx >= len(values) {
		idx = len(values) - 1
	}

	e.noiseFloor = values[idx] * calibrationMargin
	e.seeded = true
	e.lastUpdated = time.Now()

	return e.Threshold(), nil
}
