package vad

import (
	"context"
	"fmt"
	"math"
	"testing"
)

func TestFixedModeIgnoresObservations(t *testing.T) {
	e := NewFixedEstimator(0.02)

	if got := e.Threshold(); got != 0.02 {
		t.Errorf("expected threshold 0.02, got %f", got)
	}

	e.Observe(0.5)
	e.Observe(0.9)

	if got := e.Threshold(); got != 0.02 {
		t.Errorf("threshold changed after Observe in fixed mode: %f", got)
	}
	if e.NoiseFloor() != 0 {
		t.Errorf("noise floor changed in fixed mode: %f", e.NoiseFloor())
	}
}

func TestAdaptiveSeedsOnFirstObservation(t *testing.T) {
	e := NewAdaptiveEstimator(2.0)

	e.Observe(0.01)

	if got := e.NoiseFloor(); got != 0.01 {
		t.Errorf("expected first observation to seed floor at 0.01, got %f", got)
	}
	if got := e.Threshold(); math.Abs(got-0.02) > 1e-9 {
		t.Errorf("expected threshold 0.02, got %f", got)
	}
}

func TestAdaptiveThresholdClampedAboveZero(t *testing.T) {
	e := NewAdaptiveEstimator(2.0)

	// Unseeded estimator must not report a zero threshold.
	if got := e.Threshold(); got != 0.001 {
		t.Errorf("expected clamped threshold 0.001, got %f", got)
	}

	e.Observe(0)
	if got := e.Threshold(); got != 0.001 {
		t.Errorf("expected clamped threshold 0.001 after zero observation, got %f", got)
	}
}

func TestAdaptiveFloorConvergesMonotonically(t *testing.T) {
	e := NewAdaptiveEstimator(2.0)
	e.Observe(0.005)

	// A long run of louder silence raises the floor toward the new level
	// without ever exceeding the input values.
	target := 0.02
	prev := e.NoiseFloor()
	for i := 0; i < 200; i++ {
		e.Observe(target)
		floor := e.NoiseFloor()
		if floor < prev {
			t.Fatalf("iteration %d: floor decreased from %f to %f", i, prev, floor)
		}
		if floor > target {
			t.Fatalf("iteration %d: floor %f exceeded input level %f", i, floor, target)
		}
		prev = floor
	}

	if math.Abs(e.NoiseFloor()-target) > 0.001 {
		t.Errorf("floor did not converge: %f vs target %f", e.NoiseFloor(), target)
	}
}

func TestAdaptiveLoudBurstDoesNotStickFloor(t *testing.T) {
	e := NewAdaptiveEstimator(2.0)
	for i := 0; i < 50; i++ {
		e.Observe(0.01)
	}
	quiet := e.NoiseFloor()

	// One loud non-speech burst classified as silence.
	e.Observe(0.5)
	bumped := e.NoiseFloor()
	if bumped <= quiet {
		t.Fatal("expected a single burst to raise the floor slightly")
	}

	for i := 0; i < 100; i++ {
		e.Observe(0.01)
	}
	if recovered := e.NoiseFloor(); recovered > quiet*1.2 {
		t.Errorf("floor did not recover after burst: %f vs quiet baseline %f", recovered, quiet)
	}
}

func TestCalibrateSetsPercentileFloor(t *testing.T) {
	e := NewAdaptiveEstimator(2.0)

	// 20 samples, 0.001 through 0.020.
	i := 0
	read := func(ctx context.Context) (float64, error) {
		i++
		return float64(i) * 0.001, nil
	}

	threshold, err := e.Calibrate(context.Background(), 20, read)
	if err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}

	// 90th percentile of 20 sorted samples is index 18 → 0.019, times 1.2 margin.
	wantFloor := 0.019 * 1.2
	if math.Abs(e.NoiseFloor()-wantFloor) > 1e-9 {
		t.Errorf("expected floor %f, got %f", wantFloor, e.NoiseFloor())
	}
	if math.Abs(threshold-wantFloor*2.0) > 1e-9 {
		t.Errorf("expected threshold %f, got %f", wantFloor*2.0, threshold)
	}
	if e.Mode() != ModeAdaptive {
		t.Errorf("expected mode adaptive after calibration, got %s", e.Mode())
	}
}

func TestCalibrateRejectsFixedMode(t *testing.T) {
	e := NewFixedEstimator(0.01)
	if _, err := e.Calibrate(context.Background(), 10, func(ctx context.Context) (float64, error) {
		return 0.01, nil
	}); err == nil {
		t.Fatal("expected error calibrating a fixed estimator")
	}
}

func TestCalibratePropagatesReadError(t *testing.T) {
	e := NewAdaptiveEstimator(2.0)
	wantErr := fmt.Errorf("device gone")
	if _, err := e.Calibrate(context.Background(), 10, func(ctx context.Context) (float64, error) {
		return 0, wantErr
	}); err == nil {
		t.Fatal("expected calibration read error to propagate")
	}
	if e.Mode() != ModeAdaptive {
		t.Errorf("expected mode restored to adaptive, got %s", e.Mode())
	}
}
