// Package vad provides energy-based voice activity detection.
// It implements an adaptive noise floor estimator with EMA smoothing and
// startup calibration, and a chunk classifier that compares RMS energy
// against the estimator's effective threshold.
package vad
