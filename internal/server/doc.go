// Package server implements the HTTP monitoring API for the capture daemon.
// It exposes health, pipeline and transcription statistics, the sanitized
// configuration, and Prometheus metrics.
package server
