package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Transcription.APIKey = "test-key"
	return cfg
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "invalid sample rate",
			mutate: func(c *Config) {
				c.Audio.SampleRate = 4000
			},
			expectError: true,
			errorMsg:    "sample_rate",
		},
		{
			name: "stereo rejected",
			mutate: func(c *Config) {
				c.Audio.Channels = 2
			},
			expectError: true,
			errorMsg:    "channels",
		},
		{
			name: "chunk duration too small",
			mutate: func(c *Config) {
				c.Audio.ChunkDurationMs = 5
			},
			expectError: true,
			errorMsg:    "chunk_duration_ms",
		},
		{
			name: "unknown threshold mode",
			mutate: func(c *Config) {
				c.VAD.ThresholdMode = "auto"
			},
			expectError: true,
			errorMsg:    "threshold_mode",
		},
		{
			name: "fixed mode requires positive threshold",
			mutate: func(c *Config) {
				c.VAD.ThresholdMode = "fixed"
				c.VAD.FixedThreshold = 0
			},
			expectError: true,
			errorMsg:    "fixed_threshold",
		},
		{
			name: "adaptive multiplier must exceed 1",
			mutate: func(c *Config) {
				c.VAD.AdaptiveMultiplier = 1.0
			},
			expectError: true,
			errorMsg:    "adaptive_multiplier",
		},
		{
			name: "silence duration must be positive when vad enabled",
			mutate: func(c *Config) {
				c.VAD.SilenceDuration = 0
			},
			expectError: true,
			errorMsg:    "silence_duration",
		},
		{
			name: "negative max interval",
			mutate: func(c *Config) {
				c.VAD.MaxInterval = -1
			},
			expectError: true,
			errorMsg:    "max_interval",
		},
		{
			name: "interval required when vad disabled",
			mutate: func(c *Config) {
				c.VAD.Enabled = false
				c.VAD.MaxInterval = 0
			},
			expectError: true,
			errorMsg:    "max_interval",
		},
		{
			name: "vad disabled with interval is valid",
			mutate: func(c *Config) {
				c.VAD.Enabled = false
				c.VAD.MaxInterval = 30
			},
			expectError: false,
		},
		{
			name: "missing api key",
			mutate: func(c *Config) {
				c.Transcription.APIKey = ""
			},
			expectError: true,
			errorMsg:    "api_key",
		},
		{
			name: "missing endpoint",
			mutate: func(c *Config) {
				c.Transcription.Endpoint = ""
			},
			expectError: true,
			errorMsg:    "endpoint",
		},
		{
			name: "no output destination",
			mutate: func(c *Config) {
				c.Output = OutputConfig{}
			},
			expectError: true,
			errorMsg:    "output destination",
		},
		{
			name: "http enabled without port",
			mutate: func(c *Config) {
				c.HTTP.Enabled = true
				c.HTTP.Port = 0
			},
			expectError: true,
			errorMsg:    "http port",
		},
		{
			name: "bad log level",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
			},
			expectError: true,
			errorMsg:    "level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected validation error, got nil")
				}
				if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
audio:
  sample_rate: 16000
  channels: 1
  chunk_duration_ms: 100
vad:
  enabled: true
  threshold_mode: adaptive
  adaptive_multiplier: 2.0
  silence_duration: 1.5
  calibration_chunks: 10
transcription:
  endpoint: "https://api.example.com/v1"
  api_key: "secret"
  model: "whisper-1"
  timeout: 30
output:
  stdout: true
logging:
  level: debug
  format: json
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Transcription.Endpoint != "https://api.example.com/v1" {
		t.Errorf("unexpected endpoint: %s", cfg.Transcription.Endpoint)
	}
	if cfg.VAD.CalibrationChunks != 10 {
		t.Errorf("expected calibration_chunks 10, got %d", cfg.VAD.CalibrationChunks)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Defaults fill fields the file omits.
	if cfg.Transcription.MaxConcurrent != 3 {
		t.Errorf("expected default max_concurrent 3, got %d", cfg.Transcription.MaxConcurrent)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadInvalidConfigRejected(t *testing.T) {
	content := `
transcription:
  endpoint: ""
  api_key: "k"
output:
  stdout: true
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for empty endpoint")
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := validConfig()

	if got := cfg.Audio.GetChunkDuration(); got != 100*time.Millisecond {
		t.Errorf("expected 100ms chunk duration, got %v", got)
	}
	if got := cfg.Audio.ChunkSamples(); got != 1600 {
		t.Errorf("expected 1600 samples per chunk, got %d", got)
	}
	if got := cfg.VAD.GetSilenceDuration(); got != 1500*time.Millisecond {
		t.Errorf("expected 1.5s silence duration, got %v", got)
	}
	if got := cfg.VAD.GetMaxInterval(); got != 30*time.Second {
		t.Errorf("expected 30s max interval, got %v", got)
	}
	if got := cfg.Transcription.GetTimeoutDuration(); got != 60*time.Second {
		t.Errorf("expected 60s timeout, got %v", got)
	}
}
