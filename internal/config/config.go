package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default search locations, checked in order when no explicit path is given.
// The user-level path ~/.config/asr2clip.yaml is appended at runtime.
var defaultPaths = []string{
	"configs/config.yaml",
	"asr2clip.yaml",
}

// Config represents the complete daemon configuration
type Config struct {
	Audio         AudioConfig         `yaml:"audio"`
	VAD           VADConfig           `yaml:"vad"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Output        OutputConfig        `yaml:"output"`
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// AudioConfig contains capture parameters
type AudioConfig struct {
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	ChunkDurationMs int    `yaml:"chunk_duration_ms"`
	Device          string `yaml:"device"` // device name substring, empty for default input
}

// VADConfig contains voice activity detection and segmentation parameters
type VADConfig struct {
	Enabled            bool    `yaml:"enabled"`
	ThresholdMode      string  `yaml:"threshold_mode"` // "fixed" or "adaptive"
	FixedThreshold     float64 `yaml:"fixed_threshold"`
	AdaptiveMultiplier float64 `yaml:"adaptive_multiplier"`
	SilenceDuration    float64 `yaml:"silence_duration"`    // seconds
	MinSpeechDuration  float64 `yaml:"min_speech_duration"` // seconds
	CalibrationChunks  int     `yaml:"calibration_chunks"`
	MaxInterval        float64 `yaml:"max_interval"` // seconds, 0 disables
}

// TranscriptionConfig contains transcription API configuration
type TranscriptionConfig struct {
	Endpoint      string  `yaml:"endpoint"`
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	OrgID         string  `yaml:"org_id"`
	Language      string  `yaml:"language"` // ISO 639-1 hint, empty for auto-detect
	Prompt        string  `yaml:"prompt"`
	Temperature   float64 `yaml:"temperature"`
	Timeout       int     `yaml:"timeout"` // seconds
	MaxRetries    int     `yaml:"max_retries"`
	MaxConcurrent int     `yaml:"max_concurrent"`
}

// OutputConfig selects transcript destinations
type OutputConfig struct {
	Clipboard bool   `yaml:"clipboard"`
	File      string `yaml:"file"` // append path, empty disables
	Stdout    bool   `yaml:"stdout"`
}

// HTTPConfig contains the status/metrics server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns a configuration with the documented defaults applied.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:      16000,
			Channels:        1,
			ChunkDurationMs: 100,
		},
		VAD: VADConfig{
			Enabled:            true,
			ThresholdMode:      "adaptive",
			FixedThreshold:     0.01,
			AdaptiveMultiplier: 2.0,
			SilenceDuration:    1.5,
			MinSpeechDuration:  0.5,
			CalibrationChunks:  20,
			MaxInterval:        30.0,
		},
		Transcription: TranscriptionConfig{
			Endpoint:      "https://api.openai.com/v1",
			Model:         "whisper-1",
			Timeout:       60,
			MaxRetries:    3,
			MaxConcurrent: 3,
		},
		Output: OutputConfig{
			Clipboard: true,
			Stdout:    true,
		},
		HTTP: HTTPConfig{
			Address: "127.0.0.1",
			Port:    8090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads and parses the configuration file. An empty path searches
// the default locations, ending with ~/.config/asr2clip.yaml.
func Load(path string) (*Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", resolved, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", resolved, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file %s: %w", path, err)
		}
		return path, nil
	}

	candidates := make([]string, 0, len(defaultPaths)+1)
	candidates = append(candidates, defaultPaths...)
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "asr2clip.yaml"))
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found in %v", candidates)
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.ChunkDurationMs < 10 || a.ChunkDurationMs > 1000 {
		return fmt.Errorf("chunk_duration_ms must be between 10 and 1000, got %d", a.ChunkDurationMs)
	}

	return nil
}

// Validate validates VAD configuration
func (v *VADConfig) Validate() error {
	if v.ThresholdMode != "fixed" && v.ThresholdMode != "adaptive" {
		return fmt.Errorf("threshold_mode must be 'fixed' or 'adaptive', got '%s'", v.ThresholdMode)
	}

	if v.ThresholdMode == "fixed" && v.FixedThreshold <= 0 {
		return fmt.Errorf("fixed_threshold must be positive, got %f", v.FixedThreshold)
	}

	if v.ThresholdMode == "adaptive" && v.AdaptiveMultiplier <= 1 {
		return fmt.Errorf("adaptive_multiplier must be greater than 1, got %f", v.AdaptiveMultiplier)
	}

	if v.Enabled && v.SilenceDuration <= 0 {
		return fmt.Errorf("silence_duration must be positive, got %f", v.SilenceDuration)
	}

	if v.MinSpeechDuration < 0 {
		return fmt.Errorf("min_speech_duration cannot be negative, got %f", v.MinSpeechDuration)
	}

	if v.CalibrationChunks < 0 {
		return fmt.Errorf("calibration_chunks cannot be negative, got %d", v.CalibrationChunks)
	}

	if v.MaxInterval < 0 {
		return fmt.Errorf("max_interval cannot be negative, got %f", v.MaxInterval)
	}

	if !v.Enabled && v.MaxInterval == 0 {
		return fmt.Errorf("max_interval is required when vad is disabled")
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if t.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates output configuration
func (o *OutputConfig) Validate() error {
	if !o.Clipboard && o.File == "" && !o.Stdout {
		return fmt.Errorf("at least one output destination must be enabled")
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetChunkDuration returns the capture chunk duration as a time.Duration
func (a *AudioConfig) GetChunkDuration() time.Duration {
	return time.Duration(a.ChunkDurationMs) * time.Millisecond
}

// ChunkSamples returns the number of samples per capture chunk
func (a *AudioConfig) ChunkSamples() int {
	return a.SampleRate * a.ChunkDurationMs / 1000
}

// GetSilenceDuration returns the silence trigger duration as a time.Duration
func (v *VADConfig) GetSilenceDuration() time.Duration {
	return time.Duration(v.SilenceDuration * float64(time.Second))
}

// GetMinSpeechDuration returns the minimum speech duration as a time.Duration
func (v *VADConfig) GetMinSpeechDuration() time.Duration {
	return time.Duration(v.MinSpeechDuration * float64(time.Second))
}

// GetMaxInterval returns the forced segmentation interval as a time.Duration
func (v *VADConfig) GetMaxInterval() time.Duration {
	return time.Duration(v.MaxInterval * float64(time.Second))
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}
