package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Oaklight/asr2clip/internal/audio"
	"github.com/Oaklight/asr2clip/internal/config"
	"github.com/Oaklight/asr2clip/internal/daemon"
	"github.com/Oaklight/asr2clip/internal/metrics"
	"github.com/Oaklight/asr2clip/internal/output"
	"github.com/Oaklight/asr2clip/internal/server"
	"github.com/Oaklight/asr2clip/internal/transcription"
	"github.com/Oaklight/asr2clip/internal/vad"
)

const (
	serviceName    = "asr2clip"
	serviceVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (searches default locations when empty)")
	once := flag.Bool("once", false, "Record a single segment, transcribe it, and exit")
	duration := flag.Duration("duration", 0, "Recording duration for -once (0 records until interrupted)")
	listDevices := flag.Bool("list-devices", false, "List available input devices and exit")
	calibrateOnly := flag.Bool("calibrate-only", false, "Measure ambient noise, print the recommended threshold, and exit")
	generateConfig := flag.Bool("generate-config", false, "Print a configuration template and exit")
	flag.Parse()

	if *generateConfig {
		fmt.Print(configTemplate)
		return
	}

	if *listDevices {
		if err := printDevices(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list devices: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *calibrateOnly {
		// Calibration needs no API key; fall back to defaults when the
		// config is absent or incomplete.
		cfg, err := config.Load(*configPath)
		if err != nil {
			cfg = config.Default()
		}
		if err := runCalibration(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Calibration failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
	)
	logger.Info("Configuration loaded",
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("chunk_duration_ms", cfg.Audio.ChunkDurationMs),
		slog.Bool("vad_enabled", cfg.VAD.Enabled),
		slog.String("threshold_mode", cfg.VAD.ThresholdMode),
		slog.Float64("silence_duration", cfg.VAD.SilenceDuration),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("log_level", cfg.Logging.Level),
	)

	source, err := audio.OpenPortAudioSource(cfg.Audio.Device, cfg.Audio.SampleRate, cfg.Audio.ChunkSamples())
	if err != nil {
		logger.Error("Failed to open audio device", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer source.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SIGINT/SIGTERM cancel the context; the pipeline flushes and drains
	// before the process exits.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	client, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		APIKey:        cfg.Transcription.APIKey,
		Model:         cfg.Transcription.Model,
		OrgID:         cfg.Transcription.OrgID,
		Language:      cfg.Transcription.Language,
		Prompt:        cfg.Transcription.Prompt,
		Temperature:   cfg.Transcription.Temperature,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxRetries:    cfg.Transcription.MaxRetries,
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sink, err := buildSink(cfg.Output, logger)
	if err != nil {
		logger.Error("Failed to configure outputs", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var appMetrics *metrics.Metrics
	if cfg.HTTP.Enabled {
		appMetrics = metrics.NewMetrics()
	}

	controller, err := daemon.New(cfg, source, client, sink, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to build pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if sink, ok := sink.(*output.Multi); ok {
		sink.OnError(func(name string, err error) {
			appMetrics.RecordOutputFailure(name)
		})
	}

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, controller, client, appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	var runErr error
	if *once {
		runErr = controller.RunOnce(ctx, *duration)
	} else {
		runErr = controller.Run(ctx)
	}

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
		shutdownCancel()
	}

	stats := controller.Stats()
	logger.Info("Final pipeline statistics",
		slog.Uint64("chunks_captured", stats.ChunksCaptured),
		slog.Uint64("voice_chunks", stats.VoiceChunks),
		slog.Uint64("segments_closed", stats.SegmentsClosed),
		slog.Uint64("segments_transcribed", stats.SegmentsTranscribed),
		slog.Uint64("segments_failed", stats.SegmentsFailed),
	)

	if runErr != nil {
		logger.Error("Service stopped with error", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
	logger.Info("Service stopped")
}

// buildSink assembles the configured transcript destinations.
func buildSink(cfg config.OutputConfig, logger *slog.Logger) (output.Sink, error) {
	var sinks []output.Sink

	if cfg.Clipboard {
		clip, err := output.NewClipboard()
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, clip)
	}

	if cfg.File != "" {
		file, err := output.NewFile(cfg.File)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, file)
	}

	if cfg.Stdout {
		sinks = append(sinks, output.NewStdout())
	}

	if len(sinks) == 0 {
		return nil, fmt.Errorf("no outputs enabled")
	}

	logger.Info("Outputs configured", slog.Int("sinks", len(sinks)))
	return output.NewMulti(sinks...), nil
}

// printDevices lists the audio input devices visible to the process.
func printDevices() error {
	devices, err := audio.ListDevices()
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No input devices found")
		return nil
	}

	fmt.Println("Available input devices:")
	for _, d := range devices {
		fmt.Println(formatDevice(d))
	}
	return nil
}

// formatDevice renders one device listing line; the default input device
// is marked with an asterisk.
func formatDevice(d audio.DeviceInfo) string {
	marker := " "
	if d.Default {
		marker = "*"
	}
	return fmt.Sprintf("%s %-40s %d channels, %.0f Hz", marker, d.Name, d.Channels, d.SampleRate)
}

// runCalibration measures ambient noise and prints the threshold the
// adaptive mode would start from.
func runCalibration(cfg *config.Config) error {
	source, err := audio.OpenPortAudioSource(cfg.Audio.Device, cfg.Audio.SampleRate, cfg.Audio.ChunkSamples())
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	defer source.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	n := cfg.VAD.CalibrationChunks
	if n <= 0 {
		n = 20
	}

	multiplier := cfg.VAD.AdaptiveMultiplier
	if multiplier <= 1 {
		multiplier = 2.0
	}
	estimator := vad.NewAdaptiveEstimator(multiplier)
	fmt.Printf("Sampling ambient noise (%d chunks, stay quiet)...\n", n)

	threshold, err := estimator.Calibrate(ctx, n, func(ctx context.Context) (float64, error) {
		samples, err := source.ReadChunk(ctx)
		if err != nil {
			return 0, err
		}
		return audio.RMS(samples), nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Noise floor:         %.6f\n", estimator.NoiseFloor())
	fmt.Printf("Effective threshold: %.6f\n", threshold)
	fmt.Printf("Suggested fixed_threshold for config: %.6f\n", threshold)
	return nil
}

// initLogger creates the structured logger from configuration.
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out *os.File
	switch cfg.Output {
	case "stdout":
		out = os.Stdout
	default:
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

const configTemplate = `# asr2clip configuration
audio:
  sample_rate: 16000
  channels: 1
  chunk_duration_ms: 100
  device: ""            # input device name substring, empty for default

vad:
  enabled: true
  threshold_mode: adaptive   # "adaptive" or "fixed"
  fixed_threshold: 0.01
  adaptive_multiplier: 2.0
  silence_duration: 1.5      # seconds of silence that close a segment
  min_speech_duration: 0.5   # segments shorter than this are dropped
  calibration_chunks: 20
  max_interval: 30.0         # hard cap on segment length, 0 disables

transcription:
  endpoint: https://api.openai.com/v1
  api_key: ""                # or set via config file permissions 0600
  model: whisper-1
  org_id: ""
  language: ""               # ISO 639-1 hint, empty for auto-detect
  timeout: 60
  max_retries: 3
  max_concurrent: 3

output:
  clipboard: true
  file: ""                   # append transcripts to this path
  stdout: true

http:
  enabled: false
  address: 127.0.0.1
  port: 8090

logging:
  level: info
  format: text               # "text" or "json"
  output: stderr
`
