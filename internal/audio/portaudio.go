package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource reads microphone audio through PortAudio in fixed-size
// chunks. It satisfies Source; ReadChunk blocks for one chunk duration.
type PortAudioSource struct {
	stream     *portaudio.Stream
	buf        []float32
	sampleRate int
	channels   int
}

// DeviceInfo describes an input device for listing purposes.
type DeviceInfo struct {
	Index      int
	Name       string
	Channels   int
	SampleRate float64
	Default    bool
}

// OpenPortAudioSource initializes PortAudio and opens an input stream on the
// device whose name contains deviceName (case-insensitive), or the default
// input device when deviceName is empty.
func OpenPortAudioSource(deviceName string, sampleRate, chunkSamples int) (*PortAudioSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: portaudio init: %v", ErrDevice, err)
	}

	dev, err := findInputDevice(deviceName)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, err
	}

	buf := make([]float32, chunkSamples)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: chunkSamples,
	}

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: open stream on %q: %v", ErrDevice, dev.Name, err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("%w: start stream: %v", ErrDevice, err)
	}

	return &PortAudioSource{
		stream:     stream,
		buf:        buf,
		sampleRate: sampleRate,
		channels:   1,
	}, nil
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: no default input device: %v", ErrDevice, err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate devices: %v", ErrDevice, err)
	}

	lowered := strings.ToLower(name)
	for _, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		if strings.Contains(strings.ToLower(dev.Name), lowered) {
			return dev, nil
		}
	}

	return nil, fmt.Errorf("%w: no input device matching %q", ErrDevice, name)
}

// ReadChunk blocks until one chunk of samples has been read and returns a copy.
func (s *PortAudioSource) ReadChunk(ctx context.Context) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.stream.Read(); err != nil {
		return nil, fmt.Errorf("stream read: %w", err)
	}

	out := make([]float32, len(s.buf))
	copy(out, s.buf)
	return out, nil
}

// SampleRate returns the configured sample rate.
func (s *PortAudioSource) SampleRate() int { return s.sampleRate }

// Channels returns the channel count (always 1).
func (s *PortAudioSource) Channels() int { return s.channels }

// Close stops the stream and releases PortAudio.
func (s *PortAudioSource) Close() error {
	_ = s.stream.Stop()
	err := s.stream.Close()
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}

// ListDevices enumerates available input devices. It initializes and
// terminates PortAudio around the call, so it must not be used while a
// PortAudioSource is open.
func ListDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	defaultDev, _ := portaudio.DefaultInputDevice()

	var out []DeviceInfo
	for i, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		out = append(out, DeviceInfo{
			Index:      i,
			Name:       dev.Name,
			Channels:   dev.MaxInputChannels,
			SampleRate: dev.DefaultSampleRate,
			Default:    defaultDev != nil && dev.Name == defaultDev.Name,
		})
	}

	return out, nil
}
