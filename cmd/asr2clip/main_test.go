package main

import (
	"strings"
	"testing"

	"github.com/Oaklight/asr2clip/internal/audio"
)

func TestFormatDevice(t *testing.T) {
	tests := []struct {
		name   string
		device audio.DeviceInfo
		want   []string
	}{
		{
			name: "default device marked",
			device: audio.DeviceInfo{
				Name:       "Built-in Microphone",
				Channels:   1,
				SampleRate: 44100,
				Default:    true,
			},
			want: []string{"*", "Built-in Microphone", "1 channels", "44100 Hz"},
		},
		{
			name: "secondary device unmarked",
			device: audio.DeviceInfo{
				Name:       "USB Audio",
				Channels:   2,
				SampleRate: 48000,
			},
			want: []string{"USB Audio", "2 channels", "48000 Hz"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := formatDevice(tt.device)
			for _, want := range tt.want {
				if !strings.Contains(line, want) {
					t.Errorf("formatDevice() = %q, missing %q", line, want)
				}
			}
			if !tt.device.Default && strings.HasPrefix(line, "*") {
				t.Errorf("formatDevice() = %q, non-default device marked as default", line)
			}
		})
	}
}
