package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	samples := make([]float32, 1600) // 100ms at 16kHz
	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	expectedSize := 44 + len(samples)*2
	if len(data) != expectedSize {
		t.Errorf("expected %d bytes, got %d", expectedSize, len(data))
	}

	if string(data[0:4]) != "RIFF" {
		t.Errorf("expected RIFF magic, got %q", data[0:4])
	}
	if string(data[8:12]) != "WAVE" {
		t.Errorf("expected WAVE format, got %q", data[8:12])
	}
	if string(data[36:40]) != "data" {
		t.Errorf("expected data chunk marker, got %q", data[36:40])
	}

	sampleRate := binary.LittleEndian.Uint32(data[24:28])
	if sampleRate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", sampleRate)
	}

	channels := binary.LittleEndian.Uint16(data[22:24])
	if channels != 1 {
		t.Errorf("expected 1 channel, got %d", channels)
	}

	bitsPerSample := binary.LittleEndian.Uint16(data[34:36])
	if bitsPerSample != 16 {
		t.Errorf("expected 16 bits per sample, got %d", bitsPerSample)
	}

	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if dataSize != uint32(len(samples)*2) {
		t.Errorf("expected data size %d, got %d", len(samples)*2, dataSize)
	}
}

func TestEncodeWAVSampleConversion(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1.0, -1.0, 2.0, -2.0}
	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	expected := []int16{0, 16383, -16383, 32767, -32767, 32767, -32768}
	for i, want := range expected {
		got := int16(binary.LittleEndian.Uint16(data[44+i*2 : 46+i*2]))
		if got != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestEncodeWAVRejectsBadInput(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("expected error for empty samples")
	}
	if _, err := EncodeWAV([]float32{0.1}, 0); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestChunkRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		want    float64
		epsilon float64
	}{
		{"empty", nil, 0, 0},
		{"silence", make([]float32, 16), 0, 0},
		{"constant", []float32{0.5, 0.5, 0.5, 0.5}, 0.5, 1e-6},
		{"alternating", []float32{0.1, -0.1, 0.1, -0.1}, 0.1, 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMS(tt.samples)
			if diff := got - tt.want; diff > tt.epsilon || diff < -tt.epsilon {
				t.Errorf("expected RMS %f, got %f", tt.want, got)
			}
		})
	}
}

func TestChunkDuration(t *testing.T) {
	chunk := Chunk{Samples: make([]float32, 1600), SampleRate: 16000}
	if got := chunk.Duration().Milliseconds(); got != 100 {
		t.Errorf("expected 100ms, got %dms", got)
	}
}
