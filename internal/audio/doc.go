// Package audio handles microphone capture and audio format handling.
// It defines the immutable capture Chunk, the sequential capture loop with
// synchronous backpressure, a PortAudio-backed input source, and WAV encoding
// for transcription uploads.
package audio
