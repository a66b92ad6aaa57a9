// Package transcription implements the HTTP client for OpenAI-compatible
// speech-to-text APIs. It encodes speech segments to WAV, sends them as
// multipart form data, retries transient failures with exponential backoff,
// and bounds concurrent requests with a semaphore.
package transcription
