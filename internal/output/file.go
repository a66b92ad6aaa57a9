package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File appends transcripts to a text file, one timestamped block per
// segment. The parent directory is created on first use.
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a file sink writing to path.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	return &File{path: path}, nil
}

func (f *File) Name() string { return "file" }

func (f *File) Write(text string, span TimeRange) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	entry := fmt.Sprintf("[%s] %s\n", span.Start.Format(time.RFC3339), text)
	if _, err := file.WriteString(entry); err != nil {
		return fmt.Errorf("failed to append transcript: %w", err)
	}
	return nil
}
