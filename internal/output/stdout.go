package output

import (
	"fmt"
	"io"
	"os"
)

// Stdout prints each transcript to standard output, keeping it separate
// from the structured log stream on stderr.
type Stdout struct {
	w io.Writer
}

// NewStdout creates the stdout sink.
func NewStdout() *Stdout {
	return &Stdout{w: os.Stdout}
}

func (s *Stdout) Name() string { return "stdout" }

func (s *Stdout) Write(text string, _ TimeRange) error {
	if _, err := fmt.Fprintln(s.w, text); err != nil {
		return fmt.Errorf("failed to write stdout: %w", err)
	}
	return nil
}
