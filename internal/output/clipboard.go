package output

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Clipboard replaces the system clipboard contents with each transcript.
type Clipboard struct{}

// NewClipboard creates the clipboard sink, failing fast when no clipboard
// utility is available on this system.
func NewClipboard() (*Clipboard, error) {
	if clipboard.Unsupported {
		return nil, fmt.Errorf("no clipboard utility available on this system")
	}
	return &Clipboard{}, nil
}

func (c *Clipboard) Name() string { return "clipboard" }

func (c *Clipboard) Write(text string, _ TimeRange) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}
