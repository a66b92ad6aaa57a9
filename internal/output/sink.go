package output

import (
	"fmt"
	"time"
)

// TimeRange is the capture span a transcript covers.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Sink delivers a finished transcript somewhere useful.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Write delivers one transcript. Implementations must be safe to call
	// from a single consumer goroutine.
	Write(text string, span TimeRange) error
}

// Multi fans a transcript out to every configured sink. A failing sink does
// not stop delivery to the others; all failures are collected into one error.
type Multi struct {
	sinks   []Sink
	onError func(sink string, err error)
}

// NewMulti wraps the given sinks. Order is delivery order.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// OnError registers an observer called once per failing sink, before Write
// returns the combined error.
func (m *Multi) OnError(fn func(sink string, err error)) {
	m.onError = fn
}

func (m *Multi) Name() string { return "multi" }

// Sinks returns the wrapped sinks.
func (m *Multi) Sinks() []Sink { return m.sinks }

func (m *Multi) Write(text string, span TimeRange) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(text, span); err != nil {
			if m.onError != nil {
				m.onError(s.Name(), err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	combined := errs[0]
	for _, e := range errs[1:] {
		combined = fmt.Errorf("%w; %w", combined, e)
	}
	return combined
}
