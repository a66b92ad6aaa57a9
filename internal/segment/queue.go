package segment

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Pop once the queue is closed and drained.
var ErrQueueClosed = errors.New("segment queue closed")

// Queue is a bounded FIFO hand-off between the capture side (single producer)
// and the consumer. Push blocks when the queue is full: stalling capture
// briefly beats dropping audio or reordering segments.
type Queue struct {
	ch        chan *Segment
	closeOnce sync.Once
}

// NewQueue creates a queue holding at most capacity segments.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan *Segment, capacity)}
}

// Push hands a closed segment to the consumer, blocking while the queue is
// full. The caller gives up ownership of the segment on success. Push must
// not be called after Close.
func (q *Queue) Push(ctx context.Context, seg *Segment) error {
	select {
	case q.ch <- seg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop blocks until a segment is available. After Close, it keeps returning
// the remaining segments in FIFO order and then ErrQueueClosed.
func (q *Queue) Pop(ctx context.Context) (*Segment, error) {
	select {
	case seg, ok := <-q.ch:
		if !ok {
			return nil, ErrQueueClosed
		}
		return seg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close marks the producer side finished. Safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}

// Len returns the number of segments currently waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}
