package segment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Oaklight/asr2clip/internal/audio"
)

func testSegment(seq uint64) *Segment {
	cc := classified(seq, true)
	return &Segment{
		StartedAt: cc.Chunk.CapturedAt,
		ClosedAt:  cc.Chunk.CapturedAt,
		Chunks:    []audio.Chunk{cc.Chunk},
	}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()

	for seq := uint64(1); seq <= 4; seq++ {
		if err := q.Push(ctx, testSegment(seq)); err != nil {
			t.Fatalf("Push(%d) error = %v", seq, err)
		}
	}
	if q.Len() != 4 {
		t.Errorf("Len() = %d, want 4", q.Len())
	}

	for seq := uint64(1); seq <= 4; seq++ {
		seg, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop() error = %v", err)
		}
		if got := seg.Chunks[0].Sequence; got != seq {
			t.Errorf("Pop() returned sequence %d, want %d", got, seq)
		}
	}
}

func TestQueuePushBlocksWhenFull(t *testing.T) {
	q := NewQueue(1)
	ctx := context.Background()

	if err := q.Push(ctx, testSegment(1)); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	// A second push has nowhere to go until the consumer pops.
	pushed := make(chan error, 1)
	go func() {
		pushed <- q.Push(ctx, testSegment(2))
	}()

	select {
	case err := <-pushed:
		t.Fatalf("Push() returned %v before a Pop freed capacity", err)
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := q.Pop(ctx); err != nil {
		t.Fatalf("Pop() error = %v", err)
	}
	select {
	case err := <-pushed:
		if err != nil {
			t.Fatalf("blocked Push() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Push() still blocked after Pop freed capacity")
	}
}

func TestQueuePushCanceled(t *testing.T) {
	q := NewQueue(1)
	ctx := context.Background()

	if err := q.Push(ctx, testSegment(1)); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Push(cctx, testSegment(2)); !errors.Is(err, context.Canceled) {
		t.Errorf("Push() on canceled context error = %v, want %v", err, context.Canceled)
	}
}

func TestQueueCloseThenDrain(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()

	for seq := uint64(1); seq <= 3; seq++ {
		if err := q.Push(ctx, testSegment(seq)); err != nil {
			t.Fatalf("Push(%d) error = %v", seq, err)
		}
	}
	q.Close()
	q.Close() // idempotent

	for seq := uint64(1); seq <= 3; seq++ {
		seg, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop() after Close error = %v", err)
		}
		if got := seg.Chunks[0].Sequence; got != seq {
			t.Errorf("Pop() returned sequence %d, want %d", got, seq)
		}
	}

	if _, err := q.Pop(ctx); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Pop() on drained queue error = %v, want %v", err, ErrQueueClosed)
	}
}

func TestQueuePopCanceled(t *testing.T) {
	q := NewQueue(1)

	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Pop(cctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Pop() on canceled context error = %v, want %v", err, context.Canceled)
	}
}
