package network

import (
	"time"

	"github.com/automoto/podracer-mp/shared/messages"
)

// MoveBatcher collects moves between flushes. Moves leave in the order they
// were added, and a flush never splits or reorders them.
type MoveBatcher struct {
	pending   []messages.PodMove
	maxBatch  int
	lastFlush time.Time
}

// NewMoveBatcher creates a batcher that forces a flush once maxBatch moves are
// waiting. Zero means no size limit.
func NewMoveBatcher(maxBatch int) *MoveBatcher {
	return &MoveBatcher{maxBatch: maxBatch}
}

// Add queues a move for the next flush.
func (b *MoveBatcher) Add(m messages.PodMove) {
	b.pending = append(b.pending, m)
}

// Flush returns the queued moves when interval has elapsed since the previous
// flush or the batch is full. A zero interval flushes whenever anything waits.
func (b *MoveBatcher) Flush(now time.Time, interval time.Duration) ([]messages.PodMove, bool) {
	if len(b.pending) == 0 {
		return nil, false
	}
	full := b.maxBatch > 0 && len(b.pending) >= b.maxBatch
	if !full && now.Sub(b.lastFlush) < interval {
		return nil, false
	}
	out := b.pending
	b.pending = nil
	b.lastFlush = now
	return out, true
}

// Len is the number of moves waiting.
func (b *MoveBatcher) Len() int {
	return len(b.pending)
}
