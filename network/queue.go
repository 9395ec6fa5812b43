package network

import (
	"errors"
	"fmt"

	"github.com/automoto/podracer-mp/shared/messages"
	"github.com/automoto/podracer-mp/shared/podphysics"
)

// ErrSequenceOrder is returned when a move does not extend the queue's sequence.
var ErrSequenceOrder = errors.New("move sequence must increase")

// PendingMove stores a sent move alongside the state predicted after applying it.
type PendingMove struct {
	Move      messages.PodMove
	Predicted podphysics.State
}

// PendingMoveQueue holds moves the server has not acknowledged yet, oldest first.
// Entries leave only through Acknowledge (or overflow when a limit is set).
type PendingMoveQueue struct {
	moves   []PendingMove
	limit   int
	lastSeq uint32
}

// NewPendingMoveQueue creates a queue. limit <= 0 means unbounded.
func NewPendingMoveQueue(limit int) *PendingMoveQueue {
	return &PendingMoveQueue{limit: limit}
}

// Push appends a move. Its sequence must be greater than every sequence pushed
// before, including ones already acknowledged. When the queue is full the
// oldest entry is dropped and overflow is true.
func (q *PendingMoveQueue) Push(move messages.PodMove, predicted podphysics.State) (overflow bool, err error) {
	if move.Sequence <= q.lastSeq {
		return false, fmt.Errorf("%w: got %d after %d", ErrSequenceOrder, move.Sequence, q.lastSeq)
	}
	if q.limit > 0 && len(q.moves) >= q.limit {
		q.moves = q.moves[1:]
		overflow = true
	}
	q.moves = append(q.moves, PendingMove{Move: move, Predicted: predicted})
	q.lastSeq = move.Sequence
	return overflow, nil
}

// Acknowledge removes every move with sequence <= seq. If the move with exactly
// seq was still queued it is returned with ok set.
func (q *PendingMoveQueue) Acknowledge(seq uint32) (acked PendingMove, ok bool, dropped int) {
	n := 0
	for n < len(q.moves) && q.moves[n].Move.Sequence <= seq {
		if q.moves[n].Move.Sequence == seq {
			acked, ok = q.moves[n], true
		}
		n++
	}
	if n == 0 {
		return acked, ok, 0
	}
	// Copy the survivors down so the backing array does not grow without bound.
	remaining := copy(q.moves, q.moves[n:])
	for i := remaining; i < len(q.moves); i++ {
		q.moves[i] = PendingMove{}
	}
	q.moves = q.moves[:remaining]
	return acked, ok, n
}

// Pending returns a copy of the queued moves in sequence order.
func (q *PendingMoveQueue) Pending() []PendingMove {
	out := make([]PendingMove, len(q.moves))
	copy(out, q.moves)
	return out
}

// SetPrediction replaces the recorded prediction of the i-th queued move.
func (q *PendingMoveQueue) SetPrediction(i int, s podphysics.State) {
	q.moves[i].Predicted = s
}

// Last returns the newest queued move.
func (q *PendingMoveQueue) Last() (PendingMove, bool) {
	if len(q.moves) == 0 {
		return PendingMove{}, false
	}
	return q.moves[len(q.moves)-1], true
}

// Len returns the number of unacknowledged moves.
func (q *PendingMoveQueue) Len() int {
	return len(q.moves)
}

// LastSequence returns the highest sequence ever pushed.
func (q *PendingMoveQueue) LastSequence() uint32 {
	return q.lastSeq
}

// Resume raises the sequence high-water mark to seq, so the next push must
// come after it. A lower seq is ignored.
func (q *PendingMoveQueue) Resume(seq uint32) {
	if seq > q.lastSeq {
		q.lastSeq = seq
	}
}

// Clear drops every queued move. The sequence high-water mark is kept so later
// pushes still have to increase.
func (q *PendingMoveQueue) Clear() {
	q.moves = q.moves[:0]
}
