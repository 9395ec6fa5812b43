// Package netchan is an in-process stand-in for a reliable ordered network link.
// Messages sent on a Channel become readable a fixed number of ticks later, in
// the order they were sent.
package netchan

type envelope[T any] struct {
	v   T
	due uint64
}

// Channel is a reliable, ordered, optionally delayed message pipe. It is driven
// by the caller's clock through Advance and is not safe for concurrent use.
type Channel[T any] struct {
	delay    uint64
	now      uint64
	inFlight []envelope[T]
	ready    []T
	sent     uint64
}

// New creates a channel that delivers messages delayTicks calls to Advance after
// they are sent. Zero delivers immediately.
func New[T any](delayTicks int) *Channel[T] {
	if delayTicks < 0 {
		delayTicks = 0
	}
	return &Channel[T]{delay: uint64(delayTicks)}
}

// Send queues v for delivery.
func (c *Channel[T]) Send(v T) {
	c.sent++
	if c.delay == 0 {
		c.ready = append(c.ready, v)
		return
	}
	c.inFlight = append(c.inFlight, envelope[T]{v: v, due: c.now + c.delay})
}

// Advance moves the channel clock one tick forward, releasing messages that
// have been in flight long enough.
func (c *Channel[T]) Advance() {
	c.now++
	n := 0
	for n < len(c.inFlight) && c.inFlight[n].due <= c.now {
		c.ready = append(c.ready, c.inFlight[n].v)
		n++
	}
	if n > 0 {
		c.inFlight = append(c.inFlight[:0], c.inFlight[n:]...)
	}
}

// Drain returns every delivered message in send order and clears them.
func (c *Channel[T]) Drain() []T {
	out := c.ready
	c.ready = nil
	return out
}

// Reset drops every message in flight or waiting to be drained, as a broken
// connection would. The channel clock and sent count are kept.
func (c *Channel[T]) Reset() {
	c.inFlight = nil
	c.ready = nil
}

// Len is the number of messages sent but not yet drained.
func (c *Channel[T]) Len() int {
	return len(c.inFlight) + len(c.ready)
}

// InFlight is the number of messages not yet delivered.
func (c *Channel[T]) InFlight() int {
	return len(c.inFlight)
}

// Sent is the total number of messages ever sent.
func (c *Channel[T]) Sent() uint64 {
	return c.sent
}

// SetDelay changes the delay applied to messages sent from now on. Messages
// already in flight keep their schedule, so ordering is preserved only when
// the delay does not shrink below what is in flight.
func (c *Channel[T]) SetDelay(delayTicks int) {
	if delayTicks < 0 {
		delayTicks = 0
	}
	c.delay = uint64(delayTicks)
}
