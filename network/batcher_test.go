package network

import (
	"testing"
	"time"

	"github.com/automoto/podracer-mp/shared/messages"
	"github.com/stretchr/testify/assert"
)

func TestMoveBatcher(t *testing.T) {
	b := NewMoveBatcher(3)
	start := time.Unix(100, 0)

	_, ok := b.Flush(start, 0)
	assert.False(t, ok, "nothing queued")

	b.Add(messages.PodMove{Sequence: 1})
	out, ok := b.Flush(start, 100*time.Millisecond)
	assert.True(t, ok, "first flush is never throttled")
	assert.Len(t, out, 1)

	b.Add(messages.PodMove{Sequence: 2})
	_, ok = b.Flush(start.Add(50*time.Millisecond), 100*time.Millisecond)
	assert.False(t, ok)

	b.Add(messages.PodMove{Sequence: 3})
	b.Add(messages.PodMove{Sequence: 4})
	out, ok = b.Flush(start.Add(60*time.Millisecond), 100*time.Millisecond)
	assert.True(t, ok, "full batch flushes early")
	assert.Equal(t, []uint32{2, 3, 4}, []uint32{out[0].Sequence, out[1].Sequence, out[2].Sequence})
	assert.Zero(t, b.Len())
}

func TestClientStateString(t *testing.T) {
	assert.Equal(t, "joined", StateJoinedGame.String())
	assert.Equal(t, "unknown", ClientState(42).String())
}

func TestClient_SendWithoutConnection(t *testing.T) {
	c := NewClient()
	assert.NoError(t, c.SendMoves(nil))
	assert.ErrorIs(t, c.SendMoves([]messages.PodMove{{Sequence: 1}}), ErrNotConnected)
	assert.Nil(t, c.LatestSnapshot())
	assert.Equal(t, StateDisconnected, c.State())
}
