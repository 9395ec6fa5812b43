package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRegistry(ttl time.Duration) (*Registry, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	return newRegistry(ttl, c.now), c
}

func TestRegistry_RegisterAndList(t *testing.T) {
	reg, _ := newTestRegistry(time.Minute)

	a, _ := reg.Register(ServerInfo{Name: "b-server", Address: "10.0.0.2:7373", Track: "canyon"})
	b, _ := reg.Register(ServerInfo{Name: "a-server", Address: "10.0.0.1:7373", Track: "dunes"})
	require.NotEqual(t, a, b)
	assert.Len(t, a, 16)

	all := reg.List("")
	require.Len(t, all, 2)
	assert.Equal(t, "a-server", all[0].Name)
	assert.Equal(t, b, all[0].ID)

	canyon := reg.List("canyon")
	require.Len(t, canyon, 1)
	assert.Equal(t, a, canyon[0].ID)
	assert.Empty(t, reg.List("nowhere"))
}

func TestRegistry_HeartbeatUpdatesPlayers(t *testing.T) {
	reg, _ := newTestRegistry(time.Minute)
	id, _ := reg.Register(ServerInfo{Name: "s", Address: "a", MaxPlayers: 8})

	require.NoError(t, reg.Heartbeat(id, 5))
	assert.Equal(t, 5, reg.List("")[0].Players)
	require.NoError(t, reg.Heartbeat(id, 12))
	assert.Equal(t, 8, reg.List("")[0].Players, "capped at maxPlayers")
	assert.ErrorIs(t, reg.Heartbeat("missing", 1), errUnknownServer)
}

func TestRegistry_SameAddressReplaces(t *testing.T) {
	reg, _ := newTestRegistry(time.Minute)
	first, replaced := reg.Register(ServerInfo{Name: "s", Address: "10.0.0.1:7373"})
	assert.False(t, replaced)
	second, replaced := reg.Register(ServerInfo{Name: "s", Address: "10.0.0.1:7373"})
	assert.True(t, replaced)

	require.Equal(t, 1, reg.Len())
	assert.Equal(t, second, reg.List("")[0].ID)
	assert.ErrorIs(t, reg.Heartbeat(first, 0), errUnknownServer)

	assert.False(t, reg.Deregister(first))
	assert.True(t, reg.Deregister(second))
	assert.Zero(t, reg.Len())
	again, replaced := reg.Register(ServerInfo{Name: "s", Address: "10.0.0.1:7373"})
	assert.False(t, replaced)
	assert.NotEqual(t, second, again)
}

func TestRegistry_ListPutsFullServersLast(t *testing.T) {
	reg, _ := newTestRegistry(time.Minute)
	full, _ := reg.Register(ServerInfo{Name: "a", Address: "a:1", Players: 4, MaxPlayers: 4})
	open, _ := reg.Register(ServerInfo{Name: "b", Address: "b:1", Players: 1, MaxPlayers: 4})
	uncapped, _ := reg.Register(ServerInfo{Name: "c", Address: "c:1", Players: 50})

	var ids []string
	for _, s := range reg.List("") {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{open, uncapped, full}, ids)
}

func TestRegistry_Expire(t *testing.T) {
	reg, clk := newTestRegistry(90 * time.Second)
	stale, _ := reg.Register(ServerInfo{Name: "stale", Address: "a"})
	clk.advance(60 * time.Second)
	live, _ := reg.Register(ServerInfo{Name: "live", Address: "b"})

	clk.advance(30 * time.Second)
	assert.Equal(t, 1, reg.expire())
	assert.ErrorIs(t, reg.Heartbeat(stale, 0), errUnknownServer, "expired servers must re-register")

	require.NoError(t, reg.Heartbeat(live, 2))
	clk.advance(89 * time.Second)
	assert.Zero(t, reg.expire())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_StopTwice(t *testing.T) {
	reg := NewRegistry(time.Minute)
	reg.Stop()
	assert.NotPanics(t, reg.Stop)
}
