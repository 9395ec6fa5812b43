package core

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/automoto/podracer-mp/config"
	"github.com/automoto/podracer-mp/shared/messages"
	"github.com/automoto/podracer-mp/shared/netcomponents"
	"github.com/automoto/podracer-mp/shared/protocol"
	"github.com/automoto/podracer-mp/shared/trackdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := protocol.RegisterComponents(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakePeer struct {
	id   string
	sent []any
}

func (p *fakePeer) Id() string { return p.id }

func (p *fakePeer) SendMessage(msg any) error {
	p.sent = append(p.sent, msg)
	return nil
}

func (p *fakePeer) last() any {
	if len(p.sent) == 0 {
		return nil
	}
	return p.sent[len(p.sent)-1]
}

type testServer struct {
	*Server
	clock time.Time
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Defaults()
	cfg.Server.MaxPlayers = 2
	if mutate != nil {
		mutate(&cfg)
	}
	ts := &testServer{clock: time.Unix(1000, 0)}
	ts.Server = NewServer(cfg, "arena", trackdata.Arena(20000, 20000))
	ts.now = func() time.Time { return ts.clock }
	return ts
}

func (ts *testServer) joinPeer(t *testing.T, id string, req messages.JoinRequest) (*fakePeer, any) {
	t.Helper()
	p := &fakePeer{id: id}
	ts.enqueue(joinCommand{peer: p, req: req})
	ts.ProcessCommands()
	return p, p.last()
}

func TestServer_JoinAccepted(t *testing.T) {
	ts := newTestServer(t, nil)

	_, reply := ts.joinPeer(t, "c1", messages.JoinRequest{PlayerName: "alice"})
	acc, ok := reply.(messages.JoinAccepted)
	require.True(t, ok, "got %T", reply)
	assert.NotEmpty(t, acc.ReconnectToken)
	assert.Equal(t, "arena", acc.Track)
	assert.Equal(t, 0, acc.Slot)
	assert.False(t, acc.Resumed)
	assert.Equal(t, 1, ts.PlayerCount())
	assert.Len(t, ts.Authority().Pods(), 1)

	_, reply = ts.joinPeer(t, "c2", messages.JoinRequest{})
	acc = reply.(messages.JoinAccepted)
	assert.Equal(t, 1, acc.Slot)
}

func TestServer_RejectsVersionMismatch(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Server.Version = "podracer/1" })

	_, reply := ts.joinPeer(t, "c1", messages.JoinRequest{Version: "podracer/0"})
	rej, ok := reply.(messages.JoinRejected)
	require.True(t, ok)
	assert.Contains(t, rej.Reason, "version mismatch")
	assert.Zero(t, ts.PlayerCount())
}

func TestServer_RejectsWhenFull(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.joinPeer(t, "c1", messages.JoinRequest{})
	ts.joinPeer(t, "c2", messages.JoinRequest{})

	_, reply := ts.joinPeer(t, "c3", messages.JoinRequest{})
	assert.Equal(t, messages.JoinRejected{Reason: "server full"}, reply)
}

func TestServer_MovesReachAuthority(t *testing.T) {
	ts := newTestServer(t, nil)
	p, _ := ts.joinPeer(t, "c1", messages.JoinRequest{})

	ts.enqueue(moveCommand{peer: p, moves: []messages.PodMove{move(1), move(2)}})
	ts.ProcessCommands()
	stats := ts.Authority().Tick()
	assert.Equal(t, 2, stats.Accepted)

	// Unknown peers are ignored.
	ts.enqueue(moveCommand{peer: &fakePeer{id: "ghost"}, moves: []messages.PodMove{move(3)}})
	ts.ProcessCommands()
	assert.Zero(t, ts.Authority().Tick().Accepted)
}

func TestServer_ReconnectWithinGrace(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Server.ReconnectGrace = 10 * time.Second })
	p, reply := ts.joinPeer(t, "c1", messages.JoinRequest{PlayerName: "alice"})
	first := reply.(messages.JoinAccepted)

	ts.enqueue(leaveCommand{peer: p, err: errors.New("connection reset")})
	ts.ProcessCommands()
	assert.Zero(t, ts.PlayerCount())
	pods := ts.Authority().Pods()
	require.Len(t, pods, 1, "pod held during grace")
	info := netcomponents.NetPodInfo.Get(ts.World().Entry(pods[0]))
	assert.False(t, info.Connected)

	ts.clock = ts.clock.Add(5 * time.Second)
	_, reply = ts.joinPeer(t, "c1-again", messages.JoinRequest{ReconnectToken: first.ReconnectToken})
	second, ok := reply.(messages.JoinAccepted)
	require.True(t, ok)
	assert.True(t, second.Resumed)
	assert.Equal(t, first.NetworkID, second.NetworkID)
	assert.Equal(t, first.Slot, second.Slot)
	assert.Equal(t, 1, ts.PlayerCount())
	assert.True(t, netcomponents.NetPodInfo.Get(ts.World().Entry(pods[0])).Connected)
}

func TestServer_GraceExpiry(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Server.ReconnectGrace = 10 * time.Second })
	p, reply := ts.joinPeer(t, "c1", messages.JoinRequest{})
	token := reply.(messages.JoinAccepted).ReconnectToken

	ts.enqueue(leaveCommand{peer: p})
	ts.ProcessCommands()

	ts.clock = ts.clock.Add(11 * time.Second)
	ts.ProcessCommands()
	assert.Empty(t, ts.Authority().Pods())

	_, reply = ts.joinPeer(t, "c2", messages.JoinRequest{ReconnectToken: token})
	acc, ok := reply.(messages.JoinAccepted)
	require.True(t, ok, "expired token joins fresh")
	assert.False(t, acc.Resumed)
	assert.NotEqual(t, token, acc.ReconnectToken)
}

func TestServer_NoGraceRemovesPodImmediately(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Server.ReconnectGrace = 0 })
	p, _ := ts.joinPeer(t, "c1", messages.JoinRequest{})

	ts.enqueue(leaveCommand{peer: p})
	ts.ProcessCommands()
	assert.Empty(t, ts.Authority().Pods())
}

func TestServer_DetachedPodHoldsSlot(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Server.ReconnectGrace = time.Minute })
	p, _ := ts.joinPeer(t, "c1", messages.JoinRequest{})
	ts.joinPeer(t, "c2", messages.JoinRequest{})
	ts.enqueue(leaveCommand{peer: p})
	ts.ProcessCommands()

	_, reply := ts.joinPeer(t, "c3", messages.JoinRequest{})
	assert.Equal(t, messages.JoinRejected{Reason: "server full"}, reply)
}

func TestServer_FullQueueKeepsJoinsAndLeaves(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Server.ReconnectGrace = 0 })
	ts.moveBacklog = 4
	p, _ := ts.joinPeer(t, "c1", messages.JoinRequest{})

	for seq := uint32(1); seq <= 6; seq++ {
		ts.enqueue(moveCommand{peer: p, moves: []messages.PodMove{move(seq)}})
	}
	ts.enqueue(moveCommand{peer: p, moves: []messages.PodMove{move(7), move(8)}})
	ts.enqueue(leaveCommand{peer: p})
	late := &fakePeer{id: "c2"}
	ts.enqueue(joinCommand{peer: late})
	assert.Equal(t, uint64(4), ts.DroppedMoves())

	ts.ProcessCommands()
	assert.Equal(t, 1, ts.PlayerCount(), "c1 left and c2 joined")
	require.Len(t, ts.Authority().Pods(), 1)
	_, ok := late.last().(messages.JoinAccepted)
	assert.True(t, ok)

	// The backlog frees up once the game loop has drained it.
	ts.enqueue(moveCommand{peer: late, moves: []messages.PodMove{move(1)}})
	ts.ProcessCommands()
	assert.Equal(t, 1, ts.Authority().Tick().Accepted)
	assert.Equal(t, uint64(4), ts.DroppedMoves())
}
