package core

import (
	"math"
	"testing"

	"github.com/automoto/podracer-mp/components"
	"github.com/automoto/podracer-mp/config"
	"github.com/automoto/podracer-mp/shared/messages"
	"github.com/automoto/podracer-mp/shared/netcomponents"
	"github.com/automoto/podracer-mp/shared/podphysics"
	"github.com/automoto/podracer-mp/shared/trackdata"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
)

const tick = 1.0 / 60

func newTestAuthority(t *testing.T, mutate func(*config.AuthorityConfig)) (*Authority, donburi.World) {
	t.Helper()
	cfg := config.Defaults()
	if mutate != nil {
		mutate(&cfg.Authority)
	}
	world := donburi.NewWorld()
	track := podphysics.NewTrack(trackdata.Arena(20000, 20000), 0)
	return NewAuthority(world, track, cfg.Tuning, cfg.Authority), world
}

func move(seq uint32) messages.PodMove {
	return messages.PodMove{Sequence: seq, Throttle: 1, DeltaTime: tick}
}

func TestAuthority_AddPod(t *testing.T) {
	a, world := newTestAuthority(t, nil)

	entry := a.AddPod(1, "alice", "client-1")
	require.True(t, world.Valid(entry.Entity()))

	st, err := a.State(entry.Entity())
	require.NoError(t, err)
	assert.True(t, st.Grounded)

	net := netcomponents.NetPodState.Get(entry)
	assert.Equal(t, uint32(1), net.ReplicationCounter)
	assert.Zero(t, net.LastProcessedSequence)
	assert.Equal(t, st.Position, net.Position)

	info := netcomponents.NetPodInfo.Get(entry)
	assert.Equal(t, "alice", info.PlayerName)
	assert.Equal(t, 1, info.Slot)
	assert.True(t, info.Connected)
	assert.Equal(t, []donburi.Entity{entry.Entity()}, a.Pods())
}

func TestAuthority_AppliesMovesInOrder(t *testing.T) {
	a, _ := newTestAuthority(t, nil)
	entry := a.AddPod(0, "p", "c")
	e := entry.Entity()
	start, _ := a.State(e)

	for seq := uint32(1); seq <= 3; seq++ {
		require.NoError(t, a.Submit(e, move(seq)))
	}
	stats := a.Tick()
	assert.Equal(t, TickStats{Accepted: 3, Updated: 1}, stats)

	expected := start
	track := podphysics.NewTrack(trackdata.Arena(20000, 20000), 0)
	for seq := uint32(1); seq <= 3; seq++ {
		expected = podphysics.Step(track, config.Defaults().Tuning, expected, move(seq).Input(), tick)
	}
	st, _ := a.State(e)
	assert.Equal(t, expected, st)

	net := netcomponents.NetPodState.Get(entry)
	assert.Equal(t, uint32(3), net.LastProcessedSequence)
	assert.Equal(t, uint32(2), net.ReplicationCounter)
	assert.Equal(t, expected.Position, net.Position)
}

func TestAuthority_Validate(t *testing.T) {
	a, _ := newTestAuthority(t, func(c *config.AuthorityConfig) { c.Strict = true })
	body := &components.PodBodyData{LastProcessedSequence: 10}
	body.State.Position = mgl64.Vec3{1000, 1000, 100}

	valid := messages.PodMove{Sequence: 11, Throttle: 1, Steer: -1, DeltaTime: tick, ClientPosition: body.State.Position}

	tests := []struct {
		name   string
		mutate func(*messages.PodMove)
		want   RejectReason
	}{
		{"valid", func(*messages.PodMove) {}, MoveAccepted},
		{"max dt", func(m *messages.PodMove) { m.DeltaTime = 0.25 }, MoveAccepted},
		{"duplicate sequence", func(m *messages.PodMove) { m.Sequence = 10 }, RejectStaleSequence},
		{"old sequence", func(m *messages.PodMove) { m.Sequence = 3 }, RejectStaleSequence},
		{"zero dt", func(m *messages.PodMove) { m.DeltaTime = 0 }, RejectDeltaTime},
		{"negative dt", func(m *messages.PodMove) { m.DeltaTime = -tick }, RejectDeltaTime},
		{"huge dt", func(m *messages.PodMove) { m.DeltaTime = 0.5 }, RejectDeltaTime},
		{"nan dt", func(m *messages.PodMove) { m.DeltaTime = math.NaN() }, RejectDeltaTime},
		{"throttle range", func(m *messages.PodMove) { m.Throttle = 1.5 }, RejectInput},
		{"steer nan", func(m *messages.PodMove) { m.Steer = math.NaN() }, RejectInput},
		{"steer inf", func(m *messages.PodMove) { m.Steer = math.Inf(-1) }, RejectInput},
		{"z teleport", func(m *messages.PodMove) { m.ClientPosition[2] += 1000 }, RejectPosition},
		{"z within tolerance", func(m *messages.PodMove) { m.ClientPosition[2] += 999 }, MoveAccepted},
		{"xy teleport", func(m *messages.PodMove) { m.ClientPosition[0] += 20000 }, RejectPosition},
		{"position nan", func(m *messages.PodMove) { m.ClientPosition[1] = math.NaN() }, RejectPosition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			assert.Equal(t, tt.want, a.Validate(body, m))
		})
	}
}

func TestAuthority_ValidateIgnoresPositionWhenLenient(t *testing.T) {
	a, _ := newTestAuthority(t, nil)
	body := &components.PodBodyData{}
	m := move(1)
	m.ClientPosition = mgl64.Vec3{1e9, 1e9, 1e9}
	assert.Equal(t, MoveAccepted, a.Validate(body, m))
}

func TestAuthority_RejectedMovesNeverAdvanceState(t *testing.T) {
	a, _ := newTestAuthority(t, nil)
	entry := a.AddPod(0, "p", "c")
	e := entry.Entity()
	start, _ := a.State(e)

	bad := []messages.PodMove{
		{Sequence: 1, Throttle: 1, DeltaTime: 5},
		{Sequence: 2, Throttle: 3, DeltaTime: tick},
		{Sequence: 0, Throttle: 1, DeltaTime: tick},
	}
	for _, m := range bad {
		require.NoError(t, a.Submit(e, m))
	}
	stats := a.Tick()
	assert.Equal(t, TickStats{Rejected: 3, Updated: 1}, stats)

	st, _ := a.State(e)
	assert.Equal(t, start, st)
	net := netcomponents.NetPodState.Get(entry)
	assert.Equal(t, uint32(2), net.ReplicationCounter, "rejections still publish")
	assert.Equal(t, uint32(2), net.LastProcessedSequence, "rejected sequences are consumed")
	assert.Equal(t, start.Position, net.Position)

	body, err := a.Body(e)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), body.Rejected)
	assert.Empty(t, body.Inbox)
}

func TestAuthority_StrictRejectionKeepsPublishing(t *testing.T) {
	a, _ := newTestAuthority(t, func(c *config.AuthorityConfig) {
		c.Strict = true
		c.XYTolerance = 3000
	})
	entry := a.AddPod(0, "p", "c")
	e := entry.Entity()
	start, _ := a.State(e)

	// Every move claims a position far from the server's.
	for seq := uint32(1); seq <= 20; seq++ {
		m := move(seq)
		m.ClientPosition = start.Position.Add(mgl64.Vec3{0, 5000, 0})
		require.NoError(t, a.Submit(e, m))
		stats := a.Tick()
		assert.Equal(t, TickStats{Rejected: 1, Updated: 1}, stats)

		net := netcomponents.NetPodState.Get(entry)
		assert.Equal(t, seq, net.LastProcessedSequence)
		assert.Equal(t, seq+1, net.ReplicationCounter)
	}
	st, _ := a.State(e)
	assert.Equal(t, start, st)

	// A move that claims the server position is applied again.
	m := move(21)
	m.ClientPosition = start.Position
	require.NoError(t, a.Submit(e, m))
	assert.Equal(t, TickStats{Accepted: 1, Updated: 1}, a.Tick())
}

func TestAuthority_ForcedUpdateWhenIdle(t *testing.T) {
	a, _ := newTestAuthority(t, func(c *config.AuthorityConfig) { c.ForceUpdateTicks = 5 })
	entry := a.AddPod(0, "p", "c")

	var updates int
	for i := 0; i < 20; i++ {
		updates += a.Tick().Updated
	}
	assert.Equal(t, 4, updates)
	assert.Equal(t, uint64(4), a.Broadcasts())
	net := netcomponents.NetPodState.Get(entry)
	assert.Equal(t, uint32(5), net.ReplicationCounter)
	assert.Zero(t, net.LastProcessedSequence)

	// Traffic restarts the quiet period.
	require.NoError(t, a.Submit(entry.Entity(), move(1)))
	assert.Equal(t, 1, a.Tick().Updated)
	for i := 0; i < 4; i++ {
		assert.Zero(t, a.Tick().Updated)
	}
	assert.Equal(t, 1, a.Tick().Updated)
}

func TestAuthority_EngineChangesPublish(t *testing.T) {
	a, _ := newTestAuthority(t, nil)
	entry := a.AddPod(0, "p", "c")
	e := entry.Entity()
	tn := config.Defaults().Tuning

	require.NoError(t, a.DamageEngine(e, 0, 1000))
	net := netcomponents.NetPodState.Get(entry)
	assert.Equal(t, uint32(2), net.ReplicationCounter)
	assert.Equal(t, podphysics.EngineDestroyed, net.PodState().EngineStatus(tn, 0))

	// Boosting a destroyed engine changes nothing and publishes nothing.
	require.NoError(t, a.BoostEngine(e, 0, 2))
	assert.Equal(t, uint32(2), netcomponents.NetPodState.Get(entry).ReplicationCounter)
	assert.Equal(t, uint64(1), a.Broadcasts())

	require.NoError(t, a.RepairEngine(e, 0))
	require.NoError(t, a.BoostEngine(e, 1, 2))
	require.NoError(t, a.SetEngineEnabled(e, 0, false))
	net = netcomponents.NetPodState.Get(entry)
	assert.Equal(t, uint32(5), net.ReplicationCounter)
	st := net.PodState()
	assert.Equal(t, podphysics.EngineDisabled, st.EngineStatus(tn, 0))
	assert.Equal(t, podphysics.EngineBoosted, st.EngineStatus(tn, 1))

	assert.ErrorIs(t, a.DamageEngine(e, len(tn.Engines), 10), ErrUnknownEngine)
	assert.ErrorIs(t, a.BoostEngine(e, -1, 1), ErrUnknownEngine)
	a.RemovePod(e)
	assert.ErrorIs(t, a.RepairEngine(e, 0), ErrUnknownPod)
}

func TestAuthority_DuplicateMoveAppliedOnce(t *testing.T) {
	a, _ := newTestAuthority(t, nil)
	e := a.AddPod(0, "p", "c").Entity()

	require.NoError(t, a.Submit(e, move(1)))
	require.NoError(t, a.Submit(e, move(1)))
	stats := a.Tick()
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 1, stats.Rejected)
}

func TestAuthority_MaxMovesPerTickCarriesOver(t *testing.T) {
	a, _ := newTestAuthority(t, func(c *config.AuthorityConfig) { c.MaxMovesPerTick = 4 })
	entry := a.AddPod(0, "p", "c")
	e := entry.Entity()

	for seq := uint32(1); seq <= 10; seq++ {
		require.NoError(t, a.Submit(e, move(seq)))
	}

	assert.Equal(t, 4, a.Tick().Accepted)
	assert.Equal(t, uint32(4), netcomponents.NetPodState.Get(entry).LastProcessedSequence)
	assert.Equal(t, 4, a.Tick().Accepted)
	assert.Equal(t, 2, a.Tick().Accepted)
	assert.Equal(t, TickStats{}, a.Tick())

	net := netcomponents.NetPodState.Get(entry)
	assert.Equal(t, uint32(10), net.LastProcessedSequence)
	assert.Equal(t, uint32(4), net.ReplicationCounter)
}

func TestAuthority_InboxLimit(t *testing.T) {
	a, _ := newTestAuthority(t, func(c *config.AuthorityConfig) { c.InboxLimit = 2 })
	e := a.AddPod(0, "p", "c").Entity()

	require.NoError(t, a.Submit(e, move(1)))
	require.NoError(t, a.Submit(e, move(2)))
	assert.ErrorIs(t, a.Submit(e, move(3)), ErrInboxFull)
}

func TestAuthority_UnknownPod(t *testing.T) {
	a, _ := newTestAuthority(t, nil)
	e := a.AddPod(0, "p", "c").Entity()
	a.RemovePod(e)

	assert.ErrorIs(t, a.Submit(e, move(1)), ErrUnknownPod)
	_, err := a.State(e)
	assert.ErrorIs(t, err, ErrUnknownPod)
	assert.Empty(t, a.Pods())
}

func TestAuthority_DetachDropsInbox(t *testing.T) {
	a, _ := newTestAuthority(t, nil)
	entry := a.AddPod(0, "p", "c")
	e := entry.Entity()

	require.NoError(t, a.Submit(e, move(1)))
	require.NoError(t, a.SetOwner(e, ""))
	assert.False(t, netcomponents.NetPodInfo.Get(entry).Connected)
	assert.Zero(t, a.Tick().Accepted)

	require.NoError(t, a.SetOwner(e, "c2"))
	assert.True(t, netcomponents.NetPodInfo.Get(entry).Connected)
	body, _ := a.Body(e)
	assert.Equal(t, "c2", body.Owner)
}

func TestAuthority_PodsAreIndependent(t *testing.T) {
	a, _ := newTestAuthority(t, nil)
	p1 := a.AddPod(0, "a", "c1").Entity()
	p2 := a.AddPod(1, "b", "c2").Entity()
	start2, _ := a.State(p2)

	require.NoError(t, a.Submit(p1, move(1)))
	stats := a.Tick()
	assert.Equal(t, TickStats{Accepted: 1, Updated: 1}, stats)

	st2, _ := a.State(p2)
	assert.Equal(t, start2, st2)
}
