package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/automoto/podracer-mp/archetypes"
	"github.com/automoto/podracer-mp/components"
	"github.com/automoto/podracer-mp/config"
	"github.com/automoto/podracer-mp/shared/gamemath"
	"github.com/automoto/podracer-mp/shared/messages"
	"github.com/automoto/podracer-mp/shared/netcomponents"
	"github.com/automoto/podracer-mp/shared/podphysics"
	"github.com/rs/zerolog/log"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var (
	ErrUnknownPod    = errors.New("unknown pod")
	ErrInboxFull     = errors.New("move inbox full")
	ErrUnknownEngine = errors.New("unknown engine")
)

// RejectReason says why a move was not applied.
type RejectReason int

const (
	MoveAccepted RejectReason = iota
	RejectStaleSequence
	RejectDeltaTime
	RejectInput
	RejectPosition
)

func (r RejectReason) String() string {
	switch r {
	case MoveAccepted:
		return "accepted"
	case RejectStaleSequence:
		return "stale_sequence"
	case RejectDeltaTime:
		return "delta_time"
	case RejectInput:
		return "input"
	case RejectPosition:
		return "position"
	default:
		return "unknown"
	}
}

// TickStats summarises one authority tick.
type TickStats struct {
	Accepted int
	Rejected int
	Updated  int // pods that published a new replicated state
}

// Authority owns the server copy of every pod. It queues the moves clients send,
// validates them and re-simulates the valid ones with the same Step the clients
// predict with. It is driven from the game loop goroutine only.
type Authority struct {
	world   donburi.World
	track   *podphysics.Track
	tuning  podphysics.Tuning
	limits  config.AuthorityConfig
	pods    *donburi.Query
	metrics authorityMetrics

	broadcasts uint64
}

func NewAuthority(world donburi.World, track *podphysics.Track, tuning podphysics.Tuning, limits config.AuthorityConfig) *Authority {
	return &Authority{
		world:   world,
		track:   track,
		tuning:  tuning,
		limits:  limits,
		pods:    donburi.NewQuery(filter.Contains(components.PodBody)),
		metrics: newAuthorityMetrics(),
	}
}

// AddPod spawns a pod resting on grid slot and returns its entry.
func (a *Authority) AddPod(slot int, playerName, owner string) *donburi.Entry {
	entry := archetypes.ServerPod.Spawn(a.world)
	st := a.track.Spawn(slot, a.tuning)

	components.PodBody.SetValue(entry, components.PodBodyData{
		State:              st,
		ReplicationCounter: 1,
		Owner:              owner,
		Slot:               slot,
	})
	netcomponents.NetPodState.SetValue(entry, netcomponents.FromPodState(st, 0, 1))
	netcomponents.NetPodInfo.SetValue(entry, netcomponents.NetPodInfoData{
		PlayerName: playerName,
		Slot:       slot,
		Connected:  true,
	})

	log.Info().Int("slot", slot).Str("player", playerName).
		Float64("x", st.Position[0]).Float64("y", st.Position[1]).Msg("pod spawned")
	return entry
}

// RemovePod deletes a pod from the world.
func (a *Authority) RemovePod(e donburi.Entity) {
	if a.world.Valid(e) {
		a.world.Remove(e)
	}
}

// SetOwner attaches the pod to a client, or detaches it when owner is empty.
// Detaching discards queued moves.
func (a *Authority) SetOwner(e donburi.Entity, owner string) error {
	entry, err := a.entry(e)
	if err != nil {
		return err
	}
	body := components.PodBody.Get(entry)
	body.Owner = owner
	if owner == "" {
		body.Inbox = body.Inbox[:0]
	}
	netcomponents.NetPodInfo.Get(entry).Connected = owner != ""
	return nil
}

// Submit queues a move for the next tick. Moves beyond the inbox limit are
// dropped and ErrInboxFull is returned.
func (a *Authority) Submit(e donburi.Entity, move messages.PodMove) error {
	entry, err := a.entry(e)
	if err != nil {
		return err
	}
	body := components.PodBody.Get(entry)
	if a.limits.InboxLimit > 0 && len(body.Inbox) >= a.limits.InboxLimit {
		a.metrics.dropped(1)
		return fmt.Errorf("%w: seq %d", ErrInboxFull, move.Sequence)
	}
	body.Inbox = append(body.Inbox, move)
	return nil
}

// Validate checks move against the pod's current server state.
func (a *Authority) Validate(body *components.PodBodyData, move messages.PodMove) RejectReason {
	if move.Sequence <= body.LastProcessedSequence {
		return RejectStaleSequence
	}
	if !gamemath.IsFinite(move.DeltaTime) || move.DeltaTime <= 0 || move.DeltaTime > a.limits.MaxMoveDeltaTime {
		return RejectDeltaTime
	}
	if !validAxis(move.Throttle) || !validAxis(move.Steer) {
		return RejectInput
	}
	if a.limits.Strict {
		claimed := move.ClientPosition
		if !gamemath.IsFinite(claimed[0]) || !gamemath.IsFinite(claimed[1]) || !gamemath.IsFinite(claimed[2]) {
			return RejectPosition
		}
		pos := body.State.Position
		if math.Abs(claimed[2]-pos[2]) >= a.limits.ZTolerance {
			return RejectPosition
		}
		if math.Hypot(claimed[0]-pos[0], claimed[1]-pos[1]) >= a.limits.XYTolerance {
			return RejectPosition
		}
	}
	return MoveAccepted
}

func validAxis(v float64) bool {
	return gamemath.IsFinite(v) && math.Abs(v) <= 1
}

// Tick drains up to MaxMovesPerTick queued moves per pod, applying the valid
// ones in order. A pod publishes a new replicated state with a bumped counter
// when it consumed at least one sequence, or when ForceUpdateTicks ticks have
// passed since its last publish.
func (a *Authority) Tick() TickStats {
	var stats TickStats
	a.pods.Each(a.world, func(entry *donburi.Entry) {
		accepted, rejected, published := a.processPod(entry)
		stats.Accepted += accepted
		stats.Rejected += rejected
		if published {
			stats.Updated++
		}
	})
	return stats
}

func (a *Authority) processPod(entry *donburi.Entry) (accepted, rejected int, published bool) {
	body := components.PodBody.Get(entry)
	n := len(body.Inbox)
	if a.limits.MaxMovesPerTick > 0 && n > a.limits.MaxMovesPerTick {
		n = a.limits.MaxMovesPerTick
	}

	consumed := false
	for _, move := range body.Inbox[:n] {
		reason := a.Validate(body, move)
		if reason == MoveAccepted {
			body.State = podphysics.Step(a.track, a.tuning, body.State, move.Input(), move.DeltaTime)
			body.LastProcessedSequence = move.Sequence
			accepted++
			continue
		}

		rejected++
		a.metrics.rejected(reason)
		log.Debug().Str("owner", body.Owner).Uint32("seq", move.Sequence).
			Uint32("last", body.LastProcessedSequence).Stringer("reason", reason).
			Msg("move rejected")
		if reason != RejectStaleSequence {
			// The sequence is used up even though the state stays put, so the
			// owner sees it acknowledged and reconciles without it.
			body.LastProcessedSequence = move.Sequence
			consumed = true
		}
	}

	if n > 0 {
		remaining := copy(body.Inbox, body.Inbox[n:])
		body.Inbox = body.Inbox[:remaining]
	}

	body.Accepted += uint64(accepted)
	body.Rejected += uint64(rejected)
	a.metrics.accepted(accepted)

	body.QuietTicks++
	forced := a.limits.ForceUpdateTicks > 0 && body.QuietTicks >= a.limits.ForceUpdateTicks
	if accepted > 0 || consumed || forced {
		a.publish(entry, body)
		published = true
	}
	return accepted, rejected, published
}

// publish bumps the pod's replication counter and copies its state into the
// replicated component.
func (a *Authority) publish(entry *donburi.Entry, body *components.PodBodyData) {
	body.ReplicationCounter++
	body.QuietTicks = 0
	netcomponents.NetPodState.SetValue(entry,
		netcomponents.FromPodState(body.State, body.LastProcessedSequence, body.ReplicationCounter))
	a.broadcasts++
	a.metrics.broadcast()
}

// Broadcasts is the number of pod states published since the authority
// started, spawns excluded.
func (a *Authority) Broadcasts() uint64 {
	return a.broadcasts
}

// DamageEngine removes health from one of the pod's engines and publishes the
// result so the owner reconciles onto it.
func (a *Authority) DamageEngine(e donburi.Entity, engine int, amount float64) error {
	return a.changeEngine(e, engine, func(st podphysics.State) podphysics.State {
		return st.DamageEngine(a.tuning, engine, amount)
	})
}

// RepairEngine restores an engine to full health.
func (a *Authority) RepairEngine(e donburi.Entity, engine int) error {
	return a.changeEngine(e, engine, func(st podphysics.State) podphysics.State {
		return st.RepairEngine(a.tuning, engine)
	})
}

// BoostEngine boosts an engine for the given number of seconds.
func (a *Authority) BoostEngine(e donburi.Entity, engine int, seconds float64) error {
	return a.changeEngine(e, engine, func(st podphysics.State) podphysics.State {
		return st.BoostEngine(a.tuning, engine, seconds)
	})
}

// SetEngineEnabled switches an engine on or off.
func (a *Authority) SetEngineEnabled(e donburi.Entity, engine int, enabled bool) error {
	return a.changeEngine(e, engine, func(st podphysics.State) podphysics.State {
		return st.SetEngineEnabled(a.tuning, engine, enabled)
	})
}

func (a *Authority) changeEngine(e donburi.Entity, engine int, change func(podphysics.State) podphysics.State) error {
	entry, err := a.entry(e)
	if err != nil {
		return err
	}
	if engine < 0 || engine >= len(a.tuning.Engines) || engine >= podphysics.MaxEngines {
		return fmt.Errorf("%w: %d", ErrUnknownEngine, engine)
	}
	body := components.PodBody.Get(entry)
	before := body.State.Engines
	body.State = change(body.State)
	if body.State.Engines == before {
		return nil
	}
	log.Info().Str("owner", body.Owner).Int("engine", engine).
		Stringer("status", body.State.EngineStatus(a.tuning, engine)).Msg("engine changed")
	a.publish(entry, body)
	return nil
}

// State returns the pod's current server state.
func (a *Authority) State(e donburi.Entity) (podphysics.State, error) {
	entry, err := a.entry(e)
	if err != nil {
		return podphysics.State{}, err
	}
	return components.PodBody.Get(entry).State, nil
}

// Body returns the pod's server-side record.
func (a *Authority) Body(e donburi.Entity) (*components.PodBodyData, error) {
	entry, err := a.entry(e)
	if err != nil {
		return nil, err
	}
	return components.PodBody.Get(entry), nil
}

// Pods returns every simulated pod.
func (a *Authority) Pods() []donburi.Entity {
	var out []donburi.Entity
	a.pods.Each(a.world, func(entry *donburi.Entry) {
		out = append(out, entry.Entity())
	})
	return out
}

func (a *Authority) entry(e donburi.Entity) (*donburi.Entry, error) {
	if !a.world.Valid(e) {
		return nil, ErrUnknownPod
	}
	entry := a.world.Entry(e)
	if !entry.HasComponent(components.PodBody) {
		return nil, ErrUnknownPod
	}
	return entry, nil
}
