package network

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/automoto/podracer-mp/config"
	"github.com/automoto/podracer-mp/shared/gamemath"
	"github.com/automoto/podracer-mp/shared/messages"
	"github.com/automoto/podracer-mp/shared/netcomponents"
	"github.com/automoto/podracer-mp/shared/podphysics"
	"github.com/rs/zerolog/log"
)

// ErrInvalidDeltaTime is returned by Tick for a non-positive or non-finite dt.
var ErrInvalidDeltaTime = errors.New("invalid delta time")

// PredictorOptions configures a Predictor.
type PredictorOptions struct {
	Tuning    podphysics.Tuning
	Reconcile config.ReconcileConfig
	Input     config.InputConfig

	// MaxDeltaTime caps the dt of a single move so the server never sees one
	// it would reject. Zero disables the cap.
	MaxDeltaTime float64

	// Now supplies move timestamps and latency samples; defaults to time.Now.
	Now func() time.Time
}

// Reconciliation reports what an authoritative snapshot did to the prediction.
type Reconciliation struct {
	Stale      bool // older than something already applied; ignored
	Adopted    bool // first snapshot: prediction started from it
	Discarded  int  // acknowledged moves removed from the queue
	Corrected  bool // divergence exceeded a threshold; snapped and replayed
	Replayed   int
	Divergence podphysics.Divergence
}

// Predictor runs the controller side of client prediction for the locally owned
// pod: every tick it builds a move, applies it immediately and queues it; every
// authoritative snapshot acknowledges queued moves and, when the server
// disagrees, snaps to the server state and replays what is still pending.
//
// A Predictor is not safe for concurrent use.
type Predictor struct {
	track    *podphysics.Track
	tuning   podphysics.Tuning
	limits   podphysics.Divergence
	maxDt    float64
	fixedAt  time.Duration // latency that switches on fixed height, 0 never
	now      func() time.Time
	smoother *InputSmoother
	queue    *PendingMoveQueue
	metrics  predictorMetrics

	state    podphysics.State
	baseline podphysics.State // prediction for the last acknowledged sequence
	seq      uint32
	lastAck  uint32
	counter  uint32
	adopted  bool
	latency  time.Duration
	fixed    bool

	onGroundChanged func(grounded bool)
}

// NewPredictor creates a predictor starting from initial. The track must be
// owned by this predictor alone.
func NewPredictor(track *podphysics.Track, initial podphysics.State, opts PredictorOptions) *Predictor {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Predictor{
		track:  track,
		tuning: opts.Tuning,
		limits: podphysics.Divergence{
			Position: opts.Reconcile.PositionThreshold,
			Rotation: opts.Reconcile.RotationThreshold,
			Velocity: opts.Reconcile.VelocityThreshold,
			YawRate:  opts.Reconcile.YawRateThreshold,
		},
		maxDt:    opts.MaxDeltaTime,
		fixedAt:  opts.Reconcile.FixedHeightLatency,
		now:      now,
		smoother: NewInputSmoother(opts.Input),
		queue:    NewPendingMoveQueue(opts.Reconcile.MaxPending),
		metrics:  newPredictorMetrics(),
		state:    initial,
		baseline: initial,
	}
}

// OnGroundChanged registers a callback fired whenever the predicted pod gains or
// loses ground contact.
func (p *Predictor) OnGroundChanged(fn func(grounded bool)) {
	p.onGroundChanged = fn
}

// Tick smooths raw input, builds the next move, predicts it locally and queues it.
// The returned move must be delivered to the server in order.
func (p *Predictor) Tick(raw RawInput, dt float64) (messages.PodMove, error) {
	if dt <= 0 || !gamemath.IsFinite(dt) {
		return messages.PodMove{}, fmt.Errorf("%w: %v", ErrInvalidDeltaTime, dt)
	}
	if p.maxDt > 0 && dt > p.maxDt {
		dt = p.maxDt
	}

	in := p.smoother.Apply(raw, dt)
	p.seq++
	move := messages.PodMove{
		Sequence:       p.seq,
		Throttle:       in.Throttle,
		Steer:          in.Steer,
		Boost:          in.Boost,
		Brake:          in.Brake,
		Drift:          in.Drift,
		DeltaTime:      dt,
		Timestamp:      p.now().UnixMilli(),
		ClientPosition: p.state.Position,
		FixedHeight:    p.useFixedHeight(),
	}

	p.setState(podphysics.Step(p.track, p.tuning, p.state, move.Input(), dt))

	overflow, err := p.queue.Push(move, p.state)
	if err != nil {
		return messages.PodMove{}, err
	}
	if overflow {
		addCount(p.metrics.overflows, 1)
		log.Warn().Uint32("seq", move.Sequence).Int("limit", p.queue.limit).
			Msg("pending move queue full, dropped oldest move")
	}
	return move, nil
}

// OnAuthoritativeState applies a replicated snapshot of the owned pod.
func (p *Predictor) OnAuthoritativeState(st netcomponents.NetPodStateData) Reconciliation {
	var r Reconciliation
	if p.adopted && (st.ReplicationCounter <= p.counter || st.LastProcessedSequence < p.lastAck) {
		r.Stale = true
		return r
	}
	p.counter = st.ReplicationCounter

	sameAck := st.LastProcessedSequence == p.lastAck
	acked, found, dropped := p.queue.Acknowledge(st.LastProcessedSequence)
	r.Discarded = dropped
	p.lastAck = st.LastProcessedSequence
	if found {
		p.sampleLatency(acked.Move.Timestamp)
	}

	auth := st.PodState()

	if !p.adopted {
		if st.LastProcessedSequence > p.seq {
			// The pod was driven by an earlier session; continue after its moves.
			p.seq = st.LastProcessedSequence
			p.queue.Resume(p.seq)
			log.Info().Uint32("seq", p.seq).Msg("resuming move sequence")
		}
		p.adopted = true
		r.Adopted = true
		r.Replayed = p.replay(auth)
		return r
	}

	var reference podphysics.State
	switch {
	case found:
		reference = acked.Predicted
	case sameAck:
		reference = p.baseline
	default:
		// The acknowledged move is no longer queued (dropped on overflow), so
		// there is nothing to compare against.
		r.Corrected = true
	}

	if !r.Corrected {
		r.Divergence = auth.Diff(reference)
		r.Corrected = r.Divergence.Exceeds(p.limits)
	}

	if !r.Corrected {
		p.baseline = reference
		return r
	}

	r.Replayed = p.replay(auth)
	addCount(p.metrics.corrections, 1)
	addCount(p.metrics.replayed, int64(r.Replayed))
	log.Debug().
		Uint32("ack", st.LastProcessedSequence).
		Float64("position", r.Divergence.Position).
		Float64("rotation", r.Divergence.Rotation).
		Float64("velocity", r.Divergence.Velocity).
		Int("replayed", r.Replayed).
		Msg("prediction corrected")
	return r
}

// replay snaps to auth and re-simulates every pending move in order, refreshing
// each recorded prediction. It returns the number of moves replayed.
func (p *Predictor) replay(auth podphysics.State) int {
	p.baseline = auth
	s := auth
	pending := p.queue.Pending()
	for i, pm := range pending {
		s = podphysics.Step(p.track, p.tuning, s, pm.Move.Input(), pm.Move.DeltaTime)
		p.queue.SetPrediction(i, s)
	}
	p.setState(s)
	return len(pending)
}

func (p *Predictor) setState(s podphysics.State) {
	changed := s.Grounded != p.state.Grounded
	p.state = s
	if changed && p.onGroundChanged != nil {
		p.onGroundChanged(s.Grounded)
	}
}

// useFixedHeight reports whether the next move should pin the pod's height,
// logging when the answer changes.
func (p *Predictor) useFixedHeight() bool {
	fixed := p.fixedAt > 0 && p.latency > p.fixedAt
	if fixed != p.fixed {
		p.fixed = fixed
		log.Info().Bool("fixedHeight", fixed).Dur("latency", p.latency).Msg("hover mode changed")
	}
	return fixed
}

func (p *Predictor) sampleLatency(sentMs int64) {
	if sentMs <= 0 {
		return
	}
	sample := time.Duration(p.now().UnixMilli()-sentMs) * time.Millisecond
	if sample < 0 {
		return
	}
	if p.latency == 0 {
		p.latency = sample
		return
	}
	p.latency += (sample - p.latency) / 5
}

// Reset discards all pending moves and restarts prediction from s, waiting for
// the next snapshot to adopt. Sequence numbers keep increasing.
func (p *Predictor) Reset(s podphysics.State) {
	p.queue.Clear()
	p.smoother.Reset()
	p.state = s
	p.baseline = s
	p.adopted = false
	p.counter = 0
}

// Adopted reports whether an authoritative snapshot has been applied since the
// predictor was created or last reset.
func (p *Predictor) Adopted() bool {
	return p.adopted
}

// State returns the current predicted state.
func (p *Predictor) State() podphysics.State {
	return p.state
}

// PendingCount returns the number of unacknowledged moves.
func (p *Predictor) PendingCount() int {
	return p.queue.Len()
}

// Pending returns a copy of the unacknowledged moves.
func (p *Predictor) Pending() []PendingMove {
	return p.queue.Pending()
}

// LastAcknowledged returns the highest sequence the server has confirmed.
func (p *Predictor) LastAcknowledged() uint32 {
	return p.lastAck
}

// LastSequence returns the sequence of the most recent move.
func (p *Predictor) LastSequence() uint32 {
	return p.seq
}

// EstimatedLatency is a smoothed round trip from sending a move to seeing it
// acknowledged.
func (p *Predictor) EstimatedLatency() time.Duration {
	return p.latency
}

// SendInterval suggests how often to flush batched moves: 50ms plus twice the
// estimated latency, capped at half a second.
func (p *Predictor) SendInterval() time.Duration {
	interval := 50*time.Millisecond + 2*p.latency
	return time.Duration(math.Min(float64(interval), float64(500*time.Millisecond)))
}
