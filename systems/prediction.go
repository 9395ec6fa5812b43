package systems

import (
	"time"

	"github.com/automoto/podracer-mp/components"
	"github.com/automoto/podracer-mp/network"
	"github.com/automoto/podracer-mp/shared/messages"
	"github.com/automoto/podracer-mp/shared/netcomponents"
	"github.com/automoto/podracer-mp/tags"
	"github.com/rs/zerolog/log"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// PredictionOptions configures the local pod system.
type PredictionOptions struct {
	// Adaptive batches moves for Predictor.SendInterval instead of sending
	// every tick.
	Adaptive bool
	MaxBatch int
	Now      func() time.Time
}

// Prediction drives the locally controlled pod: it feeds the pilot's input to
// the predictor each tick, mirrors the predicted state into the world and
// sends the resulting moves.
type Prediction struct {
	predictor *network.Predictor
	batcher   *network.MoveBatcher
	send      func([]messages.PodMove) error
	adaptive  bool
	now       func() time.Time
	local     *donburi.Query
}

func NewPrediction(p *network.Predictor, send func([]messages.PodMove) error, opts PredictionOptions) *Prediction {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Prediction{
		predictor: p,
		batcher:   network.NewMoveBatcher(opts.MaxBatch),
		send:      send,
		adaptive:  opts.Adaptive,
		now:       now,
		local:     donburi.NewQuery(filter.Contains(tags.LocalPod, components.Pilot)),
	}
}

// Update runs one prediction tick. Nothing happens until the local pod has
// been replicated at least once.
func (s *Prediction) Update(world donburi.World, dt float64) {
	entry, ok := s.local.First(world)
	if !ok {
		return
	}

	move, err := s.predictor.Tick(components.Pilot.Get(entry).Input, dt)
	if err != nil {
		log.Warn().Err(err).Msg("prediction tick skipped")
		return
	}
	s.batcher.Add(move)

	netcomponents.NetPodState.SetValue(entry,
		netcomponents.FromPodState(s.predictor.State(), s.predictor.LastAcknowledged(), 0))

	var interval time.Duration
	if s.adaptive {
		interval = s.predictor.SendInterval()
	}
	if moves, ok := s.batcher.Flush(s.now(), interval); ok {
		if err := s.send(moves); err != nil {
			log.Warn().Err(err).Int("moves", len(moves)).Msg("send moves failed")
		}
	}
}

// SetPilot writes the raw input the next Update will use.
func (s *Prediction) SetPilot(world donburi.World, in network.RawInput) bool {
	entry, ok := s.local.First(world)
	if !ok {
		return false
	}
	components.Pilot.Get(entry).Input = in
	return true
}
