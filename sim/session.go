// Package sim runs a complete race in one process: an authority, any number of
// predicting controllers and an observer view of every pod, joined by delayed
// in-process channels instead of sockets.
package sim

import (
	"errors"
	"time"

	"github.com/automoto/podracer-mp/components"
	"github.com/automoto/podracer-mp/config"
	"github.com/automoto/podracer-mp/network"
	"github.com/automoto/podracer-mp/pilot"
	"github.com/automoto/podracer-mp/server/core"
	"github.com/automoto/podracer-mp/shared/messages"
	"github.com/automoto/podracer-mp/shared/netchan"
	"github.com/automoto/podracer-mp/shared/netcomponents"
	"github.com/automoto/podracer-mp/shared/podphysics"
	"github.com/automoto/podracer-mp/shared/trackdata"
	"github.com/automoto/podracer-mp/systems"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog/log"
	"github.com/yohamta/donburi"
)

var ErrNoPilots = errors.New("session needs at least one pilot")

var simEpoch = time.Unix(1_700_000_000, 0)

// Options configures a Session.
type Options struct {
	Config config.Config
	Track  *trackdata.TrackData
	Pilots []pilot.Script

	// One-way latencies in ticks.
	UpLatency   int
	DownLatency int

	// Tamper, when set, may rewrite a move after the controller predicted it
	// and before the server sees it.
	Tamper func(index int, m *messages.PodMove)
}

// ControllerStats counts one controller's traffic and corrections.
type ControllerStats struct {
	Moves       int
	Snapshots   int
	Stale       int
	Corrections int
	Replayed    int
	MaxPending  int
	MaxError    float64 // largest position divergence that forced a correction, cm

	FixedHeightMoves int
}

// ServerStats counts authority outcomes.
type ServerStats struct {
	Accepted   int
	Rejected   int
	Dropped    int
	Broadcasts uint64
}

// Stats is a snapshot of a session's counters.
type Stats struct {
	Ticks       int
	Server      ServerStats
	Controllers []ControllerStats
}

// Controller is one simulated owning client.
type Controller struct {
	Index     int
	Pod       donburi.Entity
	Predictor *network.Predictor

	script  pilot.Script
	up      *netchan.Channel[messages.PodMove]
	down    *netchan.Channel[netcomponents.NetPodStateData]
	stats   ControllerStats
	waiting bool // reconnected, holding input until a snapshot is adopted
}

type observerView struct {
	pod  donburi.Entity
	ch   *netchan.Channel[netcomponents.NetPodStateData]
	data components.NetInterpData
}

// Session is an in-process race. It is not safe for concurrent use.
type Session struct {
	dt          float64
	tick        int
	world       donburi.World
	authority   *core.Authority
	interp      *systems.Interpolator
	controllers []*Controller
	observers   []*observerView
	tamper      func(int, *messages.PodMove)
	server      ServerStats

	trackData *trackdata.TrackData
	cellSize  int
	predict   network.PredictorOptions
}

// NewSession spawns one pod per pilot on the track's grid.
func NewSession(opts Options) (*Session, error) {
	if len(opts.Pilots) == 0 {
		return nil, ErrNoPilots
	}
	cfg := opts.Config
	if err := cfg.Authority.CheckTolerance(cfg.Tuning); err != nil {
		return nil, err
	}
	tickRate := cfg.Server.TickRate
	if tickRate <= 0 {
		tickRate = 60
	}
	interval := time.Second / time.Duration(tickRate)

	interp, err := systems.NewInterpolator(cfg.Interp, interval)
	if err != nil {
		return nil, err
	}

	world := donburi.NewWorld()
	s := &Session{
		dt:        interval.Seconds(),
		world:     world,
		authority: core.NewAuthority(world, podphysics.NewTrack(opts.Track, cfg.Server.CellSize), cfg.Tuning, cfg.Authority),
		interp:    interp,
		tamper:    opts.Tamper,
		trackData: opts.Track,
		cellSize:  cfg.Server.CellSize,
		predict: network.PredictorOptions{
			Tuning:       cfg.Tuning,
			Reconcile:    cfg.Reconcile,
			Input:        cfg.Input,
			MaxDeltaTime: cfg.Authority.MaxMoveDeltaTime,
		},
	}
	s.predict.Now = func() time.Time {
		return simEpoch.Add(time.Duration(s.tick) * interval)
	}

	for i, script := range opts.Pilots {
		entry := s.authority.AddPod(i, "", "")
		start, _ := s.authority.State(entry.Entity())

		c := &Controller{
			Index:     i,
			Pod:       entry.Entity(),
			Predictor: s.newPredictor(start),
			script:    script,
			up:        netchan.New[messages.PodMove](opts.UpLatency),
			down:      netchan.New[netcomponents.NetPodStateData](opts.DownLatency),
		}
		s.controllers = append(s.controllers, c)
		s.observers = append(s.observers, &observerView{
			pod: entry.Entity(),
			ch:  netchan.New[netcomponents.NetPodStateData](opts.DownLatency),
		})
	}
	return s, nil
}

// Step advances the whole session by one tick with every pilot driving.
func (s *Session) Step() {
	s.step(true)
}

// Run steps n ticks.
func (s *Session) Run(n int) {
	for i := 0; i < n; i++ {
		s.step(true)
	}
}

// Settle stops all pilots and steps until every move has been delivered and
// acknowledged, for at most maxTicks. It reports whether the session
// went quiet.
func (s *Session) Settle(maxTicks int) bool {
	for i := 0; i < maxTicks; i++ {
		if s.quiet() {
			return true
		}
		s.step(false)
	}
	return s.quiet()
}

func (s *Session) quiet() bool {
	for _, c := range s.controllers {
		if c.Predictor.PendingCount() > 0 || c.up.Len() > 0 {
			return false
		}
	}
	return true
}

func (s *Session) step(drive bool) {
	s.tick++
	for _, c := range s.controllers {
		c.up.Advance()
		c.down.Advance()
	}
	for _, o := range s.observers {
		o.ch.Advance()
	}

	for _, c := range s.controllers {
		s.receive(c)
	}

	if drive {
		for _, c := range s.controllers {
			s.drive(c)
		}
	}

	for _, c := range s.controllers {
		for _, m := range c.up.Drain() {
			if err := s.authority.Submit(c.Pod, m); err != nil {
				s.server.Dropped++
				log.Debug().Err(err).Int("pilot", c.Index).Msg("move dropped")
			}
		}
	}
	stats := s.authority.Tick()
	s.server.Accepted += stats.Accepted
	s.server.Rejected += stats.Rejected

	for _, c := range s.controllers {
		c.down.Send(s.replicated(c.Pod))
	}
	for _, o := range s.observers {
		o.ch.Send(s.replicated(o.pod))
		for _, st := range o.ch.Drain() {
			s.interp.OnSnapshot(&o.data, st)
		}
		s.interp.Advance(&o.data, s.dt)
	}
}

func (s *Session) receive(c *Controller) {
	for _, st := range c.down.Drain() {
		r := c.Predictor.OnAuthoritativeState(st)
		c.stats.Snapshots++
		if r.Stale {
			c.stats.Stale++
			continue
		}
		if r.Adopted {
			c.waiting = false
		}
		if r.Corrected {
			c.stats.Corrections++
			c.stats.Replayed += r.Replayed
			if r.Divergence.Position > c.stats.MaxError {
				c.stats.MaxError = r.Divergence.Position
			}
		}
	}
}

func (s *Session) drive(c *Controller) {
	if c.waiting {
		return
	}
	raw := c.script(s.tick, c.Predictor.State())
	m, err := c.Predictor.Tick(raw, s.dt)
	if err != nil {
		log.Warn().Err(err).Int("pilot", c.Index).Msg("controller tick failed")
		return
	}
	c.stats.Moves++
	if m.FixedHeight {
		c.stats.FixedHeightMoves++
	}
	if n := c.Predictor.PendingCount(); n > c.stats.MaxPending {
		c.stats.MaxPending = n
	}
	if s.tamper != nil {
		s.tamper(c.Index, &m)
	}
	c.up.Send(m)
}

func (s *Session) replicated(pod donburi.Entity) netcomponents.NetPodStateData {
	return *netcomponents.NetPodState.Get(s.world.Entry(pod))
}

// Disturb moves a pod on the server only, as an event the controller could not
// have predicted would.
func (s *Session) Disturb(index int, offset mgl64.Vec3) {
	body, err := s.authority.Body(s.controllers[index].Pod)
	if err != nil {
		return
	}
	body.State.Position = body.State.Position.Add(offset)
}

// DamageEngine damages one engine of a pilot's pod on the server.
func (s *Session) DamageEngine(index, engine int, amount float64) error {
	return s.authority.DamageEngine(s.controllers[index].Pod, engine, amount)
}

func (s *Session) newPredictor(start podphysics.State) *network.Predictor {
	return network.NewPredictor(podphysics.NewTrack(s.trackData, s.cellSize), start, s.predict)
}

// Rejoin drops a controller's connection and reconnects it in the same
// process: messages in flight are lost and the predictor is reset, keeping
// its sequence numbers.
func (s *Session) Rejoin(index int) {
	c := s.controllers[index]
	c.up.Reset()
	c.down.Reset()
	c.Predictor.Reset(c.Predictor.State())
	c.waiting = true
}

// Restart replaces a controller with a fresh process that knows nothing of
// the pod it takes over. Messages in flight are lost.
func (s *Session) Restart(index int) {
	c := s.controllers[index]
	c.up.Reset()
	c.down.Reset()
	c.Predictor = s.newPredictor(podphysics.State{})
	c.waiting = true
}

// Controllers returns the simulated owning clients in pilot order.
func (s *Session) Controllers() []*Controller {
	return s.controllers
}

// AuthorityState is the server's current state for a pilot's pod.
func (s *Session) AuthorityState(index int) podphysics.State {
	st, _ := s.authority.State(s.controllers[index].Pod)
	return st
}

// ObserverView returns what a third party currently draws for a pilot's pod and
// the latest snapshot it has received.
func (s *Session) ObserverView(index int) (rendered, target netcomponents.NetPodStateData) {
	o := s.observers[index]
	return o.data.Rendered, o.data.Target
}

// Tick is the number of ticks stepped so far.
func (s *Session) Tick() int {
	return s.tick
}

// Stats returns the session counters.
func (s *Session) Stats() Stats {
	out := Stats{Ticks: s.tick, Server: s.server}
	out.Server.Broadcasts = s.authority.Broadcasts()
	for _, c := range s.controllers {
		out.Controllers = append(out.Controllers, c.stats)
	}
	return out
}
