// Package bot is a headless racing client: it joins a server, drives its pod
// with a scripted pilot through client prediction and keeps observer pods
// interpolated, logging how often the server corrected it.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/automoto/podracer-mp/assets"
	"github.com/automoto/podracer-mp/config"
	"github.com/automoto/podracer-mp/network"
	"github.com/automoto/podracer-mp/pilot"
	"github.com/automoto/podracer-mp/shared/messages"
	"github.com/automoto/podracer-mp/shared/netconfig"
	"github.com/automoto/podracer-mp/shared/podphysics"
	"github.com/automoto/podracer-mp/systems"
	"github.com/leap-fish/necs/esync"
	"github.com/rs/zerolog/log"
	"github.com/yohamta/donburi"
)

const joinTimeout = 10 * time.Second

var ErrDisconnected = errors.New("disconnected from server")

// Bot is one headless client.
type Bot struct {
	cfg    config.Config
	store  *Store
	script pilot.Script
	client *network.Client
}

func New(cfg config.Config, store *Store) (*Bot, error) {
	script, err := pilot.Pattern(cfg.Bot.Pattern)
	if err != nil {
		return nil, err
	}
	return &Bot{
		cfg:    cfg,
		store:  store,
		script: script,
		client: network.NewClient(),
	}, nil
}

// Run connects, joins and drives until ctx ends, the configured duration
// passes or the connection drops.
func (b *Bot) Run(ctx context.Context) error {
	addr := b.cfg.Bot.ServerAddress
	b.client.Connect(addr, messages.JoinRequest{
		Version:        netconfig.ProtocolVersion,
		PlayerName:     b.cfg.Bot.PlayerName,
		ReconnectToken: b.store.TokenFor(addr),
	})
	defer b.client.Disconnect()

	if err := b.waitJoined(ctx); err != nil {
		return err
	}

	if err := b.store.Save(SavedSession{
		Server:         addr,
		PlayerName:     b.cfg.Bot.PlayerName,
		ReconnectToken: b.client.ReconnectToken(),
	}); err != nil {
		log.Warn().Err(err).Msg("could not save session")
	}

	return b.race(ctx)
}

func (b *Bot) waitJoined(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(joinTimeout)

	for {
		switch b.client.State() {
		case network.StateJoinedGame:
			return nil
		case network.StateError:
			return b.client.LastError()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("join timed out after %s (state %s)", joinTimeout, b.client.State())
		case <-ticker.C:
		}
	}
}

func (b *Bot) race(ctx context.Context) error {
	td, err := assets.Track(b.client.Track(), b.cfg.Server.TrackDir)
	if err != nil {
		return fmt.Errorf("server track: %w", err)
	}

	serverRate := b.client.TickRate()
	if serverRate <= 0 {
		serverRate = netconfig.DefaultTickRate
	}
	interp, err := systems.NewInterpolator(b.cfg.Interp, time.Second/time.Duration(serverRate))
	if err != nil {
		return err
	}

	predictor := network.NewPredictor(podphysics.NewTrack(td, b.cfg.Server.CellSize), podphysics.State{}, network.PredictorOptions{
		Tuning:       b.cfg.Tuning,
		Reconcile:    b.cfg.Reconcile,
		Input:        b.cfg.Input,
		MaxDeltaTime: b.cfg.Authority.MaxMoveDeltaTime,
	})
	predictor.OnGroundChanged(func(grounded bool) {
		log.Debug().Bool("grounded", grounded).Msg("ground contact changed")
	})

	world := donburi.NewWorld()
	applier := systems.NewSnapshotApplier(predictor, interp, b.client.NetworkID)
	prediction := systems.NewPrediction(predictor, b.client.SendMoves, systems.PredictionOptions{
		Adaptive: b.cfg.Bot.AdaptiveSend,
		MaxBatch: b.cfg.Authority.MaxMovesPerTick,
	})

	tickRate := b.cfg.Bot.TickRate
	dt := 1.0 / float64(tickRate)
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()
	stats := time.NewTicker(b.cfg.Bot.StatsInterval)
	defer stats.Stop()

	var done <-chan time.Time
	if b.cfg.Bot.Duration > 0 {
		done = time.After(b.cfg.Bot.Duration)
	}

	log.Info().Str("track", td.Name).Str("pattern", b.cfg.Bot.Pattern).Int("slot", b.client.Slot()).
		Bool("resumed", b.client.Resumed()).Msg("racing")

	tick := 0
	for {
		select {
		case <-ctx.Done():
			b.logStats(applier, predictor, world)
			return nil
		case <-done:
			b.logStats(applier, predictor, world)
			return nil
		case <-stats.C:
			b.logStats(applier, predictor, world)
		case <-ticker.C:
			if s := b.client.State(); s != network.StateJoinedGame {
				if err := b.client.LastError(); err != nil {
					return err
				}
				return ErrDisconnected
			}
			if snap := b.client.LatestSnapshot(); snap != nil {
				applier.Apply(world, *snap)
			}
			tick++
			prediction.SetPilot(world, b.script(tick, predictor.State()))
			prediction.Update(world, dt)
			interp.Update(world, dt)
		}
	}
}

func (b *Bot) logStats(applier *systems.SnapshotApplier, p *network.Predictor, world donburi.World) {
	rs := applier.Stats()
	st := p.State()
	pods := 0
	esync.NetworkEntityQuery.Each(world, func(*donburi.Entry) { pods++ })

	log.Info().
		Int("snapshots", rs.Snapshots).
		Int("corrections", rs.Corrections).
		Int("replayed", rs.Replayed).
		Float64("maxError", rs.MaxError).
		Int("pending", p.PendingCount()).
		Uint32("acked", p.LastAcknowledged()).
		Dur("latency", p.EstimatedLatency()).
		Float64("speed", st.Velocity.Len()).
		Bool("grounded", st.Grounded).
		Int("pods", pods).
		Msg("bot stats")
}
