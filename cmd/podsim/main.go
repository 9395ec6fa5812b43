// Command podsim races scripted pilots against an in-process authority over
// simulated latency and reports how often prediction had to be corrected.
package main

import (
	"flag"
	"strings"

	"github.com/automoto/podracer-mp/assets"
	"github.com/automoto/podracer-mp/config"
	"github.com/automoto/podracer-mp/pilot"
	"github.com/automoto/podracer-mp/shared/messages"
	"github.com/automoto/podracer-mp/shared/netconfig"
	"github.com/automoto/podracer-mp/sim"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "Config file (yaml, json or toml)")
	pilots := flag.String("pilots", "circuit,drift,slalom", "Comma-separated pilot patterns")
	ticks := flag.Int("ticks", 3600, "Ticks to simulate")
	up := flag.Int("up", 3, "Client to server latency in ticks")
	down := flag.Int("down", 3, "Server to client latency in ticks")
	track := flag.String("track", "", "Track name (overrides config)")
	tamperEvery := flag.Int("tamper-every", 0, "Corrupt every Nth move of pilot 0 so the server rejects it")
	disturbEvery := flag.Int("disturb-every", 0, "Shove pilot 0 on the server every N ticks")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		config.SetupLogging("info", true)
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.SetupLogging(cfg.LogLevel, cfg.LogPretty)
	if *track != "" {
		cfg.Server.Track = *track
	}

	td, err := assets.Track(cfg.Server.Track, cfg.Server.TrackDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load track")
	}

	var scripts []pilot.Script
	for _, name := range strings.Split(*pilots, ",") {
		s, err := pilot.Pattern(strings.TrimSpace(name))
		if err != nil {
			log.Fatal().Err(err).Msg("bad pilot")
		}
		scripts = append(scripts, s)
	}

	opts := sim.Options{
		Config:      *cfg,
		Track:       td,
		Pilots:      scripts,
		UpLatency:   *up,
		DownLatency: *down,
	}
	if n := *tamperEvery; n > 0 {
		opts.Tamper = func(index int, m *messages.PodMove) {
			if index == 0 && m.Sequence%uint32(n) == 0 {
				m.DeltaTime = cfg.Authority.MaxMoveDeltaTime * 4
			}
		}
	}

	session, err := sim.NewSession(opts)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start session")
	}

	log.Info().Str("track", td.Name).Int("pilots", len(scripts)).Int("ticks", *ticks).
		Int("up", *up).Int("down", *down).Msg("simulating")

	for i := 1; i <= *ticks; i++ {
		session.Step()
		if *disturbEvery > 0 && i%*disturbEvery == 0 {
			session.Disturb(0, mgl64.Vec3{0, 200, 0})
		}
	}
	settled := session.Settle(10 * (*up + *down + 1))

	stats := session.Stats()
	log.Info().
		Stringer("role", netconfig.RoleAuthority).
		Int("ticks", stats.Ticks).
		Int("accepted", stats.Server.Accepted).
		Int("rejected", stats.Server.Rejected).
		Int("dropped", stats.Server.Dropped).
		Bool("settled", settled).
		Msg("server")
	for i, cs := range stats.Controllers {
		diff := session.AuthorityState(i).Diff(session.Controllers()[i].Predictor.State())
		log.Info().
			Stringer("role", netconfig.RoleController).
			Int("pilot", i).
			Int("moves", cs.Moves).
			Int("snapshots", cs.Snapshots).
			Int("stale", cs.Stale).
			Int("corrections", cs.Corrections).
			Int("replayed", cs.Replayed).
			Int("maxPending", cs.MaxPending).
			Float64("maxError", cs.MaxError).
			Float64("finalError", diff.Position).
			Msg("controller")

		rendered, target := session.ObserverView(i)
		log.Info().
			Stringer("role", netconfig.RoleObserver).
			Int("pilot", i).
			Float64("lag", rendered.Position.Sub(target.Position).Len()).
			Uint32("counter", target.ReplicationCounter).
			Msg("observer")
	}
}
