package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/automoto/podracer-mp/assets"
	"github.com/automoto/podracer-mp/config"
	"github.com/automoto/podracer-mp/server/core"
	"github.com/automoto/podracer-mp/shared/protocol"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "Config file (yaml, json or toml)")
	port := flag.Uint("port", 0, "Server port (overrides config)")
	tickRate := flag.Int("tickrate", 0, "Server tick rate (overrides config)")
	name := flag.String("name", "", "Server display name (overrides config)")
	version := flag.String("version", "", "Required client version (overrides config)")
	track := flag.String("track", "", "Track name (overrides config)")
	trackDir := flag.String("trackdir", "", "Directory of .tmx tracks instead of the bundled ones")
	master := flag.String("master", "", "Master server URL (overrides config)")
	strict := flag.Bool("strict", false, "Also validate client-claimed positions")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		config.SetupLogging("info", true)
		log.Fatal().Err(err).Msg("failed to load config")
	}
	applyFlags(cfg, *port, *tickRate, *name, *version, *track, *trackDir, *master, *strict)
	config.SetupLogging(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid settings")
	}

	if err := protocol.RegisterComponents(); err != nil {
		log.Fatal().Err(err).Msg("failed to register components")
	}

	td, err := assets.Track(cfg.Server.Track, cfg.Server.TrackDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load track")
	}

	server := core.NewServer(*cfg, td.Name, td)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var registered chan struct{}
	if cfg.Server.MasterURL != "" {
		if cfg.Server.PublicAddress == "" {
			log.Warn().Msg("master registration enabled without publicAddress; clients will not be able to connect")
		}
		registered = make(chan struct{})
		go func() {
			core.NewRegistration(cfg.Server, td.Name, server).Run(ctx)
			close(registered)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down server")
		cancel()
		if registered != nil {
			<-registered
		}
		server.Stop()
		os.Exit(0)
	}()

	log.Info().
		Str("name", cfg.Server.Name).
		Uint("port", cfg.Server.Port).
		Int("tickRate", cfg.Server.TickRate).
		Str("track", td.Name).
		Str("version", cfg.Server.Version).
		Bool("strict", cfg.Authority.Strict).
		Msg("starting podracer server")
	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func applyFlags(cfg *config.Config, port uint, tickRate int, name, version, track, trackDir, master string, strict bool) {
	if port != 0 {
		cfg.Server.Port = port
	}
	if tickRate > 0 {
		cfg.Server.TickRate = tickRate
	}
	if name != "" {
		cfg.Server.Name = name
	}
	if version != "" {
		cfg.Server.Version = version
	}
	if track != "" {
		cfg.Server.Track = track
	}
	if trackDir != "" {
		cfg.Server.TrackDir = trackDir
	}
	if master != "" {
		cfg.Server.MasterURL = master
	}
	if strict {
		cfg.Authority.Strict = true
	}
}
