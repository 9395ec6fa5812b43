// Command podracer runs a headless racing bot against a race server.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/automoto/podracer-mp/bot"
	"github.com/automoto/podracer-mp/config"
	"github.com/automoto/podracer-mp/shared/netconfig"
	"github.com/automoto/podracer-mp/shared/protocol"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "Config file (yaml, json or toml)")
	server := flag.String("server", "", "Server address host:port (overrides config)")
	master := flag.String("master", "", "Master server URL; picks a server from its list")
	track := flag.String("track", "", "Only pick servers racing this track (with -master)")
	name := flag.String("name", "", "Player name (overrides config)")
	pattern := flag.String("pattern", "", "Pilot pattern: circuit, slalom, drift, idle")
	duration := flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	adaptive := flag.Bool("adaptive", false, "Batch moves by estimated latency")
	fresh := flag.Bool("fresh", false, "Ignore any saved reconnect token")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		config.SetupLogging("info", true)
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if *server != "" {
		cfg.Bot.ServerAddress = *server
	}
	if *master != "" {
		cfg.Bot.MasterURL = *master
	}
	if *name != "" {
		cfg.Bot.PlayerName = *name
	}
	if *pattern != "" {
		cfg.Bot.Pattern = *pattern
	}
	if *duration > 0 {
		cfg.Bot.Duration = *duration
	}
	if *adaptive {
		cfg.Bot.AdaptiveSend = true
	}
	config.SetupLogging(cfg.LogLevel, cfg.LogPretty)

	if err := protocol.RegisterComponents(); err != nil {
		log.Fatal().Err(err).Msg("failed to register components")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Bot.MasterURL != "" {
		lookup, done := context.WithTimeout(ctx, 10*time.Second)
		addr, err := bot.NewBrowser(cfg.Bot.MasterURL).Pick(lookup, *track, netconfig.ProtocolVersion)
		done()
		if err != nil {
			log.Fatal().Err(err).Msg("server lookup failed")
		}
		cfg.Bot.ServerAddress = addr
	}

	var store *bot.Store
	if !*fresh {
		store, err = bot.OpenStore(cfg.Bot.DataDir)
		if err != nil {
			log.Warn().Err(err).Msg("session persistence unavailable")
		}
	}

	b, err := bot.New(*cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	log.Info().
		Str("server", cfg.Bot.ServerAddress).
		Str("name", cfg.Bot.PlayerName).
		Str("pattern", cfg.Bot.Pattern).
		Msg("starting bot")
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bot stopped")
	}
}
