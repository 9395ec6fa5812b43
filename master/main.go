// Command master is the server list: race servers register and heartbeat, bots
// query it to find a race.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/automoto/podracer-mp/config"
	"github.com/rs/zerolog/log"
)

func main() {
	port := flag.Int("port", 8080, "HTTP listen port")
	ttl := flag.Duration("ttl", 90*time.Second, "Server TTL before expiry")
	level := flag.String("log", "info", "Log level")
	flag.Parse()

	config.SetupLogging(*level, true)

	reg := NewRegistry(*ttl)
	defer reg.Stop()

	addr := fmt.Sprintf(":%d", *port)
	log.Info().Str("addr", addr).Dur("ttl", *ttl).Msg("starting master server")
	if err := http.ListenAndServe(addr, newMux(reg)); err != nil {
		log.Fatal().Err(err).Msg("master server stopped")
	}
}
