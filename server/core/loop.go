package core

import (
	"sync"
	"time"

	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/rs/zerolog/log"
)

type GameLoop struct {
	server   *Server
	tickRate int
	stopChan chan struct{}
	stopOnce sync.Once
	ticks    uint64
}

func NewGameLoop(server *Server, tickRate int) *GameLoop {
	return &GameLoop{
		server:   server,
		tickRate: tickRate,
		stopChan: make(chan struct{}),
	}
}

func (g *GameLoop) Run() {
	ticker := time.NewTicker(time.Second / time.Duration(g.tickRate))
	defer ticker.Stop()

	log.Info().Int("tickRate", g.tickRate).Msg("game loop started")

	for {
		select {
		case <-g.stopChan:
			log.Info().Uint64("ticks", g.ticks).
				Uint64("broadcasts", g.server.authority.Broadcasts()).
				Uint64("droppedMoves", g.server.DroppedMoves()).
				Msg("game loop stopped")
			return
		case <-ticker.C:
			g.tick()
		}
	}
}

func (g *GameLoop) Stop() {
	g.stopOnce.Do(func() { close(g.stopChan) })
}

// tick applies queued client commands, re-simulates the moves they carried and
// replicates the results.
func (g *GameLoop) tick() {
	g.ticks++
	g.server.ProcessCommands()

	stats := g.server.authority.Tick()
	if stats.Rejected > 0 {
		log.Debug().Int("accepted", stats.Accepted).Int("rejected", stats.Rejected).Msg("tick")
	}

	if err := srvsync.DoSync(); err != nil {
		log.Warn().Err(err).Msg("sync error")
	}
}
