package core

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/automoto/podracer-mp/config"
	"github.com/automoto/podracer-mp/shared/messages"
	"github.com/automoto/podracer-mp/shared/netcomponents"
	"github.com/automoto/podracer-mp/shared/podphysics"
	"github.com/automoto/podracer-mp/shared/trackdata"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog/log"
	"github.com/yohamta/donburi"
)

// moveBacklog caps queued move commands between ticks. Joins and leaves are
// never dropped.
const moveBacklog = 1024

// Peer is the server's view of a connected client. *router.NetworkClient
// satisfies it.
type Peer interface {
	Id() string
	SendMessage(msg any) error
}

// podSlot is a pod held for a player, connected or inside its reconnect grace.
type podSlot struct {
	entity     donburi.Entity
	token      string
	slot       int
	name       string
	peer       Peer // nil while detached
	detachedAt time.Time
}

// Server owns the race world and client connections. Router callbacks run on
// necs goroutines and only enqueue commands; the game loop applies them.
type Server struct {
	cfg       config.Config
	trackName string
	world     donburi.World
	authority *Authority
	loop      *GameLoop
	transport *transports.WsServerTransport
	now       func() time.Time

	queueMu      sync.Mutex
	queue        []command
	queuedMoves  int
	moveBacklog  int
	droppedMoves uint64

	// game loop goroutine only
	byToken map[string]*podSlot
	byPeer  map[string]*podSlot

	mu      sync.RWMutex
	players int
}

// NewServer creates a server racing on track.
func NewServer(cfg config.Config, trackName string, track *trackdata.TrackData) *Server {
	world := donburi.NewWorld()

	s := &Server{
		cfg:         cfg,
		trackName:   trackName,
		world:       world,
		authority:   NewAuthority(world, podphysics.NewTrack(track, cfg.Server.CellSize), cfg.Tuning, cfg.Authority),
		now:         time.Now,
		moveBacklog: moveBacklog,
		byToken:     make(map[string]*podSlot),
		byPeer:      make(map[string]*podSlot),
	}
	s.loop = NewGameLoop(s, cfg.Server.TickRate)

	// Set up the world for esync
	srvsync.UseEsync(world)

	return s
}

// Start registers router callbacks, starts the game loop and serves websocket
// clients on the configured port. It blocks until the transport stops.
func (s *Server) Start() error {
	s.setupRouterCallbacks()
	go s.loop.Run()

	s.transport = transports.NewWsServerTransport(s.cfg.Server.Port, "", nil)
	if err := s.transport.Start(); err != nil {
		return fmt.Errorf("websocket transport: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the game loop.
func (s *Server) Stop() {
	s.loop.Stop()
}

func (s *Server) setupRouterCallbacks() {
	router.OnConnect(func(client *router.NetworkClient) {
		log.Info().Str("client", client.Id()).Msg("client connected")
	})

	router.OnDisconnect(func(client *router.NetworkClient, err error) {
		s.enqueue(leaveCommand{peer: client, err: err})
	})

	router.On(func(client *router.NetworkClient, req messages.JoinRequest) {
		s.enqueue(joinCommand{peer: client, req: req})
	})

	router.On(func(client *router.NetworkClient, move messages.PodMove) {
		s.enqueue(moveCommand{peer: client, moves: []messages.PodMove{move}})
	})

	router.On(func(client *router.NetworkClient, batch messages.PodMoveBatch) {
		s.enqueue(moveCommand{peer: client, moves: batch.Moves})
	})

	router.OnError(func(client *router.NetworkClient, err error) {
		log.Warn().Err(err).Msg("client error")
	})
}

// enqueue hands a command to the game loop. Move commands beyond the backlog
// are dropped; every other command is kept so no join or leave is lost.
func (s *Server) enqueue(cmd command) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	if mc, ok := cmd.(moveCommand); ok {
		if s.queuedMoves >= s.moveBacklog {
			s.droppedMoves += uint64(len(mc.moves))
			s.authority.metrics.dropped(len(mc.moves))
			log.Warn().Str("client", mc.peer.Id()).Int("moves", len(mc.moves)).Msg("command queue full, dropping moves")
			return
		}
		s.queuedMoves++
	}
	s.queue = append(s.queue, cmd)
}

// ProcessCommands applies everything the router queued since the last tick, in
// arrival order, and expires pods whose reconnect grace has run out.
func (s *Server) ProcessCommands() {
	s.queueMu.Lock()
	cmds := s.queue
	s.queue = nil
	s.queuedMoves = 0
	s.queueMu.Unlock()

	for _, cmd := range cmds {
		cmd.apply(s)
	}
	s.expireDetached()
}

// DroppedMoves returns how many moves were discarded because the command
// queue was full.
func (s *Server) DroppedMoves() uint64 {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	return s.droppedMoves
}

func (s *Server) join(peer Peer, req messages.JoinRequest) {
	if _, ok := s.byPeer[peer.Id()]; ok {
		log.Warn().Str("client", peer.Id()).Msg("duplicate join request ignored")
		return
	}

	if s.cfg.Server.Version != "" && req.Version != s.cfg.Server.Version {
		s.reject(peer, fmt.Sprintf("version mismatch: server requires %s", s.cfg.Server.Version))
		return
	}

	if req.ReconnectToken != "" {
		if ps, ok := s.byToken[req.ReconnectToken]; ok && ps.peer == nil {
			s.resume(peer, ps)
			return
		}
		log.Info().Str("client", peer.Id()).Msg("unknown or active reconnect token, joining fresh")
	}

	slot, ok := s.freeSlot()
	if !ok {
		s.reject(peer, "server full")
		return
	}

	name := req.PlayerName
	if name == "" {
		name = fmt.Sprintf("pilot-%d", slot+1)
	}

	entry := s.authority.AddPod(slot, name, peer.Id())
	entity := entry.Entity()
	err := srvsync.NetworkSync(s.world, &entity,
		srvsync.WithInterp(netcomponents.NetPodState),
		netcomponents.NetPodInfo,
	)
	if err != nil {
		log.Error().Err(err).Str("client", peer.Id()).Msg("failed to set up network sync for pod")
		s.authority.RemovePod(entity)
		s.reject(peer, "internal error")
		return
	}

	ps := &podSlot{entity: entity, token: newToken(), slot: slot, name: name, peer: peer}
	s.byToken[ps.token] = ps
	s.byPeer[peer.Id()] = ps
	s.setPlayers(1)

	s.accept(peer, ps, false)
	log.Info().Str("client", peer.Id()).Str("player", name).Int("slot", slot).Msg("player joined")
}

func (s *Server) resume(peer Peer, ps *podSlot) {
	if err := s.authority.SetOwner(ps.entity, peer.Id()); err != nil {
		delete(s.byToken, ps.token)
		s.reject(peer, "pod expired")
		return
	}
	ps.peer = peer
	ps.detachedAt = time.Time{}
	s.byPeer[peer.Id()] = ps
	s.setPlayers(1)

	s.accept(peer, ps, true)
	log.Info().Str("client", peer.Id()).Str("player", ps.name).Int("slot", ps.slot).Msg("player reconnected")
}

func (s *Server) accept(peer Peer, ps *podSlot, resumed bool) {
	var id esync.NetworkId
	if nid := esync.GetNetworkId(s.world.Entry(ps.entity)); nid != nil {
		id = *nid
	}
	err := peer.SendMessage(messages.JoinAccepted{
		NetworkID:      id,
		ReconnectToken: ps.token,
		ServerName:     s.cfg.Server.Name,
		TickRate:       s.cfg.Server.TickRate,
		Track:          s.trackName,
		Slot:           ps.slot,
		Resumed:        resumed,
	})
	if err != nil {
		log.Warn().Err(err).Str("client", peer.Id()).Msg("failed to send join accepted")
	}
}

func (s *Server) reject(peer Peer, reason string) {
	log.Info().Str("client", peer.Id()).Str("reason", reason).Msg("join rejected")
	if err := peer.SendMessage(messages.JoinRejected{Reason: reason}); err != nil {
		log.Warn().Err(err).Str("client", peer.Id()).Msg("failed to send join rejected")
	}
}

func (s *Server) moves(peer Peer, moves []messages.PodMove) {
	ps, ok := s.byPeer[peer.Id()]
	if !ok {
		return
	}
	for _, m := range moves {
		if err := s.authority.Submit(ps.entity, m); err != nil {
			log.Debug().Err(err).Str("client", peer.Id()).Msg("move not queued")
		}
	}
}

func (s *Server) leave(peer Peer, err error) {
	logger := log.Info().Str("client", peer.Id())
	if err != nil {
		logger = logger.Err(err)
	}
	logger.Msg("client disconnected")

	ps, ok := s.byPeer[peer.Id()]
	if !ok {
		return
	}
	delete(s.byPeer, peer.Id())
	s.setPlayers(-1)

	if s.cfg.Server.ReconnectGrace <= 0 {
		s.dropPod(ps)
		return
	}
	ps.peer = nil
	ps.detachedAt = s.now()
	if err := s.authority.SetOwner(ps.entity, ""); err != nil {
		s.dropPod(ps)
		return
	}
	log.Info().Str("player", ps.name).Dur("grace", s.cfg.Server.ReconnectGrace).Msg("pod held for reconnect")
}

func (s *Server) expireDetached() {
	now := s.now()
	for _, ps := range s.byToken {
		if ps.peer == nil && now.Sub(ps.detachedAt) >= s.cfg.Server.ReconnectGrace {
			log.Info().Str("player", ps.name).Msg("reconnect grace expired, removing pod")
			s.dropPod(ps)
		}
	}
}

func (s *Server) dropPod(ps *podSlot) {
	delete(s.byToken, ps.token)
	s.authority.RemovePod(ps.entity)
}

// freeSlot returns the lowest grid slot not held by any pod.
func (s *Server) freeSlot() (int, bool) {
	used := make(map[int]bool, len(s.byToken))
	for _, ps := range s.byToken {
		used[ps.slot] = true
	}
	for i := 0; i < s.cfg.Server.MaxPlayers; i++ {
		if !used[i] {
			return i, true
		}
	}
	return 0, false
}

func (s *Server) setPlayers(delta int) {
	s.mu.Lock()
	s.players += delta
	s.mu.Unlock()
	s.authority.metrics.playerDelta(delta)
}

// World returns the ECS world
func (s *Server) World() donburi.World {
	return s.world
}

// Authority returns the move authority.
func (s *Server) Authority() *Authority {
	return s.authority
}

// PlayerCount returns the number of connected players
func (s *Server) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.players
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}
