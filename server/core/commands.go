package core

import "github.com/automoto/podracer-mp/shared/messages"

// command is router input replayed on the game loop goroutine.
type command interface {
	apply(s *Server)
}

type joinCommand struct {
	peer Peer
	req  messages.JoinRequest
}

func (c joinCommand) apply(s *Server) { s.join(c.peer, c.req) }

type moveCommand struct {
	peer  Peer
	moves []messages.PodMove
}

func (c moveCommand) apply(s *Server) { s.moves(c.peer, c.moves) }

type leaveCommand struct {
	peer Peer
	err  error
}

func (c leaveCommand) apply(s *Server) { s.leave(c.peer, c.err) }
