package network

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/automoto/podracer-mp/shared/messages"
	"github.com/coder/websocket"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog/log"
)

// ErrNotConnected is returned when sending without an open connection.
var ErrNotConnected = errors.New("not connected")

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateJoinedGame
	StateError
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateJoinedGame:
		return "joined"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Client manages a WebSocket connection to the race server.
// All shared fields are protected by mu (router callbacks run on necs goroutines).
type Client struct {
	mu sync.RWMutex

	state          ClientState
	lastError      error
	networkID      esync.NetworkId
	reconnectToken string
	serverName     string
	tickRate       int
	track          string
	slot           int
	resumed        bool
	conn           *websocket.Conn

	snapshotCh chan esync.WorldSnapshot // size-1 buffered; latest wins
}

func NewClient() *Client {
	return &Client{
		state:      StateDisconnected,
		snapshotCh: make(chan esync.WorldSnapshot, 1),
	}
}

// Connect dials the server in a background goroutine and sends join once the
// socket is open.
func (c *Client) Connect(address string, join messages.JoinRequest) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.mu.Unlock()

	router.OnConnect(func(_ *router.NetworkClient) {
		log.Info().Str("server", address).Msg("connected to server")
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()

		if err := c.SendMessage(join); err != nil {
			c.setError(fmt.Errorf("failed to send join request: %w", err))
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinAccepted) {
		log.Info().
			Uint("networkID", uint(msg.NetworkID)).
			Str("server", msg.ServerName).
			Str("track", msg.Track).
			Int("slot", msg.Slot).
			Bool("resumed", msg.Resumed).
			Msg("join accepted")
		c.mu.Lock()
		c.networkID = msg.NetworkID
		c.reconnectToken = msg.ReconnectToken
		c.serverName = msg.ServerName
		c.tickRate = msg.TickRate
		c.track = msg.Track
		c.slot = msg.Slot
		c.resumed = msg.Resumed
		c.state = StateJoinedGame
		c.mu.Unlock()
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinRejected) {
		log.Warn().Str("reason", msg.Reason).Msg("join rejected")
		c.setError(fmt.Errorf("join rejected: %s", msg.Reason))
	})

	router.On(func(_ *router.NetworkClient, snapshot esync.WorldSnapshot) {
		select { // drain stale, push latest
		case <-c.snapshotCh:
		default:
		}
		c.snapshotCh <- snapshot
	})

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		log.Info().AnErr("reason", err).Msg("disconnected")
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.mu.Unlock()
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		log.Warn().Err(err).Msg("client error")
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

func (c *Client) NetworkID() esync.NetworkId {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.networkID
}

func (c *Client) ReconnectToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnectToken
}

func (c *Client) ServerName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverName
}

func (c *Client) Track() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.track
}

func (c *Client) Slot() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slot
}

// Resumed reports whether the last join reclaimed a pod held for reconnect.
func (c *Client) Resumed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resumed
}

func (c *Client) TickRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tickRate
}

// LatestSnapshot returns the most recent WorldSnapshot, or nil. Non-blocking.
func (c *Client) LatestSnapshot() *esync.WorldSnapshot {
	select {
	case snap := <-c.snapshotCh:
		return &snap
	default:
		return nil
	}
}

// SendMoves delivers moves in order as a single message.
func (c *Client) SendMoves(moves []messages.PodMove) error {
	switch len(moves) {
	case 0:
		return nil
	case 1:
		return c.SendMessage(moves[0])
	default:
		return c.SendMessage(messages.PodMoveBatch{Moves: moves})
	}
}

func (c *Client) SendMessage(msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}
