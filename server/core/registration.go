package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/automoto/podracer-mp/config"
	"github.com/rs/zerolog/log"
)

const (
	heartbeatInterval = 30 * time.Second
	deregisterTimeout = 2 * time.Second
)

// PlayerCounter reports how many players are connected.
type PlayerCounter interface {
	PlayerCount() int
}

// Registration handles registering and heartbeating with the master server.
type Registration struct {
	cfg      config.ServerConfig
	track    string
	serverID string
	players  PlayerCounter
	client   *http.Client
	interval time.Duration
}

type regRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
	Track      string `json:"track"`
}

type regResponse struct {
	ID string `json:"id"`
}

type heartbeatRequest struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
}

func NewRegistration(cfg config.ServerConfig, track string, players PlayerCounter) *Registration {
	return &Registration{
		cfg:      cfg,
		track:    track,
		players:  players,
		client:   &http.Client{Timeout: 5 * time.Second},
		interval: heartbeatInterval,
	}
}

// Run registers and then heartbeats until ctx is cancelled, then removes the
// server from the list.
func (r *Registration) Run(ctx context.Context) {
	if err := r.register(ctx); err != nil {
		log.Warn().Err(err).Str("master", r.cfg.MasterURL).Msg("initial registration failed")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := r.deregister(); err != nil {
				log.Warn().Err(err).Msg("deregister failed")
			}
			return
		case <-ticker.C:
			if err := r.sendHeartbeat(ctx); err != nil {
				log.Warn().Err(err).Msg("heartbeat failed")
			}
		}
	}
}

// ServerID is the id the master assigned, empty until registered.
func (r *Registration) ServerID() string {
	return r.serverID
}

func (r *Registration) register(ctx context.Context) error {
	var result regResponse
	status, err := r.post(ctx, "/servers/register", regRequest{
		Name:       r.cfg.Name,
		Address:    r.cfg.PublicAddress,
		Players:    r.players.PlayerCount(),
		MaxPlayers: r.cfg.MaxPlayers,
		Version:    r.cfg.Version,
		Region:     r.cfg.Region,
		Track:      r.track,
	}, &result)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("unexpected status: %d", status)
	}

	r.serverID = result.ID
	log.Info().Str("id", r.serverID).Msg("registered with master")
	return nil
}

func (r *Registration) sendHeartbeat(ctx context.Context) error {
	status, err := r.post(ctx, "/servers/heartbeat", heartbeatRequest{
		ID:      r.serverID,
		Players: r.players.PlayerCount(),
	}, nil)
	if err != nil {
		return err
	}

	if status == http.StatusNotFound {
		log.Info().Msg("master lost our registration, re-registering")
		return r.register(ctx)
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", status)
	}
	return nil
}

// deregister tells the master the server is going away. The caller's context
// is already done, so it runs on its own short deadline.
func (r *Registration) deregister() error {
	if r.serverID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), deregisterTimeout)
	defer cancel()

	status, err := r.do(ctx, http.MethodDelete, "/servers/"+url.PathEscape(r.serverID), nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusNotFound {
		return fmt.Errorf("unexpected status: %d", status)
	}
	log.Info().Str("id", r.serverID).Msg("deregistered from master")
	r.serverID = ""
	return nil
}

func (r *Registration) post(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshal: %w", err)
	}
	return r.do(ctx, http.MethodPost, path, bytes.NewReader(payload), out)
}

func (r *Registration) do(ctx context.Context, method, path string, body io.Reader, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.MasterURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", strings.ToLower(method), err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode: %w", err)
		}
	}
	return resp.StatusCode, nil
}
