package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

type registerRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
	Track      string `json:"track"`
}

type registerResponse struct {
	ID       string `json:"id"`
	Replaced bool   `json:"replaced,omitempty"`
}

type heartbeatRequest struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const (
	maxRequestBody = 1 << 16 // 64 KB
	maxNameLength  = 64
)

// decodeBody reads a size-limited JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// validateRegister checks that a registration names a reachable host:port
// and carries sane player counts.
func validateRegister(req registerRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return errors.New("name required")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name longer than %d bytes", maxNameLength)
	}
	if req.Address == "" {
		return errors.New("address required")
	}
	_, port, err := net.SplitHostPort(req.Address)
	if err != nil {
		return fmt.Errorf("address must be host:port: %w", err)
	}
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	if req.Players < 0 || req.MaxPlayers < 0 {
		return errors.New("negative player count")
	}
	if req.MaxPlayers > 0 && req.Players > req.MaxPlayers {
		return fmt.Errorf("%d players exceeds maxPlayers %d", req.Players, req.MaxPlayers)
	}
	return nil
}

func validateHeartbeat(req heartbeatRequest) error {
	if req.ID == "" {
		return errors.New("id required")
	}
	if req.Players < 0 {
		return errors.New("negative player count")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("response encode error")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// ListServers serves GET /servers, optionally narrowed with ?track=.
func ListServers(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, reg.List(r.URL.Query().Get("track")))
	}
}

// RegisterServer serves POST /servers/register. A server registering an
// address already listed takes over that entry.
func RegisterServer(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := validateRegister(req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		id, replaced := reg.Register(ServerInfo{
			Name:       strings.TrimSpace(req.Name),
			Address:    req.Address,
			Players:    req.Players,
			MaxPlayers: req.MaxPlayers,
			Version:    req.Version,
			Region:     req.Region,
			Track:      req.Track,
		})

		log.Info().Str("name", req.Name).Str("address", req.Address).Str("track", req.Track).
			Str("id", id).Bool("replaced", replaced).Msg("registered server")
		writeJSON(w, http.StatusCreated, registerResponse{ID: id, Replaced: replaced})
	}
}

// Heartbeat serves POST /servers/heartbeat. Unknown ids get 404 so the server
// registers again.
func Heartbeat(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req heartbeatRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := validateHeartbeat(req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := reg.Heartbeat(req.ID, req.Players); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Deregister serves DELETE /servers/{id}, sent by a race server shutting down.
func Deregister(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !reg.Deregister(id) {
			writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", errUnknownServer, id))
			return
		}
		log.Info().Str("id", id).Msg("deregistered server")
		w.WriteHeader(http.StatusNoContent)
	}
}

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func newMux(reg *Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /servers", ListServers(reg))
	mux.HandleFunc("POST /servers/register", RegisterServer(reg))
	mux.HandleFunc("POST /servers/heartbeat", Heartbeat(reg))
	mux.HandleFunc("DELETE /servers/{id}", Deregister(reg))
	mux.HandleFunc("GET /health", Health())
	return mux
}
