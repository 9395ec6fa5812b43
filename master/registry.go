package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var errUnknownServer = errors.New("unknown server")

// ServerInfo describes a race server visible to clients.
type ServerInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
	Track      string `json:"track"`
}

// full reports whether no slot is left. Servers without a cap are never full.
func (s ServerInfo) full() bool {
	return s.MaxPlayers > 0 && s.Players >= s.MaxPlayers
}

type listing struct {
	info     ServerInfo
	lastSeen time.Time
}

// Registry holds the race servers that have registered and kept heartbeating.
// Entries are keyed by id and indexed by address, so a restarted server
// replaces its old entry rather than listing twice.
type Registry struct {
	mu        sync.RWMutex
	listings  map[string]*listing
	byAddress map[string]string
	ttl       time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stop      sync.Once
}

// NewRegistry creates a registry and starts its expiry loop.
func NewRegistry(ttl time.Duration) *Registry {
	r := newRegistry(ttl, time.Now)
	go r.expireLoop(30 * time.Second)
	return r
}

func newRegistry(ttl time.Duration, now func() time.Time) *Registry {
	return &Registry{
		listings:  make(map[string]*listing),
		byAddress: make(map[string]string),
		ttl:       ttl,
		now:       now,
		stopCh:    make(chan struct{}),
	}
}

func (r *Registry) Stop() {
	r.stop.Do(func() { close(r.stopCh) })
}

func newServerID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Register lists a server under a fresh id. replaced reports whether an
// earlier entry for the same address was dropped.
func (r *Registry) Register(info ServerInfo) (id string, replaced bool) {
	info.ID = newServerID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byAddress[info.Address]; ok {
		delete(r.listings, old)
		replaced = true
	}
	r.listings[info.ID] = &listing{info: info, lastSeen: r.now()}
	r.byAddress[info.Address] = info.ID
	return info.ID, replaced
}

// Heartbeat refreshes a server's TTL and player count, capped at its
// maxPlayers. Unknown or expired ids return errUnknownServer.
func (r *Registry) Heartbeat(id string, players int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[id]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownServer, id)
	}
	if l.info.MaxPlayers > 0 && players > l.info.MaxPlayers {
		players = l.info.MaxPlayers
	}
	l.lastSeen = r.now()
	l.info.Players = players
	return nil
}

// Deregister removes a server. It reports false for unknown ids.
func (r *Registry) Deregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[id]
	if !ok {
		return false
	}
	r.drop(id, l)
	return true
}

// drop removes a listing; r.mu must be held.
func (r *Registry) drop(id string, l *listing) {
	delete(r.listings, id)
	if r.byAddress[l.info.Address] == id {
		delete(r.byAddress, l.info.Address)
	}
}

// List returns live servers, filtered by track when track is non-empty.
// Servers with free slots come first, then by name.
func (r *Registry) List(track string) []ServerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ServerInfo, 0, len(r.listings))
	for _, l := range r.listings {
		if track != "" && l.info.Track != track {
			continue
		}
		result = append(result, l.info)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.full() != b.full() {
			return !a.full()
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return result
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listings)
}

// expire removes every server not heard from within the TTL and returns how
// many were dropped.
func (r *Registry) expire() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n := 0
	for id, l := range r.listings {
		age := now.Sub(l.lastSeen)
		if age < r.ttl {
			continue
		}
		log.Info().Str("name", l.info.Name).Str("id", id).Dur("lastSeen", age.Round(time.Second)).
			Msg("expired server")
		r.drop(id, l)
		n++
	}
	return n
}

func (r *Registry) expireLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.expire()
		}
	}
}
