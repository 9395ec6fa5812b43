package bot

import (
	"encoding/json"
	"fmt"

	"github.com/quasilyte/gdata"
	"github.com/rs/zerolog/log"
)

const sessionKey = "session"

// SavedSession is what the bot remembers between runs so a restart inside the
// server's reconnect grace reclaims the same pod.
type SavedSession struct {
	Server         string `json:"server"`
	PlayerName     string `json:"playerName"`
	ReconnectToken string `json:"reconnectToken"`
}

// ItemStore is the subset of gdata.Manager the bot uses.
type ItemStore interface {
	LoadItem(key string) ([]byte, error)
	SaveItem(key string, data []byte) error
}

// Store persists SavedSession through gdata.
type Store struct {
	items ItemStore
}

// OpenStore opens the per-user data directory for appName.
func OpenStore(appName string) (*Store, error) {
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		return nil, fmt.Errorf("open gdata: %w", err)
	}
	return NewStore(m), nil
}

func NewStore(items ItemStore) *Store {
	return &Store{items: items}
}

// Load returns the saved session, or nil when there is none.
func (s *Store) Load() (*SavedSession, error) {
	if s == nil || s.items == nil {
		return nil, nil
	}
	data, err := s.items.LoadItem(sessionKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var saved SavedSession
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &saved, nil
}

// Save writes the session.
func (s *Store) Save(saved SavedSession) error {
	if s == nil || s.items == nil {
		return nil
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("serialize session: %w", err)
	}
	if err := s.items.SaveItem(sessionKey, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// TokenFor returns the saved reconnect token if it was issued by server.
func (s *Store) TokenFor(server string) string {
	saved, err := s.Load()
	if err != nil {
		log.Warn().Err(err).Msg("could not read saved session")
		return ""
	}
	if saved == nil || saved.Server != server {
		return ""
	}
	return saved.ReconnectToken
}
