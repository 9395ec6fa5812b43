package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNoServers is returned when the server list has nothing the bot can join.
var ErrNoServers = errors.New("no joinable servers")

// ServerEntry is one row of the master server list.
type ServerEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
	Track      string `json:"track"`
}

// Browser queries a master server.
type Browser struct {
	masterURL  string
	httpClient *http.Client
}

func NewBrowser(masterURL string) *Browser {
	return &Browser{
		masterURL:  strings.TrimRight(masterURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Servers lists registered servers, narrowed to track when it is non-empty.
func (b *Browser) Servers(ctx context.Context, track string) ([]ServerEntry, error) {
	u := b.masterURL + "/servers"
	if track != "" {
		u += "?track=" + url.QueryEscape(track)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("master server query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("master server returned status %d", resp.StatusCode)
	}

	var servers []ServerEntry
	if err := json.NewDecoder(resp.Body).Decode(&servers); err != nil {
		return nil, fmt.Errorf("decode server list: %w", err)
	}
	return servers, nil
}

// Pick returns the address of the emptiest server that accepts version and has
// a free slot. Servers requiring no particular version accept any.
func (b *Browser) Pick(ctx context.Context, track, version string) (string, error) {
	servers, err := b.Servers(ctx, track)
	if err != nil {
		return "", err
	}

	var best *ServerEntry
	for i := range servers {
		s := &servers[i]
		if s.Version != "" && s.Version != version {
			continue
		}
		if s.MaxPlayers > 0 && s.Players >= s.MaxPlayers {
			continue
		}
		if best == nil || s.Players < best.Players {
			best = s
		}
	}
	if best == nil {
		return "", fmt.Errorf("%w (%d listed)", ErrNoServers, len(servers))
	}

	log.Info().Str("name", best.Name).Str("address", best.Address).Str("track", best.Track).
		Int("players", best.Players).Msg("picked server")
	return best.Address, nil
}
