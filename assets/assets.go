// Package assets bundles the stock tracks so the server and bot run without a
// track directory on disk.
package assets

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/automoto/podracer-mp/shared/trackdata"
)

//go:embed all:tracks
var trackFS embed.FS

// TracksDir is the directory inside the embedded filesystem holding TMX tracks.
const TracksDir = "tracks"

// LoadTracks returns every bundled track keyed by name plus the sorted names.
func LoadTracks() (map[string]*trackdata.TrackData, []string, error) {
	return trackdata.LoadAllTracks(trackFS, TracksDir)
}

// ErrTrackNotFound is returned by Track when no track has the requested name.
var ErrTrackNotFound = errors.New("track not found")

// Track looks name up among the bundled tracks, or among the .tmx files in dir
// when dir is set.
func Track(name, dir string) (*trackdata.TrackData, error) {
	var (
		tracks map[string]*trackdata.TrackData
		names  []string
		err    error
	)
	if dir != "" {
		tracks, names, err = trackdata.LoadAllTracks(os.DirFS(dir), ".")
	} else {
		tracks, names, err = LoadTracks()
	}
	if err != nil {
		return nil, err
	}
	td, ok := tracks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrTrackNotFound, name, strings.Join(names, ", "))
	}
	return td, nil
}
