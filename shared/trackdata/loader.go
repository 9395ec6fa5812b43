package trackdata

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lafriks/go-tiled"
)

// Object group names recognised in track TMX files.
const (
	GroupGround = "Ground"
	GroupWalls  = "Walls"
	GroupSpawns = "Spawns"
)

// LoadTrack parses a TMX file into TrackData. It takes an fs.FS so callers can
// pass embed.FS (bundled tracks) or os.DirFS (server track directory).
func LoadTrack(fsys fs.FS, tmxPath string) (*TrackData, error) {
	trackMap, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
	}

	data := &TrackData{
		Name:   strings.TrimSuffix(filepath.Base(tmxPath), ".tmx"),
		Width:  trackMap.Width * trackMap.TileWidth,
		Height: trackMap.Height * trackMap.TileHeight,
	}

	for _, og := range trackMap.ObjectGroups {
		switch og.Name {
		case GroupGround:
			for _, o := range og.Objects {
				pad := GroundPad{Rect: Rect{X: o.X, Y: o.Y, W: o.Width, H: o.Height}}
				if pad.Height, err = floatProp(o.Properties.GetString("height")); err != nil {
					return nil, fmt.Errorf("ground object %d: height: %w", o.ID, err)
				}
				if pad.SlopeX, err = floatProp(o.Properties.GetString("slopeX")); err != nil {
					return nil, fmt.Errorf("ground object %d: slopeX: %w", o.ID, err)
				}
				if pad.SlopeY, err = floatProp(o.Properties.GetString("slopeY")); err != nil {
					return nil, fmt.Errorf("ground object %d: slopeY: %w", o.ID, err)
				}
				data.Ground = append(data.Ground, pad)
			}
		case GroupWalls:
			for _, o := range og.Objects {
				data.Walls = append(data.Walls, Rect{X: o.X, Y: o.Y, W: o.Width, H: o.Height})
			}
		case GroupSpawns:
			for _, o := range og.Objects {
				yaw, err := floatProp(o.Properties.GetString("yaw"))
				if err != nil {
					return nil, fmt.Errorf("spawn object %d: yaw: %w", o.ID, err)
				}
				data.Spawns = append(data.Spawns, SpawnPoint{
					X:     o.X,
					Y:     o.Y,
					Yaw:   yaw,
					Index: o.Properties.GetInt("index"),
				})
			}
		}
	}

	if len(data.Ground) == 0 {
		return nil, fmt.Errorf("track %s has no %s objects", tmxPath, GroupGround)
	}
	if len(data.Spawns) == 0 {
		return nil, fmt.Errorf("track %s has no %s objects", tmxPath, GroupSpawns)
	}

	// Grid order comes from the index property, not object order in the file.
	sort.SliceStable(data.Spawns, func(i, j int) bool {
		return data.Spawns[i].Index < data.Spawns[j].Index
	})

	return data, nil
}

// LoadAllTracks discovers all .tmx files in dir within fsys and returns them keyed
// by stem name plus a sorted list of names.
func LoadAllTracks(fsys fs.FS, dir string) (map[string]*TrackData, []string, error) {
	pattern := path.Join(dir, "*.tmx")
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, nil, fmt.Errorf("no .tmx files found in %s", dir)
	}

	tracks := make(map[string]*TrackData, len(matches))
	names := make([]string, 0, len(matches))

	for _, m := range matches {
		data, err := LoadTrack(fsys, m)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", m, err)
		}
		tracks[data.Name] = data
		names = append(names, data.Name)
	}

	sort.Strings(names)
	return tracks, names, nil
}

func floatProp(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
