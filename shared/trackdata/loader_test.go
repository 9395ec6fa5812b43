package trackdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTrack = `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" renderorder="right-down" width="20" height="10" tilewidth="100" tileheight="100" infinite="0" nextlayerid="4" nextobjectid="6">
 <objectgroup id="1" name="Ground">
  <object id="1" x="0" y="0" width="2000" height="1000"/>
  <object id="2" x="500" y="200" width="400" height="400">
   <properties>
    <property name="height" type="float" value="50"/>
    <property name="slopeX" type="float" value="0.25"/>
   </properties>
  </object>
 </objectgroup>
 <objectgroup id="2" name="Walls">
  <object id="3" x="0" y="0" width="2000" height="100"/>
 </objectgroup>
 <objectgroup id="3" name="Spawns">
  <object id="4" x="300" y="500">
   <properties>
    <property name="index" type="int" value="1"/>
    <property name="yaw" type="float" value="90"/>
   </properties>
   <point/>
  </object>
  <object id="5" x="200" y="500">
   <properties>
    <property name="index" type="int" value="0"/>
   </properties>
   <point/>
  </object>
 </objectgroup>
</map>
`

func writeTrack(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tracks"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tracks", name), []byte(body), 0o644))
}

func TestLoadTrack(t *testing.T) {
	dir := t.TempDir()
	writeTrack(t, dir, "test.tmx", testTrack)

	data, err := LoadTrack(os.DirFS(dir), "tracks/test.tmx")
	require.NoError(t, err)

	assert.Equal(t, "test", data.Name)
	assert.Equal(t, 2000, data.Width)
	assert.Equal(t, 1000, data.Height)

	require.Len(t, data.Ground, 2)
	assert.Equal(t, 0.0, data.Ground[0].Height)
	assert.Equal(t, 50.0, data.Ground[1].Height)
	assert.Equal(t, 0.25, data.Ground[1].SlopeX)
	assert.InDelta(t, 75.0, data.Ground[1].SurfaceZ(600, 300), 1e-9)

	require.Len(t, data.Walls, 1)
	assert.Equal(t, Rect{X: 0, Y: 0, W: 2000, H: 100}, data.Walls[0])

	require.Len(t, data.Spawns, 2)
	assert.Equal(t, 0, data.Spawns[0].Index, "spawns sorted by index")
	assert.Equal(t, 200.0, data.Spawns[0].X)
	assert.Equal(t, 90.0, data.Spawns[1].Yaw)
}

func TestLoadTrack_MissingGround(t *testing.T) {
	dir := t.TempDir()
	writeTrack(t, dir, "empty.tmx", `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" renderorder="right-down" width="2" height="2" tilewidth="100" tileheight="100" infinite="0" nextlayerid="2" nextobjectid="2">
 <objectgroup id="1" name="Walls">
  <object id="1" x="0" y="0" width="200" height="10"/>
 </objectgroup>
</map>
`)

	_, err := LoadTrack(os.DirFS(dir), "tracks/empty.tmx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Ground objects")
}

func TestLoadAllTracks(t *testing.T) {
	dir := t.TempDir()
	writeTrack(t, dir, "b.tmx", testTrack)
	writeTrack(t, dir, "a.tmx", testTrack)

	tracks, names, err := LoadAllTracks(os.DirFS(dir), "tracks")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
	assert.Contains(t, tracks, "a")

	_, _, err = LoadAllTracks(os.DirFS(t.TempDir()), "tracks")
	require.Error(t, err)
}

func TestArena(t *testing.T) {
	a := Arena(4000, 3000)
	assert.Len(t, a.Walls, 4)
	assert.Len(t, a.Spawns, 4)
	for _, s := range a.Spawns {
		assert.True(t, a.Ground[0].Contains(s.X, s.Y))
	}
}
