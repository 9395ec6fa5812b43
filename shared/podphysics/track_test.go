package podphysics

import (
	"testing"

	"github.com/automoto/podracer-mp/shared/gamemath"
	"github.com/automoto/podracer-mp/shared/trackdata"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rampTrack() *Track {
	return NewTrack(&trackdata.TrackData{
		Width:  2000,
		Height: 2000,
		Ground: []trackdata.GroundPad{
			{Rect: trackdata.Rect{X: 0, Y: 0, W: 2000, H: 2000}},
			{Rect: trackdata.Rect{X: 1000, Y: 0, W: 500, H: 2000}, Height: 0, SlopeX: 0.5},
		},
		Walls: []trackdata.Rect{{X: 1800, Y: 0, W: 200, H: 2000}},
		Spawns: []trackdata.SpawnPoint{
			{X: 200, Y: 200, Yaw: 90, Index: 0},
			{X: 1200, Y: 200, Index: 1},
		},
	}, 0)
}

func TestGroundQuery(t *testing.T) {
	track := rampTrack()

	hit := track.GroundQuery(mgl64.Vec3{500, 500, 120}, 500, 100)
	require.True(t, hit.Hit)
	assert.InDelta(t, 120, hit.Distance, 1e-9)
	assert.Equal(t, gamemath.Up, hit.Normal)

	// On the ramp the higher surface wins over the floor beneath it.
	hit = track.GroundQuery(mgl64.Vec3{1200, 500, 200}, 500, 100)
	require.True(t, hit.Hit)
	assert.InDelta(t, 100, hit.SurfaceZ, 1e-9)
	assert.InDelta(t, 100, hit.Distance, 1e-9)
	assert.Less(t, hit.Normal[0], 0.0)

	miss := track.GroundQuery(mgl64.Vec3{500, 500, 900}, 500, 100)
	assert.False(t, miss.Hit)
	assert.Equal(t, gamemath.Up, miss.Normal)

	off := track.GroundQuery(mgl64.Vec3{5000, 500, 100}, 500, 100)
	assert.False(t, off.Hit)
}

func TestSweepWalls(t *testing.T) {
	track := rampTrack()

	pos, bx, by := track.SweepWalls(mgl64.Vec3{1700, 500, 100}, 200, 30, 50)
	assert.True(t, bx)
	assert.False(t, by)
	assert.InDelta(t, 1750, pos[0], 1e-9)
	assert.InDelta(t, 530, pos[1], 1e-9)

	pos, bx, _ = track.SweepWalls(mgl64.Vec3{1700, 500, 100}, -200, 0, 50)
	assert.False(t, bx)
	assert.InDelta(t, 1500, pos[0], 1e-9)
}

func TestSpawn(t *testing.T) {
	track := rampTrack()
	tn := DefaultTuning()

	s := track.Spawn(0, tn)
	assert.Equal(t, mgl64.Vec3{200, 200, tn.HoverHeight}, s.Position)
	assert.Equal(t, 90.0, s.Rotation.Yaw)
	assert.True(t, s.Grounded)

	ramp := track.Spawn(1, tn)
	assert.InDelta(t, 100+tn.HoverHeight, ramp.Position[2], 1e-9)
	assert.Greater(t, ramp.Rotation.Pitch, 0.0)

	assert.Equal(t, s, track.Spawn(2, tn), "index wraps")
}

func TestDivergence(t *testing.T) {
	a := State{Position: mgl64.Vec3{0, 0, 0}, Rotation: gamemath.Rotator{Yaw: 179}}
	b := State{Position: mgl64.Vec3{3, 4, 0}, Rotation: gamemath.Rotator{Yaw: -179}, YawRate: 5}

	d := a.Diff(b)
	assert.InDelta(t, 5, d.Position, 1e-9)
	assert.InDelta(t, 2, d.Rotation, 1e-9)
	assert.InDelta(t, 5, d.YawRate, 1e-9)

	assert.False(t, d.Exceeds(Divergence{Position: 10, Rotation: 5, Velocity: 1, YawRate: 10}))
	assert.True(t, d.Exceeds(Divergence{Position: 1, Rotation: 5, Velocity: 1, YawRate: 10}))
}
