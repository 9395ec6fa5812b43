package netcomponents

import (
	"testing"

	"github.com/automoto/podracer-mp/shared/gamemath"
	"github.com/automoto/podracer-mp/shared/podphysics"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestPodStateRoundTrip(t *testing.T) {
	s := podphysics.State{
		Position:     mgl64.Vec3{1, 2, 3},
		Rotation:     gamemath.Rotator{Pitch: 4, Yaw: 5, Roll: 6},
		Velocity:     mgl64.Vec3{7, 8, 9},
		YawRate:      10,
		GroundNormal: gamemath.Up,
		Grounded:     true,
		Drifting:     true,
		Hover:        podphysics.HoverControl{Integral: 3, LastError: -2, Output: 15, Primed: true},
	}
	s.Engines[1] = podphysics.EngineState{Damage: 40, Boost: 0.5, Disabled: true}
	net := FromPodState(s, 42, 7)
	assert.Equal(t, uint32(42), net.LastProcessedSequence)
	assert.Equal(t, uint32(7), net.ReplicationCounter)
	assert.Equal(t, s, net.PodState())
}

func TestLerpNetPodState(t *testing.T) {
	from := NetPodStateData{
		Position:              mgl64.Vec3{0, 0, 100},
		Rotation:              gamemath.Rotator{Yaw: 170},
		LastProcessedSequence: 1,
	}
	to := NetPodStateData{
		Position:              mgl64.Vec3{100, 0, 100},
		Rotation:              gamemath.Rotator{Yaw: -170},
		LastProcessedSequence: 5,
		Drifting:              true,
	}

	mid := LerpNetPodState(from, to, 0.5)
	assert.InDelta(t, 50, mid.Position[0], 1e-9)
	assert.InDelta(t, 180, mid.Rotation.Yaw, 1e-9, "yaw takes the short way round")
	assert.Equal(t, uint32(5), mid.LastProcessedSequence)
	assert.True(t, mid.Drifting)

	assert.Equal(t, to.Position, LerpNetPodState(from, to, 1).Position)
}
