package netcomponents

import (
	"github.com/automoto/podracer-mp/shared/gamemath"
	"github.com/automoto/podracer-mp/shared/podphysics"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
)

// NetPodStateData is the authoritative snapshot of one pod as replicated to every
// client. The owner reconciles against it; everyone else interpolates toward it.
type NetPodStateData struct {
	Position        mgl64.Vec3
	Rotation        gamemath.Rotator
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3 // deg/s, yaw in Z
	GroundNormal    mgl64.Vec3
	Grounded        bool
	Drifting        bool

	Engines [podphysics.MaxEngines]podphysics.EngineState
	Hover   podphysics.HoverControl

	LastProcessedSequence uint32 // highest move sequence the server has applied
	ReplicationCounter    uint32 // bumped on every update so identical states still replicate
}

var NetPodState = donburi.NewComponentType[NetPodStateData]()

// FromPodState builds the replicated form of a simulated state.
func FromPodState(s podphysics.State, lastSeq, counter uint32) NetPodStateData {
	return NetPodStateData{
		Position:              s.Position,
		Rotation:              s.Rotation,
		LinearVelocity:        s.Velocity,
		AngularVelocity:       mgl64.Vec3{0, 0, s.YawRate},
		GroundNormal:          s.GroundNormal,
		Grounded:              s.Grounded,
		Drifting:              s.Drifting,
		Engines:               s.Engines,
		Hover:                 s.Hover,
		LastProcessedSequence: lastSeq,
		ReplicationCounter:    counter,
	}
}

// PodState converts back to the simulation form, used when a client snaps to
// the authoritative state before replaying.
func (d NetPodStateData) PodState() podphysics.State {
	return podphysics.State{
		Position:     d.Position,
		Rotation:     d.Rotation,
		Velocity:     d.LinearVelocity,
		YawRate:      d.AngularVelocity[2],
		GroundNormal: d.GroundNormal,
		Grounded:     d.Grounded,
		Drifting:     d.Drifting,
		Engines:      d.Engines,
		Hover:        d.Hover,
	}
}

// LerpNetPodState interpolates transform and velocity between two snapshots.
// Sequence bookkeeping and flags always come from the newer snapshot.
func LerpNetPodState(from, to NetPodStateData, t float64) *NetPodStateData {
	out := to
	out.Position = gamemath.LerpVec3(from.Position, to.Position, t)
	out.Rotation = gamemath.LerpRotator(from.Rotation, to.Rotation, t)
	out.LinearVelocity = gamemath.LerpVec3(from.LinearVelocity, to.LinearVelocity, t)
	out.AngularVelocity = gamemath.LerpVec3(from.AngularVelocity, to.AngularVelocity, t)
	return &out
}
