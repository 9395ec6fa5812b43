package podphysics

import (
	"math"

	"github.com/automoto/podracer-mp/shared/gamemath"
	"github.com/go-gl/mathgl/mgl64"
)

// State is the full simulated state of one pod. Step consumes and produces it;
// nothing outside State influences the next step.
type State struct {
	Position     mgl64.Vec3
	Rotation     gamemath.Rotator
	Velocity     mgl64.Vec3
	YawRate      float64 // deg/s
	GroundNormal mgl64.Vec3
	Grounded     bool
	Drifting     bool

	Engines [MaxEngines]EngineState
	Hover   HoverControl
}

// Input is one tick of pilot intent. Throttle and Steer are in [-1, 1].
type Input struct {
	Throttle float64
	Steer    float64
	Boost    bool
	Brake    bool
	Drift    bool

	// FixedHeight pins a supported pod at hover height instead of running the
	// hover model.
	FixedHeight bool
}

// Clamped returns the input with analog axes forced into [-1, 1]; NaN reads as 0.
func (in Input) Clamped() Input {
	in.Throttle = clampAxis(in.Throttle)
	in.Steer = clampAxis(in.Steer)
	return in
}

func clampAxis(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return gamemath.Clamp(v, -1, 1)
}

// Divergence measures how far two states are apart on each compared quantity.
type Divergence struct {
	Position float64 // cm
	Rotation float64 // deg, worst axis
	Velocity float64 // cm/s
	YawRate  float64 // deg/s
	Engine   float64 // worst engine damage or boost difference
}

// Diff returns the divergence between s and o.
func (s State) Diff(o State) Divergence {
	return Divergence{
		Position: s.Position.Sub(o.Position).Len(),
		Rotation: s.Rotation.MaxAxisDelta(o.Rotation),
		Velocity: s.Velocity.Sub(o.Velocity).Len(),
		YawRate:  math.Abs(s.YawRate - o.YawRate),
		Engine:   engineDelta(s.Engines, o.Engines),
	}
}

// Exceeds reports whether any component of d is beyond the matching limit in max.
func (d Divergence) Exceeds(max Divergence) bool {
	return d.Position > max.Position ||
		d.Rotation > max.Rotation ||
		d.Velocity > max.Velocity ||
		d.YawRate > max.YawRate ||
		d.Engine > max.Engine
}
