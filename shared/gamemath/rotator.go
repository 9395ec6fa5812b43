package gamemath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rotator is an orientation in degrees. Yaw turns about Z (0 faces +X, 90 faces +Y),
// pitch raises the nose, roll banks to the right.
type Rotator struct {
	Pitch float64
	Yaw   float64
	Roll  float64
}

// FlatForward is the unit heading on the XY plane.
func (r Rotator) FlatForward() mgl64.Vec3 {
	s, c := math.Sincos(mgl64.DegToRad(r.Yaw))
	return mgl64.Vec3{c, s, 0}
}

// FlatRight is the unit vector to the right of the heading on the XY plane.
func (r Rotator) FlatRight() mgl64.Vec3 {
	s, c := math.Sincos(mgl64.DegToRad(r.Yaw))
	return mgl64.Vec3{-s, c, 0}
}

// MaxAxisDelta is the largest shortest-arc difference across the three axes.
func (r Rotator) MaxAxisDelta(o Rotator) float64 {
	d := math.Abs(DeltaAngle(r.Pitch, o.Pitch))
	d = math.Max(d, math.Abs(DeltaAngle(r.Yaw, o.Yaw)))
	return math.Max(d, math.Abs(DeltaAngle(r.Roll, o.Roll)))
}

// LerpRotator interpolates each axis along its shortest arc.
func LerpRotator(a, b Rotator, t float64) Rotator {
	return Rotator{
		Pitch: LerpAngle(a.Pitch, b.Pitch, t),
		Yaw:   LerpAngle(a.Yaw, b.Yaw, t),
		Roll:  LerpAngle(a.Roll, b.Roll, t),
	}
}

// SurfaceAlignment returns the pitch and roll that lay a body with the given yaw
// flat on a surface with unit normal n.
func SurfaceAlignment(yaw float64, n mgl64.Vec3) (pitch, roll float64) {
	r := Rotator{Yaw: yaw}
	fwd := ProjectOnPlane(r.FlatForward(), n)
	right := ProjectOnPlane(r.FlatRight(), n)
	fwd = SafeNormal(fwd, r.FlatForward())
	right = SafeNormal(right, r.FlatRight())
	pitch = mgl64.RadToDeg(math.Asin(Clamp(fwd[2], -1, 1)))
	roll = -mgl64.RadToDeg(math.Asin(Clamp(right[2], -1, 1)))
	return pitch, roll
}
