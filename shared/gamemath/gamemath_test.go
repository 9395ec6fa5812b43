package gamemath

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestFInterpTo(t *testing.T) {
	assert.InDelta(t, 5.0, FInterpTo(0, 10, 0.1, 5), 1e-9)
	assert.Equal(t, 10.0, FInterpTo(0, 10, 1, 5), "alpha clamps at 1")
	assert.Equal(t, 10.0, FInterpTo(3, 10, 0.1, 0), "non-positive speed snaps")
	assert.Equal(t, 1.0, FInterpTo(1, 1, 0.1, 5))
}

func TestMapRangeClamped(t *testing.T) {
	tests := []struct {
		v, want float64
	}{
		{-5, 1},
		{0, 1},
		{50, 0.65},
		{100, 0.3},
		{500, 0.3},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, MapRangeClamped(tt.v, 0, 100, 1, 0.3), 1e-9, "v=%v", tt.v)
	}
}

func TestNormalizeAxis(t *testing.T) {
	assert.InDelta(t, -170.0, NormalizeAxis(190), 1e-9)
	assert.InDelta(t, 180.0, NormalizeAxis(-180), 1e-9)
	assert.InDelta(t, 10.0, NormalizeAxis(730), 1e-9)
	assert.InDelta(t, 20.0, DeltaAngle(170, -170), 1e-9)
	assert.InDelta(t, 180.0, LerpAngle(170, -170, 0.5), 1e-9)
}

func TestMoveToward(t *testing.T) {
	assert.Equal(t, 3.0, MoveToward(0, 10, 3))
	assert.Equal(t, -3.0, MoveToward(0, -10, 3))
	assert.Equal(t, 10.0, MoveToward(9, 10, 3))
}

func TestRotatorBasis(t *testing.T) {
	r := Rotator{Yaw: 90}
	assert.InDelta(t, 0, r.FlatForward()[0], 1e-9)
	assert.InDelta(t, 1, r.FlatForward()[1], 1e-9)
	assert.InDelta(t, -1, r.FlatRight()[0], 1e-9)
	assert.InDelta(t, 0, r.FlatRight()[1], 1e-9)

	assert.InDelta(t, 20.0, Rotator{Yaw: 170}.MaxAxisDelta(Rotator{Yaw: -170}), 1e-9)
}

func TestSurfaceAlignment(t *testing.T) {
	pitch, roll := SurfaceAlignment(0, Up)
	assert.InDelta(t, 0, pitch, 1e-9)
	assert.InDelta(t, 0, roll, 1e-9)

	// Surface rising toward +X: facing +X the nose must tilt up.
	n := mgl64.Vec3{-1, 0, 1}.Normalize()
	pitch, roll = SurfaceAlignment(0, n)
	assert.InDelta(t, 45, pitch, 1e-6)
	assert.InDelta(t, 0, roll, 1e-6)
}

func TestClampLength2D(t *testing.T) {
	v := ClampLength2D(mgl64.Vec3{300, 400, -50}, 100)
	assert.InDelta(t, 60, v[0], 1e-9)
	assert.InDelta(t, 80, v[1], 1e-9)
	assert.Equal(t, -50.0, v[2])

	same := mgl64.Vec3{1, 1, 1}
	assert.Equal(t, same, ClampLength2D(same, 100))
}

func TestProjectOnPlane(t *testing.T) {
	v := ProjectOnPlane(mgl64.Vec3{1, 2, 3}, Up)
	assert.Equal(t, mgl64.Vec3{1, 2, 0}, v)
}
