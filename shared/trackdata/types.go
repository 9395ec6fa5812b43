// Package trackdata provides TMX track parsing shared between client and server.
// It has no dependencies on donburi or resolv, pure data only.
package trackdata

// TrackData holds everything the pod simulation needs to know about a track.
// Distances are centimetres. X/Y span the track plane and Z is height.
type TrackData struct {
	Name   string
	Width  int
	Height int
	Ground []GroundPad
	Walls  []Rect
	Spawns []SpawnPoint
}

// Rect is an axis-aligned rectangle on the track plane.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether (x, y) lies inside the rectangle, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// GroundPad is a planar driving surface. Height is the surface Z at the pad's
// origin corner; SlopeX/SlopeY are rise per unit of travel along each axis.
type GroundPad struct {
	Rect
	Height float64
	SlopeX float64
	SlopeY float64
}

// SurfaceZ returns the pad's surface height at (x, y).
func (g GroundPad) SurfaceZ(x, y float64) float64 {
	return g.Height + g.SlopeX*(x-g.X) + g.SlopeY*(y-g.Y)
}

// SpawnPoint is a starting grid slot.
type SpawnPoint struct {
	X, Y  float64
	Yaw   float64 // degrees
	Index int
}
