package podphysics

import (
	"math"

	"github.com/automoto/podracer-mp/shared/gamemath"
	"github.com/automoto/podracer-mp/shared/trackdata"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/solarlune/resolv"
)

// Resolv tags used in the track space.
const (
	TagGround = "ground"
	TagWall   = "wall"
	tagCursor = "cursor"
)

// DefaultCellSize is the resolv cell edge in centimetres.
const DefaultCellSize = 100

// contactSlop lets a pod resting exactly against a wall still register it.
const contactSlop = 0.01

// queryMargin pads broadphase boxes so objects flush against an edge land in
// the cells that get checked.
const queryMargin = 2.0

// Track is the static collision world for the pod model. Queries move an
// internal query cursor, so a Track must not be shared between goroutines;
// every simulation owner builds its own from the same TrackData.
type Track struct {
	data   *trackdata.TrackData
	space  *resolv.Space
	cursor *resolv.Object
	pads   map[*resolv.Object]trackdata.GroundPad
}

// GroundHit is the result of a downward ground query.
type GroundHit struct {
	Hit      bool
	Distance float64 // height of the query point above the surface
	SurfaceZ float64
	Normal   mgl64.Vec3
}

// NewTrack builds the resolv space for data. cellSize <= 0 uses DefaultCellSize.
func NewTrack(data *trackdata.TrackData, cellSize int) *Track {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	w, h := data.Width, data.Height
	if w < cellSize {
		w = cellSize
	}
	if h < cellSize {
		h = cellSize
	}

	t := &Track{
		data:  data,
		space: resolv.NewSpace(w, h, cellSize, cellSize),
		pads:  make(map[*resolv.Object]trackdata.GroundPad, len(data.Ground)),
	}

	for _, pad := range data.Ground {
		obj := resolv.NewObject(pad.X, pad.Y, pad.W, pad.H, TagGround)
		obj.SetShape(resolv.NewRectangle(0, 0, pad.W, pad.H))
		t.space.Add(obj)
		t.pads[obj] = pad
	}
	for _, wall := range data.Walls {
		obj := resolv.NewObject(wall.X, wall.Y, wall.W, wall.H, TagWall)
		obj.SetShape(resolv.NewRectangle(0, 0, wall.W, wall.H))
		t.space.Add(obj)
	}

	t.cursor = resolv.NewObject(0, 0, 1, 1, tagCursor)
	t.space.Add(t.cursor)

	return t
}

// query returns objects with tag whose cells touch the given box, grown by
// queryMargin on every side. Results are a broadphase superset; callers do their
// own exact tests.
func (t *Track) query(x, y, w, h float64, tag string) []*resolv.Object {
	t.cursor.X, t.cursor.Y = x-queryMargin, y-queryMargin
	t.cursor.W, t.cursor.H = math.Max(w, 1)+2*queryMargin, math.Max(h, 1)+2*queryMargin
	t.cursor.Update()

	check := t.cursor.Check(0, 0, tag)
	if check == nil {
		return nil
	}
	return check.ObjectsByTags(tag)
}

// GroundQuery looks straight down from pos for the highest surface no more than
// maxDist below it. Surfaces up to `below` centimetres above pos still count, so a pod that
// sank into a rising ramp keeps its support.
func (t *Track) GroundQuery(pos mgl64.Vec3, maxDist, below float64) GroundHit {
	var best GroundHit
	for _, obj := range t.query(pos[0], pos[1], 1, 1, TagGround) {
		pad, ok := t.pads[obj]
		if !ok || !pad.Contains(pos[0], pos[1]) {
			continue
		}
		z := pad.SurfaceZ(pos[0], pos[1])
		dist := pos[2] - z
		if dist > maxDist || dist < -below {
			continue
		}
		if best.Hit && z <= best.SurfaceZ {
			continue
		}
		best = GroundHit{
			Hit:      true,
			Distance: dist,
			SurfaceZ: z,
			Normal:   mgl64.Vec3{-pad.SlopeX, -pad.SlopeY, 1}.Normalize(),
		}
	}
	if !best.Hit {
		best.Normal = gamemath.Up
	}
	return best
}

// SweepWalls moves a square footprint of half-size radius by (dx, dy), one axis
// at a time, stopping each axis at the first wall. The blocked flags tell the
// caller which velocity components hit a wall.
func (t *Track) SweepWalls(pos mgl64.Vec3, dx, dy, radius float64) (out mgl64.Vec3, blockedX, blockedY bool) {
	x, y := pos[0], pos[1]
	if dx != 0 {
		x, blockedX = t.sweepAxis(x, y, dx, radius, true)
	}
	if dy != 0 {
		y, blockedY = t.sweepAxis(x, y, dy, radius, false)
	}
	return mgl64.Vec3{x, y, pos[2]}, blockedX, blockedY
}

func (t *Track) sweepAxis(x, y, d, r float64, alongX bool) (float64, bool) {
	minX, minY, maxX, maxY := x-r, y-r, x+r, y+r
	switch {
	case alongX && d > 0:
		maxX += d
	case alongX:
		minX += d
	case d > 0:
		maxY += d
	default:
		minY += d
	}

	// Work in (along, across) coordinates so both axes share one code path.
	along, across := x, y
	if !alongX {
		along, across = y, x
	}

	allowed := d
	blocked := false
	for _, w := range t.query(minX, minY, maxX-minX, maxY-minY, TagWall) {
		lo, hi, crossLo, crossHi := w.X, w.X+w.W, w.Y, w.Y+w.H
		if !alongX {
			lo, hi, crossLo, crossHi = w.Y, w.Y+w.H, w.X, w.X+w.W
		}
		if across+r <= crossLo || across-r >= crossHi {
			continue
		}
		if d > 0 {
			gap := lo - (along + r)
			if gap >= -contactSlop && gap < allowed {
				allowed = math.Max(gap, 0)
				blocked = true
			}
		} else {
			gap := hi - (along - r)
			if gap <= contactSlop && gap > allowed {
				allowed = math.Min(gap, 0)
				blocked = true
			}
		}
	}
	return along + allowed, blocked
}

// Spawn returns the resting state for grid slot index (wrapped to the number of
// spawns), hovering at tuning.HoverHeight above the ground.
func (t *Track) Spawn(index int, tuning Tuning) State {
	spawns := t.data.Spawns
	if len(spawns) == 0 {
		return State{GroundNormal: gamemath.Up}
	}
	if index < 0 {
		index = -index
	}
	sp := spawns[index%len(spawns)]

	pos := mgl64.Vec3{sp.X, sp.Y, tuning.MaxGroundDistance}
	ground := t.GroundQuery(pos, math.Inf(1), math.Inf(1))
	if ground.Hit {
		pos[2] = ground.SurfaceZ + tuning.HoverHeight
	} else {
		pos[2] = tuning.HoverHeight
	}

	rot := gamemath.Rotator{Yaw: gamemath.NormalizeAxis(sp.Yaw)}
	if ground.Hit {
		rot.Pitch, rot.Roll = gamemath.SurfaceAlignment(rot.Yaw, ground.Normal)
	}

	return State{
		Position:     pos,
		Rotation:     rot,
		GroundNormal: ground.Normal,
		Grounded:     ground.Hit,
	}
}
