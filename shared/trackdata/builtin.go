package trackdata

// Arena builds a walled, flat w×h track with a ramp along the east side and a
// four-slot starting grid facing +X. Used when no TMX track is configured.
func Arena(w, h float64) *TrackData {
	const wall = 100.0
	rampW := w / 8

	return &TrackData{
		Name:   "arena",
		Width:  int(w),
		Height: int(h),
		Ground: []GroundPad{
			{Rect: Rect{X: 0, Y: 0, W: w, H: h}},
			{
				Rect:   Rect{X: w - wall - rampW, Y: h / 3, W: rampW, H: h / 3},
				SlopeY: 0.15,
			},
		},
		Walls: []Rect{
			{X: 0, Y: 0, W: w, H: wall},
			{X: 0, Y: h - wall, W: w, H: wall},
			{X: 0, Y: 0, W: wall, H: h},
			{X: w - wall, Y: 0, W: wall, H: h},
		},
		Spawns: []SpawnPoint{
			{X: wall + 400, Y: wall + 300, Index: 0},
			{X: wall + 400, Y: wall + 700, Index: 1},
			{X: wall + 900, Y: wall + 300, Index: 2},
			{X: wall + 900, Y: wall + 700, Index: 3},
		},
	}
}
