package components

import (
	"time"

	"github.com/automoto/podracer-mp/shared/netcomponents"
	"github.com/tanema/gween"
	"github.com/yohamta/donburi"
)

// NetInterpData stores interpolation state for smooth rendering of remote
// pods between server snapshots.
type NetInterpData struct {
	Prev, Target netcomponents.NetPodStateData
	Rendered     netcomponents.NetPodStateData

	Tween       *gween.Tween // eases 0..1 across one snapshot interval
	Alpha       float64
	Extrapolate time.Duration // time spent past Target
	Initialized bool
}

var NetInterp = donburi.NewComponentType[NetInterpData]()
