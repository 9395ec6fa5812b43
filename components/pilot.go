package components

import (
	"github.com/automoto/podracer-mp/network"
	"github.com/yohamta/donburi"
)

// PilotData is the raw input for the locally controlled pod, written by
// whatever drives it (bot script or device) before the prediction system runs.
type PilotData struct {
	Input network.RawInput
}

var Pilot = donburi.NewComponentType[PilotData]()
