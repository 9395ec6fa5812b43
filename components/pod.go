package components

import (
	"github.com/automoto/podracer-mp/shared/messages"
	"github.com/automoto/podracer-mp/shared/podphysics"
	"github.com/yohamta/donburi"
)

// PodBodyData is the server-side simulation state of one pod. Only the
// authority writes it; clients see the replicated NetPodState instead.
type PodBodyData struct {
	State podphysics.State

	LastProcessedSequence uint32
	ReplicationCounter    uint32
	QuietTicks            int // ticks since the last published state

	// Inbox holds received moves in arrival order until the next tick.
	Inbox []messages.PodMove

	Owner string // network client id, empty while detached
	Slot  int

	Accepted uint64
	Rejected uint64
}

var PodBody = donburi.NewComponentType[PodBodyData]()
