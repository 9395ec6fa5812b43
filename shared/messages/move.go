package messages

import (
	"github.com/automoto/podracer-mp/shared/podphysics"
	"github.com/go-gl/mathgl/mgl64"
)

// PodMove is one tick of pilot input, sent from the owning client to the server.
// The server re-simulates it; the client keeps it until acknowledged.
type PodMove struct {
	Sequence  uint32  // strictly increasing per client, starts at 1
	Throttle  float64 // [-1, 1]
	Steer     float64 // [-1, 1], already smoothed
	Boost     bool
	Brake     bool
	Drift     bool
	DeltaTime float64 // seconds simulated by this move
	Timestamp int64   // client clock, Unix ms; informational

	// FixedHeight asks for direct height correction instead of the hover
	// model. Clients set it while their round trip is too long for hover
	// corrections to stay small.
	FixedHeight bool

	// ClientPosition is the client's predicted position before applying this
	// move. Only consulted when the server runs strict validation.
	ClientPosition mgl64.Vec3
}

// Input returns the simulation input carried by the move.
func (m PodMove) Input() podphysics.Input {
	return podphysics.Input{
		Throttle: m.Throttle,
		Steer:    m.Steer,
		Boost:    m.Boost,
		Brake:    m.Brake,
		Drift:    m.Drift,

		FixedHeight: m.FixedHeight,
	}
}

// PodMoveBatch carries several moves in sequence order. Clients flush a batch
// every send interval instead of one message per tick.
type PodMoveBatch struct {
	Moves []PodMove
}
