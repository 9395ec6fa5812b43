// Package netconfig defines lightweight constants shared between client and
// server. It must stay free of transport and simulation imports so every
// binary can depend on it.
package netconfig

import "time"

// ProtocolVersion is compared against JoinRequest.Version when the server
// requires an exact match.
const ProtocolVersion = "podracer/1"

// Role is how a process relates to a given pod.
type Role int

const (
	RoleAuthority  Role = iota // server: validates and simulates moves
	RoleController             // owning client: predicts and reconciles
	RoleObserver               // every other client: interpolates only
)

func (r Role) String() string {
	switch r {
	case RoleAuthority:
		return "authority"
	case RoleController:
		return "controller"
	case RoleObserver:
		return "observer"
	default:
		return "unknown"
	}
}

// Defaults shared by server flags and client settings.
const (
	DefaultPort           = 7373
	DefaultTickRate       = 60
	DefaultMaxPlayers     = 8
	DefaultReconnectGrace = 10 * time.Second
)
