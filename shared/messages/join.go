package messages

import "github.com/leap-fish/necs/esync"

// JoinRequest is sent by a client after connecting to request a grid slot.
type JoinRequest struct {
	Version        string
	PlayerName     string
	ReconnectToken string // reclaims a pod still inside its grace period
}

// JoinAccepted is sent by the server when a client's join request is accepted.
type JoinAccepted struct {
	NetworkID      esync.NetworkId
	ReconnectToken string
	ServerName     string
	TickRate       int
	Track          string
	Slot           int
	Resumed        bool // true when the request reclaimed an existing pod
}

// JoinRejected is sent by the server when a client's join request is rejected.
type JoinRejected struct {
	Reason string
}
