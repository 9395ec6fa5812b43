package protocol

import (
	"github.com/automoto/podracer-mp/shared/netcomponents"
	"github.com/leap-fish/necs/esync"
)

// Sync ID constants - ID 1 is reserved by necs for NetworkId
const (
	SyncIDNetPodState uint = 10
	SyncIDNetPodInfo  uint = 11
)

// Interpolation IDs (uint8 for WithInterpFn)
const (
	InterpIDNetPodState uint8 = 10
)

// RegisterComponents registers all network components with necs for serialization.
// This must be called by both server and client before any network operations.
func RegisterComponents() error {
	if err := esync.RegisterComponent(
		SyncIDNetPodState,
		netcomponents.NetPodStateData{},
		netcomponents.NetPodState,
		esync.WithInterpFn(InterpIDNetPodState, netcomponents.LerpNetPodState),
	); err != nil {
		return err
	}

	// PodInfo: no interpolation (discrete)
	if err := esync.RegisterComponent(
		SyncIDNetPodInfo,
		netcomponents.NetPodInfoData{},
		netcomponents.NetPodInfo,
	); err != nil {
		return err
	}

	return nil
}
