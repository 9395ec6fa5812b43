package archetypes

import (
	"github.com/automoto/podracer-mp/components"
	"github.com/automoto/podracer-mp/shared/netcomponents"
	"github.com/automoto/podracer-mp/tags"
	"github.com/yohamta/donburi"
)

var (
	// ServerPod is a pod simulated by the authority and replicated to clients.
	ServerPod = newArchetype(
		tags.Pod,
		components.PodBody,
		netcomponents.NetPodState,
		netcomponents.NetPodInfo,
	)
	// LocalPod is the client's own pod, driven by prediction.
	LocalPod = newArchetype(
		tags.Pod,
		tags.LocalPod,
		components.Pilot,
		netcomponents.NetPodState,
		netcomponents.NetPodInfo,
	)
	// RemotePod is any other pod seen by a client, driven by interpolation.
	RemotePod = newArchetype(
		tags.Pod,
		tags.RemotePod,
		components.NetInterp,
		netcomponents.NetPodState,
		netcomponents.NetPodInfo,
	)
)

type archetype struct {
	components []donburi.IComponentType
}

func newArchetype(cs ...donburi.IComponentType) *archetype {
	return &archetype{
		components: cs,
	}
}

func (a *archetype) Spawn(w donburi.World, cs ...donburi.IComponentType) *donburi.Entry {
	all := make([]donburi.IComponentType, 0, len(a.components)+len(cs))
	all = append(all, a.components...)
	all = append(all, cs...)
	return w.Entry(w.Create(all...))
}
