package systems

import (
	"github.com/automoto/podracer-mp/archetypes"
	"github.com/automoto/podracer-mp/components"
	"github.com/automoto/podracer-mp/network"
	"github.com/automoto/podracer-mp/shared/netcomponents"
	"github.com/automoto/podracer-mp/shared/netconfig"
	"github.com/leap-fish/necs/esync"
	"github.com/rs/zerolog/log"
	"github.com/yohamta/donburi"
)

// ReconcileStats counts what authoritative snapshots did to the local pod.
type ReconcileStats struct {
	Snapshots   int
	Stale       int
	Corrections int
	Replayed    int
	MaxError    float64 // largest position divergence seen, cm
}

// SnapshotApplier mirrors replicated pods into a client world. The local pod's
// state goes to the predictor for reconciliation; every other pod is handed to
// the interpolator.
type SnapshotApplier struct {
	predictor *network.Predictor
	interp    *Interpolator
	localID   func() esync.NetworkId

	present map[esync.NetworkId]bool
	stats   ReconcileStats
}

func NewSnapshotApplier(p *network.Predictor, interp *Interpolator, localID func() esync.NetworkId) *SnapshotApplier {
	return &SnapshotApplier{
		predictor: p,
		interp:    interp,
		localID:   localID,
		present:   make(map[esync.NetworkId]bool),
	}
}

// Apply decodes a world snapshot, updates or creates the pods it names and
// removes pods it no longer contains.
func (a *SnapshotApplier) Apply(world donburi.World, snapshot esync.WorldSnapshot) {
	clear(a.present)

	for _, ent := range snapshot {
		a.present[ent.Id] = true

		var compData []any
		for _, componentBytes := range ent.State {
			instance, err := esync.Mapper.Deserialize(componentBytes)
			if err != nil {
				log.Debug().Err(err).Uint("networkID", uint(ent.Id)).Msg("skipping undecodable component")
				continue
			}
			compData = append(compData, instance)
		}
		a.ApplyEntity(world, ent.Id, compData)
	}

	a.Prune(world, a.present)
}

// ApplyEntity applies decoded component values for one replicated pod.
func (a *SnapshotApplier) ApplyEntity(world donburi.World, id esync.NetworkId, compData []any) {
	local := id == a.localID()
	entry := a.findOrCreate(world, id, local)

	for _, data := range compData {
		switch v := data.(type) {
		case netcomponents.NetPodInfoData:
			netcomponents.NetPodInfo.SetValue(entry, v)
		case netcomponents.NetPodStateData:
			if local {
				a.reconcile(v)
			} else {
				a.interp.OnSnapshot(components.NetInterp.Get(entry), v)
			}
		}
	}
}

// Prune removes replicated pods whose ids are not in present.
func (a *SnapshotApplier) Prune(world donburi.World, present map[esync.NetworkId]bool) {
	var stale []*donburi.Entry
	esync.NetworkEntityQuery.Each(world, func(entry *donburi.Entry) {
		id := esync.GetNetworkId(entry)
		if id == nil {
			return
		}
		if !present[*id] {
			stale = append(stale, entry)
		}
	})
	for _, entry := range stale {
		entry.Remove()
	}
}

func (a *SnapshotApplier) findOrCreate(world donburi.World, id esync.NetworkId, local bool) *donburi.Entry {
	entity := esync.FindByNetworkId(world, id)
	if world.Valid(entity) {
		return world.Entry(entity)
	}

	role := netconfig.RoleObserver
	var entry *donburi.Entry
	if local {
		role = netconfig.RoleController
		entry = archetypes.LocalPod.Spawn(world, esync.NetworkIdComponent)
	} else {
		entry = archetypes.RemotePod.Spawn(world, esync.NetworkIdComponent)
	}
	esync.NetworkIdComponent.SetValue(entry, id)
	log.Debug().Uint("networkID", uint(id)).Stringer("role", role).Msg("pod appeared")
	return entry
}

func (a *SnapshotApplier) reconcile(st netcomponents.NetPodStateData) {
	r := a.predictor.OnAuthoritativeState(st)
	a.stats.Snapshots++
	if r.Stale {
		a.stats.Stale++
		return
	}
	if r.Corrected {
		a.stats.Corrections++
		a.stats.Replayed += r.Replayed
		if r.Divergence.Position > a.stats.MaxError {
			a.stats.MaxError = r.Divergence.Position
		}
	}
}

// Stats returns the running reconciliation counters.
func (a *SnapshotApplier) Stats() ReconcileStats {
	return a.stats
}
