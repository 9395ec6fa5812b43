package podphysics

import "math"

// MaxEngines is the number of engine slots a State carries.
const MaxEngines = 4

// EngineSpec describes one engine. Shares say how much of the pod's thrust and
// hover support the engine provides at full health.
type EngineSpec struct {
	Name            string  `mapstructure:"name"`
	ThrustShare     float64 `mapstructure:"thrustShare"`
	HoverShare      float64 `mapstructure:"hoverShare"`
	MaxHealth       float64 `mapstructure:"maxHealth"`
	RepairRate      float64 `mapstructure:"repairRate"` // health per second
	BoostMultiplier float64 `mapstructure:"boostMultiplier"`
}

// TwinEngines is the stock setup: two engines splitting thrust and hover evenly.
func TwinEngines() []EngineSpec {
	e := EngineSpec{ThrustShare: 0.5, HoverShare: 0.5, MaxHealth: 100, RepairRate: 10, BoostMultiplier: 3}
	left, right := e, e
	left.Name, right.Name = "left", "right"
	return []EngineSpec{left, right}
}

// EngineState is the per-pod runtime state of one engine. The zero value is a
// healthy, enabled engine.
type EngineState struct {
	Damage   float64 // health lost
	Boost    float64 // seconds of boost left
	Disabled bool
}

// EngineStatus summarises an engine for display and logging.
type EngineStatus int

const (
	EngineNormal EngineStatus = iota
	EngineDamaged
	EngineDestroyed
	EngineRepairing
	EngineBoosted
	EngineDisabled
)

func (s EngineStatus) String() string {
	switch s {
	case EngineNormal:
		return "normal"
	case EngineDamaged:
		return "damaged"
	case EngineDestroyed:
		return "destroyed"
	case EngineRepairing:
		return "repairing"
	case EngineBoosted:
		return "boosted"
	case EngineDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

func (e EngineSpec) destroyed(st EngineState) bool {
	return e.MaxHealth > 0 && st.Damage >= e.MaxHealth
}

// output is the engine's multiplier on its share: zero when off or destroyed,
// scaled by health once below half, raised while boosted.
func (e EngineSpec) output(st EngineState) float64 {
	if st.Disabled || e.destroyed(st) {
		return 0
	}
	m := 1.0
	if st.Boost > 0 && e.BoostMultiplier > 0 {
		m = e.BoostMultiplier
	}
	if e.MaxHealth > 0 {
		if health := 1 - st.Damage/e.MaxHealth; health < 0.5 {
			m *= health
		}
	}
	return m
}

// engineScales returns the combined thrust and hover multipliers of the pod's
// engines. A tuning without engines runs at full strength.
func engineScales(tn Tuning, s State) (thrust, hover float64) {
	if len(tn.Engines) == 0 {
		return 1, 1
	}
	for i, spec := range tn.Engines {
		if i >= MaxEngines {
			break
		}
		out := spec.output(s.Engines[i])
		thrust += spec.ThrustShare * out
		hover += spec.HoverShare * out
	}
	return thrust, hover
}

// tickEngines counts down boosts and repairs damage on engines that are still
// running.
func tickEngines(tn Tuning, s *State, dt float64) {
	for i, spec := range tn.Engines {
		if i >= MaxEngines {
			break
		}
		e := &s.Engines[i]
		if e.Boost > 0 {
			e.Boost = math.Max(0, e.Boost-dt)
		}
		if e.Damage > 0 && !e.Disabled && !spec.destroyed(*e) && spec.RepairRate > 0 {
			e.Damage = math.Max(0, e.Damage-spec.RepairRate*dt)
		}
	}
}

func validEngine(tn Tuning, i int) bool {
	return i >= 0 && i < len(tn.Engines) && i < MaxEngines
}

// DamageEngine removes health from engine i. Damage beyond the engine's
// maximum health destroys it until repaired by RepairEngine.
func (s State) DamageEngine(tn Tuning, i int, amount float64) State {
	if !validEngine(tn, i) || amount <= 0 || s.Engines[i].Disabled {
		return s
	}
	s.Engines[i].Damage = s.Engines[i].Damage + amount
	if limit := tn.Engines[i].MaxHealth; limit > 0 {
		s.Engines[i].Damage = math.Min(limit, s.Engines[i].Damage)
	}
	return s
}

// RepairEngine restores engine i to full health, destroyed or not.
func (s State) RepairEngine(tn Tuning, i int) State {
	if validEngine(tn, i) {
		s.Engines[i].Damage = 0
	}
	return s
}

// BoostEngine runs engine i at its boost multiplier for the given seconds.
func (s State) BoostEngine(tn Tuning, i int, seconds float64) State {
	if !validEngine(tn, i) || seconds <= 0 || s.Engines[i].Disabled || tn.Engines[i].destroyed(s.Engines[i]) {
		return s
	}
	s.Engines[i].Boost = seconds
	return s
}

// SetEngineEnabled switches engine i on or off.
func (s State) SetEngineEnabled(tn Tuning, i int, enabled bool) State {
	if validEngine(tn, i) {
		s.Engines[i].Disabled = !enabled
	}
	return s
}

// EngineStatus reports the condition of engine i.
func (s State) EngineStatus(tn Tuning, i int) EngineStatus {
	if !validEngine(tn, i) {
		return EngineDisabled
	}
	spec, st := tn.Engines[i], s.Engines[i]
	switch {
	case st.Disabled:
		return EngineDisabled
	case spec.destroyed(st):
		return EngineDestroyed
	case st.Boost > 0:
		return EngineBoosted
	case spec.MaxHealth > 0 && st.Damage > spec.MaxHealth/2:
		return EngineDamaged
	case st.Damage > 0:
		return EngineRepairing
	default:
		return EngineNormal
	}
}

// engineDelta is the largest difference between two engine sets, counting a
// disagreement on Disabled as a whole unit.
func engineDelta(a, b [MaxEngines]EngineState) float64 {
	var d float64
	for i := range a {
		d = math.Max(d, math.Abs(a[i].Damage-b[i].Damage))
		d = math.Max(d, math.Abs(a[i].Boost-b[i].Boost))
		if a[i].Disabled != b[i].Disabled {
			d = math.Max(d, 1)
		}
	}
	return d
}
