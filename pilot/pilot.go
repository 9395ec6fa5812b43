// Package pilot holds scripted drivers for bots and simulations.
package pilot

import (
	"fmt"
	"math"
	"sort"

	"github.com/automoto/podracer-mp/network"
	"github.com/automoto/podracer-mp/shared/podphysics"
)

// Script decides a pilot's raw input for a tick from the pod's predicted state.
type Script func(tick int, s podphysics.State) network.RawInput

var patterns = map[string]Script{
	"circuit": Circuit,
	"slalom":  Slalom,
	"drift":   Drift,
	"idle":    Idle,
}

// Pattern returns a named script.
func Pattern(name string) (Script, error) {
	s, ok := patterns[name]
	if !ok {
		return nil, fmt.Errorf("unknown pattern %q (have %v)", name, PatternNames())
	}
	return s, nil
}

// PatternNames lists the available scripts.
func PatternNames() []string {
	names := make([]string, 0, len(patterns))
	for n := range patterns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Circuit laps in wide curves with a boost burst every five seconds.
func Circuit(tick int, _ podphysics.State) network.RawInput {
	return network.RawInput{
		Throttle: 1,
		Steer:    0.6 * math.Sin(float64(tick)/120),
		Boost:    tick%300 < 60,
	}
}

// Slalom alternates hard left and right.
func Slalom(tick int, _ podphysics.State) network.RawInput {
	steer := 1.0
	if (tick/40)%2 == 1 {
		steer = -1
	}
	return network.RawInput{Throttle: 0.8, Steer: steer}
}

// Drift holds a turn and drifts through half of every three seconds, braking
// briefly after each drift.
func Drift(tick int, _ podphysics.State) network.RawInput {
	phase := tick % 180
	return network.RawInput{
		Throttle: 1,
		Steer:    0.8,
		Drift:    phase < 90,
		Brake:    phase >= 170,
	}
}

// Idle sends neutral input.
func Idle(int, podphysics.State) network.RawInput {
	return network.RawInput{}
}
