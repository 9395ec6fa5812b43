package network

import (
	"math"

	"github.com/automoto/podracer-mp/config"
	"github.com/automoto/podracer-mp/shared/gamemath"
	"github.com/automoto/podracer-mp/shared/podphysics"
)

// RawInput is what the pilot (keyboard, pad or bot) asks for this frame.
type RawInput struct {
	Throttle float64
	Steer    float64
	Boost    bool
	Brake    bool
	Drift    bool
}

// InputSmoother turns raw axes into the smoothed values carried by moves.
// Steering eases toward the stick at the ramp-up rate and back to centre at the
// faster return rate.
type InputSmoother struct {
	cfg      config.InputConfig
	steer    float64
	throttle float64
}

// NewInputSmoother creates a smoother with both axes centred.
func NewInputSmoother(cfg config.InputConfig) *InputSmoother {
	return &InputSmoother{cfg: cfg}
}

// Apply advances the smoothed axes by dt and returns the simulation input.
func (s *InputSmoother) Apply(raw RawInput, dt float64) podphysics.Input {
	steer := s.deadzone(raw.Steer)
	rate := s.cfg.SteerRampUpRate
	if steer == 0 {
		rate = s.cfg.SteerReturnRate
	}
	s.steer = gamemath.FInterpTo(s.steer, steer, dt, rate)

	throttle := s.deadzone(raw.Throttle)
	if s.cfg.ThrottleRate > 0 {
		s.throttle = gamemath.FInterpTo(s.throttle, throttle, dt, s.cfg.ThrottleRate)
	} else {
		s.throttle = throttle
	}

	return podphysics.Input{
		Throttle: s.throttle,
		Steer:    s.steer,
		Boost:    raw.Boost,
		Brake:    raw.Brake,
		Drift:    raw.Drift,
	}
}

// Reset centres both axes.
func (s *InputSmoother) Reset() {
	s.steer, s.throttle = 0, 0
}

func (s *InputSmoother) deadzone(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = gamemath.Clamp(v, -1, 1)
	if math.Abs(v) < s.cfg.Deadzone {
		return 0
	}
	return v
}
