package podphysics

import "github.com/automoto/podracer-mp/shared/gamemath"

// Hover modes.
const (
	HoverSpring = "spring"
	HoverPID    = "pid"
)

// HoverControl is the memory of the PID hover controller. It lives in State so
// a replay resumes the controller exactly where the server had it.
type HoverControl struct {
	Integral  float64
	LastError float64
	Output    float64
	Primed    bool // LastError holds a real sample
}

// PIDGains tunes the PID hover controller. Output is a vertical acceleration in
// cm/s² added to the gravity the engines already cancel.
type PIDGains struct {
	P             float64 `mapstructure:"p"`
	I             float64 `mapstructure:"i"`
	D             float64 `mapstructure:"d"`
	Min           float64 `mapstructure:"min"`
	Max           float64 `mapstructure:"max"`
	IntegralClamp float64 `mapstructure:"integralClamp"`
	Smoothing     float64 `mapstructure:"smoothing"`  // share of the new output kept each step, 1 disables smoothing
	AboveScale    float64 `mapstructure:"aboveScale"` // output scale while above hover height, 0 leaves it unscaled
}

// DefaultPIDGains hold the pod at hover height within half a second and carry
// the weight of a lost engine through the integral term.
func DefaultPIDGains() PIDGains {
	return PIDGains{
		P:             40,
		I:             40,
		D:             12,
		Min:           -4000,
		Max:           4000,
		IntegralClamp: 200,
		Smoothing:     0.98,
	}
}

// seek advances the controller toward target from current and returns the new
// memory with its output.
func (g PIDGains) seek(c HoverControl, target, current, dt float64) HoverControl {
	err := target - current
	var derivative float64
	if c.Primed && dt > 0 {
		derivative = (err - c.LastError) / dt
	}
	c.Integral = gamemath.Clamp(c.Integral+err*dt, -g.IntegralClamp, g.IntegralClamp)
	c.LastError = err
	c.Primed = true

	out := gamemath.Clamp(g.P*err+g.I*c.Integral+g.D*derivative, g.Min, g.Max)
	if err < 0 && g.AboveScale > 0 {
		out *= g.AboveScale
	}
	alpha := g.Smoothing
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	c.Output = c.Output + (out-c.Output)*alpha
	return c
}

// hoverAccel returns the vertical acceleration holding a supported pod up and
// the controller memory to keep. hover is the share of engine support left.
func hoverAccel(tn Tuning, c HoverControl, distance, vz, hover, dt float64) (float64, HoverControl) {
	if tn.HoverMode == HoverPID {
		c = tn.HoverPID.seek(c, tn.HoverHeight, distance, dt)
		return hover*(tn.Gravity+c.Output) - tn.Gravity, c
	}
	// The spring carries the pod's weight so gravity only shows through the
	// support lost with an engine.
	accel := (tn.HoverHeight-distance)*tn.HoverStiffness*hover - vz*tn.HoverDamping
	if hover < 1 {
		accel -= tn.Gravity * (1 - hover)
	}
	return accel, HoverControl{}
}
