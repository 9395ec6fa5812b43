// Package podphysics is the deterministic pod movement model shared by the
// authoritative server and predicting clients. Units are centimetres, seconds
// and degrees.
package podphysics

// Tuning holds every parameter of the movement model. Server and clients must
// run with identical values or predictions will diverge.
type Tuning struct {
	// Speed
	MaxSpeed                float64 `mapstructure:"maxSpeed"`
	Acceleration            float64 `mapstructure:"acceleration"`
	BoostAcceleration       float64 `mapstructure:"boostAcceleration"`
	BoostMaxSpeedMultiplier float64 `mapstructure:"boostMaxSpeedMultiplier"`
	BrakeDeceleration       float64 `mapstructure:"brakeDeceleration"`
	LinearDamping           float64 `mapstructure:"linearDamping"`

	// Grip
	LateralGrip                  float64 `mapstructure:"lateralGrip"`
	DriftLateralSlideFactor      float64 `mapstructure:"driftLateralSlideFactor"`
	DriftLinearDampingMultiplier float64 `mapstructure:"driftLinearDampingMultiplier"`
	DriftExitAlignment           float64 `mapstructure:"driftExitAlignment"` // 0..1, share of velocity turned to heading on drift release

	// Steering (deg/s, deg/s²)
	MaxTurnRate                     float64 `mapstructure:"maxTurnRate"`
	TurnAcceleration                float64 `mapstructure:"turnAcceleration"`
	AngularDamping                  float64 `mapstructure:"angularDamping"`
	HighSpeedSteeringFactor         float64 `mapstructure:"highSpeedSteeringFactor"` // turn-rate scale at MaxSpeed
	DriftTurnMultiplier             float64 `mapstructure:"driftTurnMultiplier"`
	DriftAngularDampingMultiplier   float64 `mapstructure:"driftAngularDampingMultiplier"`
	DriftTurnAccelerationMultiplier float64 `mapstructure:"driftTurnAccelerationMultiplier"`
	AirControlFactor                float64 `mapstructure:"airControlFactor"`

	// Hover
	HoverMode             string   `mapstructure:"hoverMode"` // spring or pid
	HoverPID              PIDGains `mapstructure:"hoverPid"`
	HoverHeight           float64  `mapstructure:"hoverHeight"`
	HoverRange            float64  `mapstructure:"hoverRange"` // max ground distance that still supports the pod
	HoverStiffness        float64  `mapstructure:"hoverStiffness"`
	HoverDamping          float64  `mapstructure:"hoverDamping"`
	GroundedTolerance     float64  `mapstructure:"groundedTolerance"`
	MaxGroundDistance     float64  `mapstructure:"maxGroundDistance"` // ground query length
	MinClearance          float64  `mapstructure:"minClearance"`
	Gravity               float64  `mapstructure:"gravity"`
	TerminalVerticalSpeed float64  `mapstructure:"terminalVerticalSpeed"`

	// Body
	RotationInterpSpeed float64 `mapstructure:"rotationInterpSpeed"`
	PodRadius           float64 `mapstructure:"podRadius"`

	// Engines split thrust and hover support; empty runs the pod at full
	// strength with nothing to damage.
	Engines []EngineSpec `mapstructure:"engines"`
}

// DefaultTuning returns the stock racing setup.
func DefaultTuning() Tuning {
	return Tuning{
		MaxSpeed:                6000,
		Acceleration:            2000,
		BoostAcceleration:       3000,
		BoostMaxSpeedMultiplier: 1.8,
		BrakeDeceleration:       6000,
		LinearDamping:           0.05,

		LateralGrip:                  20,
		DriftLateralSlideFactor:      0.9,
		DriftLinearDampingMultiplier: 0.05,
		DriftExitAlignment:           0.7,

		MaxTurnRate:                     200,
		TurnAcceleration:                1000,
		AngularDamping:                  10,
		HighSpeedSteeringFactor:         0.3,
		DriftTurnMultiplier:             1.5,
		DriftAngularDampingMultiplier:   0.2,
		DriftTurnAccelerationMultiplier: 0.9,
		AirControlFactor:                0.4,

		HoverMode:             HoverSpring,
		HoverPID:              DefaultPIDGains(),
		HoverHeight:           100,
		HoverRange:            200,
		HoverStiffness:        40,
		HoverDamping:          12,
		GroundedTolerance:     50,
		MaxGroundDistance:     500,
		MinClearance:          10,
		Gravity:               1960,
		TerminalVerticalSpeed: 4000,

		RotationInterpSpeed: 10,
		PodRadius:           60,

		Engines: TwinEngines(),
	}
}
