package podphysics

import (
	"math"

	"github.com/automoto/podracer-mp/shared/gamemath"
	"github.com/go-gl/mathgl/mgl64"
)

// Step advances prior by dt seconds under in and returns the new state. It is a
// pure function of its arguments: the same track, tuning, state, input and dt
// always produce the same result, which is what lets a client replay pending
// moves and land where the server did. A non-positive dt returns prior unchanged.
//
// Engine damage and boosts scale thrust and hover support. With in.FixedHeight
// a supported pod is placed at hover height directly instead of running the
// hover model.
func Step(track *Track, tn Tuning, prior State, in Input, dt float64) State {
	if dt <= 0 || track == nil {
		return prior
	}
	in = in.Clamped()
	s := prior
	thrustScale, hoverScale := engineScales(tn, s)

	ground := track.GroundQuery(s.Position, tn.MaxGroundDistance, tn.HoverHeight)
	supported := ground.Hit && ground.Distance <= tn.HoverRange
	grounded := supported && ground.Distance <= tn.HoverHeight+tn.GroundedTolerance
	normal := gamemath.Up
	if grounded {
		normal = ground.Normal
	}

	flatFwd := s.Rotation.FlatForward()
	fwd, right := flatFwd, s.Rotation.FlatRight()
	if grounded {
		fwd = gamemath.SafeNormal(gamemath.ProjectOnPlane(fwd, normal), fwd)
		right = gamemath.SafeNormal(gamemath.ProjectOnPlane(right, normal), right)
	}

	drifting := in.Drift && grounded
	if prior.Drifting && !drifting {
		s.Velocity = realignAfterDrift(s.Velocity, flatFwd, tn.DriftExitAlignment)
	}

	// Linear damping acts on the horizontal plane only; vertical motion belongs
	// to the hover spring and gravity.
	damping := tn.LinearDamping
	if drifting {
		damping *= tn.DriftLinearDampingMultiplier
	}
	keep := 1 - gamemath.Clamp(damping*dt, 0, 1)
	s.Velocity[0] *= keep
	s.Velocity[1] *= keep

	if grounded {
		lateral := s.Velocity.Dot(right)
		removal := gamemath.Clamp(tn.LateralGrip*dt, 0, 1)
		if drifting {
			removal *= 1 - tn.DriftLateralSlideFactor
		}
		s.Velocity = s.Velocity.Sub(right.Mul(lateral * removal))
	}

	control := 1.0
	if !grounded {
		control = tn.AirControlFactor
	}

	if in.Brake {
		speed := gamemath.Length2D(s.Velocity)
		if speed > 0 {
			scale := math.Max(0, speed-tn.BrakeDeceleration*control*dt) / speed
			s.Velocity[0] *= scale
			s.Velocity[1] *= scale
		}
	} else {
		thrust := in.Throttle * tn.Acceleration
		if in.Boost {
			thrust += tn.BoostAcceleration
		}
		thrust *= thrustScale
		s.Velocity = s.Velocity.Add(fwd.Mul(thrust * control * dt))
	}

	s.YawRate = steer(tn, s.YawRate, gamemath.Length2D(s.Velocity), in.Steer, grounded, drifting, dt)

	fixed := in.FixedHeight && supported
	switch {
	case fixed:
		s.Velocity[2] = 0
		s.Hover = HoverControl{}
	case supported:
		var accel float64
		accel, s.Hover = hoverAccel(tn, s.Hover, ground.Distance, s.Velocity[2], hoverScale, dt)
		s.Velocity[2] += accel * dt
	default:
		s.Velocity[2] -= tn.Gravity * dt
		s.Hover = HoverControl{}
	}

	maxSpeed := tn.MaxSpeed
	if in.Boost {
		maxSpeed *= tn.BoostMaxSpeedMultiplier
	}
	s.Velocity = gamemath.ClampLength2D(s.Velocity, maxSpeed)
	s.Velocity[2] = gamemath.Clamp(s.Velocity[2], -tn.TerminalVerticalSpeed, tn.TerminalVerticalSpeed)

	s.Rotation.Yaw = gamemath.NormalizeAxis(s.Rotation.Yaw + s.YawRate*dt)
	var targetPitch, targetRoll float64
	if grounded {
		targetPitch, targetRoll = gamemath.SurfaceAlignment(s.Rotation.Yaw, normal)
	}
	s.Rotation.Pitch = gamemath.AngleInterpTo(s.Rotation.Pitch, targetPitch, dt, tn.RotationInterpSpeed)
	s.Rotation.Roll = gamemath.AngleInterpTo(s.Rotation.Roll, targetRoll, dt, tn.RotationInterpSpeed)

	s.Position, s.Velocity = move(track, tn, s.Position, s.Velocity, dt)
	if fixed {
		if g := track.GroundQuery(s.Position, tn.MaxGroundDistance, tn.HoverHeight); g.Hit && g.Distance <= tn.HoverRange {
			s.Position[2] = g.SurfaceZ + tn.HoverHeight
		}
	}
	tickEngines(tn, &s, dt)

	s.GroundNormal = normal
	s.Grounded = grounded
	s.Drifting = drifting
	return s
}

// steer integrates yaw rate. On the ground it chases the commanded rate with
// bounded angular acceleration and bleeds off when the stick is centred; in the
// air the pod turns directly at a reduced rate.
func steer(tn Tuning, yawRate, speed, input float64, grounded, drifting bool, dt float64) float64 {
	if !grounded {
		return input * tn.MaxTurnRate * tn.AirControlFactor
	}

	rate := tn.MaxTurnRate * gamemath.MapRangeClamped(speed, 0, tn.MaxSpeed, 1, tn.HighSpeedSteeringFactor)
	accel := tn.TurnAcceleration
	angDamping := tn.AngularDamping
	if drifting {
		rate *= tn.DriftTurnMultiplier
		accel *= tn.DriftTurnAccelerationMultiplier
		angDamping *= tn.DriftAngularDampingMultiplier
	}

	yawRate = gamemath.MoveToward(yawRate, input*rate, accel*dt)
	if input == 0 {
		yawRate *= 1 - gamemath.Clamp(angDamping*dt, 0, 1)
	}
	return yawRate
}

// realignAfterDrift swings horizontal velocity toward the heading, keeping speed.
func realignAfterDrift(v, heading mgl64.Vec3, alignment float64) mgl64.Vec3 {
	flat := gamemath.Horizontal(v)
	speed := flat.Len()
	if speed < 1e-3 {
		return v
	}
	dir := gamemath.LerpVec3(flat.Mul(1/speed), heading, gamemath.Clamp(alignment, 0, 1))
	dir = gamemath.SafeNormal(dir, heading).Mul(speed)
	return mgl64.Vec3{dir[0], dir[1], v[2]}
}

// move advances pos by vel*dt, sliding along walls and keeping clear of the
// ground. Velocity into whatever blocked the motion is removed.
func move(track *Track, tn Tuning, pos, vel mgl64.Vec3, dt float64) (mgl64.Vec3, mgl64.Vec3) {
	delta := vel.Mul(dt)

	pos, blockedX, blockedY := track.SweepWalls(pos, delta[0], delta[1], tn.PodRadius)
	if blockedX {
		vel[0] = 0
	}
	if blockedY {
		vel[1] = 0
	}
	pos[2] += delta[2]

	ground := track.GroundQuery(pos, tn.MaxGroundDistance, tn.HoverHeight)
	if ground.Hit && pos[2] < ground.SurfaceZ+tn.MinClearance {
		pos[2] = ground.SurfaceZ + tn.MinClearance
		if into := vel.Dot(ground.Normal); into < 0 {
			vel = vel.Sub(ground.Normal.Mul(into))
		}
	}
	return pos, vel
}
