package gamemath

import "math"

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// FInterpTo moves current toward target by a fraction dt*speed of the remaining
// distance. A non-positive speed snaps straight to target.
func FInterpTo(current, target, dt, speed float64) float64 {
	if speed <= 0 {
		return target
	}
	dist := target - current
	if dist*dist < 1e-8 {
		return target
	}
	return current + dist*Clamp(dt*speed, 0, 1)
}

// MapRangeClamped maps v from [inMin, inMax] into [outMin, outMax], clamping
// to the output range.
func MapRangeClamped(v, inMin, inMax, outMin, outMax float64) float64 {
	if inMax == inMin {
		if v >= inMax {
			return outMax
		}
		return outMin
	}
	t := Clamp((v-inMin)/(inMax-inMin), 0, 1)
	return Lerp(outMin, outMax, t)
}

// NormalizeAxis wraps an angle in degrees into (-180, 180].
func NormalizeAxis(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// DeltaAngle returns the shortest signed rotation from a to b in degrees.
func DeltaAngle(a, b float64) float64 {
	return NormalizeAxis(b - a)
}

// LerpAngle interpolates between two angles along the shortest arc.
func LerpAngle(a, b, t float64) float64 {
	return NormalizeAxis(a + DeltaAngle(a, b)*t)
}

// AngleInterpTo is FInterpTo for angles in degrees.
func AngleInterpTo(current, target, dt, speed float64) float64 {
	if speed <= 0 {
		return NormalizeAxis(target)
	}
	delta := DeltaAngle(current, target)
	if math.Abs(delta) < 1e-4 {
		return NormalizeAxis(target)
	}
	return NormalizeAxis(current + delta*Clamp(dt*speed, 0, 1))
}

// MoveToward steps current toward target by at most maxDelta.
func MoveToward(current, target, maxDelta float64) float64 {
	diff := target - current
	if math.Abs(diff) <= maxDelta {
		return target
	}
	return current + math.Copysign(maxDelta, diff)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
