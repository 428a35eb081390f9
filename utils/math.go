package utils

import "math"

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Float64AlmostEqual compares two float64s and returns if the difference between them is less than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// Clamp returns v limited to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// WrapIntoLimits shifts an angle by whole turns of ±2π until it falls within [lo, hi]. The
// second return value is false when no single turn brings it into range.
func WrapIntoLimits(angle, lo, hi float64) (float64, bool) {
	if angle >= lo && angle <= hi {
		return angle, true
	}
	for _, shifted := range []float64{angle + 2*math.Pi, angle - 2*math.Pi} {
		if shifted >= lo && shifted <= hi {
			return shifted, true
		}
	}
	return angle, false
}
