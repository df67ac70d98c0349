package math

import "math"

// Epsilon is the tolerance used for near-zero comparisons.
const Epsilon = 1e-6

// Clamp01 clamps x into [0, 1].
func Clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Fract returns the fractional part of x, always in [0, 1).
func Fract(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}

// EaseOut decelerates towards 1: 1 - (1-x)^2.
func EaseOut(x float32) float32 {
	inv := 1 - x
	return 1 - inv*inv
}

// Abs returns |x|.
func Abs(x float32) float32 {
	return float32(math.Abs(float64(x)))
}

// Hypot returns sqrt(x*x + y*y).
func Hypot(x, y float32) float32 {
	return float32(math.Hypot(float64(x), float64(y)))
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}
