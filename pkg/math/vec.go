package math

import "github.com/go-gl/mathgl/mgl32"

// Epsilon is the length below which a direction is treated as degenerate.
const Epsilon = 1e-5

// Vec3 is a 3-component float32 vector.
type Vec3 = mgl32.Vec3

// WorldUp is the +Y axis.
var WorldUp = Vec3{0, 1, 0}

// Radians converts degrees to radians.
func Radians(deg float32) float32 {
	return mgl32.DegToRad(deg)
}

// Degrees converts radians to degrees.
func Degrees(rad float32) float32 {
	return mgl32.RadToDeg(rad)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	return mgl32.Clamp(v, lo, hi)
}

// SafeNormalize returns v normalized, or fallback when v is near zero length.
func SafeNormalize(v, fallback Vec3) Vec3 {
	if v.Len() < Epsilon {
		return fallback
	}
	return v.Normalize()
}
