// Package math provides the matrix helpers used by the camera and renderer.
//
// All matrices are mgl32.Mat4 values in column-major order, so they can be
// uploaded as GL uniforms without conversion:
//
//	[m0 m4 m8  m12]
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
package math

import "github.com/go-gl/mathgl/mgl32"

// Mat4 is a 4x4 column-major matrix.
type Mat4 = mgl32.Mat4

// Identity returns an identity matrix.
func Identity() Mat4 {
	return mgl32.Ident4()
}

// Perspective returns a perspective projection matrix.
// fovYDeg is the vertical field of view in degrees, aspect is width/height.
func Perspective(fovYDeg, aspect, near, far float32) Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(Radians(fovYDeg), aspect, near, far)
}

// LookAt returns a view matrix looking from eye to center with up direction.
func LookAt(eye, center, up Vec3) Mat4 {
	return mgl32.LookAtV(eye, center, up)
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) Mat4 {
	return mgl32.Translate3D(x, y, z)
}

// Scale returns a scale matrix.
func Scale(x, y, z float32) Mat4 {
	return mgl32.Scale3D(x, y, z)
}

// RotateAxis returns a rotation matrix around an arbitrary axis.
// A zero axis yields the identity.
func RotateAxis(axis Vec3, angle float32) Mat4 {
	if axis.Len() < Epsilon {
		return Identity()
	}
	return mgl32.HomogRotate3D(angle, axis.Normalize())
}

// Quat is a rotation quaternion.
type Quat = mgl32.Quat

// Rotate returns the rotation matrix of q after normalizing it. A zero
// quaternion yields the identity.
func Rotate(q Quat) Mat4 {
	if q.Len() < Epsilon {
		return Identity()
	}
	return q.Normalize().Mat4()
}

// TRS returns Translate(t) * r * Scale(s): scale first, then rotate, then
// translate.
func TRS(t Vec3, r Mat4, s Vec3) Mat4 {
	return Compose(Translate(t[0], t[1], t[2]), r, Scale(s[0], s[1], s[2]))
}

// Compose multiplies the matrices left to right: Compose(a, b, c) = a*b*c.
func Compose(ms ...Mat4) Mat4 {
	out := Identity()
	for _, m := range ms {
		out = out.Mul4(m)
	}
	return out
}

// MVP returns projection * view * model.
func MVP(projection, view, model Mat4) Mat4 {
	return projection.Mul4(view).Mul4(model)
}

// TransformPoint applies m to p with w = 1.
func TransformPoint(m Mat4, p Vec3) Vec3 {
	return mgl32.TransformCoordinate(p, m)
}
