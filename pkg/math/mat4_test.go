package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	if m[1] != 0 || m[4] != 0 || m[12] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestTranslateColumnMajor(t *testing.T) {
	m := Translate(5, 10, 15)
	if m[12] != 5 || m[13] != 10 || m[14] != 15 {
		t.Errorf("Translate: got (%f, %f, %f), want (5, 10, 15)", m[12], m[13], m[14])
	}
}

func TestTransformPoint(t *testing.T) {
	tests := []struct {
		name string
		m    Mat4
		in   Vec3
		want Vec3
	}{
		{"translate", Translate(1, 2, 3), Vec3{1, 1, 1}, Vec3{2, 3, 4}},
		{"scale", Scale(2, 3, 4), Vec3{1, 1, 1}, Vec3{2, 3, 4}},
		{"quat z 90", Rotate(Quat{W: 1, V: Vec3{0, 0, 1}}), Vec3{1, 0, 0}, Vec3{0, 1, 0}},
		{"zero quat", Rotate(Quat{}), Vec3{1, 2, 3}, Vec3{1, 2, 3}},
		{"axis y 90", RotateAxis(Vec3{0, 5, 0}, math.Pi/2), Vec3{1, 0, 0}, Vec3{0, 0, -1}},
		{"zero axis", RotateAxis(Vec3{}, 1), Vec3{1, 2, 3}, Vec3{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransformPoint(tt.m, tt.in)
			if !got.ApproxEqualThreshold(tt.want, 1e-5) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComposeOrder(t *testing.T) {
	// Scale is applied first, then the translation.
	m := Compose(Translate(10, 0, 0), Scale(2, 2, 2))
	got := TransformPoint(m, Vec3{1, 0, 0})
	if !got.ApproxEqualThreshold(Vec3{12, 0, 0}, 1e-5) {
		t.Errorf("got %v, want (12, 0, 0)", got)
	}

	if Compose() != Identity() {
		t.Error("empty Compose should be identity")
	}
}

func TestTRS(t *testing.T) {
	m := TRS(Vec3{10, 0, 0}, RotateAxis(Vec3{0, 0, 1}, math.Pi/2), Vec3{2, 2, 2})
	got := TransformPoint(m, Vec3{1, 0, 0})
	if !got.ApproxEqualThreshold(Vec3{10, 2, 0}, 1e-5) {
		t.Errorf("got %v, want (10, 2, 0)", got)
	}
}

func TestPerspective(t *testing.T) {
	m := Perspective(90, 1, 0.1, 100)

	// tan(45deg) = 1, so the focal terms are 1.
	if abs(m[0]-1) > 1e-5 || abs(m[5]-1) > 1e-5 {
		t.Errorf("focal terms: got %f, %f", m[0], m[5])
	}
	if m[11] != -1 {
		t.Errorf("m[11] should be -1, got %f", m[11])
	}

	// Non-positive aspect falls back to 1.
	if Perspective(90, 0, 0.1, 100) != m {
		t.Error("zero aspect should behave like aspect 1")
	}
}

func TestLookAt(t *testing.T) {
	view := LookAt(Vec3{0, 0, 5}, Vec3{}, WorldUp)
	got := TransformPoint(view, Vec3{})
	if !got.ApproxEqualThreshold(Vec3{0, 0, -5}, 1e-5) {
		t.Errorf("origin in view space: got %v, want (0, 0, -5)", got)
	}
}

func TestMVP(t *testing.T) {
	p := Perspective(45, 1.5, 0.01, 1000)
	v := LookAt(Vec3{1, 2, 3}, Vec3{}, WorldUp)
	if MVP(p, v, Identity()) != p.Mul4(v) {
		t.Error("MVP with identity model should equal P*V")
	}
}

func TestAngles(t *testing.T) {
	if abs(Radians(180)-math.Pi) > 1e-6 {
		t.Errorf("Radians(180) = %f", Radians(180))
	}
	if abs(Degrees(math.Pi/2)-90) > 1e-4 {
		t.Errorf("Degrees(pi/2) = %f", Degrees(math.Pi/2))
	}
	if Clamp(100, -89, 89) != 89 || Clamp(-100, -89, 89) != -89 || Clamp(3, -89, 89) != 3 {
		t.Error("Clamp out of range")
	}
}

func TestSafeNormalize(t *testing.T) {
	if got := SafeNormalize(Vec3{}, WorldUp); got != WorldUp {
		t.Errorf("zero vector should return fallback, got %v", got)
	}
	if got := SafeNormalize(Vec3{3, 0, 0}, WorldUp); got != (Vec3{1, 0, 0}) {
		t.Errorf("got %v, want (1, 0, 0)", got)
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
