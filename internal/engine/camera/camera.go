// Package camera provides the free-fly viewer camera and its auto-framing.
package camera

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshview/pkg/math"
)

// Pitch limits in degrees. Looking straight up or down would make the
// right vector degenerate.
const (
	MinPitch = -89.0
	MaxPitch = 89.0
)

// Focus offset angles in degrees used by FocusOnPoint.
const (
	focusAzimuth   = 45.0
	focusElevation = 30.0
)

// Config holds the tunable camera parameters.
type Config struct {
	Position mgl32.Vec3
	Yaw      float32 // degrees
	Pitch    float32 // degrees

	Speed       float32 // units per second
	Sensitivity float32 // degrees per pixel of look delta

	FOV      float32 // degrees
	MinFOV   float32
	MaxFOV   float32
	ZoomStep float32 // degrees per wheel notch

	Near float32
	Far  float32

	// MinFocusDistance is the closest FocusOnPoint places the camera.
	MinFocusDistance float32
	// FrameSafety scales the fitted distance used by Frame.
	FrameSafety float32
	// OrbitSensitivity is degrees per pixel of orbit drag.
	OrbitSensitivity float32
}

// DefaultConfig returns the camera defaults.
func DefaultConfig() Config {
	return Config{
		Position:         mgl32.Vec3{0, 0, 5},
		Yaw:              -90,
		Pitch:            0,
		Speed:            5,
		Sensitivity:      0.1,
		FOV:              45,
		MinFOV:           10,
		MaxFOV:           90,
		ZoomStep:         2,
		Near:             0.01,
		Far:              1000,
		MinFocusDistance: 2,
		FrameSafety:      1.5,
		OrbitSensitivity: 0.3,
	}
}

// Controls is the input consumed by one Update call.
type Controls struct {
	Forward, Back bool
	Left, Right   bool
	Up, Down      bool

	LookDX, LookDY float32
	Wheel          float32

	// FreeLook gates every other field. Without it Update does nothing.
	FreeLook bool
}

// Camera is a yaw/pitch camera with a perspective projection.
type Camera struct {
	cfg Config

	Position mgl32.Vec3
	yaw      float32
	pitch    float32
	fov      float32
	near     float32
	far      float32

	forward mgl32.Vec3
	right   mgl32.Vec3
	up      mgl32.Vec3

	// target is the last point passed to FocusOnPoint; Orbit turns around it.
	target mgl32.Vec3
}

// New creates a camera from cfg.
func New(cfg Config) *Camera {
	c := &Camera{
		cfg:      cfg,
		Position: cfg.Position,
		yaw:      cfg.Yaw,
		pitch:    math.Clamp(cfg.Pitch, MinPitch, MaxPitch),
		fov:      math.Clamp(cfg.FOV, cfg.MinFOV, cfg.MaxFOV),
		near:     cfg.Near,
		far:      cfg.Far,
	}
	c.updateVectors()
	return c
}

// Yaw returns the horizontal angle in degrees.
func (c *Camera) Yaw() float32 { return c.yaw }

// Pitch returns the vertical angle in degrees.
func (c *Camera) Pitch() float32 { return c.pitch }

// FOV returns the vertical field of view in degrees.
func (c *Camera) FOV() float32 { return c.fov }

// Clip returns the near and far plane distances.
func (c *Camera) Clip() (near, far float32) { return c.near, c.far }

// Forward returns the unit view direction.
func (c *Camera) Forward() mgl32.Vec3 { return c.forward }

// Right returns the unit right vector.
func (c *Camera) Right() mgl32.Vec3 { return c.right }

// Up returns the unit up vector of the view.
func (c *Camera) Up() mgl32.Vec3 { return c.up }

// Target returns the last focus point.
func (c *Camera) Target() mgl32.Vec3 { return c.target }

// Update applies one frame of free-fly input.
func (c *Camera) Update(dt float32, in Controls) {
	if !in.FreeLook {
		return
	}

	if in.LookDX != 0 || in.LookDY != 0 {
		c.Rotate(in.LookDX*c.cfg.Sensitivity, -in.LookDY*c.cfg.Sensitivity)
	}

	velocity := c.cfg.Speed * dt
	var move mgl32.Vec3
	if in.Forward {
		move = move.Add(c.forward)
	}
	if in.Back {
		move = move.Sub(c.forward)
	}
	if in.Right {
		move = move.Add(c.right)
	}
	if in.Left {
		move = move.Sub(c.right)
	}
	if in.Up {
		move = move.Add(math.WorldUp)
	}
	if in.Down {
		move = move.Sub(math.WorldUp)
	}
	c.Position = c.Position.Add(move.Mul(velocity))

	if in.Wheel != 0 {
		c.Zoom(in.Wheel)
	}
}

// Rotate adds to yaw and pitch, in degrees. Pitch is clamped.
func (c *Camera) Rotate(dyaw, dpitch float32) {
	c.yaw += dyaw
	c.pitch = math.Clamp(c.pitch+dpitch, MinPitch, MaxPitch)
	c.updateVectors()
}

// Zoom narrows the field of view by amount wheel notches.
func (c *Camera) Zoom(amount float32) {
	c.fov = math.Clamp(c.fov-amount*c.cfg.ZoomStep, c.cfg.MinFOV, c.cfg.MaxFOV)
}

// LookAt turns the camera toward target without moving it. Nothing changes
// when target is at the camera position.
func (c *Camera) LookAt(target mgl32.Vec3) {
	dir := target.Sub(c.Position)
	l := dir.Len()
	if l < math.Epsilon {
		return
	}
	dir = dir.Mul(1 / l)

	c.yaw = math.Degrees(math32.Atan2(dir[2], dir[0]))
	c.pitch = math.Clamp(math.Degrees(math32.Asin(math.Clamp(dir[1], -1, 1))), MinPitch, MaxPitch)
	c.updateVectors()
}

// FocusOnPoint places the camera at distance from target, above and to the
// side of it, and looks at target. Distances below the configured minimum
// are raised to it. Returns the distance used.
func (c *Camera) FocusOnPoint(target mgl32.Vec3, distance float32) float32 {
	if !isFinite(distance) || distance < c.cfg.MinFocusDistance {
		distance = c.cfg.MinFocusDistance
	}
	az := math.Radians(focusAzimuth)
	el := math.Radians(focusElevation)
	offset := mgl32.Vec3{
		distance * math32.Cos(el) * math32.Cos(az),
		distance * math32.Sin(el),
		distance * math32.Cos(el) * math32.Sin(az),
	}
	c.Position = target.Add(offset)
	c.target = target
	c.LookAt(target)
	return distance
}

// Frame focuses on the origin at a distance that fits a model of the given
// size in the view, and widens the clip range so the model is not cut.
// Model vertices are stored centered, so the origin is its center. A
// negative or non-finite size frames a point.
func (c *Camera) Frame(size float32) float32 {
	if !isFinite(size) || size < 0 {
		size = 0
	}
	radius := size * math32.Sqrt(3) / 2
	distance := radius / math32.Tan(math.Radians(c.fov)/2) * c.cfg.FrameSafety
	distance = max(distance, size*1.5)

	distance = c.FocusOnPoint(mgl32.Vec3{}, distance)

	c.far = max(c.cfg.Far, 4*(distance+radius))
	if !isFinite(c.far) {
		c.far = math32.MaxFloat32
	}
	c.near = max(c.cfg.Near, c.far*1e-5)
	return distance
}

// Orbit rotates the camera around the focus target at constant distance.
// Angles are in pixels of drag, scaled by the orbit sensitivity.
func (c *Camera) Orbit(dx, dy float32) {
	offset := c.Position.Sub(c.target)
	r := offset.Len()
	if r < math.Epsilon {
		return
	}
	az := math32.Atan2(offset[2], offset[0]) + math.Radians(dx*c.cfg.OrbitSensitivity)
	el := math32.Asin(math.Clamp(offset[1]/r, -1, 1)) + math.Radians(dy*c.cfg.OrbitSensitivity)
	el = math.Clamp(el, math.Radians(MinPitch), math.Radians(MaxPitch))

	c.Position = c.target.Add(mgl32.Vec3{
		r * math32.Cos(el) * math32.Cos(az),
		r * math32.Sin(el),
		r * math32.Cos(el) * math32.Sin(az),
	})
	c.LookAt(c.target)
}

// ViewMatrix returns the world-to-view transform.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return math.LookAt(c.Position, c.Position.Add(c.forward), c.up)
}

// ProjectionMatrix returns the perspective transform for the given aspect
// ratio (width / height).
func (c *Camera) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	return math.Perspective(c.fov, aspect, c.near, c.far)
}

func (c *Camera) updateVectors() {
	yaw := math.Radians(c.yaw)
	pitch := math.Radians(c.pitch)

	c.forward = math.SafeNormalize(mgl32.Vec3{
		math32.Cos(yaw) * math32.Cos(pitch),
		math32.Sin(pitch),
		math32.Sin(yaw) * math32.Cos(pitch),
	}, mgl32.Vec3{0, 0, -1})
	c.right = math.SafeNormalize(c.forward.Cross(math.WorldUp), mgl32.Vec3{1, 0, 0})
	c.up = c.right.Cross(c.forward)
}

func isFinite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
