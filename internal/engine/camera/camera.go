// Package camera provides the orbit camera of the viewer.
package camera

import (
	gomath "math"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	Center math.Vec3

	// Spherical coordinates
	Distance  float32
	RotationX float32 // pitch, radians
	RotationY float32 // yaw, radians

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	FovY      float32
	Near, Far float32
}

// NewOrbitCamera creates a camera suited to a character about two units
// tall.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Center:          math.Vec3{Y: 1},
		Distance:        4,
		RotationX:       0.25,
		MinDistance:     0.5,
		MaxDistance:     100,
		MinPitch:        -1.4,
		MaxPitch:        1.4,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FovY:            gomath.Pi / 4,
		Near:            0.05,
		Far:             500,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	pitch, yaw := float64(c.RotationX), float64(c.RotationY)
	return c.Center.Add(math.Vec3{
		X: c.Distance * float32(gomath.Cos(pitch)*gomath.Sin(yaw)),
		Y: c.Distance * float32(gomath.Sin(pitch)),
		Z: c.Distance * float32(gomath.Cos(pitch)*gomath.Cos(yaw)),
	})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// ViewProjection returns projection * view for a viewport of the given
// aspect ratio.
func (c *OrbitCamera) ViewProjection(aspect float32) math.Mat4 {
	return math.Perspective(c.FovY, aspect, c.Near, c.Far).Mul(c.ViewMatrix())
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.RotationY -= deltaX * c.DragSensitivity
	c.RotationX = min(max(c.RotationX+deltaY*c.DragSensitivity, c.MinPitch), c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = min(max(c.Distance, c.MinDistance), c.MaxDistance)
}

// FitToBounds centers the camera on a bounding box and backs off far
// enough to see all of it.
func (c *OrbitCamera) FitToBounds(lo, hi math.Vec3) {
	c.Center = lo.Add(hi).Scale(0.5)
	radius := hi.Sub(lo).Length() / 2
	dist := radius / float32(gomath.Sin(float64(c.FovY)/2))
	c.Distance = min(max(dist, c.MinDistance), c.MaxDistance)
	c.RotationX = 0.25
	c.RotationY = 0
}
