package camera

import (
	m32 "github.com/chewxy/math32"

	"github.com/spaghettifunk/prism/engine/math"
)

/**
 * @brief Orbit represents the interactive viewpoint: an eye position
 * orbiting a centre of interest. The view matrix is rebuilt lazily, so
 * repeated polling between movements returns the identical matrix and the
 * frame accumulator sees a stable view.
 */
type Orbit struct {
	eye    math.Vec3
	center math.Vec3
	up     math.Vec3
	fov    float32

	width  float32
	height float32

	isDirty bool
	view    math.Mat4
}

func New() *Orbit {
	c := &Orbit{}
	c.Reset()
	return c
}

func (c *Orbit) Reset() {
	c.eye = math.Vec3{X: 4.0, Y: 4.0, Z: 4.0}
	c.center = math.NewVec3Zero()
	c.up = math.Vec3{Y: 1.0}
	c.fov = 60.0
	c.width = 1
	c.height = 1
	c.isDirty = true
}

func (c *Orbit) SetLookAt(eye, center, up math.Vec3) {
	c.eye = eye
	c.center = center
	c.up = up
	c.isDirty = true
}

func (c *Orbit) SetWindowSize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	c.width = float32(width)
	c.height = float32(height)
}

func (c *Orbit) SetFieldOfView(degrees float32) {
	c.fov = math.Clamp(degrees, 10.0, 120.0)
}

func (c *Orbit) FieldOfView() float32 {
	return c.fov
}

func (c *Orbit) Eye() math.Vec3 {
	return c.eye
}

func (c *Orbit) Center() math.Vec3 {
	return c.center
}

func (c *Orbit) ViewMatrix() math.Mat4 {
	if c.isDirty {
		c.view = math.NewMat4LookAt(c.eye, c.center, c.up)
		c.isDirty = false
	}
	return c.view
}

// Orbit rotates the eye around the centre of interest. dx and dy are cursor
// deltas in pixels.
func (c *Orbit) Orbit(dx, dy float32) {
	if c.width == 0 || c.height == 0 {
		return
	}
	ax := dx / c.width * m32.Pi * 2.0
	ay := dy / c.height * m32.Pi * 2.0

	offset := c.eye.Sub(c.center)
	radius := offset.Length()

	yaw := m32.Atan2(offset.X, offset.Z) - ax
	pitch := m32.Asin(offset.Y/radius) + ay
	// Keep away from the poles so up stays meaningful.
	limit := m32.Pi/2.0 - 0.01
	pitch = math.Clamp(pitch, -limit, limit)

	c.eye = c.center.Add(math.Vec3{
		X: radius * m32.Cos(pitch) * m32.Sin(yaw),
		Y: radius * m32.Sin(pitch),
		Z: radius * m32.Cos(pitch) * m32.Cos(yaw),
	})
	c.isDirty = true
}

// Pan translates eye and centre together in the view plane.
func (c *Orbit) Pan(dx, dy float32) {
	offset := c.eye.Sub(c.center)
	radius := offset.Length()

	forward := offset.MulScalar(-1.0 / radius)
	right := forward.Cross(c.up).Normalized()
	up := right.Cross(forward).Normalized()

	move := right.MulScalar(-dx / c.width * radius).Add(up.MulScalar(dy / c.height * radius))
	c.eye = c.eye.Add(move)
	c.center = c.center.Add(move)
	c.isDirty = true
}

// Dolly moves the eye along the view direction. Positive values approach
// the centre of interest but never cross it.
func (c *Orbit) Dolly(delta float32) {
	offset := c.eye.Sub(c.center)
	radius := offset.Length() * (1.0 - delta*0.1)
	if radius < 0.001 {
		radius = 0.001
	}
	c.eye = c.center.Add(offset.Normalized().MulScalar(radius))
	c.isDirty = true
}
