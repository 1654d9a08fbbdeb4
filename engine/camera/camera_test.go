package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/math"
)

func TestViewMatrixStableBetweenMovements(t *testing.T) {
	c := New()
	c.SetWindowSize(800, 600)

	first := c.ViewMatrix()
	second := c.ViewMatrix()
	assert.Equal(t, first, second, "polling without movement must return the identical matrix")

	c.Orbit(10, 0)
	moved := c.ViewMatrix()
	assert.NotEqual(t, first, moved)
}

func TestOrbitKeepsRadius(t *testing.T) {
	c := New()
	c.SetWindowSize(800, 600)
	c.SetLookAt(math.Vec3{X: 0, Y: 0, Z: 5}, math.NewVec3Zero(), math.Vec3{Y: 1})

	c.Orbit(120, 45)

	radius := c.Eye().Sub(c.Center()).Length()
	assert.InDelta(t, 5.0, radius, 1e-4)
}

func TestDollyNeverCrossesCenter(t *testing.T) {
	c := New()
	c.SetLookAt(math.Vec3{X: 0, Y: 0, Z: 1}, math.NewVec3Zero(), math.Vec3{Y: 1})

	for i := 0; i < 200; i++ {
		c.Dolly(1.0)
	}

	offset := c.Eye().Sub(c.Center())
	require.Greater(t, offset.Length(), float32(0))
	assert.Greater(t, offset.Z, float32(0), "eye must stay on the original side of the centre")
}

func TestPanMovesEyeAndCenterTogether(t *testing.T) {
	c := New()
	c.SetWindowSize(800, 600)
	c.SetLookAt(math.Vec3{X: 0, Y: 0, Z: 5}, math.NewVec3Zero(), math.Vec3{Y: 1})

	before := c.Eye().Sub(c.Center())
	c.Pan(40, -25)
	after := c.Eye().Sub(c.Center())

	assert.True(t, before.Compare(after, 1e-5), "panning preserves the eye-to-centre offset")
}

func TestFieldOfViewClamped(t *testing.T) {
	c := New()
	c.SetFieldOfView(500)
	assert.Equal(t, float32(120), c.FieldOfView())
	c.SetFieldOfView(1)
	assert.Equal(t, float32(10), c.FieldOfView())
}
