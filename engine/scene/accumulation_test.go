package scene

import (
	stdmath "math"
	"testing"

	"github.com/spaghettifunk/prism/engine/math"
)

func staticView() math.Mat4 {
	return math.NewMat4LookAt(math.Vec3{X: 4, Y: 4, Z: 4}, math.Vec3{}, math.Vec3{Y: 1})
}

func TestAccumulatorIncrementsWhileCameraStatic(t *testing.T) {
	a := NewAccumulator(100)
	view := staticView()

	for want := int32(0); want < 10; want++ {
		got := a.Update(view, 60)
		if got != want {
			t.Errorf("frame %d: expected counter %d, got %d", want, want, got)
		}
	}
}

func TestAccumulatorResetsOnViewChange(t *testing.T) {
	a := NewAccumulator(100)
	view := staticView()

	for i := 0; i < 5; i++ {
		a.Update(view, 60)
	}

	moved := view
	moved.Data[12] += 0.001
	if got := a.Update(moved, 60); got != 0 {
		t.Errorf("expected counter 0 after view change, got %d", got)
	}
	if got := a.Update(moved, 60); got != 1 {
		t.Errorf("expected counter 1 on the following frame, got %d", got)
	}
}

func TestAccumulatorResetsOnOneUlpFovChange(t *testing.T) {
	a := NewAccumulator(100)
	view := staticView()

	fov := float32(60)
	for i := 0; i < 5; i++ {
		a.Update(view, fov)
	}

	// Nudge the fov by exactly one ULP.
	nudged := stdmath.Float32frombits(stdmath.Float32bits(fov) + 1)
	if nudged == fov {
		t.Fatal("ulp nudge did not change the value")
	}
	if got := a.Update(view, nudged); got != 0 {
		t.Errorf("expected counter 0 after one-ULP fov change, got %d", got)
	}
}

func TestAccumulatorConvergence(t *testing.T) {
	a := NewAccumulator(3)
	view := staticView()

	for i := 0; i < 3; i++ {
		a.Update(view, 60)
		if a.Converged() {
			t.Fatalf("converged too early at frame %d", i)
		}
	}
	a.Update(view, 60)
	if !a.Converged() {
		t.Error("expected convergence once counter reached target")
	}

	// A camera change re-enters accumulation.
	moved := view
	moved.Data[13] += 1
	a.Update(moved, 60)
	if a.Converged() {
		t.Error("expected re-accumulation after camera change")
	}
}

func TestAccumulatorResetForcesZeroRegardlessOfCamera(t *testing.T) {
	a := NewAccumulator(100)
	view := staticView()

	for i := 0; i < 7; i++ {
		a.Update(view, 60)
	}
	a.Reset()
	if got := a.Update(view, 60); got != 0 {
		t.Errorf("expected counter 0 on the frame following Reset, got %d", got)
	}
}

func TestOnResizeResetsAccumulation(t *testing.T) {
	alloc := &fakeAllocator{}
	s, _ := newTestScene(t, alloc)

	for i := 0; i < 4; i++ {
		s.Accumulator().Update(s.camera.ViewMatrix(), s.camera.FieldOfView())
	}
	s.OnResize(1024, 768)
	if got := s.Accumulator().Update(s.camera.ViewMatrix(), s.camera.FieldOfView()); got != 0 {
		t.Errorf("expected counter 0 on the frame following OnResize, got %d", got)
	}

	w, h := s.Extent()
	if w != 1024 || h != 768 {
		t.Errorf("expected extent 1024x768, got %dx%d", w, h)
	}
}
