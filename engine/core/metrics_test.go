package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRollingAverage(t *testing.T) {
	m := NewMetrics()

	// 10ms frames.
	for i := 0; i < 10; i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-6)

	// The window forgets old samples once enough fast frames arrive.
	for i := 0; i < metricsWindow; i++ {
		m.Update(0.002)
	}
	assert.InDelta(t, 2.0, m.FrameTime(), 1e-6)
}

func TestMetricsFPSOverOneSecond(t *testing.T) {
	m := NewMetrics()

	// 60 frames of ~16.7ms cross the one second mark.
	for i := 0; i < 61; i++ {
		m.Update(1.0 / 60.0)
	}
	fps, _ := m.Frame()
	assert.InDelta(t, 60.0, fps, 2.0)
}
