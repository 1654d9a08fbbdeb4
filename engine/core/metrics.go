package core

import (
	"github.com/spaghettifunk/prism/engine/containers"
)

// Number of frame-time samples in the rolling average window.
const metricsWindow = 30

/**
 * @brief Metrics tracks frame timing: a rolling frame-time average and a
 * once-per-second FPS counter. Owned and updated by the frame loop only.
 */
type Metrics struct {
	samples            *containers.RingQueue[float64]
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

func NewMetrics() *Metrics {
	return &Metrics{
		samples: containers.NewRingQueue[float64](metricsWindow),
	}
}

// Update ingests one frame's elapsed time in seconds. Call once per frame.
func (m *Metrics) Update(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0

	m.samples.Push(frameMS)
	total := 0.0
	m.samples.Each(func(ms float64) { total += ms })
	m.msAvg = total / float64(m.samples.Len())

	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}
	m.frames++
}

// FPS returns the frame count of the last full second.
func (m *Metrics) FPS() float64 {
	return m.fps
}

// FrameTime returns the rolling average frame time in milliseconds.
func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}

func (m *Metrics) Frame() (float64, float64) {
	return m.fps, m.msAvg
}
