package core

import "time"

type Clock struct {
	startTime float64
	lastTick  float64
	elapsed   float64
	delta     float64
}

func NewClock() *Clock {
	return &Clock{}
}

// Updates the provided clock. Should be called once per frame, just before
// checking elapsed or delta time. Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.startTime != 0 {
		now := float64(time.Now().UnixNano())
		c.elapsed = now - c.startTime
		c.delta = now - c.lastTick
		c.lastTick = now
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = float64(time.Now().UnixNano())
	c.lastTick = c.startTime
	c.elapsed = 0
	c.delta = 0
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = 0
}

// Elapsed returns nanoseconds since Start.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

// Delta returns nanoseconds between the two most recent Update calls.
func (c *Clock) Delta() float64 {
	return c.delta
}

// DeltaSeconds returns Delta converted to seconds.
func (c *Clock) DeltaSeconds() float64 {
	return c.delta / float64(time.Second)
}
