package livedemo

import (
	"time"
)

// Clock is the wall clock the Countdown measures elapsed time with
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real clock
var SystemClock Clock = systemClock{}

// FrameScheduler runs a callback once on the next frame.
// The Loop is the production implementation.
type FrameScheduler interface {
	RequestFrame(f func())
}

// Countdown is a restartable countdown driven by frame wake-ups.
//
// Every wake-up carries the generation that was current when it was
// requested. Start bumps the generation, so wake-ups left over from an
// earlier run find a mismatch and do nothing. There is no cancel call.
//
// Countdown is not safe for concurrent use: call it from the goroutine
// that also delivers the frames (see Loop).
type Countdown struct {
	Clock    Clock
	initial  time.Duration
	frames   FrameScheduler
	onUpdate func(remaining time.Duration)
	onFire   func()

	remaining  time.Duration
	running    bool
	lastTick   time.Time
	generation uint64
}

// NewCountdown creates a stopped countdown at its full duration.
// onUpdate is called with the remaining time on every step and on Reset,
// onFire once when the countdown reaches zero. Either may be nil.
func NewCountdown(initial time.Duration, frames FrameScheduler, onUpdate func(time.Duration), onFire func()) *Countdown {
	if onUpdate == nil {
		onUpdate = func(time.Duration) {}
	}
	if onFire == nil {
		onFire = func() {}
	}
	return &Countdown{
		Clock:     SystemClock,
		initial:   initial,
		frames:    frames,
		onUpdate:  onUpdate,
		onFire:    onFire,
		remaining: initial,
	}
}

// Start resumes counting down from the current remaining time.
// It does nothing while already running.
func (c *Countdown) Start() {
	if c.running {
		return
	}
	c.lastTick = c.Clock.Now()
	c.running = true
	c.generation++
	c.tick(c.generation)
}

// Pause flushes the time elapsed since the last step, then stops.
// It does nothing while stopped.
func (c *Countdown) Pause() {
	if !c.running {
		return
	}
	c.update()
	c.running = false
}

// Reset stops the countdown and refills it, reporting the full
// duration right away rather than on the next frame.
func (c *Countdown) Reset() {
	c.remaining = c.initial
	c.running = false
	c.onUpdate(c.remaining)
}

func (c *Countdown) tick(gen uint64) {
	if !c.running || gen != c.generation {
		return
	}
	c.update()
	if c.running {
		c.frames.RequestFrame(func() {
			c.tick(gen)
		})
	}
}

// update is one step, only called while running
func (c *Countdown) update() {
	now := c.Clock.Now()
	elapsed := now.Sub(c.lastTick)
	if elapsed < 0 {
		elapsed = 0
	}

	c.remaining -= elapsed
	if c.remaining < 0 {
		c.remaining = 0
	}
	c.lastTick = now
	c.onUpdate(c.remaining)

	if c.remaining == 0 {
		c.running = false
		c.onFire()
	}
}

// Remaining is the time left as of the last step
func (c *Countdown) Remaining() time.Duration { return c.remaining }

// Initial is the full duration
func (c *Countdown) Initial() time.Duration { return c.initial }

// Running reports whether the countdown is advancing
func (c *Countdown) Running() bool { return c.running }

// Generation counts how many times the countdown has been started
func (c *Countdown) Generation() uint64 { return c.generation }

// Presentation maps the current state for a bound view
func (c *Countdown) Presentation() Presentation {
	return Present(c.remaining, c.initial)
}
