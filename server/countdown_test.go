package livedemo_test

import (
	"testing"
	"time"

	Ls "github.com/maroda/livedemo/server"
	Lt "github.com/maroda/livedemo/types"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

// manualFrames holds requested frames until the test delivers them
type manualFrames struct {
	pending []func()
}

func (m *manualFrames) RequestFrame(f func()) { m.pending = append(m.pending, f) }

// Deliver runs everything requested so far, in request order
func (m *manualFrames) Deliver() {
	pending := m.pending
	m.pending = nil
	for _, f := range pending {
		f()
	}
}

type countdownRecorder struct {
	updates []time.Duration
	fires   int
}

func newTestCountdown(initial time.Duration) (*Ls.Countdown, *fakeClock, *manualFrames, *countdownRecorder) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	frames := &manualFrames{}
	rec := &countdownRecorder{}
	cd := Ls.NewCountdown(initial, frames,
		func(d time.Duration) { rec.updates = append(rec.updates, d) },
		func() { rec.fires++ })
	cd.Clock = clock
	return cd, clock, frames, rec
}

func TestCountdownRunsToZero(t *testing.T) {
	for _, d := range []time.Duration{time.Millisecond, 500 * time.Millisecond, 10 * time.Second} {
		t.Run("fires once and never goes negative for "+d.String(), func(t *testing.T) {
			cd, clock, frames, rec := newTestCountdown(d)
			cd.Start()

			// run well past the end in roughly frame sized steps
			step := d/7 + time.Millisecond
			for i := 0; i < 20; i++ {
				clock.Advance(step)
				frames.Deliver()
			}

			assertInt(t, rec.fires, 1)
			assertDuration(t, cd.Remaining(), 0)
			assertBool(t, cd.Running(), false)
			for _, u := range rec.updates {
				if u < 0 {
					t.Fatalf("reported negative remaining %v", u)
				}
			}
			assertDuration(t, rec.updates[len(rec.updates)-1], 0)
			assertInt(t, len(frames.pending), 0)
		})
	}
}

func TestCountdownMonotonic(t *testing.T) {
	cd, clock, frames, rec := newTestCountdown(time.Second)
	cd.Start()
	for i := 0; i < 10; i++ {
		clock.Advance(16 * time.Millisecond)
		frames.Deliver()
	}

	for i := 1; i < len(rec.updates); i++ {
		if rec.updates[i] > rec.updates[i-1] {
			t.Fatalf("remaining went up: %v then %v", rec.updates[i-1], rec.updates[i])
		}
	}
	assertDuration(t, cd.Remaining(), time.Second-160*time.Millisecond)
}

func TestCountdownStart(t *testing.T) {
	t.Run("runs the first step right away", func(t *testing.T) {
		cd, _, frames, rec := newTestCountdown(time.Second)
		cd.Start()

		assertInt(t, len(rec.updates), 1)
		assertDuration(t, rec.updates[0], time.Second)
		assertInt(t, len(frames.pending), 1)
		assertBool(t, cd.Running(), true)
	})

	t.Run("twice in a row is the same as once", func(t *testing.T) {
		once, onceClock, onceFrames, onceRec := newTestCountdown(time.Second)
		twice, twiceClock, twiceFrames, twiceRec := newTestCountdown(time.Second)

		once.Start()
		twice.Start()
		twice.Start()

		assertInt(t, len(twiceRec.updates), len(onceRec.updates))
		assertInt(t, len(twiceFrames.pending), len(onceFrames.pending))
		assertInt(t, int(twice.Generation()), int(once.Generation()))

		onceClock.Advance(300 * time.Millisecond)
		twiceClock.Advance(300 * time.Millisecond)
		onceFrames.Deliver()
		twiceFrames.Deliver()

		assertDuration(t, twice.Remaining(), once.Remaining())
		assertInt(t, len(twiceRec.updates), len(onceRec.updates))
	})
}

func TestCountdownStaleWakeups(t *testing.T) {
	t.Run("a wake-up from before a reset and restart does nothing", func(t *testing.T) {
		cd, clock, frames, rec := newTestCountdown(time.Second)

		cd.Start()
		stale := frames.pending
		frames.pending = nil

		cd.Reset()
		cd.Start()
		fresh := frames.pending
		frames.pending = nil

		before := cd.Remaining()
		updates := len(rec.updates)
		clock.Advance(200 * time.Millisecond)

		for _, f := range stale {
			f()
		}
		assertDuration(t, cd.Remaining(), before)
		assertInt(t, len(rec.updates), updates)
		assertInt(t, len(frames.pending), 0)
		assertInt(t, rec.fires, 0)

		for _, f := range fresh {
			f()
		}
		assertDuration(t, cd.Remaining(), 800*time.Millisecond)
		assertInt(t, len(rec.updates), updates+1)
	})

	t.Run("a wake-up after pause does nothing", func(t *testing.T) {
		cd, clock, frames, rec := newTestCountdown(time.Second)
		cd.Start()
		clock.Advance(100 * time.Millisecond)
		cd.Pause()

		updates := len(rec.updates)
		clock.Advance(100 * time.Millisecond)
		frames.Deliver()

		assertDuration(t, cd.Remaining(), 900*time.Millisecond)
		assertInt(t, len(rec.updates), updates)
	})

	t.Run("a stale wake-up cannot fire an already finished generation", func(t *testing.T) {
		cd, clock, frames, rec := newTestCountdown(100 * time.Millisecond)
		cd.Start()
		stale := frames.pending
		frames.pending = nil

		clock.Advance(time.Second)
		cd.Pause()
		assertInt(t, rec.fires, 1)

		for _, f := range stale {
			f()
		}
		assertInt(t, rec.fires, 1)
	})
}

func TestCountdownPause(t *testing.T) {
	t.Run("flushes elapsed time up to the pause", func(t *testing.T) {
		cd, clock, frames, _ := newTestCountdown(time.Second)
		cd.Start()
		clock.Advance(16 * time.Millisecond)
		frames.Deliver()

		// no frame delivered for this stretch
		clock.Advance(184 * time.Millisecond)
		cd.Pause()

		assertDuration(t, cd.Remaining(), 800*time.Millisecond)
		assertBool(t, cd.Running(), false)
	})

	t.Run("does nothing while stopped", func(t *testing.T) {
		cd, clock, _, rec := newTestCountdown(time.Second)
		clock.Advance(time.Second)
		cd.Pause()

		assertDuration(t, cd.Remaining(), time.Second)
		assertInt(t, len(rec.updates), 0)
	})

	t.Run("resuming does not count the paused time", func(t *testing.T) {
		cd, clock, frames, _ := newTestCountdown(time.Second)
		cd.Start()
		clock.Advance(100 * time.Millisecond)
		cd.Pause()

		clock.Advance(5 * time.Second)
		cd.Start()
		clock.Advance(100 * time.Millisecond)
		frames.Deliver()

		assertDuration(t, cd.Remaining(), 800*time.Millisecond)
	})

	t.Run("firing during the flush stops the countdown", func(t *testing.T) {
		cd, clock, _, rec := newTestCountdown(100 * time.Millisecond)
		cd.Start()
		clock.Advance(150 * time.Millisecond)
		cd.Pause()

		assertInt(t, rec.fires, 1)
		assertDuration(t, cd.Remaining(), 0)
	})
}

func TestCountdownReset(t *testing.T) {
	t.Run("refills and reports synchronously", func(t *testing.T) {
		cd, clock, frames, rec := newTestCountdown(time.Second)
		cd.Start()
		clock.Advance(400 * time.Millisecond)
		frames.Deliver()

		cd.Reset()
		assertDuration(t, cd.Remaining(), time.Second)
		assertDuration(t, rec.updates[len(rec.updates)-1], time.Second)
		assertBool(t, cd.Running(), false)
	})

	t.Run("works from the stopped state", func(t *testing.T) {
		cd, _, _, rec := newTestCountdown(time.Second)
		cd.Reset()
		assertInt(t, len(rec.updates), 1)
		assertDuration(t, cd.Remaining(), time.Second)
	})

	t.Run("allows another fire after restarting", func(t *testing.T) {
		cd, clock, frames, rec := newTestCountdown(50 * time.Millisecond)
		cd.Start()
		clock.Advance(time.Second)
		frames.Deliver()
		assertInt(t, rec.fires, 1)

		cd.Reset()
		cd.Start()
		clock.Advance(time.Second)
		frames.Deliver()
		assertInt(t, rec.fires, 2)
	})
}

func TestCountdownClockGoingBackwards(t *testing.T) {
	cd, clock, frames, _ := newTestCountdown(time.Second)
	cd.Start()
	clock.Advance(-time.Minute)
	frames.Deliver()

	assertDuration(t, cd.Remaining(), time.Second)
}

func TestCountdownOnLoop(t *testing.T) {
	loop := Ls.NewLoop(time.Millisecond)
	clock := &fakeClock{now: time.Now()}
	fires := 0
	cd := Ls.NewCountdown(48*time.Millisecond, loop, nil, func() { fires++ })
	cd.Clock = clock

	cd.Start()
	assertInt(t, loop.Pending(), 1)
	for i := 0; i < 4; i++ {
		clock.Advance(16 * time.Millisecond)
		loop.RunFrame()
	}

	assertInt(t, fires, 1)
	assertInt(t, loop.Pending(), 0)
}

func TestCountdownPresentation(t *testing.T) {
	cd, clock, frames, _ := newTestCountdown(9 * time.Second)
	assertBand(t, cd.Presentation().Band, Lt.BandHigh)

	cd.Start()
	clock.Advance(4 * time.Second)
	frames.Deliver()
	assertBand(t, cd.Presentation().Band, Lt.BandMid)

	clock.Advance(3 * time.Second)
	frames.Deliver()
	pr := cd.Presentation()
	assertBand(t, pr.Band, Lt.BandLow)
	assertFloat(t, pr.OverlayOpacity, 0.7)
}

func assertDuration(t testing.TB, got, want time.Duration) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func assertBand(t testing.TB, got, want Lt.Band) {
	t.Helper()
	if got != want {
		t.Errorf("got band %d, want %d", got, want)
	}
}
