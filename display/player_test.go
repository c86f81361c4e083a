package livedemo_test

import (
	"testing"
	"time"

	Ld "github.com/maroda/livedemo/display"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestPlayer(length time.Duration) (*Ld.Player, *fakeClock, *[]Ld.PlayerState) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	var states []Ld.PlayerState
	p := Ld.NewPlayer("vid", length, func(s Ld.PlayerState) { states = append(states, s) })
	p.Clock = clock
	return p, clock, &states
}

func TestPlayer(t *testing.T) {
	t.Run("starts unstarted with the default length", func(t *testing.T) {
		p := Ld.NewPlayer("vid", 0, nil)
		assertString(t, p.State().String(), "unstarted")
		if p.Length != Ld.DefaultVideoLength {
			t.Errorf("got %v, want %v", p.Length, Ld.DefaultVideoLength)
		}
	})

	t.Run("play and pause report each change once", func(t *testing.T) {
		p, clock, states := newTestPlayer(time.Minute)
		p.Play()
		p.Play()
		clock.Advance(3 * time.Second)
		p.Pause()
		p.Pause()

		assertInt(t, len(*states), 2)
		assertString(t, (*states)[0].String(), "playing")
		assertString(t, (*states)[1].String(), "paused")
		assertDuration(t, p.Position(), 3*time.Second)
	})

	t.Run("the playhead stands still while paused", func(t *testing.T) {
		p, clock, _ := newTestPlayer(time.Minute)
		p.Play()
		clock.Advance(time.Second)
		p.Pause()
		clock.Advance(10 * time.Second)
		p.Play()
		clock.Advance(time.Second)
		p.Advance()
		assertDuration(t, p.Position(), 2*time.Second)
	})

	t.Run("reaching the end reports ended and play starts over", func(t *testing.T) {
		p, clock, states := newTestPlayer(5 * time.Second)
		p.Play()
		clock.Advance(6 * time.Second)
		p.Advance()

		assertString(t, p.State().String(), "ended")
		assertDuration(t, p.Position(), 5*time.Second)

		p.Toggle()
		assertString(t, p.State().String(), "playing")
		assertDuration(t, p.Position(), 0)
		assertInt(t, len(*states), 3)
	})

	t.Run("seeks are clamped to the video", func(t *testing.T) {
		p, _, states := newTestPlayer(time.Minute)
		p.SeekTo(2 * time.Minute)
		assertDuration(t, p.Position(), time.Minute)
		p.SeekTo(-time.Second)
		assertDuration(t, p.Position(), 0)
		assertInt(t, len(*states), 0)
	})

	t.Run("toggle flips between playing and paused", func(t *testing.T) {
		p, _, _ := newTestPlayer(time.Minute)
		p.Toggle()
		assertString(t, p.State().String(), "playing")
		p.Toggle()
		assertString(t, p.State().String(), "paused")
	})
}

func assertDuration(t testing.TB, got, want time.Duration) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct duration, got %v, want %v", got, want)
	}
}
