package livedemo

import (
	"time"

	Ls "github.com/maroda/livedemo/server"
)

// DefaultVideoLength is used when nothing better is known
const DefaultVideoLength = 3 * time.Minute

// PlayerState follows the states a video player reports
type PlayerState int

const (
	Unstarted PlayerState = iota
	Playing
	Paused
	Ended
)

func (s PlayerState) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Player simulates video playback for the terminal host.
// Only play, pause and seek are modelled, and every state change is
// reported to OnStateChange. Not safe for concurrent use.
type Player struct {
	Clock         Ls.Clock
	VideoID       string
	Length        time.Duration
	OnStateChange func(PlayerState)

	state    PlayerState
	position time.Duration
	lastTick time.Time
}

func NewPlayer(videoID string, length time.Duration, onChange func(PlayerState)) *Player {
	if length <= 0 {
		length = DefaultVideoLength
	}
	if onChange == nil {
		onChange = func(PlayerState) {}
	}
	return &Player{
		Clock:         Ls.SystemClock,
		VideoID:       videoID,
		Length:        length,
		OnStateChange: onChange,
	}
}

func (p *Player) State() PlayerState      { return p.state }
func (p *Player) Position() time.Duration { return p.position }

// SeekTo moves the playhead without changing state
func (p *Player) SeekTo(d time.Duration) {
	p.Advance()
	p.position = max(0, min(d, p.Length))
	p.lastTick = p.Clock.Now()
}

// Play starts or resumes, an ended video starts over
func (p *Player) Play() {
	if p.state == Playing {
		return
	}
	if p.state == Ended {
		p.position = 0
	}
	p.lastTick = p.Clock.Now()
	p.setState(Playing)
}

func (p *Player) Pause() {
	if p.state != Playing {
		return
	}
	p.Advance()
	if p.state == Playing {
		p.setState(Paused)
	}
}

// Toggle is bound to the playback key
func (p *Player) Toggle() {
	if p.state == Playing {
		p.Pause()
		return
	}
	p.Play()
}

// Advance moves the playhead by the time since the last call
func (p *Player) Advance() {
	if p.state != Playing {
		return
	}
	now := p.Clock.Now()
	if elapsed := now.Sub(p.lastTick); elapsed > 0 {
		p.position += elapsed
	}
	p.lastTick = now

	if p.position >= p.Length {
		p.position = p.Length
		p.setState(Ended)
	}
}

func (p *Player) setState(s PlayerState) {
	p.state = s
	p.OnStateChange(s)
}
