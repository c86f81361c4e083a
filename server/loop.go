package livedemo

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// DefaultFrameInterval is roughly a 60Hz display refresh
const DefaultFrameInterval = 16 * time.Millisecond

// Loop is the single thread of control for a host.
// Posted tasks and frame callbacks all run on the goroutine inside Run,
// so the state they touch (a Countdown, a Plot) needs no locking.
type Loop struct {
	MU       sync.Mutex
	Interval time.Duration
	tasks    chan func()
	done     chan struct{}
	frame    []func() // one-shot, requested for the next frame
	each     []func() // run after the one-shots on every frame
	stopOnce sync.Once
}

// NewLoop creates a Loop ticking at the given frame interval
func NewLoop(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Loop{
		Interval: interval,
		tasks:    make(chan func(), 256),
		done:     make(chan struct{}),
	}
}

// Post queues f to run on the loop goroutine, in posting order.
// Posting after the loop has stopped drops f.
func (l *Loop) Post(f func()) {
	select {
	case l.tasks <- f:
	case <-l.done:
	}
}

// RequestFrame runs f once on the next frame.
// Frames requested while a frame is running go to the following one.
func (l *Loop) RequestFrame(f func()) {
	l.MU.Lock()
	defer l.MU.Unlock()
	l.frame = append(l.frame, f)
}

// EachFrame registers f to run on every frame, e.g. a redraw
func (l *Loop) EachFrame(f func()) {
	l.MU.Lock()
	defer l.MU.Unlock()
	l.each = append(l.each, f)
}

// Pending is the number of one-shot frame callbacks waiting
func (l *Loop) Pending() int {
	l.MU.Lock()
	defer l.MU.Unlock()
	return len(l.frame)
}

// RunFrame delivers one frame. Run calls it on every tick,
// tests may call it directly instead of running the loop.
func (l *Loop) RunFrame() {
	l.MU.Lock()
	pending := l.frame
	l.frame = nil
	each := l.each
	l.MU.Unlock()

	for _, f := range pending {
		f()
	}
	for _, f := range each {
		f()
	}
}

// Run blocks until ctx is done, executing tasks and frames
func (l *Loop) Run(ctx context.Context) error {
	defer l.stopOnce.Do(func() { close(l.done) })
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in host loop", slog.Any("panic", r))
			slog.Error("Recovered from panic", slog.String("stack", string(debug.Stack())))
			panic(r)
		}
	}()

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-l.tasks:
			f()
		case <-ticker.C:
			l.RunFrame()
		}
	}
}
