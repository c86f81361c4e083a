package livedemo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	Lp "github.com/maroda/livedemo/plugin"
	Lt "github.com/maroda/livedemo/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	replayLead  = 5 * time.Millisecond
	replayPause = 1 * time.Second
)

var tracer = otel.Tracer("github.com/maroda/livedemo/server")

// Source produces updates for the Hub until ctx is done or it fails.
// Updates with a zero Time are stamped by the Hub on arrival.
type Source interface {
	Generate(ctx context.Context, emit func(*Lt.Update)) error
	Name() string
}

// NewSourceFromConfig picks the one configured source
func NewSourceFromConfig(c *Config) (Source, error) {
	switch {
	case c.FakeData:
		return &FakeSource{Interval: 10 * time.Millisecond, Amplitude: 1}, nil
	case c.ReplayFile != "":
		return &ReplaySource{Path: c.ReplayFile}, nil
	case c.Device != "":
		return NewDeviceSource(c.Device, c.DeviceKind, c.Baud)
	case c.PollURL != "":
		return NewPollSource(c)
	}
	return nil, fmt.Errorf("%w: no source configured", ErrConfigInvalid)
}

// sleepCtx returns false if ctx finished first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// FakeSource generates a 1Hz sine wave
type FakeSource struct {
	Interval  time.Duration
	Amplitude float64
}

func (f *FakeSource) Name() string { return "fake" }

func (f *FakeSource) Generate(ctx context.Context, emit func(*Lt.Update)) error {
	start := time.Now()
	for {
		now := time.Now()
		v := f.Amplitude * math.Sin(2*math.Pi*now.Sub(start).Seconds())
		emit(&Lt.Update{Time: now.UnixMilli(), Value: &v})
		if !sleepCtx(ctx, f.Interval) {
			return ctx.Err()
		}
	}
}

// ReplaySource plays a recorded session in real time, forever.
// Each pass is closed with a Reset so clients start from an empty chart.
type ReplaySource struct {
	Path    string
	updates []Lt.Update
}

func (r *ReplaySource) Name() string { return "replay" }

// Load reads the recording, Generate calls it when needed
func (r *ReplaySource) Load(ctx context.Context) error {
	_, span := tracer.Start(ctx, "replay.load")
	defer span.End()

	updates, err := Lp.ReadUpdatesFile(r.Path)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("could not load replay %s: %w", r.Path, err)
	}
	if len(updates) == 0 {
		return errors.New("replay file has no updates")
	}
	span.SetAttributes(attribute.Int("updates", len(updates)))
	r.updates = updates

	slog.Info("Replay loaded", slog.String("path", r.Path), slog.Int("updates", len(updates)))
	return nil
}

func (r *ReplaySource) Generate(ctx context.Context, emit func(*Lt.Update)) error {
	if r.updates == nil {
		if err := r.Load(ctx); err != nil {
			return err
		}
	}

	for {
		start := time.Now()
		first := time.UnixMilli(r.updates[0].Time)
		for _, u := range r.updates {
			if u.Reset {
				continue // passes are separated by our own Reset
			}
			at := start.Add(time.UnixMilli(u.Time).Sub(first))
			// Wake slightly early so the update is plotted on time
			if !sleepCtx(ctx, time.Until(at)-replayLead) {
				return ctx.Err()
			}
			emit(&Lt.Update{Time: at.UnixMilli(), Value: u.Value, Label: u.Label})
		}

		if !sleepCtx(ctx, replayPause) {
			return ctx.Err()
		}
		emit(&Lt.Update{Reset: true})
	}
}
