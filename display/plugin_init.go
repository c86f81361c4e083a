package livedemo

import (
	"errors"
	"fmt"
	"log/slog"

	Lp "github.com/maroda/livedemo/plugin"
	Ls "github.com/maroda/livedemo/server"
)

// InitOutputs opens every configured recorder.
// A missing MIDI build is logged and skipped, any other failure closes
// what was already opened and is returned.
func InitOutputs(c *Ls.Config) ([]Lp.OutputAdapter, error) {
	var outs []Lp.OutputAdapter

	fail := func(err error) ([]Lp.OutputAdapter, error) {
		CloseOutputs(outs)
		return nil, err
	}

	if c.RecordFile != "" {
		fo, err := Lp.NewFileOutput(c.RecordFile)
		if err != nil {
			return fail(err)
		}
		outs = append(outs, fo)
	}

	if c.BadgerPath != "" {
		bo, err := Lp.NewBadgerOutput(c.BadgerPath, c.BatchSize)
		if err != nil {
			return fail(fmt.Errorf("badger output: %w", err))
		}
		outs = append(outs, bo)
	}

	if c.MIDI {
		mo, err := initMIDIOutput(c)
		switch {
		case errors.Is(err, Lp.ErrNoOutput):
			slog.Warn("Continuing without MIDI")
		case err != nil:
			return fail(err)
		default:
			outs = append(outs, mo)
		}
	}

	return outs, nil
}

// CloseOutputs flushes and closes, errors are only logged
func CloseOutputs(outs []Lp.OutputAdapter) {
	for _, out := range outs {
		if err := out.Close(); err != nil {
			slog.Error("Failed to close output", slog.String("output", out.Type()), slog.Any("error", err))
		}
	}
}
