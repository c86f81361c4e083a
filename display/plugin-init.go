//go:build !nomidi

package livedemo

import (
	"log/slog"

	Lp "github.com/maroda/livedemo/plugin"
	Ls "github.com/maroda/livedemo/server"
)

func initMIDIOutput(c *Ls.Config) (Lp.OutputAdapter, error) {
	slog.Info("Configuration found:",
		slog.Int("Port", c.MIDIPort),
		slog.Int("Root", c.MIDINote),
	)

	output, err := Lp.NewMIDIOutput(c.MIDIPort, uint8(c.MIDINote))
	if err != nil {
		slog.Error("Failed to create adapter",
			slog.String("output", "midi"),
			slog.Any("error", err))
		return nil, err
	}
	slog.Info("MIDI Adapter Enabled", slog.Int("port", c.MIDIPort))
	return output, nil
}
