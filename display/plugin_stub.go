//go:build nomidi

package livedemo

import (
	"fmt"
	"log/slog"

	Lp "github.com/maroda/livedemo/plugin"
	Ls "github.com/maroda/livedemo/server"
)

func initMIDIOutput(c *Ls.Config) (Lp.OutputAdapter, error) {
	slog.Warn("MIDI support not compiled in this build")
	return nil, fmt.Errorf("MIDI support not available: %w", Lp.ErrNoOutput)
}

func getMIDISystemInfo(outs []Lp.OutputAdapter, systemInfo *SystemInfo) {}
