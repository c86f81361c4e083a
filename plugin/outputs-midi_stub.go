//go:build nomidi

package plugin

import (
	"fmt"
	"time"

	Lt "github.com/maroda/livedemo/types"
)

type MIDIOutput struct{}

func NewMIDIOutput(port int, root uint8) (*MIDIOutput, error) {
	return nil, fmt.Errorf("MIDI support not compiled in this build: %w", ErrNoOutput)
}

func (m *MIDIOutput) WriteUpdate(u *Lt.Update) error {
	return fmt.Errorf("MIDI support not compiled in this build: %w", ErrNoOutput)
}

func (m *MIDIOutput) WriteBatch(us []*Lt.Update) error {
	return fmt.Errorf("MIDI support not compiled in this build: %w", ErrNoOutput)
}

func (m *MIDIOutput) QueryRange(start, end time.Time) ([]*Lt.Update, error) {
	return nil, fmt.Errorf("MIDI support not compiled in this build: %w", ErrNoOutput)
}

func (m *MIDIOutput) Flush() error { return nil }
func (m *MIDIOutput) Close() error { return nil }
func (m *MIDIOutput) Type() string { return "midi-disabled" }
