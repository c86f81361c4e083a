//go:build !nomidi

package plugin

/*
	MIDIOutput

	An audible cue for the operator: Label and Pred updates each play
	a short note, values and resets are ignored.
*/

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	Lt "github.com/maroda/livedemo/types"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

const cueLength = 150 * time.Millisecond

type MIDIOutput struct {
	Port    drivers.Out
	Send    func(msg midi.Message) error
	Channel uint8
	Root    uint8 // Label note, Pred plays a fifth above
	WG      sync.WaitGroup
}

func NewMIDIOutput(port int, root uint8) (*MIDIOutput, error) {
	if root > MaxCueRoot {
		return nil, fmt.Errorf("MIDI root %d is above %d", root, MaxCueRoot)
	}

	out, err := midi.OutPort(port)
	if err != nil {
		slog.Error("Error opening MIDI port", slog.Int("port", port))
		return nil, fmt.Errorf("error opening MIDI port: %w", err)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		slog.Error("Error sending to MIDI port", slog.Int("port", port))
		return nil, fmt.Errorf("error sending to MIDI port: %w", err)
	}

	return &MIDIOutput{
		Port: out,
		Send: send,
		Root: root,
	}, nil
}

// CueNote is the note an update plays, false if it plays nothing
func (mo *MIDIOutput) CueNote(u *Lt.Update) (uint8, bool) {
	switch {
	case u.Reset:
		return 0, false
	case u.Label:
		return mo.Root, true
	case u.Pred:
		return mo.Root + 7, true
	default:
		return 0, false
	}
}

func (mo *MIDIOutput) WriteUpdate(u *Lt.Update) error {
	note, ok := mo.CueNote(u)
	if !ok {
		return nil
	}

	mo.WG.Add(1)
	go func() {
		defer mo.WG.Done()
		if err := mo.Send(midi.NoteOn(mo.Channel, note, 100)); err != nil {
			slog.Error("NoteOn event failed", slog.Any("error", err))
			return
		}
		time.Sleep(cueLength)
		if err := mo.Send(midi.NoteOff(mo.Channel, note)); err != nil {
			slog.Error("NoteOff event failed, attempting Flush")
			mo.Flush()
		}
	}()

	return nil
}

func (mo *MIDIOutput) WriteBatch(us []*Lt.Update) error {
	for _, u := range us {
		if err := mo.WriteUpdate(u); err != nil {
			return err
		}
	}
	return nil
}

// QueryRange has nothing to return, MIDI keeps no history
func (mo *MIDIOutput) QueryRange(start, end time.Time) ([]*Lt.Update, error) {
	return nil, nil
}

func (mo *MIDIOutput) Flush() error {
	return mo.Send(midi.ControlChange(mo.Channel, midi.AllNotesOff, midi.Off))
}

func (mo *MIDIOutput) Close() error {
	mo.WG.Wait()

	if mo.Port != nil {
		mo.Port.Close()
		midi.CloseDriver()
	}
	return nil
}

func (mo *MIDIOutput) Type() string { return "MIDI" }
