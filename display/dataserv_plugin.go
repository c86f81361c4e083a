//go:build !nomidi

package livedemo

import (
	Lp "github.com/maroda/livedemo/plugin"
)

func getMIDISystemInfo(outs []Lp.OutputAdapter, systemInfo *SystemInfo) {
	// If one of the outputs is MIDI, fill in the details
	for _, out := range outs {
		if midiOut, ok := out.(*Lp.MIDIOutput); ok {
			if midiOut.Port != nil {
				systemInfo.MIDIPort = midiOut.Port.String()
			}
			systemInfo.MIDIChannel = int(midiOut.Channel)
			systemInfo.MIDIRoot = int(midiOut.Root)
		}
	}
}
