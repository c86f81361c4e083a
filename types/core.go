package types

/*

	These are the wire and series types of livedemo,
	provided for cross-package use (e.g. Plugins) and testing.

	There are no functions defined here.
	Behaviour that works on these types lives in /server/,
	for example the Plot adapter and the Event resolver.

*/

// Update is the streaming message exchanged over the websocket,
// the record file, and the badger store. Any combination of fields may be set,
// the server package resolves it into an Event before use.
type Update struct {
	Time  int64    // epoch milliseconds
	Reset bool     `json:",omitempty"`
	Value *float64 `json:",omitempty"`
	Label bool     `json:",omitempty"`
	Pred  bool     `json:",omitempty"`
}

// Point is one sample on a strip chart series
type Point struct {
	Time  int64   // epoch milliseconds
	Value float64 // raw value, or 0/1 for pulse series
}

// Interpolation is how a renderer joins consecutive points
type Interpolation int

const (
	Linear Interpolation = iota // continuous signal
	Step                        // held level, used for pulses
)

// SeriesID names one of the three plot series
type SeriesID int

const (
	ValueSeries SeriesID = iota // raw samples
	LabelSeries                 // operator acknowledgement pulses
	PredSeries                  // detector prediction pulses
)

// Band is the discrete colour band of the countdown fill
type Band int

const (
	BandLow  Band = iota // crimson, overlay shown
	BandMid              // goldenrod
	BandHigh             // seagreen
)
