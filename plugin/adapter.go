package plugin

/*

	The Adapter sits aside /livedemo/
	Contains core interfaces for Plugin

*/

import (
	"errors"
	"time"

	Lt "github.com/maroda/livedemo/types"
)

// ErrNoOutput is returned for an output this build cannot provide
var ErrNoOutput = errors.New("output not available")

// MaxCueRoot is the highest MIDI root note, the Pred cue plays a fifth above it
const MaxCueRoot = 127 - 7

// ValueTransformer turns one raw polled reading into a sample.
// WholeBody transformers receive the entire response body as raw,
// the rest receive the value of the configured KV metric.
type ValueTransformer interface {
	Transform(raw string, timestamp time.Time) (float64, error)
	WholeBody() bool
	Type() string // Unique ID for the transformer
}

// OutputAdapter can be used to define a place for the updates to go,
// update-by-update or in batches if supported by the output type.
type OutputAdapter interface {
	WriteUpdate(u *Lt.Update) error                         // Write singleton update
	WriteBatch(us []*Lt.Update) error                       // Write batches of updates
	QueryRange(start, end time.Time) ([]*Lt.Update, error) // Time range query tool
	Flush() error                                           // Flush any buffered data
	Close() error                                           // Close the adapter and release resources
	Type() string                                           // ID for output
}

// inRange is the exclusive window check shared by QueryRange implementations
func inRange(u *Lt.Update, start, end time.Time) bool {
	t := time.UnixMilli(u.Time)
	return t.After(start) && t.Before(end)
}
