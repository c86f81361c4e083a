package livedemo

import (
	"errors"
	"fmt"

	Lt "github.com/maroda/livedemo/types"
)

// ErrMissingValue is an upstream contract violation:
// a record that is neither a Reset nor a Label must carry a Value.
var ErrMissingValue = errors.New("update carries no value")

// Kind is the resolved discriminant of an Update
type Kind int

const (
	KindReset      Kind = iota // clears every series
	KindLabel                  // operator acknowledgement, no value
	KindPrediction             // detector fired, carries a value
	KindValue                  // plain sample
)

func (k Kind) String() string {
	switch k {
	case KindReset:
		return "reset"
	case KindLabel:
		return "label"
	case KindPrediction:
		return "prediction"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// Event is the tagged form of an Update.
// Value is only meaningful for KindPrediction and KindValue.
type Event struct {
	Kind  Kind
	Time  int64
	Value float64
}

// Resolve applies the precedence Reset > Label > Prediction/Value.
// Flags lower in the order are ignored once a higher one is set.
func Resolve(u *Lt.Update) (Event, error) {
	switch {
	case u.Reset:
		return Event{Kind: KindReset, Time: u.Time}, nil
	case u.Label:
		return Event{Kind: KindLabel, Time: u.Time}, nil
	}

	if u.Value == nil {
		return Event{}, fmt.Errorf("record at %d: %w", u.Time, ErrMissingValue)
	}

	kind := KindValue
	if u.Pred {
		kind = KindPrediction
	}
	return Event{Kind: kind, Time: u.Time, Value: *u.Value}, nil
}

// KindOf is Resolve without the value check, used for counting and routing
func KindOf(u *Lt.Update) Kind {
	switch {
	case u.Reset:
		return KindReset
	case u.Label:
		return KindLabel
	case u.Pred:
		return KindPrediction
	default:
		return KindValue
	}
}
