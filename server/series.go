package livedemo

import (
	"sync"

	Lt "github.com/maroda/livedemo/types"
)

// PointSink is the append-only side of a rendering series
type PointSink interface {
	Append(p Lt.Point)
	Clear()
}

// Series is an in-memory strip chart line.
// MaxLen bounds retention, oldest points are dropped first; 0 is unbounded.
type Series struct {
	MU            sync.RWMutex
	ID            Lt.SeriesID
	Interpolation Lt.Interpolation
	MaxLen        int
	Points        []Lt.Point
}

// NewSeries creates an empty series
func NewSeries(id Lt.SeriesID, interp Lt.Interpolation, maxLen int) *Series {
	return &Series{
		ID:            id,
		Interpolation: interp,
		MaxLen:        maxLen,
		Points:        make([]Lt.Point, 0),
	}
}

func (s *Series) Append(p Lt.Point) {
	s.MU.Lock()
	defer s.MU.Unlock()

	s.Points = append(s.Points, p)
	if s.MaxLen > 0 && len(s.Points) > s.MaxLen {
		// shift down instead of reslicing so the backing array does not grow forever
		n := copy(s.Points, s.Points[len(s.Points)-s.MaxLen:])
		s.Points = s.Points[:n]
	}
}

func (s *Series) Clear() {
	s.MU.Lock()
	defer s.MU.Unlock()
	s.Points = s.Points[:0]
}

// Snapshot returns a copy of the current points
func (s *Series) Snapshot() []Lt.Point {
	s.MU.RLock()
	defer s.MU.RUnlock()

	out := make([]Lt.Point, len(s.Points))
	copy(out, s.Points)
	return out
}

// Since returns a copy of the points at or after t (epoch ms)
func (s *Series) Since(t int64) []Lt.Point {
	s.MU.RLock()
	defer s.MU.RUnlock()

	var out []Lt.Point
	for _, p := range s.Points {
		if p.Time >= t {
			out = append(out, p)
		}
	}
	return out
}

// Len is the number of retained points
func (s *Series) Len() int {
	s.MU.RLock()
	defer s.MU.RUnlock()
	return len(s.Points)
}

// Last returns the newest point, false if empty
func (s *Series) Last() (Lt.Point, bool) {
	s.MU.RLock()
	defer s.MU.RUnlock()

	if len(s.Points) == 0 {
		return Lt.Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// SeriesSet is the three series behind a Plot
type SeriesSet struct {
	Values *Series
	Labels *Series
	Preds  *Series
}

// NewSeriesSet builds the value (linear) and pulse (step) series
func NewSeriesSet(maxLen int) *SeriesSet {
	return &SeriesSet{
		Values: NewSeries(Lt.ValueSeries, Lt.Linear, maxLen),
		Labels: NewSeries(Lt.LabelSeries, Lt.Step, maxLen),
		Preds:  NewSeries(Lt.PredSeries, Lt.Step, maxLen),
	}
}

// Get looks up a series by ID
func (ss *SeriesSet) Get(id Lt.SeriesID) *Series {
	switch id {
	case Lt.ValueSeries:
		return ss.Values
	case Lt.LabelSeries:
		return ss.Labels
	case Lt.PredSeries:
		return ss.Preds
	default:
		return nil
	}
}
