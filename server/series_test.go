package livedemo_test

import (
	"testing"

	Ls "github.com/maroda/livedemo/server"
	Lt "github.com/maroda/livedemo/types"
)

func TestSeries(t *testing.T) {
	t.Run("keeps only the newest MaxLen points", func(t *testing.T) {
		s := Ls.NewSeries(Lt.ValueSeries, Lt.Linear, 3)
		for i := int64(1); i <= 5; i++ {
			s.Append(Lt.Point{Time: i, Value: float64(i)})
		}
		pts := s.Snapshot()
		assertInt(t, len(pts), 3)
		assertInt64(t, pts[0].Time, 3)
		assertInt64(t, pts[2].Time, 5)
	})

	t.Run("zero MaxLen is unbounded", func(t *testing.T) {
		s := Ls.NewSeries(Lt.ValueSeries, Lt.Linear, 0)
		for i := int64(0); i < 100; i++ {
			s.Append(Lt.Point{Time: i})
		}
		assertInt(t, s.Len(), 100)
	})

	t.Run("Since filters by time", func(t *testing.T) {
		s := Ls.NewSeries(Lt.LabelSeries, Lt.Step, 0)
		for _, ts := range []int64{10, 20, 30} {
			s.Append(Lt.Point{Time: ts, Value: 1})
		}
		assertInt(t, len(s.Since(20)), 2)
		assertInt(t, len(s.Since(31)), 0)
	})

	t.Run("Last and Clear", func(t *testing.T) {
		s := Ls.NewSeries(Lt.PredSeries, Lt.Step, 0)
		_, ok := s.Last()
		assertBool(t, ok, false)

		s.Append(Lt.Point{Time: 7, Value: 1})
		p, ok := s.Last()
		assertBool(t, ok, true)
		assertInt64(t, p.Time, 7)

		s.Clear()
		assertInt(t, s.Len(), 0)
	})

	t.Run("Snapshot is a copy", func(t *testing.T) {
		s := Ls.NewSeries(Lt.ValueSeries, Lt.Linear, 0)
		s.Append(Lt.Point{Time: 1, Value: 1})
		snap := s.Snapshot()
		snap[0].Value = 99
		p, _ := s.Last()
		assertFloat(t, p.Value, 1)
	})
}

func TestSeriesSet(t *testing.T) {
	ss := Ls.NewSeriesSet(10)
	if ss.Get(Lt.ValueSeries).Interpolation != Lt.Linear {
		t.Error("values should be linear")
	}
	if ss.Get(Lt.LabelSeries).Interpolation != Lt.Step || ss.Get(Lt.PredSeries).Interpolation != Lt.Step {
		t.Error("pulses should be step")
	}
	if ss.Get(Lt.SeriesID(9)) != nil {
		t.Error("unknown series should be nil")
	}
}
