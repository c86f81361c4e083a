package livedemo

import (
	"math"
)

const (
	smoothedWindowSize = 5  // 50ms at 100Hz
	trailingWindowSize = 20 // 200ms
	numWindows         = 3

	predMinVariance     = 5.0
	predMinMeanLogRatio = 0.01
	predMaxQuietVar     = 1.0
)

// StreamStats detects a flex in a stream of raw samples.
// A prediction needs a noisy present after a quiet past,
// with the smoothed level risen above where the stream started.
type StreamStats struct {
	// Computed over a sliding window of raw values.
	rawStats *SlidingWindow
	// Computed over a sliding window of smoothed values.
	smoothedStats *SlidingWindow
	// Means from smoothedStats.
	means *SlidingWindow
	// Variances from smoothedStats.
	variances *SlidingWindow
	// The first value added to means.
	initialMean float64
	// Current-vs-initial mean log ratios.
	meanLogRatios *SlidingWindow
}

func NewStreamStats() *StreamStats {
	return &StreamStats{
		rawStats:      NewSlidingWindow(smoothedWindowSize, true),
		smoothedStats: NewSlidingWindow(trailingWindowSize, true),
		means:         NewSlidingWindow(1, false),
		variances:     NewSlidingWindow(numWindows*trailingWindowSize+1, false),
		meanLogRatios: NewSlidingWindow(1, false),
	}
}

// Full reports whether enough samples have arrived to predict
func (s *StreamStats) Full() bool {
	return s.rawStats.Full() && s.smoothedStats.Full() && s.means.Full() &&
		s.variances.Full() && s.meanLogRatios.Full()
}

func (s *StreamStats) Push(value float64) {
	s.rawStats.Push(value)
	if !s.rawStats.Full() {
		return
	}
	s.smoothedStats.Push(s.rawStats.Mean())
	if !s.smoothedStats.Full() {
		return
	}
	if s.means.Size() == 0 {
		s.initialMean = s.smoothedStats.Mean()
	}
	s.means.Push(s.smoothedStats.Mean())
	s.variances.Push(s.smoothedStats.Variance())
	s.meanLogRatios.Push(math.Log(s.smoothedStats.Mean()) - math.Log(s.initialMean))
}

// Pred is only meaningful once Full, it is false before that
func (s *StreamStats) Pred() bool {
	if !s.Full() {
		return false
	}

	ratio := s.meanLogRatios.Get(0)
	if math.IsNaN(ratio) || s.variances.Get(0) < predMinVariance || ratio < predMinMeanLogRatio {
		return false
	}
	for i := 0; i < numWindows; i++ {
		if s.variances.Get(-(i+1)*trailingWindowSize) > predMaxQuietVar {
			return false
		}
	}
	return true
}
