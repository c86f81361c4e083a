package livedemo

import "fmt"

// SlidingWindow keeps the last Size values in a ring,
// optionally tracking their mean and sample variance
type SlidingWindow struct {
	size       int
	trackStats bool
	values     []float64
	i          int
	n          int
	mean       float64
	variance   float64
}

func NewSlidingWindow(size int, trackStats bool) *SlidingWindow {
	return &SlidingWindow{
		size:       size,
		trackStats: trackStats,
		values:     make([]float64, size),
	}
}

// Size is how many values are held, up to the window size
func (s *SlidingWindow) Size() int { return s.n }

func (s *SlidingWindow) Full() bool { return s.n == s.size }

func (s *SlidingWindow) Mean() float64 { return s.mean }

func (s *SlidingWindow) Variance() float64 { return s.variance }

// Get indexes backwards from the newest value: 0 is newest, -1 the one before
func (s *SlidingWindow) Get(i int) float64 {
	if i > 0 || i <= -s.n {
		panic(fmt.Sprintf("sliding window index %d out of range, holding %d", i, s.n))
	}
	return s.values[(s.i+i+s.size)%s.size]
}

func (s *SlidingWindow) Push(value float64) {
	s.i = (s.i + 1) % s.size

	if !s.trackStats {
		if !s.Full() {
			s.n++
		}
		s.values[s.i] = value
		return
	}

	oldMean := s.mean
	if !s.Full() {
		// Welford's algorithm, variance is the running sum of squares until full
		s.n++
		s.mean += (value - s.mean) / float64(s.n)
		s.variance += (value - s.mean) * (value - oldMean)
		if s.Full() && s.n > 1 {
			s.variance /= float64(s.n - 1)
		}
	} else {
		// https://jonisalonen.com/2014/efficient-and-accurate-rolling-standard-deviation/
		// the slot at s.i still holds the value falling out of the window
		oldValue := s.values[s.i]
		s.mean += (value - oldValue) / float64(s.n)
		if s.n > 1 {
			s.variance += (value - oldValue) * (value - s.mean + oldValue - oldMean) / float64(s.n-1)
		}
	}
	s.values[s.i] = value
}
