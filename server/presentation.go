package livedemo

import (
	"math"
	"time"

	Lt "github.com/maroda/livedemo/types"
)

const (
	numBands       = 3
	overlayOpacity = 0.7
)

// Presentation is what a countdown view draws
type Presentation struct {
	Fraction       float64 // fill height, 0.0 - 1.0
	Band           Lt.Band
	Color          string
	OverlayOpacity float64 // player overlay, only shown in the low band
}

// Present maps remaining time to a Presentation
func Present(remaining, initial time.Duration) Presentation {
	frac := Fraction(remaining, initial)
	band := BandFor(frac)

	opacity := 0.0
	if band == Lt.BandLow {
		opacity = overlayOpacity
	}

	return Presentation{
		Fraction:       frac,
		Band:           band,
		Color:          BandColor(band),
		OverlayOpacity: opacity,
	}
}

// Fraction is remaining/initial clamped to 0.0 - 1.0
func Fraction(remaining, initial time.Duration) float64 {
	if initial <= 0 {
		return 0
	}
	frac := float64(remaining) / float64(initial)
	return math.Max(0, math.Min(frac, 1))
}

// BandFor splits the fraction into three equal bands.
// A full 1.0 belongs to the top band instead of overflowing.
func BandFor(frac float64) Lt.Band {
	idx := int(math.Trunc(numBands * frac))
	if idx >= numBands {
		idx = numBands - 1
	}
	if idx < 0 {
		idx = 0
	}
	return Lt.Band(idx)
}

func BandColor(b Lt.Band) string {
	switch b {
	case Lt.BandLow:
		return "crimson"
	case Lt.BandMid:
		return "goldenrod"
	case Lt.BandHigh:
		return "seagreen"
	default:
		return "unknown"
	}
}
