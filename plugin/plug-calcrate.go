package plugin

/*
	KV and CalcRate

	KV reads the polled value as a float unchanged.
	CalcRate turns a monotonically increasing counter into a per-second rate.

	~~~ Plugin Reference Implementation ~~~
*/

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type KVPlugin struct{}

func (p *KVPlugin) Transform(raw string, timestamp time.Time) (float64, error) {
	return parseSample(raw)
}

func (p *KVPlugin) WholeBody() bool { return false }
func (p *KVPlugin) Type() string    { return "kv" }

type CalcRatePlugin struct {
	seen     bool
	PrevVal  float64
	PrevTime time.Time
}

// Transform returns 0 for the first reading, there is nothing to compare yet
func (p *CalcRatePlugin) Transform(raw string, timestamp time.Time) (float64, error) {
	current, err := parseSample(raw)
	if err != nil {
		return 0, err
	}

	rate := 0.0
	if p.seen {
		rate = CalcRate(current, p.PrevVal, timestamp, p.PrevTime)
	}
	p.seen = true
	p.PrevVal = current
	p.PrevTime = timestamp
	return rate, nil
}

// CalcRate is a generic rate calculator that
// receives two sequential readings and their timestamps
// and returns the rate per second
func CalcRate(curr, prev float64, currtime, prevtime time.Time) float64 {
	delta := curr - prev
	timeDelta := currtime.Sub(prevtime).Seconds()
	if timeDelta <= 0 {
		return 0
	}

	// Handle counter reset (to 0)
	if delta < 0 {
		delta = curr
	}

	return delta / timeDelta
}

func (p *CalcRatePlugin) WholeBody() bool { return false }
func (p *CalcRatePlugin) Type() string    { return "calc_rate" }

func parseSample(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("sample is not numeric: %w", err)
	}
	return v, nil
}
