package livedemo

import (
	"fmt"

	Lt "github.com/maroda/livedemo/types"
)

// PulseEpsilon is the gap in milliseconds between a pulse edge and its anchor
const PulseEpsilon int64 = 1

// Plot turns event records into appends on three sinks.
// It holds no state of its own, everything lives in the sinks.
type Plot struct {
	Values PointSink
	Labels PointSink
	Preds  PointSink
}

// NewPlot wires a Plot onto the given sinks
func NewPlot(values, labels, preds PointSink) *Plot {
	return &Plot{
		Values: values,
		Labels: labels,
		Preds:  preds,
	}
}

// NewPlotOnSet wires a Plot onto a SeriesSet
func NewPlotOnSet(ss *SeriesSet) *Plot {
	return NewPlot(ss.Values, ss.Labels, ss.Preds)
}

// HandleUpdate consumes one decoded message.
// A record that reaches the value series without a Value panics,
// plotting a missing value would corrupt the chart.
func (p *Plot) HandleUpdate(u *Lt.Update) {
	ev, err := Resolve(u)
	if err != nil {
		panic(fmt.Sprintf("plot: %v", err))
	}
	p.Handle(ev)
}

// Handle applies one resolved event
func (p *Plot) Handle(ev Event) {
	if ev.Kind == KindReset {
		p.Values.Clear()
		p.Labels.Clear()
		p.Preds.Clear()
		return
	}

	// Anchor both pulse lines at zero just before the event,
	// so a step line rises at the instant instead of ramping.
	anchor := Lt.Point{Time: ev.Time - PulseEpsilon, Value: 0}
	p.Labels.Append(anchor)
	p.Preds.Append(anchor)

	if ev.Kind == KindLabel {
		pulse(p.Labels, ev.Time)
		return
	}

	if ev.Kind == KindPrediction {
		pulse(p.Preds, ev.Time)
	}

	p.Values.Append(Lt.Point{Time: ev.Time, Value: ev.Value})
}

// pulse appends a self-closing rise and fall
func pulse(s PointSink, t int64) {
	s.Append(Lt.Point{Time: t, Value: 1})
	s.Append(Lt.Point{Time: t + PulseEpsilon, Value: 0})
}
