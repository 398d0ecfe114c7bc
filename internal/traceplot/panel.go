// Package traceplot renders acquisition traces, either as static PNG
// images (gonum/plot) or as an interactive HTML page (go-echarts).
package traceplot

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ginty-lab/ephus/internal/xsg"
)

// Series is one line of a panel.
type Series struct {
	Name    string
	Samples []float64
}

// Panel is one plot: several series sharing a time axis.
type Panel struct {
	Title   string
	Series  []Series
	Trials  int
	Channel string
}

type subsystem struct {
	name     string
	channels xsg.Channels
	merged   xsg.Subsystem
}

func recordSubsystems(r *xsg.Record) []subsystem {
	return []subsystem{
		{name: "acquirer", channels: r.Acquirer},
		{name: "ephys", channels: r.Ephys},
		{name: "stimulator", channels: r.Stimulator},
	}
}

func mergedSubsystems(m *xsg.MergedRecord) []subsystem {
	return []subsystem{
		{name: "acquirer", merged: m.Acquirer},
		{name: "ephys", merged: m.Ephys},
		{name: "stimulator", merged: m.Stimulator},
	}
}

// FromRecord returns one panel per active subsystem of r, with one series
// per channel.
func FromRecord(r *xsg.Record) []Panel {
	var panels []Panel
	for _, s := range recordSubsystems(r) {
		if len(s.channels) == 0 {
			continue
		}
		p := Panel{Title: s.name, Trials: 1}
		for _, name := range s.channels.Names() {
			p.Series = append(p.Series, Series{Name: name, Samples: s.channels[name]})
		}
		panels = append(panels, p)
	}
	return panels
}

// FromMerged returns one panel per channel of m, with one series per trial.
// Stacked channels get an extra "mean" series, the average across trials.
func FromMerged(m *xsg.MergedRecord) []Panel {
	var panels []Panel
	for _, s := range mergedSubsystems(m) {
		for _, ch := range s.merged.Names() {
			p := Panel{Title: s.name + "/" + ch, Channel: ch, Trials: m.Len()}
			for trial := 0; trial < m.Len(); trial++ {
				samples, ok := s.merged.Trace(ch, trial)
				if !ok {
					continue
				}
				p.Series = append(p.Series, Series{Name: fmt.Sprintf("trial %d", trial+1), Samples: samples})
			}
			if d, ok := s.merged.Trials[ch]; ok {
				p.Series = append(p.Series, Series{Name: "mean", Samples: trialMean(d)})
			}
			panels = append(panels, p)
		}
	}
	return panels
}

// trialMean averages a samples × trials matrix across trials.
func trialMean(d *mat.Dense) []float64 {
	rows, cols := d.Dims()
	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := range out {
		mat.Row(row, i, d)
		out[i] = floats.Sum(row) / float64(cols)
	}
	return out
}

// RecordSampleRate returns the sample rate used for time axes.
func RecordSampleRate(r *xsg.Record) float64 {
	return rateOrOne(r.SampleRate)
}

// MergedSampleRate returns the sample rate of the first trial of m.
func MergedSampleRate(m *xsg.MergedRecord) float64 {
	if len(m.SampleRates) == 0 {
		return 1
	}
	return rateOrOne(m.SampleRates[0])
}

func rateOrOne(sr int) float64 {
	if sr <= 0 {
		return 1
	}
	return float64(sr)
}
