package testutil

import (
	"github.com/ginty-lab/ephus/internal/node"
)

// Header describes the required metadata of a synthetic XSG header.
type Header struct {
	SampleRate        float64
	Epoch             float64
	AcquisitionNumber string
	ExperimentNumber  string
	Timestamp         string
}

// DefaultHeader returns metadata for a 10 kHz acquisition in epoch 3.
func DefaultHeader() Header {
	return Header{
		SampleRate:        10000,
		Epoch:             3,
		AcquisitionNumber: "0001",
		ExperimentNumber:  "AA0001",
		Timestamp:         "04-Mar-2011 12:01:02",
	}
}

// Node builds the header record. Extra fields (typically Program entries
// for the stimulator and ephys programs) are appended at the top level.
func (h Header) Node(extra ...node.Field) *node.Record {
	fields := []node.Field{
		Program("acquirer", node.F("sampleRate", node.Number(h.SampleRate))),
		Program("xsg",
			node.F("epoch", node.Number(h.Epoch)),
			node.F("acquisitionNumber", node.Text(h.AcquisitionNumber)),
			node.F("experimentNumber", node.Text(h.ExperimentNumber)),
		),
		node.F("xsgFileCreationTimestamp", node.Text(h.Timestamp)),
	}
	return node.NewRecord(append(fields, extra...)...)
}

// Program builds the doubly nested program entry used by XSG headers,
// header.<name>.<name>.<fields>.
func Program(name string, fields ...node.Field) node.Field {
	return node.F(name, node.NewRecord(node.F(name, node.NewRecord(fields...))))
}

// SquarePulse holds square pulse train parameters in seconds (time values)
// and output units (amplitude, offset).
type SquarePulse struct {
	Delay     float64
	Offset    float64
	Amplitude float64
	ISI       float64
	Width     float64
	Count     float64
}

// Named builds the named-field pulse parameter record.
func (p SquarePulse) Named() *node.Record {
	return node.NewRecord(
		node.F("amplitude", node.Number(p.Amplitude)),
		node.F("offset", node.Number(p.Offset)),
		node.F("squarePulseTrainNumber", node.Number(p.Count)),
		node.F("squarePulseTrainISI", node.Number(p.ISI)),
		node.F("squarePulseTrainWidth", node.Number(p.Width)),
		node.F("squarePulseTrainDelay", node.Number(p.Delay)),
	)
}

// Positional builds the 13-field signal record whose parameters are read
// by position in the multi-channel stimulator layout.
func (p SquarePulse) Positional(name string) *node.Record {
	return node.NewRecord(
		node.F("type", node.Text("squarePulseTrain")),
		node.F("creationTime", node.Text("04-Mar-2011 11:00:00")),
		node.F("modifiedTime", node.Text("04-Mar-2011 11:00:00")),
		node.F("savedTime", node.Text("04-Mar-2011 11:00:00")),
		node.F("gain", node.Number(1)),
		node.F("name", node.Text(name)),
		node.F("sampleRate", node.Number(10000)),
		node.F("amplitude", node.Number(p.Amplitude)),
		node.F("offset", node.Number(p.Offset)),
		node.F("squarePulseTrainNumber", node.Number(p.Count)),
		node.F("squarePulseTrainISI", node.Number(p.ISI)),
		node.F("squarePulseTrainWidth", node.Number(p.Width)),
		node.F("squarePulseTrainDelay", node.Number(p.Delay)),
	)
}

// LiteralPulse builds a pulse record that stores its signal verbatim.
func LiteralPulse(signal ...float64) *node.Record {
	return node.NewRecord(
		node.F("type", node.Text("Literal")),
		node.F("signal", node.Wrap(node.Floats(signal...))),
	)
}

// Channel is one acquired channel in a program's data section.
type Channel struct {
	Suffix string
	Name   node.Node
	Trace  []float64
}

// Data builds a program data section holding channelName_<suffix> and
// trace_<suffix> pairs.
func Data(program string, channels ...Channel) node.Field {
	var fields []node.Field
	for _, c := range channels {
		if c.Name != nil {
			fields = append(fields, node.F("channelName_"+c.Suffix, c.Name))
		}
		if c.Trace != nil {
			fields = append(fields, node.F("trace_"+c.Suffix, node.Floats(c.Trace...)))
		}
	}
	return node.F(program, node.NewRecord(fields...))
}

// Ramp returns n samples 0, 1, ..., n-1 offset by start.
func Ramp(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}
