// Package xsg reads Ephus XSG acquisition files into experiment records and
// stacks repeated acquisitions of one condition along a trial axis.
//
// A file holds two top-level variables. "header" carries the settings of
// every Ephus program (acquirer, ephys, stimulator, xsg); "data" carries the
// recorded traces of the acquirer and ephys programs as flat
// channelName_<n> / trace_<n> pairs. Stimulus waveforms are not stored for
// square pulse trains, so Build reconstructs them from the header.
package xsg

import (
	"strconv"
	"strings"
	"time"

	"github.com/ginty-lab/ephus/internal/decode"
)

// TimestampLayout is the layout of xsgFileCreationTimestamp, e.g.
// "04-Mar-2011 12:01:02".
const TimestampLayout = "2-Jan-2006 15:04:05"

// Channels maps a channel name to its samples.
type Channels map[string][]float64

// Names returns the channel names in sorted order.
func (c Channels) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sortNatural(names)
	return names
}

// Clone returns a deep copy. A nil map stays nil.
func (c Channels) Clone() Channels {
	if c == nil {
		return nil
	}
	out := make(Channels, len(c))
	for name, samples := range c {
		out[name] = append([]float64(nil), samples...)
	}
	return out
}

// Metadata holds the scalar fields read from an XSG header.
type Metadata struct {
	SampleRate        int
	Epoch             int
	AcquisitionNumber string
	ExperimentNumber  string
	Timestamp         time.Time
	TimestampRaw      string
}

// Record is one parsed acquisition. A nil subsystem was inactive for the
// acquisition; a nil Stimulator means no stimulus waveform could be
// recovered.
type Record struct {
	Metadata
	SourceName string

	Acquirer   Channels
	Ephys      Channels
	Stimulator Channels
}

// Header paths of the required metadata fields.
var (
	pathSampleRate        = []string{"acquirer", "acquirer", "sampleRate"}
	pathEpoch             = []string{"xsg", "xsg", "epoch"}
	pathAcquisitionNumber = []string{"xsg", "xsg", "acquisitionNumber"}
	pathExperimentNumber  = []string{"xsg", "xsg", "experimentNumber"}
	pathTimestamp         = []string{"xsgFileCreationTimestamp"}
)

// ReadMetadata extracts the required metadata from a decoded header. Absent
// fields are reported as *MissingFieldError and an unparseable timestamp as
// *DateFormatError; nothing is defaulted.
func ReadMetadata(header decode.Value) (Metadata, error) {
	var md Metadata

	sr, err := requireFloat(header, pathSampleRate...)
	if err != nil {
		return md, err
	}
	epoch, err := requireFloat(header, pathEpoch...)
	if err != nil {
		return md, err
	}
	acq, err := requireIdent(header, pathAcquisitionNumber...)
	if err != nil {
		return md, err
	}
	exp, err := requireIdent(header, pathExperimentNumber...)
	if err != nil {
		return md, err
	}
	v, err := requirePath(header, pathTimestamp...)
	if err != nil {
		return md, err
	}
	raw, ok := decode.AsText(v)
	if !ok {
		return md, &DateFormatError{Text: decode.TypeName(v), Err: errNotText}
	}
	ts, err := ParseTimestamp(raw)
	if err != nil {
		return md, err
	}

	md.SampleRate = int(sr)
	md.Epoch = int(epoch)
	md.AcquisitionNumber = acq
	md.ExperimentNumber = exp
	md.Timestamp = ts
	md.TimestampRaw = raw
	return md, nil
}

// ParseTimestamp parses "DD-Mon-YYYY HH:MM:SS" text.
func ParseTimestamp(text string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, &DateFormatError{Text: text, Err: err}
	}
	return t, nil
}

func requirePath(v decode.Value, path ...string) (decode.Value, error) {
	got, ok := decode.Lookup(v, path...)
	if !ok {
		return nil, missing(path...)
	}
	return got, nil
}

func requireMap(v decode.Value, path ...string) (*decode.Map, error) {
	got, err := requirePath(v, path...)
	if err != nil {
		return nil, err
	}
	m, ok := decode.AsMap(got)
	if !ok {
		return nil, &MissingFieldError{Path: path, Got: decode.TypeName(got)}
	}
	return m, nil
}

func requireFloat(v decode.Value, path ...string) (float64, error) {
	got, err := requirePath(v, path...)
	if err != nil {
		return 0, err
	}
	f, ok := decode.AsFloat(got)
	if !ok {
		return 0, &MissingFieldError{Path: path, Got: decode.TypeName(got)}
	}
	return f, nil
}

// requireIdent reads an identifier stored either as text or as a number.
func requireIdent(v decode.Value, path ...string) (string, error) {
	got, err := requirePath(v, path...)
	if err != nil {
		return "", err
	}
	if s, ok := decode.AsText(got); ok {
		return strings.TrimSpace(s), nil
	}
	if f, ok := decode.AsFloat(got); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return "", &MissingFieldError{Path: path, Got: decode.TypeName(got)}
}
