package xsg

import (
	"errors"
	"fmt"
	"strings"
)

// MissingFieldError reports a required header or data path that is absent,
// or present with a value of the wrong type.
type MissingFieldError struct {
	Path []string
	// Got describes the value found at Path when it had the wrong type.
	// Empty when the path was absent.
	Got string
}

func (e *MissingFieldError) Error() string {
	p := strings.Join(e.Path, ".")
	if e.Got != "" {
		return fmt.Sprintf("xsg: field %s has unexpected type %s", p, e.Got)
	}
	return fmt.Sprintf("xsg: missing field %s", p)
}

// DateFormatError reports a creation timestamp that does not match
// "DD-Mon-YYYY HH:MM:SS".
type DateFormatError struct {
	Text string
	Err  error
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("xsg: bad timestamp %q: %v", e.Text, e.Err)
}

func (e *DateFormatError) Unwrap() error { return e.Err }

// Stimulus reconstruction outcomes. None of these escape Build; they are
// reported to Options.OnStimulusSkipped and to the debug log.
var (
	ErrStimulatorNotArmed        = errors.New("xsg: stimulator not armed")
	ErrEphysStimulusOff          = errors.New("xsg: ephys stimulus off")
	ErrMultiChannelEphysStimulus = errors.New("xsg: multi-channel ephys stimulus not supported")
	ErrNoLiteralPulses           = errors.New("xsg: no literal pulses")
)

// PulseVectorError reports a positional pulse parameter vector that is too
// short to hold every square pulse field.
type PulseVectorError struct {
	Channel int
	Len     int
}

func (e *PulseVectorError) Error() string {
	return fmt.Sprintf("xsg: pulse parameters for channel %d have %d fields, need %d",
		e.Channel, e.Len, minPulseFields)
}

// WaveformLengthError reports a sample rate and trace length whose product
// is not a usable sample count.
type WaveformLengthError struct {
	SampleRate  float64
	TraceLength float64
}

func (e *WaveformLengthError) Error() string {
	return fmt.Sprintf("xsg: sample rate %v and trace length %v give no valid waveform length",
		e.SampleRate, e.TraceLength)
}

var (
	// ErrIncompatibleRecords is returned when two records cannot be stacked
	// along the trial axis.
	ErrIncompatibleRecords = errors.New("xsg: incompatible records")
	// ErrNoRecords is returned when merging an empty sequence.
	ErrNoRecords = errors.New("xsg: no records")
)

var errNotText = errors.New("not text")

func missing(path ...string) *MissingFieldError {
	return &MissingFieldError{Path: path}
}
