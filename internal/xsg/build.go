package xsg

import (
	"maps"

	"github.com/ginty-lab/ephus/internal/decode"
	"github.com/ginty-lab/ephus/internal/monitoring"
)

// StimulusSource names one of the independent stimulus reconstructions.
type StimulusSource string

const (
	SourceProgrammed StimulusSource = "programmed"
	SourceLiteral    StimulusSource = "literal"
	SourceEphys      StimulusSource = "ephys"
)

// Options controls record building.
type Options struct {
	// DefaultChannelLabel names the first acquired channel that has no
	// textual channel name.
	DefaultChannelLabel string
	// EphysStimulusLabel keys the ephys command waveform in Stimulator.
	EphysStimulusLabel string
	// LiteralPulseType is the pulse type whose signal is stored verbatim.
	LiteralPulseType string
	// OnStimulusSkipped, if set, is called for every stimulus source that
	// contributed nothing, with the reason.
	OnStimulusSkipped func(sourceName string, src StimulusSource, err error)
}

// DefaultOptions returns the labels used by Ephus.
func DefaultOptions() Options {
	return Options{
		DefaultChannelLabel: "chan0",
		EphysStimulusLabel:  "chan0",
		LiteralPulseType:    "Literal",
	}
}

// Builder turns decoded header and data values into records. It holds no
// per-call state and may be shared between goroutines.
type Builder struct {
	opts Options
}

// NewBuilder returns a Builder. Empty labels fall back to DefaultOptions.
func NewBuilder(opts Options) *Builder {
	def := DefaultOptions()
	if opts.DefaultChannelLabel == "" {
		opts.DefaultChannelLabel = def.DefaultChannelLabel
	}
	if opts.EphysStimulusLabel == "" {
		opts.EphysStimulusLabel = def.EphysStimulusLabel
	}
	if opts.LiteralPulseType == "" {
		opts.LiteralPulseType = def.LiteralPulseType
	}
	return &Builder{opts: opts}
}

// Options returns the options in effect.
func (b *Builder) Options() Options { return b.opts }

var defaultBuilder = NewBuilder(DefaultOptions())

// Build builds a record with DefaultOptions.
func Build(header, data decode.Value, sourceName string) (*Record, error) {
	return defaultBuilder.Build(header, data, sourceName)
}

// Build assembles the record of one acquisition. Missing metadata aborts
// the build; inactive subsystems and unrecoverable stimuli leave the
// corresponding field nil.
func (b *Builder) Build(header, data decode.Value, sourceName string) (*Record, error) {
	md, err := ReadMetadata(header)
	if err != nil {
		return nil, err
	}
	r := &Record{Metadata: md, SourceName: sourceName}

	acq, _ := decode.Lookup(data, "acquirer")
	r.Acquirer = groupChannels(acq, b.opts.DefaultChannelLabel)
	eph, _ := decode.Lookup(data, "ephys")
	r.Ephys = groupChannels(eph, b.opts.DefaultChannelLabel)

	stim := make(Channels)
	b.absorb(stim, sourceName, SourceProgrammed, func() (Channels, error) {
		return programmedPulses(header)
	})
	b.absorb(stim, sourceName, SourceLiteral, func() (Channels, error) {
		return literalPulses(header, b.opts.LiteralPulseType)
	})
	b.absorb(stim, sourceName, SourceEphys, func() (Channels, error) {
		return ephysCommand(header, b.opts.EphysStimulusLabel)
	})
	if len(stim) > 0 {
		r.Stimulator = stim
	}
	return r, nil
}

// absorb runs one stimulus reconstruction and copies its waveforms into
// dst. A failed reconstruction contributes nothing and is only reported.
func (b *Builder) absorb(dst Channels, sourceName string, src StimulusSource, step func() (Channels, error)) {
	got, err := step()
	if err != nil {
		monitoring.Debugf("xsg: %s: no %s stimulus: %v", sourceName, src, err)
		if b.opts.OnStimulusSkipped != nil {
			b.opts.OnStimulusSkipped(sourceName, src, err)
		}
		return
	}
	maps.Copy(dst, got)
}
