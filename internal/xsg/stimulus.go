package xsg

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/ginty-lab/ephus/internal/decode"
)

// SquarePulseTrain is a train of rectangular pulses. Time values are in
// samples; Amplitude and Offset are in output units.
type SquarePulseTrain struct {
	Delay     float64
	ISI       float64
	Width     float64
	Amplitude float64
	Offset    float64
	Count     int
}

// Render returns an n-sample waveform held at Offset, with samples
// [Delay+k*ISI, Delay+k*ISI+Width) set to Amplitude for k in [0, Count).
// Pulse edges are truncated to whole samples and clipped to the waveform.
func (p SquarePulseTrain) Render(n int) []float64 {
	w := make([]float64, max(n, 0))
	floats.AddConst(p.Offset, w)
	for k := 0; k < p.Count; k++ {
		if k > 0 && p.ISI == 0 {
			break
		}
		at := float64(k)*p.ISI + p.Delay
		// Later pulses only move further out of range.
		if math.IsNaN(at) || at >= float64(n) && p.ISI > 0 || at+p.Width < 0 && p.ISI < 0 {
			break
		}
		start := int(at)
		end := int(float64(start) + p.Width)
		start = max(start, 0)
		end = min(end, n)
		for i := start; i < end; i++ {
			w[i] = p.Amplitude
		}
	}
	return w
}

// pulseParams is a square pulse specification as stored in a header, with
// time values in seconds.
type pulseParams struct {
	delay     float64
	offset    float64
	amplitude float64
	isi       float64
	width     float64
	count     float64
}

func (p pulseParams) train(sampleRate float64) SquarePulseTrain {
	return SquarePulseTrain{
		Delay:     p.delay * sampleRate,
		ISI:       p.isi * sampleRate,
		Width:     p.width * sampleRate,
		Amplitude: p.amplitude,
		Offset:    p.offset,
		Count:     pulseCount(p.count),
	}
}

// Named pulse parameter fields.
const (
	fieldAmplitude = "amplitude"
	fieldOffset    = "offset"
	fieldCount     = "squarePulseTrainNumber"
	fieldISI       = "squarePulseTrainISI"
	fieldWidth     = "squarePulseTrainWidth"
	fieldDelay     = "squarePulseTrainDelay"
)

// Positions of the square pulse fields in a signal record of the
// multi-channel stimulator layout. Earlier positions hold the signal type,
// bookkeeping dates, gain, name and sample rate.
const (
	posAmplitude = 7
	posOffset    = 8
	posCount     = 9
	posISI       = 10
	posWidth     = 11
	posDelay     = 12

	minPulseFields = posDelay + 1
)

func namedPulse(v decode.Value, path ...string) (pulseParams, error) {
	if items := decode.Items(v); len(items) == 1 {
		v = items[0]
	}
	var (
		p   pulseParams
		err error
	)
	get := func(field string) float64 {
		if err != nil {
			return 0
		}
		var f float64
		f, err = requireFloat(v, field)
		if err != nil {
			err = prefixed(err, path)
		}
		return f
	}
	p.amplitude = get(fieldAmplitude)
	p.offset = get(fieldOffset)
	p.count = get(fieldCount)
	p.isi = get(fieldISI)
	p.width = get(fieldWidth)
	p.delay = get(fieldDelay)
	return p, err
}

// positionalPulse reads channel ch's parameters by position. The vector may
// be a field record (read in field order) or a list.
func positionalPulse(v decode.Value, ch int) (pulseParams, error) {
	var (
		at func(int) (decode.Value, bool)
		n  int
	)
	if m, ok := decode.AsMap(v); ok {
		at, n = m.At, m.Len()
	} else {
		items := decode.Items(v)
		n = len(items)
		at = func(i int) (decode.Value, bool) { return items[i], true }
	}
	if n < minPulseFields {
		return pulseParams{}, &PulseVectorError{Channel: ch, Len: n}
	}

	var p pulseParams
	for _, f := range []struct {
		pos int
		dst *float64
	}{
		{posAmplitude, &p.amplitude},
		{posOffset, &p.offset},
		{posCount, &p.count},
		{posISI, &p.isi},
		{posWidth, &p.width},
		{posDelay, &p.delay},
	} {
		x, _ := at(f.pos)
		val, ok := decode.AsFloat(x)
		if !ok {
			return pulseParams{}, &MissingFieldError{
				Path: []string{"pulseParameters", strconv.Itoa(ch), strconv.Itoa(f.pos)},
				Got:  decode.TypeName(x),
			}
		}
		*f.dst = val
	}
	return p, nil
}

// truthy reports whether a flag value is set. Only single values count;
// multi-element arrays are neither true nor false.
func truthy(v decode.Value) (on, ok bool) {
	items := decode.Items(v)
	if len(items) != 1 {
		return false, false
	}
	switch x := items[0].(type) {
	case decode.Text:
		return x != "", true
	default:
		f, ok := decode.AsFloat(x)
		return ok && f != 0, ok
	}
}

// pulseCount converts a stored pulse count, treating nonsense as no pulses.
func pulseCount(c float64) int {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	return int(min(c, maxWaveformSamples))
}

// maxWaveformSamples bounds a reconstructed waveform (2 GiB of samples).
const maxWaveformSamples = 1 << 28

// waveformLength is the number of samples in a programmed trace.
func waveformLength(sampleRate, traceLength float64) (int, error) {
	n := math.Round(sampleRate * traceLength)
	if math.IsNaN(n) || n < 0 || n > maxWaveformSamples {
		return 0, &WaveformLengthError{SampleRate: sampleRate, TraceLength: traceLength}
	}
	return int(n), nil
}

var stimulatorPath = []string{"stimulator", "stimulator"}

// armedStimulator returns the stimulator settings if the stimulator was
// started for this acquisition.
func armedStimulator(header decode.Value) (*decode.Map, error) {
	stim, err := requireMap(header, stimulatorPath...)
	if err != nil {
		return nil, err
	}
	flag, ok := stim.Get("startButton")
	if !ok {
		return nil, missing("stimulator", "stimulator", "startButton")
	}
	if on, _ := truthy(flag); !on {
		return nil, ErrStimulatorNotArmed
	}
	return stim, nil
}

// programmedPulses reconstructs the square pulse trains of an armed
// stimulator.
func programmedPulses(header decode.Value) (Channels, error) {
	stim, err := armedStimulator(header)
	if err != nil {
		return nil, err
	}
	sr, err := requireFloat(stim, "sampleRate")
	if err != nil {
		return nil, prefixed(err, stimulatorPath)
	}
	tl, err := requireFloat(stim, "traceLength")
	if err != nil {
		return nil, prefixed(err, stimulatorPath)
	}
	n, err := waveformLength(sr, tl)
	if err != nil {
		return nil, err
	}

	params, ok := stim.Get("pulseParameters")
	if !ok {
		return nil, missing("stimulator", "stimulator", "pulseParameters")
	}
	names, ok := decode.Lookup(stim, "channels", "channelName")
	if !ok {
		return nil, missing("stimulator", "stimulator", "channels", "channelName")
	}

	list, _ := stim.Get("channelList")
	count, multi := channelCount(list)
	if !multi {
		p, err := namedPulse(params, "stimulator", "stimulator", "pulseParameters")
		if err != nil {
			return nil, err
		}
		name, err := channelName(names, 0)
		if err != nil {
			return nil, err
		}
		return Channels{name: p.train(sr).Render(n)}, nil
	}

	flags, ok := stim.Get("stimOnArray")
	if !ok {
		return nil, missing("stimulator", "stimulator", "stimOnArray")
	}
	on := decode.Items(flags)
	vectors := decode.Items(params)
	out := make(Channels)
	for ch := 0; ch < count && ch < len(on); ch++ {
		if set, _ := truthy(on[ch]); !set {
			continue
		}
		if ch >= len(vectors) {
			return nil, &PulseVectorError{Channel: ch, Len: 0}
		}
		p, err := positionalPulse(vectors[ch], ch)
		if err != nil {
			return nil, err
		}
		name, err := channelName(names, ch)
		if err != nil {
			return nil, err
		}
		out[name] = p.train(sr).Render(n)
	}
	return out, nil
}

// channelCount interprets channelList. The multi-channel layout is used
// when it is a number greater than one or holds more than one entry.
func channelCount(v decode.Value) (int, bool) {
	if items := decode.Items(v); len(items) > 1 {
		return len(items), true
	}
	n, ok := decode.AsInt(v)
	return n, ok && n > 1
}

func channelName(names decode.Value, ch int) (string, error) {
	items := decode.Items(names)
	if ch >= len(items) {
		return "", missing("stimulator", "stimulator", "channels", "channelName", strconv.Itoa(ch))
	}
	name, ok := decode.AsText(items[ch])
	if !ok || name == "" {
		return "", &MissingFieldError{
			Path: []string{"stimulator", "stimulator", "channels", "channelName", strconv.Itoa(ch)},
			Got:  decode.TypeName(items[ch]),
		}
	}
	return name, nil
}

// literalPulses collects the stored signals of every pulse whose type is
// literalType, keyed by pulse name.
func literalPulses(header decode.Value, literalType string) (Channels, error) {
	stim, err := armedStimulator(header)
	if err != nil {
		return nil, err
	}
	namesV, ok := stim.Get("pulseNameArray")
	if !ok {
		return nil, missing("stimulator", "stimulator", "pulseNameArray")
	}
	paramsV, ok := stim.Get("pulseParameters")
	if !ok {
		return nil, missing("stimulator", "stimulator", "pulseParameters")
	}
	names := decode.Items(namesV)
	params := decode.Items(paramsV)

	out := make(Channels)
	for i, nv := range names {
		if i >= len(params) {
			break
		}
		typ, _ := decode.Lookup(params[i], "type")
		if t, _ := decode.AsText(typ); t != literalType {
			continue
		}
		name, ok := decode.AsText(nv)
		if !ok {
			return nil, &MissingFieldError{
				Path: []string{"stimulator", "stimulator", "pulseNameArray", strconv.Itoa(i)},
				Got:  decode.TypeName(nv),
			}
		}
		sig, ok := decode.Lookup(params[i], "signal")
		if !ok {
			return nil, missing("stimulator", "stimulator", "pulseParameters", strconv.Itoa(i), "signal")
		}
		samples, ok := decode.AsFloats(sig)
		if !ok {
			return nil, &MissingFieldError{
				Path: []string{"stimulator", "stimulator", "pulseParameters", strconv.Itoa(i), "signal"},
				Got:  decode.TypeName(sig),
			}
		}
		out[name] = samples
	}
	if len(out) == 0 {
		return nil, ErrNoLiteralPulses
	}
	return out, nil
}

var ephysPath = []string{"ephys", "ephys"}

// ephysCommand reconstructs the square pulse command sent by the ephys
// program to the amplifier. Only a single ephys channel is supported.
func ephysCommand(header decode.Value, label string) (Channels, error) {
	eph, err := requireMap(header, ephysPath...)
	if err != nil {
		return nil, err
	}
	flag, ok := eph.Get("stimOnArray")
	if !ok {
		return nil, missing("ephys", "ephys", "stimOnArray")
	}
	if len(decode.Items(flag)) > 1 {
		return nil, ErrMultiChannelEphysStimulus
	}
	if on, _ := truthy(flag); !on {
		return nil, ErrEphysStimulusOff
	}

	sr, err := requireFloat(eph, "sampleRate")
	if err != nil {
		return nil, prefixed(err, ephysPath)
	}
	tl, err := requireFloat(eph, "traceLength")
	if err != nil {
		return nil, prefixed(err, ephysPath)
	}
	params, ok := eph.Get("pulseParameters")
	if !ok {
		return nil, missing("ephys", "ephys", "pulseParameters")
	}
	p, err := namedPulse(params, "ephys", "ephys", "pulseParameters")
	if err != nil {
		return nil, err
	}
	n, err := waveformLength(sr, tl)
	if err != nil {
		return nil, err
	}
	return Channels{label: p.train(sr).Render(n)}, nil
}

// prefixed extends the path of a *MissingFieldError relative to base.
func prefixed(err error, base []string) error {
	mf, ok := err.(*MissingFieldError)
	if !ok {
		return err
	}
	path := append(append([]string(nil), base...), mf.Path...)
	return &MissingFieldError{Path: path, Got: mf.Got}
}
