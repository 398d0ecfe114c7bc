package xsg

import (
	"fmt"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Subsystem holds one program's channels across the trials of a merged
// record. Channels that could be stacked are held in Trials as samples ×
// trials matrices. A subsystem that was inactive in any source, or whose
// traces are empty, is kept per source in PerSource instead, with one
// (possibly nil) entry per trial.
type Subsystem struct {
	Trials    map[string]*mat.Dense
	PerSource []Channels
}

// Stacked reports whether the channels are held as trial matrices.
func (s Subsystem) Stacked() bool { return s.Trials != nil }

// Names returns the channel names of the subsystem. For a per-source
// subsystem these are the names seen in any trial.
func (s Subsystem) Names() []string {
	if s.Stacked() {
		names := make([]string, 0, len(s.Trials))
		for name := range s.Trials {
			names = append(names, name)
		}
		sortNatural(names)
		return names
	}
	all := make(Channels)
	for _, c := range s.PerSource {
		for name := range c {
			all[name] = nil
		}
	}
	return all.Names()
}

// Trace returns the samples of channel in the given trial.
func (s Subsystem) Trace(channel string, trial int) ([]float64, bool) {
	if s.Stacked() {
		d, ok := s.Trials[channel]
		if !ok {
			return nil, false
		}
		if _, c := d.Dims(); trial < 0 || trial >= c {
			return nil, false
		}
		return mat.Col(nil, trial, d), true
	}
	if trial < 0 || trial >= len(s.PerSource) {
		return nil, false
	}
	samples, ok := s.PerSource[trial][channel]
	return samples, ok
}

func (s Subsystem) clone() Subsystem {
	var out Subsystem
	if s.Trials != nil {
		out.Trials = make(map[string]*mat.Dense, len(s.Trials))
		for name, d := range s.Trials {
			out.Trials[name] = mat.DenseCopyOf(d)
		}
	}
	if s.PerSource != nil {
		out.PerSource = make([]Channels, len(s.PerSource))
		for i, c := range s.PerSource {
			out.PerSource[i] = c.Clone()
		}
	}
	return out
}

// perSource splits a subsystem spanning n trials into one channel map per
// trial.
func (s Subsystem) perSource(n int) []Channels {
	if !s.Stacked() {
		return s.PerSource
	}
	out := make([]Channels, n)
	for j := range out {
		c := make(Channels, len(s.Trials))
		for name, d := range s.Trials {
			c[name] = mat.Col(nil, j, d)
		}
		out[j] = c
	}
	return out
}

// MergedRecord aggregates repeated acquisitions. Entry i of every metadata
// slice, and trial i of every subsystem, come from the i-th merged record.
type MergedRecord struct {
	SampleRates        []int
	Epochs             []int
	AcquisitionNumbers []string
	ExperimentNumbers  []string
	Timestamps         []time.Time
	TimestampsRaw      []string
	SourceNames        []string

	Acquirer   Subsystem
	Ephys      Subsystem
	Stimulator Subsystem
}

// Len returns the number of merged trials.
func (m *MergedRecord) Len() int { return len(m.SourceNames) }

// Metadata returns the metadata of trial i.
func (m *MergedRecord) Metadata(i int) Metadata {
	return Metadata{
		SampleRate:        m.SampleRates[i],
		Epoch:             m.Epochs[i],
		AcquisitionNumber: m.AcquisitionNumbers[i],
		ExperimentNumber:  m.ExperimentNumbers[i],
		Timestamp:         m.Timestamps[i],
		TimestampRaw:      m.TimestampsRaw[i],
	}
}

// Clone returns a deep copy.
func (m *MergedRecord) Clone() *MergedRecord {
	return &MergedRecord{
		SampleRates:        slices.Clone(m.SampleRates),
		Epochs:             slices.Clone(m.Epochs),
		AcquisitionNumbers: slices.Clone(m.AcquisitionNumbers),
		ExperimentNumbers:  slices.Clone(m.ExperimentNumbers),
		Timestamps:         slices.Clone(m.Timestamps),
		TimestampsRaw:      slices.Clone(m.TimestampsRaw),
		SourceNames:        slices.Clone(m.SourceNames),
		Acquirer:           m.Acquirer.clone(),
		Ephys:              m.Ephys.clone(),
		Stimulator:         m.Stimulator.clone(),
	}
}

// Mergeable is implemented by *Record and *MergedRecord.
type Mergeable interface {
	// Promote returns an independent merged record holding the receiver.
	Promote() *MergedRecord
	view() *MergedRecord
}

// Promote returns a one-trial merged record.
func (r *Record) Promote() *MergedRecord { return r.view().Clone() }

// Promote returns a deep copy of m.
func (m *MergedRecord) Promote() *MergedRecord { return m.Clone() }

func (m *MergedRecord) view() *MergedRecord { return m }

// view wraps r as a one-trial merged record sharing r's samples.
func (r *Record) view() *MergedRecord {
	return &MergedRecord{
		SampleRates:        []int{r.SampleRate},
		Epochs:             []int{r.Epoch},
		AcquisitionNumbers: []string{r.AcquisitionNumber},
		ExperimentNumbers:  []string{r.ExperimentNumber},
		Timestamps:         []time.Time{r.Timestamp},
		TimestampsRaw:      []string{r.TimestampRaw},
		SourceNames:        []string{r.SourceName},
		Acquirer:           single(r.Acquirer),
		Ephys:              single(r.Ephys),
		Stimulator:         single(r.Stimulator),
	}
}

func single(c Channels) Subsystem {
	if c == nil {
		return Subsystem{PerSource: []Channels{nil}}
	}
	trials := make(map[string]*mat.Dense, len(c))
	for name, samples := range c {
		if len(samples) == 0 {
			return Subsystem{PerSource: []Channels{c}}
		}
		trials[name] = mat.NewDense(len(samples), 1, samples)
	}
	return Subsystem{Trials: trials}
}

// Merge concatenates b's trials after a's. Neither input is modified and
// the result shares no memory with them.
//
// Stacked subsystems must hold the same channel names with the same
// number of samples in both inputs, otherwise an error wrapping
// ErrIncompatibleRecords is returned. A subsystem that is per-source in
// either input is per-source in the result.
func Merge(a, b Mergeable) (*MergedRecord, error) {
	x, y := a.view(), b.view()
	out := &MergedRecord{
		SampleRates:        concat(x.SampleRates, y.SampleRates),
		Epochs:             concat(x.Epochs, y.Epochs),
		AcquisitionNumbers: concat(x.AcquisitionNumbers, y.AcquisitionNumbers),
		ExperimentNumbers:  concat(x.ExperimentNumbers, y.ExperimentNumbers),
		Timestamps:         concat(x.Timestamps, y.Timestamps),
		TimestampsRaw:      concat(x.TimestampsRaw, y.TimestampsRaw),
		SourceNames:        concat(x.SourceNames, y.SourceNames),
	}
	var err error
	if out.Acquirer, err = mergeSubsystem("acquirer", x.Acquirer, y.Acquirer, x.Len(), y.Len()); err != nil {
		return nil, err
	}
	if out.Ephys, err = mergeSubsystem("ephys", x.Ephys, y.Ephys, x.Len(), y.Len()); err != nil {
		return nil, err
	}
	if out.Stimulator, err = mergeSubsystem("stimulator", x.Stimulator, y.Stimulator, x.Len(), y.Len()); err != nil {
		return nil, err
	}
	return out, nil
}

// MergeAll folds records left to right with Merge.
func MergeAll(records []*Record) (*MergedRecord, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	acc := records[0].Promote()
	for _, r := range records[1:] {
		next, err := Merge(acc, r)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", r.SourceName, err)
		}
		acc = next
	}
	return acc, nil
}

func concat[T any](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

func mergeSubsystem(name string, a, b Subsystem, na, nb int) (Subsystem, error) {
	if !a.Stacked() || !b.Stacked() {
		per := concat(a.perSource(na), b.perSource(nb))
		for i, c := range per {
			per[i] = c.Clone()
		}
		return Subsystem{PerSource: per}, nil
	}

	if len(a.Trials) != len(b.Trials) {
		return Subsystem{}, fmt.Errorf("%w: %s has %d channels, then %d",
			ErrIncompatibleRecords, name, len(a.Trials), len(b.Trials))
	}
	out := Subsystem{Trials: make(map[string]*mat.Dense, len(a.Trials))}
	for ch, da := range a.Trials {
		db, ok := b.Trials[ch]
		if !ok {
			return Subsystem{}, fmt.Errorf("%w: %s channel %q missing from later record",
				ErrIncompatibleRecords, name, ch)
		}
		ra, _ := da.Dims()
		rb, _ := db.Dims()
		if ra != rb {
			return Subsystem{}, fmt.Errorf("%w: %s channel %q has %d samples, then %d",
				ErrIncompatibleRecords, name, ch, ra, rb)
		}
		var d mat.Dense
		d.Augment(da, db)
		out.Trials[ch] = &d
	}
	return out, nil
}
