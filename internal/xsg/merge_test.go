package xsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMergeFoldOfThree(t *testing.T) {
	t.Parallel()

	r1 := record(1, "0001", 1, 2, 3, 4)
	r2 := record(2, "0002", 5, 6, 7, 8)
	r3 := record(3, "0003", 9, 10, 11, 12)

	m12, err := Merge(r1, r2)
	require.NoError(t, err)
	m, err := Merge(m12, r3)
	require.NoError(t, err)

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []int{1, 2, 3}, m.Epochs)
	assert.Equal(t, []string{"0001", "0002", "0003"}, m.AcquisitionNumbers)
	assert.Equal(t, []string{r1.SourceName, r2.SourceName, r3.SourceName}, m.SourceNames)
	assert.Len(t, m.Timestamps, 3)

	require.True(t, m.Acquirer.Stacked())
	d := m.Acquirer.Trials["probeA"]
	rows, cols := d.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 3, cols)
	want := mat.NewDense(4, 3, []float64{
		1, 5, 9,
		2, 6, 10,
		3, 7, 11,
		4, 8, 12,
	})
	assert.True(t, mat.Equal(want, d))

	// The two-way merge is untouched by the second step.
	assert.Equal(t, 2, m12.Len())
	_, c := m12.Acquirer.Trials["probeA"].Dims()
	assert.Equal(t, 2, c)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	r1 := record(1, "0001", 1, 2)
	r2 := record(1, "0002", 3, 4)
	m, err := Merge(r1, r2)
	require.NoError(t, err)

	m.Acquirer.Trials["probeA"].Set(0, 0, 100)
	assert.Equal(t, []float64{1, 2}, r1.Acquirer["probeA"])

	m.Epochs[0] = 9
	assert.Equal(t, 1, r1.Epoch)

	p := r1.Promote()
	p.Acquirer.Trials["probeA"].Set(1, 0, -1)
	assert.Equal(t, []float64{1, 2}, r1.Acquirer["probeA"])
}

func TestMergeMetadataStaysFlat(t *testing.T) {
	t.Parallel()

	records := make([]*Record, 5)
	for i := range records {
		records[i] = record(i, "000"+string(rune('1'+i)), float64(i), float64(i))
	}
	m, err := MergeAll(records)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3, 4}, m.Epochs)
	assert.Equal(t, []string{"0001", "0002", "0003", "0004", "0005"}, m.AcquisitionNumbers)
	for i := range records {
		assert.Equal(t, records[i].Metadata, m.Metadata(i))
	}
}

func TestMergeMergedOperands(t *testing.T) {
	t.Parallel()

	r1 := record(1, "0001", 1)
	r2 := record(2, "0002", 2)
	r3 := record(3, "0003", 3)

	m23, err := Merge(r2, r3)
	require.NoError(t, err)
	m, err := Merge(r1, m23)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, m.Epochs)
	assert.Equal(t, []float64{1, 2, 3}, mat.Row(nil, 0, m.Acquirer.Trials["probeA"]))

	m12, err := Merge(r1, r2)
	require.NoError(t, err)
	m, err = Merge(m12, m23)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2, 3}, m.Epochs)
}

func TestMergeDemotesInactiveSubsystem(t *testing.T) {
	t.Parallel()

	r1 := record(1, "0001", 1, 2)
	r1.Ephys = Channels{"Im": {0.5, 0.5}}
	r2 := record(1, "0002", 3, 4)
	r3 := record(1, "0003", 5, 6)
	r3.Ephys = Channels{"Im": {0.25, 0.25}}

	m, err := MergeAll([]*Record{r1, r2, r3})
	require.NoError(t, err)

	assert.True(t, m.Acquirer.Stacked())
	assert.False(t, m.Ephys.Stacked())
	require.Len(t, m.Ephys.PerSource, 3)
	assert.Equal(t, Channels{"Im": {0.5, 0.5}}, m.Ephys.PerSource[0])
	assert.Nil(t, m.Ephys.PerSource[1])
	assert.Equal(t, Channels{"Im": {0.25, 0.25}}, m.Ephys.PerSource[2])
	assert.Equal(t, []string{"Im"}, m.Ephys.Names())

	got, ok := m.Ephys.Trace("Im", 2)
	require.True(t, ok)
	assert.Equal(t, []float64{0.25, 0.25}, got)
	_, ok = m.Ephys.Trace("Im", 1)
	assert.False(t, ok)

	// Stimulator was never active.
	assert.False(t, m.Stimulator.Stacked())
	assert.Equal(t, []Channels{nil, nil, nil}, m.Stimulator.PerSource)

	// Per-source copies are independent of the inputs.
	m.Ephys.PerSource[0]["Im"][0] = 9
	assert.Equal(t, 0.5, r1.Ephys["Im"][0])
}

func TestMergeEmptyTracesArePerSource(t *testing.T) {
	t.Parallel()

	r1 := record(1, "0001")
	r2 := record(1, "0002")
	m, err := Merge(r1, r2)
	require.NoError(t, err)
	assert.False(t, m.Acquirer.Stacked())
	assert.Len(t, m.Acquirer.PerSource, 2)
}

func TestMergeIncompatible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		b    *Record
	}{
		{"length", record(1, "0002", 1, 2, 3)},
		{"channel name", func() *Record {
			r := record(1, "0002", 1, 2)
			r.Acquirer = Channels{"probeB": {1, 2}}
			return r
		}()},
		{"channel count", func() *Record {
			r := record(1, "0002", 1, 2)
			r.Acquirer["probeB"] = []float64{1, 2}
			return r
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Merge(record(1, "0001", 1, 2), tt.b)
			assert.ErrorIs(t, err, ErrIncompatibleRecords)
		})
	}
}

func TestMergeAll(t *testing.T) {
	t.Parallel()

	_, err := MergeAll(nil)
	assert.ErrorIs(t, err, ErrNoRecords)

	m, err := MergeAll([]*Record{record(4, "0001", 1, 2)})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	got, ok := m.Acquirer.Trace("probeA", 0)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, got)

	_, err = MergeAll([]*Record{record(4, "0001", 1, 2), record(4, "0002", 1)})
	assert.ErrorIs(t, err, ErrIncompatibleRecords)
	assert.Contains(t, err.Error(), "AA0001AAAA0002.xsg")
}

func TestMergedRecordClone(t *testing.T) {
	t.Parallel()

	m, err := Merge(record(1, "0001", 1, 2), record(2, "0002", 3, 4))
	require.NoError(t, err)

	c := m.Promote()
	c.Acquirer.Trials["probeA"].Set(0, 0, 42)
	c.SourceNames[0] = "other"
	assert.Equal(t, 1.0, m.Acquirer.Trials["probeA"].At(0, 0))
	assert.NotEqual(t, "other", m.SourceNames[0])
	assert.Equal(t, []string{"probeA"}, c.Acquirer.Names())

	_, ok := m.Acquirer.Trace("probeA", 2)
	assert.False(t, ok)
	_, ok = m.Acquirer.Trace("missing", 0)
	assert.False(t, ok)
}
