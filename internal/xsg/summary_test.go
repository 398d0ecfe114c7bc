package xsg

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByEpoch(t *testing.T) {
	t.Parallel()

	records := []*Record{
		record(5, "0001", 1), record(2, "0002", 1), record(5, "0003", 1), record(2, "0004", 1),
	}
	groups := GroupByEpoch(records)
	require.Len(t, groups, 2)
	assert.Equal(t, 2, groups[0].Epoch)
	assert.Equal(t, []*Record{records[1], records[3]}, groups[0].Records)
	assert.Equal(t, 5, groups[1].Epoch)
	assert.Equal(t, []*Record{records[0], records[2]}, groups[1].Records)

	assert.Empty(t, GroupByEpoch(nil))
}

func TestMergeByEpoch(t *testing.T) {
	t.Parallel()

	records := []*Record{
		record(1, "0001", 1, 1), record(2, "0002", 2, 2, 2), record(1, "0003", 3, 3),
		record(2, "0004", 4, 4, 4), record(2, "0005", 5, 5, 5),
	}
	merged, err := MergeByEpoch(context.Background(), records, 2)
	require.NoError(t, err)
	require.Len(t, merged, 2)

	assert.Equal(t, []string{"0001", "0003"}, merged[1].AcquisitionNumbers)
	assert.Equal(t, []string{"0002", "0004", "0005"}, merged[2].AcquisitionNumbers)
	rows, cols := merged[2].Acquirer.Trials["probeA"].Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 3, cols)

	// Epochs differ in trace length, so merging across them fails.
	_, err = MergeAll(records)
	assert.ErrorIs(t, err, ErrIncompatibleRecords)

	records = append(records, record(1, "0006", 1))
	_, err = MergeByEpoch(context.Background(), records, 0)
	assert.ErrorIs(t, err, ErrIncompatibleRecords)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	base := time.Date(2011, time.March, 4, 12, 0, 0, 0, time.UTC)
	md := func(epoch int, acq string, minute int) Metadata {
		return Metadata{Epoch: epoch, AcquisitionNumber: acq, Timestamp: base.Add(time.Duration(minute) * time.Minute)}
	}
	metas := []Metadata{
		md(3, "10", 5), md(3, "9", 1), md(1, "2", 0), md(3, "0011", 9), md(7, "1", 3),
	}

	got := Summarize(metas, nil)
	want := []EpochSummary{
		{Epoch: 1, Count: 1, AcquisitionNumbers: []string{"2"}, First: base, Last: base},
		{Epoch: 3, Count: 3, AcquisitionNumbers: []string{"9", "10", "0011"},
			First: base.Add(time.Minute), Last: base.Add(9 * time.Minute)},
		{Epoch: 7, Count: 1, AcquisitionNumbers: []string{"1"},
			First: base.Add(3 * time.Minute), Last: base.Add(3 * time.Minute)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	labelled := Summarize(metas, map[int]string{3: "ChR Light stimulation", 4: "indent"})
	require.Len(t, labelled, 1)
	assert.Equal(t, "ChR Light stimulation", labelled[0].Label)
	assert.Equal(t, 3, labelled[0].Count)

	records := []*Record{record(1, "0001", 1), record(2, "0002", 1)}
	assert.Equal(t, []int{1, 2}, []int{Metadatas(records)[0].Epoch, Metadatas(records)[1].Epoch})
}
