package xsg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ginty-lab/ephus/internal/decode"
	"github.com/ginty-lab/ephus/internal/node"
	"github.com/ginty-lab/ephus/internal/testutil"
)

type skip struct {
	src StimulusSource
	err error
}

// buildWith builds a record from hand-made header and data trees and
// returns the stimulus sources that were skipped.
func buildWith(t *testing.T, h, d *node.Record) (*Record, []skip) {
	t.Helper()
	var skipped []skip
	opts := DefaultOptions()
	opts.OnStimulusSkipped = func(_ string, src StimulusSource, err error) {
		skipped = append(skipped, skip{src, err})
	}
	r, err := NewBuilder(opts).Build(decode.Decode(h), decode.Decode(d), "test.xsg")
	require.NoError(t, err)
	return r, skipped
}

func skippedErr(skipped []skip, src StimulusSource) error {
	for _, s := range skipped {
		if s.src == src {
			return s.err
		}
	}
	return nil
}

func header(extra ...node.Field) *node.Record {
	return testutil.DefaultHeader().Node(extra...)
}

func data(fields ...node.Field) *node.Record {
	return node.NewRecord(fields...)
}

// record returns a single-channel acquirer record.
func record(epoch int, acq string, trace ...float64) *Record {
	return &Record{
		Metadata: Metadata{
			SampleRate:        10000,
			Epoch:             epoch,
			AcquisitionNumber: acq,
			ExperimentNumber:  "AA0001",
			Timestamp:         time.Date(2011, time.March, 4, 12, 0, epoch, 0, time.UTC),
			TimestampRaw:      "04-Mar-2011 12:00:00",
		},
		SourceName: "AA0001AAAA" + acq + ".xsg",
		Acquirer:   Channels{"probeA": trace},
	}
}

// pulseWindow returns n samples of base with [start, end) set to amp.
func pulseWindow(n int, base, amp float64, windows ...[2]int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = base
	}
	for _, win := range windows {
		for i := win[0]; i < win[1]; i++ {
			w[i] = amp
		}
	}
	return w
}
