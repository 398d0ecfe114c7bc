package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginty-lab/ephus/internal/fsutil"
	"github.com/ginty-lab/ephus/internal/node"
	"github.com/ginty-lab/ephus/internal/testutil"
	"github.com/ginty-lab/ephus/internal/timeutil"
	"github.com/ginty-lab/ephus/internal/xsg"
)

func writeHeader(t *testing.T, fs *fsutil.MemoryFileSystem, path string, epoch int, acq string, minute int) {
	t.Helper()
	h := testutil.DefaultHeader()
	h.Epoch = float64(epoch)
	h.AcquisitionNumber = acq
	h.Timestamp = fmt.Sprintf("04-Mar-2011 12:%02d:00", minute)
	raw := testutil.EncodeMAT(true,
		node.F("header", h.Node()),
		node.F("data", node.NewRecord(testutil.Data("acquirer",
			testutil.Channel{Suffix: "1", Name: node.Text("probeA"), Trace: testutil.Ramp(16, 0)}))),
	)
	require.NoError(t, fs.WriteFile(path, raw, 0o644))
}

func openTestCatalog(t *testing.T, fs fsutil.FileSystem) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"), xsg.NewParser(fs, nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenMigrates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := Open(path, nil)
	require.NoError(t, err)

	version, dirty, err := schemaVersion(c.db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, c.Close())

	// Reopening an up-to-date catalog is a no-op.
	c, err = Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestScan(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	writeHeader(t, fs, "/exp/AA0001AAAA0001.xsg", 3, "0001", 1)
	writeHeader(t, fs, "/exp/AA0001AAAA0002.xsg", 3, "0002", 2)
	writeHeader(t, fs, "/exp/AA0001AAAA0003.xsg", 5, "0003", 3)
	require.NoError(t, fs.WriteFile("/exp/broken.xsg", []byte("garbage"), 0o644))
	require.NoError(t, fs.WriteFile("/exp/notes.txt", []byte("ignored"), 0o644))

	c := openTestCatalog(t, fs)
	ctx := context.Background()

	res, err := c.Scan(ctx, "/exp", 2)
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 4, res.Files)
	assert.Equal(t, 3, res.Indexed)
	assert.Equal(t, []string{"/exp/broken.xsg"}, res.Skipped)

	counts, err := c.EpochCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []EpochCount{{Epoch: 3, Count: 2}, {Epoch: 5, Count: 1}}, counts)

	acqs, err := c.Acquisitions(ctx, 3)
	require.NoError(t, err)
	require.Len(t, acqs, 2)
	assert.Equal(t, "/exp/AA0001AAAA0001.xsg", acqs[0].Path)
	assert.Equal(t, "0002", acqs[1].AcquisitionNumber)
	assert.Equal(t, 10000, acqs[0].SampleRate)
	assert.Equal(t, "AA0001", acqs[0].ExperimentNumber)
	assert.Equal(t, time.Date(2011, time.March, 4, 12, 1, 0, 0, time.UTC), acqs[0].Timestamp)
	assert.Equal(t, res.ID, acqs[0].ScanID)
	assert.Equal(t, "04-Mar-2011 12:01:00", acqs[0].Metadata().TimestampRaw)

	none, err := c.Acquisitions(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestScanUpserts(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	writeHeader(t, fs, "/exp/a.xsg", 1, "0001", 1)
	c := openTestCatalog(t, fs)
	ctx := context.Background()

	first, err := c.Scan(ctx, "/exp", 0)
	require.NoError(t, err)

	// The file is rewritten with a new epoch and scanned again.
	writeHeader(t, fs, "/exp/a.xsg", 2, "0001", 1)
	second, err := c.Scan(ctx, "/exp", 0)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	all, err := c.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].Epoch)
	assert.Equal(t, second.ID, all[0].ScanID)

	summaries := xsg.Summarize([]xsg.Metadata{all[0].Metadata()}, nil)
	require.Len(t, summaries, 1)
	assert.Equal(t, []string{"0001"}, summaries[0].AcquisitionNumbers)
}

func TestScanCancelled(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	writeHeader(t, fs, "/exp/a.xsg", 1, "0001", 1)
	c := openTestCatalog(t, fs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Scan(ctx, "/exp", 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScansHistory(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	writeHeader(t, fs, "/exp/a.xsg", 1, "0001", 1)
	require.NoError(t, fs.WriteFile("/exp/bad.xsg", []byte("junk"), 0o644))
	c := openTestCatalog(t, fs)
	start := time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC)
	clk := timeutil.NewMockClock(start)
	c.SetClock(clk)
	ctx := context.Background()

	first, err := c.Scan(ctx, "/exp", 0)
	require.NoError(t, err)
	clk.Advance(time.Hour)
	second, err := c.Scan(ctx, "/exp", 0)
	require.NoError(t, err)

	scans, err := c.Scans(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Scan{
		{ID: first.ID, Root: "/exp", Started: start, Files: 2, Skipped: 1},
		{ID: second.ID, Root: "/exp", Started: start.Add(time.Hour), Files: 2, Skipped: 1},
	}, scans)
}
