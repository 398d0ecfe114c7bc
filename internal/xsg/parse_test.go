package xsg

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginty-lab/ephus/internal/decode"
	"github.com/ginty-lab/ephus/internal/fsutil"
	"github.com/ginty-lab/ephus/internal/matfile"
	"github.com/ginty-lab/ephus/internal/node"
	"github.com/ginty-lab/ephus/internal/testutil"
)

// writeXSG stores an acquisition with one acquirer and one ephys channel.
func writeXSG(t *testing.T, fs *fsutil.MemoryFileSystem, path string, h testutil.Header, trace []float64) {
	t.Helper()
	hdr := h.Node(testutil.Program("stimulator", node.F("startButton", node.Number(0))))
	d := node.NewRecord(
		testutil.Data("acquirer", testutil.Channel{Suffix: "1", Name: node.Text("probeA"), Trace: trace}),
		testutil.Data("ephys", testutil.Channel{Suffix: "1", Name: node.Text(""), Trace: trace}),
	)
	raw := testutil.EncodeMAT(true, node.F("header", hdr), node.F("data", d))
	require.NoError(t, fs.WriteFile(path, raw, 0o644))
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	writeXSG(t, fs, "/exp/AA0001AAAA0001.xsg", testutil.DefaultHeader(), testutil.Ramp(100, 0))

	r, err := NewParser(fs, nil).ParseFile("/exp/AA0001AAAA0001.xsg")
	require.NoError(t, err)
	assert.Equal(t, "/exp/AA0001AAAA0001.xsg", r.SourceName)
	assert.Equal(t, 3, r.Epoch)
	assert.Equal(t, 10000, r.SampleRate)
	assert.Equal(t, testutil.Ramp(100, 0), r.Acquirer["probeA"])
	assert.Equal(t, testutil.Ramp(100, 0), r.Ephys["chan0"])
	assert.Nil(t, r.Stimulator)
}

func TestParseFileErrors(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	p := NewParser(fs, nil)

	_, err := p.ParseFile("/missing.xsg")
	assert.Error(t, err)

	require.NoError(t, fs.WriteFile("/junk.xsg", []byte("not a mat file"), 0o644))
	_, err = p.ParseFile("/junk.xsg")
	assert.ErrorIs(t, err, matfile.ErrNotMATFile)

	hdrOnly := testutil.EncodeMAT(false, node.F("header", testutil.DefaultHeader().Node()))
	require.NoError(t, fs.WriteFile("/nodata.xsg", hdrOnly, 0o644))
	_, err = p.ParseFile("/nodata.xsg")
	var mf *MissingFieldError
	require.True(t, errors.As(err, &mf), "got %v", err)
	assert.Equal(t, []string{"data"}, mf.Path)

	h := testutil.DefaultHeader()
	h.Timestamp = "yesterday"
	writeXSG(t, fs, "/baddate.xsg", h, []float64{1})
	_, err = p.ParseFile("/baddate.xsg")
	var df *DateFormatError
	assert.True(t, errors.As(err, &df), "got %v", err)
	assert.Contains(t, err.Error(), "/baddate.xsg")
}

func TestParseHeader(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	writeXSG(t, fs, "/a.xsg", testutil.DefaultHeader(), []float64{1, 2})
	p := NewParser(fs, nil)

	h, err := p.ParseHeader("/a.xsg")
	require.NoError(t, err)
	m, ok := decode.AsMap(h)
	require.True(t, ok)
	assert.Equal(t, []string{"acquirer", "xsg", "xsgFileCreationTimestamp", "stimulator"}, m.Keys())

	md, err := p.ParseMetadata("/a.xsg")
	require.NoError(t, err)
	assert.Equal(t, "AA0001", md.ExperimentNumber)

	dataOnly := testutil.EncodeMAT(false, node.F("data", node.NewRecord()))
	require.NoError(t, fs.WriteFile("/b.xsg", dataOnly, 0o644))
	_, err = p.ParseHeader("/b.xsg")
	var mf *MissingFieldError
	assert.True(t, errors.As(err, &mf))
}

func TestParseFilesKeepsOrder(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	var paths []string
	for i := 1; i <= 6; i++ {
		h := testutil.DefaultHeader()
		h.AcquisitionNumber = fmt.Sprintf("%04d", i)
		h.Epoch = float64(i % 2)
		path := fmt.Sprintf("/exp/AA0001AAAA%04d.xsg", i)
		writeXSG(t, fs, path, h, testutil.Ramp(10, float64(i)))
		paths = append(paths, path)
	}
	p := NewParser(fs, nil)

	found, err := p.FindFiles("/exp")
	require.NoError(t, err)
	assert.Equal(t, paths, found)

	records, err := p.ParseFiles(context.Background(), paths, 2)
	require.NoError(t, err)
	require.Len(t, records, 6)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("%04d", i+1), r.AcquisitionNumber)
		assert.Equal(t, float64(i+1), r.Acquirer["probeA"][0])
	}

	_, err = p.ParseFiles(context.Background(), append(paths, "/exp/missing.xsg"), 0)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.ParseFiles(ctx, paths, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseMetadataFiles(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	for i, epoch := range []float64{4, 2, 4} {
		h := testutil.DefaultHeader()
		h.Epoch = epoch
		h.AcquisitionNumber = fmt.Sprintf("%04d", i+1)
		writeXSG(t, fs, fmt.Sprintf("/m/%d.xsg", i), h, []float64{1, 2})
	}
	p := NewParser(fs, nil)
	paths, err := p.FindFiles("/m")
	require.NoError(t, err)

	metas, err := p.ParseMetadataFiles(context.Background(), paths, 0)
	require.NoError(t, err)
	require.Len(t, metas, 3)
	assert.Equal(t, []int{4, 2, 4}, []int{metas[0].Epoch, metas[1].Epoch, metas[2].Epoch})

	s := Summarize(metas, nil)
	require.Len(t, s, 2)
	assert.Equal(t, []string{"0001", "0003"}, s[1].AcquisitionNumbers)
}
