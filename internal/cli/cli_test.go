package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginty-lab/ephus/internal/config"
	"github.com/ginty-lab/ephus/internal/fsutil"
	"github.com/ginty-lab/ephus/internal/node"
	"github.com/ginty-lab/ephus/internal/testutil"
)

// writeXSG stores an acquisition with a single named acquirer channel.
func writeXSG(t *testing.T, fs *fsutil.MemoryFileSystem, path string, epoch float64, acq string, trace []float64) {
	t.Helper()
	h := testutil.DefaultHeader()
	h.Epoch = epoch
	h.AcquisitionNumber = acq
	hdr := h.Node(testutil.Program("stimulator", node.F("startButton", node.Number(0))))
	d := node.NewRecord(
		testutil.Data("acquirer", testutil.Channel{Suffix: "1", Name: node.Text("probeA"), Trace: trace}),
	)
	require.NoError(t, fs.WriteFile(path, testutil.EncodeMAT(true, node.F("header", hdr), node.F("data", d)), 0o644))
}

func fixture(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.MkdirAll("/exp", 0o755))
	writeXSG(t, fs, "/exp/AA0001AAAA0001.xsg", 2, "0001", testutil.Ramp(10, 0))
	writeXSG(t, fs, "/exp/AA0001AAAA0002.xsg", 5, "0002", testutil.Ramp(10, 1))
	writeXSG(t, fs, "/exp/AA0001AAAA0003.xsg", 2, "0003", testutil.Ramp(10, 2))
	return fs
}

func execute(t *testing.T, deps *Dependencies, args ...string) (string, error) {
	t.Helper()
	if deps.Config == nil {
		deps.Config = &config.Config{}
	}
	cmd := NewRootCmd(deps)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestHeaderCmd(t *testing.T) {
	out, err := execute(t, &Dependencies{FS: fixture(t)}, "header", "/exp/AA0001AAAA0001.xsg")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "04-Mar-2011 12:01:02", got["xsgFileCreationTimestamp"])
	xsgProg := got["xsg"].(map[string]any)["xsg"].(map[string]any)
	assert.Equal(t, 2.0, xsgProg["epoch"])
}

func TestParseCmd(t *testing.T) {
	out, err := execute(t, &Dependencies{FS: fixture(t)}, "parse", "/exp")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "SOURCE"))
	assert.Contains(t, lines[1], "/exp/AA0001AAAA0001.xsg")
	assert.Contains(t, lines[1], "probeA[10]")
	assert.Contains(t, lines[2], "0002")
}

func TestParseCmdJSON(t *testing.T) {
	out, err := execute(t, &Dependencies{FS: fixture(t)}, "parse", "--json", "/exp/AA0001AAAA0002.xsg")
	require.NoError(t, err)

	var got []struct {
		Epoch    int
		Acquirer map[string][]float64
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Epoch)
	assert.Equal(t, testutil.Ramp(10, 1), got[0].Acquirer["probeA"])
}

func TestParseCmdErrors(t *testing.T) {
	_, err := execute(t, &Dependencies{FS: fixture(t)}, "parse", "/nowhere")
	assert.Error(t, err)

	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.MkdirAll("/empty", 0o755))
	_, err = execute(t, &Dependencies{FS: fs}, "parse", "/empty")
	assert.ErrorContains(t, err, "no .xsg files")
}

func TestMergeCmd(t *testing.T) {
	out, err := execute(t, &Dependencies{FS: fixture(t)}, "merge", "/exp")
	require.NoError(t, err)
	assert.Contains(t, out, "epoch 2: 2 trials\n")
	assert.Contains(t, out, "epoch 5: 1 trials\n")
	assert.Contains(t, out, "  acquirer/probeA: 10 samples x 2 trials\n")
	assert.Contains(t, out, "  stimulator: per source\n")
	assert.Less(t, strings.Index(out, "epoch 2"), strings.Index(out, "epoch 5"))

	out, err = execute(t, &Dependencies{FS: fixture(t)}, "merge", "--all", "/exp")
	require.NoError(t, err)
	assert.Contains(t, out, "all: 3 trials\n")
	assert.Contains(t, out, "  acquirer/probeA: 10 samples x 3 trials\n")
}

func TestSummaryCmd(t *testing.T) {
	cfg := &config.Config{EpochLabels: map[int]string{2: "baseline"}}

	out, err := execute(t, &Dependencies{FS: fixture(t), Config: cfg}, "summary", "/exp")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "baseline")
	assert.Contains(t, lines[1], "0001,0003")

	out, err = execute(t, &Dependencies{FS: fixture(t), Config: cfg}, "summary", "--all", "/exp")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
}

func TestPlotCmd(t *testing.T) {
	fs := fixture(t)
	out, err := execute(t, &Dependencies{FS: fs}, "plot", "-o", "/plots", "/exp/AA0001AAAA0001.xsg")
	require.NoError(t, err)

	want := filepath.Join("/plots", "AA0001AAAA0001_acquirer.png")
	assert.Equal(t, want+"\n", out)
	b, err := fs.ReadFile(want)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))
}

func TestPlotCmdMerged(t *testing.T) {
	fs := fixture(t)
	out, err := execute(t, &Dependencies{FS: fs}, "plot", "--merge", "-o", "/plots", "/exp")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("/plots", "epoch2_acquirer_probeA.png"),
		filepath.Join("/plots", "epoch5_acquirer_probeA.png"),
	}, strings.Fields(out))
}

func TestChartCmd(t *testing.T) {
	fs := fixture(t)
	out, err := execute(t, &Dependencies{FS: fs}, "chart", "--merge", "-o", "/charts", "/exp")
	require.NoError(t, err)

	paths := strings.Fields(out)
	require.Len(t, paths, 2)
	b, err := fs.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), "epoch2")
	assert.Contains(t, string(b), "probeA")
}

func TestCatalogCmd(t *testing.T) {
	fs := fixture(t)
	require.NoError(t, fs.WriteFile("/exp/broken.xsg", []byte("junk"), 0o644))
	db := filepath.Join(t.TempDir(), "catalog.db")
	cfg := &config.Config{EpochLabels: map[int]string{5: "drug"}}

	out, err := execute(t, &Dependencies{FS: fs, Config: cfg}, "catalog", "--db", db, "scan", "/exp")
	require.NoError(t, err)
	assert.Contains(t, out, "4 files, 3 indexed, 1 skipped")
	assert.Contains(t, out, "skipped /exp/broken.xsg")

	out, err = execute(t, &Dependencies{FS: fs, Config: cfg}, "catalog", "--db", db, "epochs")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"2", "-", "2"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"5", "drug", "1"}, strings.Fields(lines[2]))

	out, err = execute(t, &Dependencies{FS: fs, Config: cfg}, "catalog", "--db", db, "list", "--epoch", "2")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for i, acq := range []string{"0001", "0003"} {
		assert.Contains(t, lines[i+1], fmt.Sprintf("AA0001AAAA%s.xsg", acq))
	}

	out, err = execute(t, &Dependencies{FS: fs, Config: cfg}, "catalog", "--db", db, "scans")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "4", strings.Fields(lines[1])[3])
}

func TestConfigFlag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xsg.yaml")
	require.NoError(t, fsutil.OSFileSystem{}.WriteFile(path, []byte("epoch_labels:\n  5: drug\n"), 0o644))

	out, err := execute(t, &Dependencies{FS: fixture(t)}, "summary", "--config", path, "/exp")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "drug")

	_, err = execute(t, &Dependencies{FS: fixture(t)}, "summary", "--config", filepath.Join(dir, "xsg.txt"), "/exp")
	assert.ErrorContains(t, err, "loading config")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, &Dependencies{FS: fixture(t)}, "--version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "xsg dev"))
}
