package cli

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginty-lab/ephus/internal/traceplot"
)

// figure is one record (or merged epoch) to draw.
type figure struct {
	prefix     string
	panels     []traceplot.Panel
	sampleRate float64
}

// figures parses args into one figure per file, or one per epoch when
// merge is set.
func (d *Dependencies) figures(cmd *cobra.Command, args []string, merge bool) ([]figure, error) {
	if merge {
		merged, err := d.mergeRecords(cmd, args, false)
		if err != nil {
			return nil, err
		}
		var out []figure
		for _, epoch := range slices.Sorted(maps.Keys(merged)) {
			m := merged[epoch]
			out = append(out, figure{
				prefix:     fmt.Sprintf("epoch%d", epoch),
				panels:     traceplot.FromMerged(m),
				sampleRate: traceplot.MergedSampleRate(m),
			})
		}
		return out, nil
	}

	paths, err := d.expandPaths(args)
	if err != nil {
		return nil, err
	}
	records, err := d.parser.ParseFiles(cmd.Context(), paths, d.Config.GetWorkers())
	if err != nil {
		return nil, err
	}
	out := make([]figure, len(records))
	for i, r := range records {
		out[i] = figure{
			prefix:     strings.TrimSuffix(filepath.Base(r.SourceName), filepath.Ext(r.SourceName)),
			panels:     traceplot.FromRecord(r),
			sampleRate: traceplot.RecordSampleRate(r),
		}
	}
	return out, nil
}

func NewPlotCmd(deps *Dependencies) *cobra.Command {
	var (
		outDir string
		merge  bool
	)

	cmd := &cobra.Command{
		Use:   "plot FILE|DIR...",
		Short: "Render traces to PNG files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			figs, err := deps.figures(cmd, args, merge)
			if err != nil {
				return err
			}
			w, h := deps.Config.GetPlotSize()
			for _, f := range figs {
				paths, err := traceplot.SavePNGs(deps.FS, outDir, f.prefix, f.panels, f.sampleRate, w, h)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "plots", "output directory")
	cmd.Flags().BoolVar(&merge, "merge", false, "merge files by epoch and plot trials with their mean")
	return cmd
}

func NewChartCmd(deps *Dependencies) *cobra.Command {
	var (
		outDir string
		merge  bool
	)

	cmd := &cobra.Command{
		Use:   "chart FILE|DIR...",
		Short: "Render traces to interactive HTML pages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			figs, err := deps.figures(cmd, args, merge)
			if err != nil {
				return err
			}
			if err := deps.FS.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for _, f := range figs {
				path := filepath.Join(outDir, traceplot.FileName("", f.prefix)+".html")
				out, err := deps.FS.Create(path)
				if err != nil {
					return err
				}
				if err := traceplot.WriteHTML(out, f.prefix, f.panels, f.sampleRate); err != nil {
					_ = out.Close()
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := out.Close(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "charts", "output directory")
	cmd.Flags().BoolVar(&merge, "merge", false, "merge files by epoch and chart trials with their mean")
	return cmd
}
