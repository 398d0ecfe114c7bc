package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ginty-lab/ephus/internal/xsg"
)

func NewMergeCmd(deps *Dependencies) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "merge FILE|DIR...",
		Short: "Merge acquisitions into trial matrices, one per epoch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			merged, err := deps.mergeRecords(cmd, args, all)
			if err != nil {
				return err
			}
			for _, key := range slices.Sorted(maps.Keys(merged)) {
				label := fmt.Sprintf("epoch %d", key)
				if all {
					label = "all"
				}
				writeMerged(cmd.OutOrStdout(), label, merged[key])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "merge every file into one record regardless of epoch")
	return cmd
}

// mergeRecords parses args and merges them per epoch, or into a single
// record under key 0 when all is set.
func (d *Dependencies) mergeRecords(cmd *cobra.Command, args []string, all bool) (map[int]*xsg.MergedRecord, error) {
	paths, err := d.expandPaths(args)
	if err != nil {
		return nil, err
	}
	records, err := d.parser.ParseFiles(cmd.Context(), paths, d.Config.GetWorkers())
	if err != nil {
		return nil, err
	}
	if !all {
		return xsg.MergeByEpoch(cmd.Context(), records, d.Config.GetWorkers())
	}
	m, err := xsg.MergeAll(records)
	if err != nil {
		return nil, err
	}
	return map[int]*xsg.MergedRecord{0: m}, nil
}

func writeMerged(w io.Writer, label string, m *xsg.MergedRecord) {
	fmt.Fprintf(w, "%s: %d trials\n", label, m.Len())
	for _, s := range []struct {
		name string
		sub  xsg.Subsystem
	}{{"acquirer", m.Acquirer}, {"ephys", m.Ephys}, {"stimulator", m.Stimulator}} {
		if !s.sub.Stacked() {
			fmt.Fprintf(w, "  %s: per source\n", s.name)
			continue
		}
		for _, ch := range s.sub.Names() {
			rows, cols := s.sub.Trials[ch].Dims()
			fmt.Fprintf(w, "  %s/%s: %d samples x %d trials\n", s.name, ch, rows, cols)
		}
	}
}
