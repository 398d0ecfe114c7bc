package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginty-lab/ephus/internal/xsg"
)

func NewParseCmd(deps *Dependencies) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse FILE|DIR...",
		Short: "Build records from XSG files and list their channels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := deps.expandPaths(args)
			if err != nil {
				return err
			}
			records, err := deps.parser.ParseFiles(cmd.Context(), paths, deps.Config.GetWorkers())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			return writeRecordTable(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print full records, samples included, as JSON")
	return cmd
}

func writeRecordTable(w io.Writer, records []*xsg.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tEPOCH\tACQ\tRATE\tTIMESTAMP\tACQUIRER\tEPHYS\tSTIMULATOR")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			r.SourceName, r.Epoch, r.AcquisitionNumber, r.SampleRate, r.TimestampRaw,
			describeChannels(r.Acquirer), describeChannels(r.Ephys), describeChannels(r.Stimulator))
	}
	return tw.Flush()
}

// describeChannels renders channels as name[samples] pairs.
func describeChannels(c xsg.Channels) string {
	if len(c) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(c))
	for _, name := range c.Names() {
		parts = append(parts, fmt.Sprintf("%s[%d]", name, len(c[name])))
	}
	return strings.Join(parts, ",")
}
