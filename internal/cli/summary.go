package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginty-lab/ephus/internal/xsg"
)

func NewSummaryCmd(deps *Dependencies) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "summary FILE|DIR...",
		Short: "Count acquisitions per epoch from their headers",
		Long: "Reads only the headers of the given files and reports, per epoch, " +
			"the number of acquisitions and their acquisition numbers. When the " +
			"config names epochs only those epochs are listed unless --all is set.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := deps.expandPaths(args)
			if err != nil {
				return err
			}
			metas, err := deps.parser.ParseMetadataFiles(cmd.Context(), paths, deps.Config.GetWorkers())
			if err != nil {
				return err
			}
			labels := deps.Config.EpochLabels
			if all {
				labels = nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "EPOCH\tLABEL\tCOUNT\tFIRST\tLAST\tACQUISITIONS")
			for _, s := range xsg.Summarize(metas, labels) {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
					s.Epoch, orDash(s.Label), s.Count,
					s.First.Format(time.DateTime), s.Last.Format(time.DateTime),
					strings.Join(s.AcquisitionNumbers, ","))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "list every epoch, labelled or not")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
