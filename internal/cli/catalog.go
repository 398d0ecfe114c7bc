package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginty-lab/ephus/internal/catalog"
)

func NewCatalogCmd(deps *Dependencies) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Index acquisition metadata in a SQLite catalog",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "catalog database (default from config)")

	open := func() (*catalog.Catalog, error) {
		path := dbPath
		if path == "" {
			path = deps.Config.GetCatalogPath()
		}
		return catalog.Open(path, deps.parser)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "scan DIR",
		Short: "Read the headers of every XSG file under DIR into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Scan(cmd.Context(), args[0], deps.Config.GetWorkers())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scan %s: %d files, %d indexed, %d skipped\n",
				res.ID, res.Files, res.Indexed, len(res.Skipped))
			for _, p := range res.Skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "  skipped %s\n", p)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "epochs",
		Short: "Count catalogued acquisitions per epoch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()

			counts, err := c.EpochCounts(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "EPOCH\tLABEL\tCOUNT")
			for _, ec := range counts {
				fmt.Fprintf(tw, "%d\t%s\t%d\n", ec.Epoch, orDash(deps.Config.EpochLabels[ec.Epoch]), ec.Count)
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "scans",
		Short: "List previous catalog scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()

			scans, err := c.Scans(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SCAN\tSTARTED\tROOT\tFILES\tSKIPPED")
			for _, s := range scans {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
					s.ID, s.Started.Format(time.RFC3339), s.Root, s.Files, s.Skipped)
			}
			return tw.Flush()
		},
	})

	var epoch int
	list := &cobra.Command{
		Use:   "list",
		Short: "List catalogued acquisitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open()
			if err != nil {
				return err
			}
			defer c.Close()

			var acqs []catalog.Acquisition
			if cmd.Flags().Changed("epoch") {
				acqs, err = c.Acquisitions(cmd.Context(), epoch)
			} else {
				acqs, err = c.All(cmd.Context())
			}
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tEXPERIMENT\tACQ\tEPOCH\tRATE\tTIMESTAMP")
			for _, a := range acqs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					a.Path, a.ExperimentNumber, a.AcquisitionNumber, a.Epoch, a.SampleRate,
					a.Timestamp.Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&epoch, "epoch", 0, "only list this epoch")
	cmd.AddCommand(list)

	return cmd
}
