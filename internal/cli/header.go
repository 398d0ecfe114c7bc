package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ginty-lab/ephus/internal/decode"
)

func NewHeaderCmd(deps *Dependencies) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "header FILE",
		Short: "Print the decoded header of an XSG file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			header, err := deps.parser.ParseHeader(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(decode.Native(header))
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "print on a single line")
	return cmd
}
