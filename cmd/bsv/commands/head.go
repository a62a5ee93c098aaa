package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var headCmd = &cobra.Command{
	Use:   "head <beatmapset-id>",
	Short: "Print the current head version of a beatmapset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg, err := packageArg(args[0])
		if err != nil {
			return err
		}

		head, ok, err := BSV.Registry.HeadOf(cmd.Context(), pkg)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "beatmapset %d has no versions\n", pkg)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), head)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(headCmd)
}
