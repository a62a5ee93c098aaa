package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <beatmapset-id>",
	Short: "Check that a beatmapset's versions form a single linear chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg, err := packageArg(args[0])
		if err != nil {
			return err
		}
		if err := BSV.Chain.VerifyChain(cmd.Context(), pkg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "beatmapset %d: chain ok\n", pkg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
