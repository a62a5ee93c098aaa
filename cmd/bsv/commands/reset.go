package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetConfirm bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate all versioning tables",
	Long: `Destroy every beatmapset, content record and version, then recreate the empty schema.
Refused when the database carries the production marker (counts.name = 'is_production').`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		verdict, err := BSV.Guard.Check(ctx)
		if err != nil {
			return err
		}
		if !resetConfirm {
			fmt.Fprintf(out, "guard: %s\n", verdict)
			fmt.Fprintln(out, "re-run with --yes to reset")
			return nil
		}

		if err := BSV.Guard.Reinitialise(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "versioning tables reinitialised")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetConfirm, "yes", false, "actually perform the reset")
	rootCmd.AddCommand(resetCmd)
}
