package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files <version-id>",
	Short: "List the files of a version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := versionArg(args[0])
		if err != nil {
			return err
		}

		files, err := BSV.Chain.Entries(cmd.Context(), id)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FILE_ID\tSIZE\tHASH\tFILENAME")
		for _, f := range files {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", f.Content, f.Size, f.Hash.Short(), f.Filename)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
}
