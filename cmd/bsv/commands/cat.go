package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat <version-id> <filename>",
	Short: "Write a file of a version to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := versionArg(args[0])
		if err != nil {
			return err
		}

		files, err := BSV.Chain.Entries(ctx, id)
		if err != nil {
			return err
		}
		for _, f := range files {
			if f.Filename != args[1] {
				continue
			}
			rc, err := BSV.Contents.Open(ctx, f.Content)
			if err != nil {
				return err
			}
			defer rc.Close()
			_, err = io.Copy(cmd.OutOrStdout(), rc)
			return err
		}
		return fmt.Errorf("version %d has no file named %q", id, args[1])
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
