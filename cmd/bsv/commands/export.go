package commands

import (
	"fmt"

	"beatmapvault/pkg/chain"
	"beatmapvault/pkg/exporter"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <version-id> <dir>",
	Short: "Write every file of a version into a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := versionArg(args[0])
		if err != nil {
			return err
		}

		exp := exporter.NewExporter(BSV.Contents, BSV.Chain)
		count := 0
		err = exp.Restore(cmd.Context(), id, args[1], func(path string, f chain.File) {
			count++
			BSV.Log.Debug("restored file", "path", path, "size", f.Size)
		})
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d files of version %d to %s\n", count, id, args[1])
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <version-id>",
	Short: "Print the manifest of a version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := versionArg(args[0])
		if err != nil {
			return err
		}
		m, err := BSV.Chain.Manifest(cmd.Context(), id)
		if err != nil {
			return err
		}
		return exporter.PrintManifest(m, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(showCmd)
}
