package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// 本地模式默认配置：sqlite + 磁盘存储，开箱即用
const localConfig = `database:
  driver: sqlite
  path: .bsv/meta.db
storage:
  type: disk
  path: .bsv/objects
log:
  level: info
  format: text
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a local beatmapvault workspace",
	Long:  `Create .bsv/ with a sqlite + disk configuration in the current directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}

		root := filepath.Join(wd, ".bsv")
		cfgPath := filepath.Join(root, "config.yaml")

		if _, err := os.Stat(cfgPath); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "beatmapvault workspace already exists in %s\n", root)
			return nil
		}

		if err := os.MkdirAll(filepath.Join(root, "objects"), 0755); err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}
		if err := os.WriteFile(cfgPath, []byte(localConfig), 0644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty beatmapvault workspace in %s\n", root)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
