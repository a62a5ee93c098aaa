package commands

import (
	"context"
	"fmt"
	"os"

	"beatmapvault/pkg/app"
	"beatmapvault/pkg/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// 全局应用实例，供子命令使用
	BSV *app.App
)

var rootCmd = &cobra.Command{
	Use:           "bsv",
	Short:         "beatmapvault: versioned, content-addressed beatmapset storage",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init 命令负责创建环境，不能依赖环境
		if cmd.Name() == "init" || BSV != nil {
			return nil
		}

		var err error
		BSV, err = app.NewApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize beatmapvault: %w\n(Did you run 'bsv init'?)", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if BSV == nil {
			return nil
		}
		err := BSV.Close()
		BSV = nil
		return err
	},
}

// Execute 是入口
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.bsv/config.yaml or $HOME/.bsv/config.yaml)")

	// 常用配置项允许通过 flag 覆盖
	flags := []struct{ name, key, usage string }{
		{"storage-path", "storage.path", "directory to store file contents"},
		{"db-driver", "database.driver", "metadata database driver (postgres|sqlite)"},
		{"db-path", "database.path", "sqlite database file"},
		{"log-level", "log.level", "log level (debug|info|warn|error)"},
	}
	for _, f := range flags {
		rootCmd.PersistentFlags().String(f.name, "", f.usage)
		if err := viper.BindPFlag(f.key, rootCmd.PersistentFlags().Lookup(f.name)); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to bind flag:", err)
			os.Exit(1)
		}
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "Config error:", err)
		os.Exit(1)
	}
}
