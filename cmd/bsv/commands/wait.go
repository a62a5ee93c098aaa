package commands

import (
	"fmt"
	"time"

	"beatmapvault/pkg/waiter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	waitExpect    string
	waitNull      bool
	waitUnbounded bool
)

var waitCmd = &cobra.Command{
	Use:   "wait <sql>",
	Short: "Poll a scalar SQL query until it returns the expected value",
	Long: `Run <sql> repeatedly until its single result equals --expect (or is NULL with --null).
Values are compared as text. Exits non-zero with the last observed value on timeout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if waitNull == (waitExpect != "") {
			return fmt.Errorf("exactly one of --expect or --null is required")
		}

		var expected *string
		if !waitNull {
			expected = &waitExpect
		}

		opts := []waiter.Option{
			waiter.WithInterval(viper.GetDuration("wait.interval")),
			waiter.WithTimeout(viper.GetDuration("wait.timeout")),
			waiter.WithLogger(BSV.Log),
		}
		if waitUnbounded {
			opts = append(opts, waiter.Unbounded())
		}

		q := waiter.SQL[string](BSV.DB.GetConn(), args[0])
		start := time.Now()
		if err := waiter.WaitUntil(cmd.Context(), q, expected, opts...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "converged after %s\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	waitCmd.Flags().StringVar(&waitExpect, "expect", "", "expected value")
	waitCmd.Flags().BoolVar(&waitNull, "null", false, "wait until the query yields no row or NULL")
	waitCmd.Flags().Duration("interval", 0, "poll interval (default from wait.interval)")
	waitCmd.Flags().Duration("timeout", 0, "give up after this long (default from wait.timeout)")
	waitCmd.Flags().BoolVar(&waitUnbounded, "unbounded", false, "wait without a deadline (interactive debugging only)")
	_ = viper.BindPFlag("wait.interval", waitCmd.Flags().Lookup("interval"))
	_ = viper.BindPFlag("wait.timeout", waitCmd.Flags().Lookup("timeout"))
	rootCmd.AddCommand(waitCmd)
}
