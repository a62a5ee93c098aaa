package commands

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"beatmapvault/pkg/chain"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log <beatmapset-id>",
	Short: "Show the version history of a beatmapset",
	Long:  `Walk the version chain from the current head back to the first version.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pkg, err := packageArg(args[0])
		if err != nil {
			return err
		}

		head, ok, err := BSV.Registry.HeadOf(ctx, pkg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !ok {
			fmt.Fprintf(out, "beatmapset %d has no versions\n", pkg)
			return nil
		}

		history, err := BSV.Chain.History(ctx, head)
		if err != nil {
			return err
		}
		for _, v := range history {
			printVersion(cmd, v)
		}
		return nil
	},
}

func printVersion(cmd *cobra.Command, v chain.Version) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "version %d\n", v.ID)
	if v.Previous != nil {
		fmt.Fprintf(out, "Parent:   %d\n", *v.Previous)
	}
	fmt.Fprintf(out, "Date:     %s\n", v.CreatedAt.Format(time.RFC1123))
	fmt.Fprintf(out, "Manifest: %s\n", v.ManifestHash.Short())
	if len(v.Meta) > 0 {
		pairs := make([]string, 0, len(v.Meta))
		for _, k := range slices.Sorted(maps.Keys(v.Meta)) {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, v.Meta[k]))
		}
		fmt.Fprintf(out, "Meta:     %s\n", strings.Join(pairs, " "))
	}
	fmt.Fprintln(out)
}

func init() {
	rootCmd.AddCommand(logCmd)
}
