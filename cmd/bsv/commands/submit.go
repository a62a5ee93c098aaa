package commands

import (
	"fmt"
	"strings"

	"beatmapvault/pkg/submission"

	"github.com/spf13/cobra"
)

var submitMeta []string

var submitCmd = &cobra.Command{
	Use:   "submit <beatmapset-id> <dir>",
	Short: "Submit a directory as the next version of a beatmapset",
	Long: `Store every file under <dir> (honouring .bsvignore) and append a new version
after the current head. Files identical to the head are carried forward without being re-stored.
If nothing changed, the head is kept and no version is created.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg, err := packageArg(args[0])
		if err != nil {
			return err
		}

		files, err := submission.LoadDir(args[1])
		if err != nil {
			return err
		}

		meta := make(map[string]any, len(submitMeta))
		for _, kv := range submitMeta {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				return fmt.Errorf("invalid --meta %q, expected key=value", kv)
			}
			meta[k] = v
		}

		res, err := BSV.Submission.Submit(cmd.Context(), pkg, files, meta)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !res.Created {
			fmt.Fprintf(out, "beatmapset %d unchanged, head is still version %d\n", pkg, res.Version)
			return nil
		}
		fmt.Fprintf(out, "beatmapset %d: created version %d (%d stored, %d carried forward)\n",
			pkg, res.Version, res.Stored, res.Reused)
		return nil
	},
}

func init() {
	submitCmd.Flags().StringArrayVar(&submitMeta, "meta", nil, "version metadata as key=value (repeatable)")
	rootCmd.AddCommand(submitCmd)
}
