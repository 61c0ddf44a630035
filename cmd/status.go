package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/referral-cli/internal/store"
)

var statusRunLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache, source, and run-history status",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), "status")
		if err != nil {
			return err
		}
		defer env.Close()

		runs, err := env.store.ListRuns(cmd.Context(), store.RunFilter{Limit: statusRunLimit})
		if err != nil {
			return err
		}

		out := map[string]any{
			"cache":       env.providers.Snapshot(),
			"sources":     env.board.Snapshot(),
			"recent_runs": runs,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusRunLimit, "runs", 10, "number of recent runs to include")
	rootCmd.AddCommand(statusCmd)
}
