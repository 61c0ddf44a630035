package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/referral-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "referral-cli",
	Short: "Provider referral recommendation engine",
	Long:  "Ingests practice-management referral exports, aggregates them into a provider directory, and ranks outbound referral candidates by distance, referral history, and preferred status.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
