package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force a rebuild of the provider set from the sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), "refresh")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.providers.Refresh(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Built %d providers (%d inbound events, %d outbound events, %d preferred entries)\n",
			len(res.Providers), res.InboundEvents, res.OutboundEvents, res.PreferredEntries)
		for _, w := range warningsSummary(res.Warnings) {
			fmt.Println("warning:", w)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
