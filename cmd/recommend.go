package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/referral-cli/internal/server"
)

var (
	recommendLat         float64
	recommendLng         float64
	recommendRadius      float64
	recommendMinRefs     int
	recommendSpecialties []string
	recommendLimit       int
	recommendJSON        bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank outbound referral candidates for a client location",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), "recommend")
		if err != nil {
			return err
		}
		defer env.Close()

		lat, lng, err := originFromFlags(recommendLat, recommendLng,
			cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng"))
		if err != nil {
			return err
		}

		req := server.RecommendRequest{
			Latitude:    lat,
			Longitude:   lng,
			Specialties: recommendSpecialties,
			Limit:       recommendLimit,
		}
		if cmd.Flags().Changed("radius") {
			req.MaxRadiusMiles = &recommendRadius
		}
		if cmd.Flags().Changed("min-referrals") {
			req.MinReferrals = &recommendMinRefs
		}

		res, err := env.recommend(cmd.Context(), req)
		if err != nil {
			return err
		}

		if recommendJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		if len(res.Candidates) == 0 {
			fmt.Println("No candidates matched the request.")
			return nil
		}
		if res.Reason != "ok" {
			fmt.Printf("Note: %s\n", res.Reason)
		}
		for i, c := range res.Candidates {
			line := fmt.Sprintf("%2d. %s", i+1, c.Provider.FullName)
			if c.DistanceMiles != nil {
				line += fmt.Sprintf("  (%.1f mi)", *c.DistanceMiles)
			}
			line += fmt.Sprintf("  out=%d in=%d", c.Provider.OutboundCount, c.Provider.InboundCount)
			if c.Provider.IsPreferred {
				line += "  [preferred]"
			}
			if c.Provider.Phone != "" {
				line += "  " + c.Provider.Phone
			}
			fmt.Println(line)
		}
		for _, w := range warningsSummary(res.Warnings) {
			fmt.Println("warning:", w)
		}
		return nil
	},
}

func init() {
	recommendCmd.Flags().Float64Var(&recommendLat, "lat", 0, "client latitude")
	recommendCmd.Flags().Float64Var(&recommendLng, "lng", 0, "client longitude")
	recommendCmd.Flags().Float64Var(&recommendRadius, "radius", 0, "max candidate distance in miles (overrides config)")
	recommendCmd.Flags().IntVar(&recommendMinRefs, "min-referrals", 0, "min outbound referral count (overrides config)")
	recommendCmd.Flags().StringSliceVar(&recommendSpecialties, "specialty", nil, "restrict to providers with any of these specialties")
	recommendCmd.Flags().IntVar(&recommendLimit, "limit", 10, "max candidates to return")
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "emit JSON instead of text")
	rootCmd.AddCommand(recommendCmd)
}
