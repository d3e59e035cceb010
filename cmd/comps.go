package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gulfgate/valuer/internal/comparables"
)

var compsCmd = &cobra.Command{
	Use:   "comps",
	Short: "List comparable properties for a valuation target",
	Long: `Find and score comparable properties without producing a full
valuation. Accepts the same target flags as estimate.

Examples:
  comps --id 550e8400-e29b-41d4-a716-446655440000
  comps --community "JVC" --type apartment --bedrooms 1 --area 750 --limit 20`,
	RunE: runComps,
}

func init() {
	f := compsCmd.Flags()
	f.String("id", "", "stored property id")
	f.String("community", "", "community name (ad hoc target)")
	f.String("type", "", "property type")
	f.Int("bedrooms", -1, "number of bedrooms")
	f.Float64("bathrooms", -1, "number of bathrooms")
	f.Int("area", 0, "area in square feet")
	f.Int("year", 0, "completion year")
	f.String("completion", "", "completion status: ready or off_plan")
	f.String("amenities", "", "comma-separated amenity list")
	f.Int("floor", -1, "floor number")
	f.String("view", "", "view description")
	f.Float64("listed-price", 0, "listed price in AED")
	f.Int("limit", 0, "maximum comparables to return (0=config default)")
	f.String("format", "text", "output format: text or json")

	rootCmd.AddCommand(compsCmd)
}

func runComps(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return eris.Errorf("comps: --format must be text or json (got %q)", format)
	}

	subject, err := subjectFromFlags(cmd)
	if err != nil {
		return err
	}

	e, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	comps, err := e.Estimator.FindComparables(ctx, subject, limit)
	if err != nil {
		return err
	}

	stats := comparables.Stats(comps)

	if format == "json" {
		return printJSON(struct {
			Comparables any `json:"comparables"`
			Stats       any `json:"stats"`
		}{comps, stats})
	}

	if len(comps) == 0 {
		fmt.Println("No comparables found.")
		return nil
	}

	fmt.Printf("%-40s %10s %14s %14s\n", "Comparable", "Similarity", "Raw AED", "Adjusted AED")
	fmt.Println(strings.Repeat("-", 82))
	for _, c := range comps {
		fmt.Printf("%-40s %10.2f %14s %14s\n",
			c.PropertyID, c.Similarity, formatMoney(c.RawPriceAED), formatMoney(c.AdjustedPriceAED))
	}

	fmt.Printf("\n--- Adjusted price summary (%d comparables) ---\n", stats.Count)
	fmt.Printf("Median: AED %s\n", formatMoney(stats.Adjusted.Median))
	fmt.Printf("Avg:    AED %s\n", formatMoney(stats.Adjusted.Avg))
	fmt.Printf("Range:  AED %s - %s\n", formatMoney(stats.Adjusted.Min), formatMoney(stats.Adjusted.Max))
	return nil
}
