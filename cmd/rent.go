package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var rentCmd = &cobra.Command{
	Use:   "rent",
	Short: "Estimate annual rent and gross yield for a stored property",
	Long: `Estimate a property's annual rent from market rent-per-sqft data,
falling back to community-typical yields when no market data exists.

Examples:
  rent --id 550e8400-e29b-41d4-a716-446655440000
  rent --id ... --purchase-price 2400000`,
	RunE: runRent,
}

func init() {
	f := rentCmd.Flags()
	f.String("id", "", "stored property id (required)")
	f.Float64("purchase-price", 0, "purchase price in AED, overrides the listed price for yield")
	f.String("format", "text", "output format: text or json")

	rentCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(rentCmd)
}

func runRent(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return eris.Errorf("rent: --format must be text or json (got %q)", format)
	}

	e, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	id, _ := cmd.Flags().GetString("id")
	purchasePrice, _ := cmd.Flags().GetFloat64("purchase-price")

	est, err := e.Estimator.EstimateRental(ctx, id, purchasePrice)
	if err != nil {
		return err
	}

	if format == "json" {
		return printJSON(est)
	}

	fmt.Printf("Annual rent:  AED %s\n", formatMoney(est.AnnualRentAED))
	fmt.Printf("Monthly rent: AED %s\n", formatMoney(est.MonthlyRentAED))
	if est.GrossYieldPct > 0 {
		fmt.Printf("Gross yield:  %.1f%%\n", est.GrossYieldPct)
	} else {
		fmt.Println("Gross yield:  n/a (no purchase or listed price)")
	}
	return nil
}
