package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gulfgate/valuer/internal/model"
	"github.com/gulfgate/valuer/internal/valuation"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate a property's market value",
	Long: `Estimate a property's value from comparable listings.

Either reference a stored property by id, or describe the target inline
with --community, --type, --bedrooms, and --area.

Examples:
  # Value a stored property
  estimate --id 550e8400-e29b-41d4-a716-446655440000

  # Value an ad hoc target
  estimate --community "Dubai Marina" --type apartment --bedrooms 2 --area 1200 \
    --bathrooms 2 --year 2020 --amenities pool,gym

  # Machine-readable output
  estimate --id ... --format json`,
	RunE: runEstimate,
}

func init() {
	f := estimateCmd.Flags()
	f.String("id", "", "stored property id")
	f.String("community", "", "community name (ad hoc target)")
	f.String("type", "", "property type: apartment, villa, townhouse, penthouse, land, commercial")
	f.Int("bedrooms", -1, "number of bedrooms")
	f.Float64("bathrooms", -1, "number of bathrooms")
	f.Int("area", 0, "area in square feet")
	f.Int("year", 0, "completion year")
	f.String("completion", "", "completion status: ready or off_plan")
	f.String("amenities", "", "comma-separated amenity list")
	f.Int("floor", -1, "floor number")
	f.String("view", "", "view description, e.g. sea, marina, burj")
	f.Float64("listed-price", 0, "listed price in AED, used for rental yield fallback")
	f.String("requested-by", "", "requester recorded on the valuation")
	f.String("format", "text", "output format: text or json")

	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return eris.Errorf("estimate: --format must be text or json (got %q)", format)
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

	requestedBy, _ := cmd.Flags().GetString("requested-by")
	v, err := e.Estimator.EstimateValue(ctx, subject, requestedBy)
	if err != nil {
		return err
	}

	if format == "json" {
		return printJSON(v)
	}
	printValuation(v)
	return nil
}

// subjectFromFlags builds the valuation subject from --id or the ad hoc
// target flags. The two modes are mutually exclusive.
func subjectFromFlags(cmd *cobra.Command) (valuation.Subject, error) {
	id, _ := cmd.Flags().GetString("id")
	community, _ := cmd.Flags().GetString("community")

	if id != "" && community != "" {
		return nil, eris.New("estimate: --id and --community are mutually exclusive")
	}
	if id != "" {
		return valuation.PropertyRef(id), nil
	}

	propType, _ := cmd.Flags().GetString("type")
	area, _ := cmd.Flags().GetInt("area")
	completion, _ := cmd.Flags().GetString("completion")
	view, _ := cmd.Flags().GetString("view")

	target := model.TargetProperty{
		Community:  community,
		Type:       model.PropertyType(propType),
		AreaSqft:   area,
		Completion: model.CompletionStatus(completion),
		View:       view,
	}
	if v, _ := cmd.Flags().GetInt("bedrooms"); v >= 0 {
		target.Bedrooms = &v
	}
	if v, _ := cmd.Flags().GetFloat64("bathrooms"); v >= 0 {
		target.Bathrooms = &v
	}
	if v, _ := cmd.Flags().GetInt("year"); v > 0 {
		target.CompletionYear = &v
	}
	if v, _ := cmd.Flags().GetInt("floor"); v >= 0 {
		target.Floor = &v
	}
	if v, _ := cmd.Flags().GetString("amenities"); v != "" {
		target.Amenities = splitAndTrim(v)
	}
	if v, _ := cmd.Flags().GetFloat64("listed-price"); v > 0 {
		target.ListedPriceAED = &v
	}

	return valuation.ManualTarget(target), nil
}

func printValuation(v *model.Valuation) {
	fmt.Printf("Estimated value:  AED %s\n", formatMoney(v.EstimatedValueAED))
	fmt.Printf("Confidence range: AED %s - %s (%s)\n",
		formatMoney(v.ConfidenceLowAED), formatMoney(v.ConfidenceHighAED), v.ConfidenceLevel)
	fmt.Printf("Price per sqft:   AED %.0f\n", v.PricePerSqft)
	fmt.Printf("Method:           %s\n", v.Method)
	fmt.Printf("Comparables:      %d\n", len(v.Comparables))
	fmt.Printf("Market trend:     %s\n", v.MarketFactors.Trend)
	if v.EstimatedRentAED > 0 {
		fmt.Printf("Estimated rent:   AED %s/year (%.1f%% gross yield)\n",
			formatMoney(v.EstimatedRentAED), v.GrossYieldPct)
	}
	fmt.Printf("Model MAE:        %.1f%%\n", v.MAE)

	if len(v.Comparables) > 0 {
		fmt.Printf("\n%-40s %10s %14s %14s\n", "Comparable", "Similarity", "Raw AED", "Adjusted AED")
		fmt.Println(strings.Repeat("-", 82))
		for _, c := range v.Comparables {
			fmt.Printf("%-40s %10.2f %14s %14s\n",
				c.PropertyID, c.Similarity, formatMoney(c.RawPriceAED), formatMoney(c.AdjustedPriceAED))
		}
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

func formatMoney(amount float64) string {
	s := fmt.Sprintf("%.0f", amount)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, byte(c))
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
