package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gulfgate/valuer/internal/model"
	"github.com/gulfgate/valuer/internal/valuation"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Value a batch of stored properties from a CSV of ids",
	Long: `Run valuations for many stored properties. The input CSV needs a
property id in the first column; a header row named "id" is skipped.
Results are written as CSV to stdout or --output.

Examples:
  batch --input ids.csv --output valuations.csv
  batch --input ids.csv --limit 500`,
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.String("input", "", "CSV file of property ids (required)")
	f.String("output", "", "output CSV path (default: stdout)")
	f.Int("limit", 0, "max properties to value (0=all)")
	f.Int("concurrency", 0, "max concurrent valuations (overrides config)")
	f.Float64("rate", 0, "valuations per second (overrides config)")
	f.String("requested-by", "batch", "requester recorded on each valuation")

	batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	limit, _ := cmd.Flags().GetInt("limit")
	requestedBy, _ := cmd.Flags().GetString("requested-by")

	ids, err := readIDs(inputPath, limit)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		zap.L().Info("no property ids in input")
		return nil
	}

	e, err := initEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	out := os.Stdout
	if outputPath != "" {
		out, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "batch: create output file %s", outputPath)
		}
		defer out.Close() //nolint:errcheck
	}

	concurrency := cfg.Batch.MaxConcurrent
	if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
		concurrency = v
	}
	perSecond := cfg.Batch.RatePerSecond
	if v, _ := cmd.Flags().GetFloat64("rate"); v > 0 {
		perSecond = v
	}

	zap.L().Info("processing batch",
		zap.Int("properties", len(ids)),
		zap.Int("concurrency", concurrency),
		zap.Float64("rate_per_second", perSecond),
	)

	limiter := rate.NewLimiter(rate.Limit(perSecond), concurrency)
	results := make([]*model.Valuation, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for i, id := range ids {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}

			log := zap.L().With(zap.String("property_id", id))
			v, err := e.Estimator.EstimateValue(gctx, valuation.PropertyRef(id), requestedBy)
			if err != nil {
				failed.Add(1)
				log.Error("valuation failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			results[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	if err := writeValuationCSV(out, results); err != nil {
		return err
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

// readIDs parses the first column of a CSV file, skipping a header row whose
// first cell is "id".
func readIDs(path string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: open input %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var ids []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "batch: read input CSV")
		}
		if len(rec) == 0 || rec[0] == "" || rec[0] == "id" {
			continue
		}
		ids = append(ids, rec[0])
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

func writeValuationCSV(w io.Writer, results []*model.Valuation) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"property_id", "estimated_value_aed", "confidence_low_aed",
		"confidence_high_aed", "confidence_level", "price_per_sqft",
		"comparables", "estimated_rent_aed", "gross_yield_pct", "mae",
	}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "batch: write CSV header")
	}

	for _, v := range results {
		if v == nil {
			continue
		}
		row := []string{
			v.PropertyID,
			fmt.Sprintf("%.0f", v.EstimatedValueAED),
			fmt.Sprintf("%.0f", v.ConfidenceLowAED),
			fmt.Sprintf("%.0f", v.ConfidenceHighAED),
			string(v.ConfidenceLevel),
			fmt.Sprintf("%.1f", v.PricePerSqft),
			fmt.Sprintf("%d", len(v.Comparables)),
			fmt.Sprintf("%.0f", v.EstimatedRentAED),
			fmt.Sprintf("%.2f", v.GrossYieldPct),
			fmt.Sprintf("%.1f", v.MAE),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "batch: write CSV row")
		}
	}
	return nil
}
