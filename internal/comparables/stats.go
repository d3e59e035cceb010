package comparables

import (
	"sort"

	"github.com/gulfgate/valuer/internal/model"
)

// PriceSummary holds median/average/min/max over a price series.
type PriceSummary struct {
	Median float64 `json:"median"`
	Avg    float64 `json:"avg"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// PriceStats summarizes both the raw and adjusted prices of a comparable set.
type PriceStats struct {
	Count    int          `json:"count"`
	Raw      PriceSummary `json:"raw"`
	Adjusted PriceSummary `json:"adjusted"`
}

// Stats computes price statistics over a comparable set. An empty set yields
// zero values.
func Stats(comps []model.Comparable) PriceStats {
	stats := PriceStats{Count: len(comps)}
	if len(comps) == 0 {
		return stats
	}

	raw := make([]float64, len(comps))
	adjusted := make([]float64, len(comps))
	for i, c := range comps {
		raw[i] = c.RawPriceAED
		adjusted[i] = c.AdjustedPriceAED
	}

	stats.Raw = summarize(raw)
	stats.Adjusted = summarize(adjusted)
	return stats
}

func summarize(values []float64) PriceSummary {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return PriceSummary{
		Median: median(sorted),
		Avg:    sum / float64(len(sorted)),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}

// median uses the standard even/odd rule over a sorted slice.
func median(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
