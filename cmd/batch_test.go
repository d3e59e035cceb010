package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulfgate/valuer/internal/model"
)

func TestReadIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ids.csv")
	require.NoError(t, os.WriteFile(path, []byte("id\np-1\np-2\n\np-3\n"), 0644))

	ids, err := readIDs(path, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2", "p-3"}, ids)
}

func TestReadIDsLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ids.csv")
	require.NoError(t, os.WriteFile(path, []byte("p-1\np-2\np-3\n"), 0644))

	ids, err := readIDs(path, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2"}, ids)
}

func TestReadIDsMissingFile(t *testing.T) {
	_, err := readIDs("/nonexistent/ids.csv", 0)
	assert.Error(t, err)
}

func TestWriteValuationCSV(t *testing.T) {
	var buf bytes.Buffer

	results := []*model.Valuation{
		{
			PropertyID:        "p-1",
			EstimatedValueAED: 2_400_000,
			ConfidenceLowAED:  2_160_000,
			ConfidenceHighAED: 2_640_000,
			ConfidenceLevel:   model.ConfidenceHigh,
			PricePerSqft:      2000,
			Comparables:       make([]model.Comparable, 10),
			EstimatedRentAED:  144_000,
			GrossYieldPct:     6.0,
			MAE:               3.2,
		},
		nil, // failed entries are skipped
	}

	require.NoError(t, writeValuationCSV(&buf, results))

	out := buf.String()
	assert.Contains(t, out, "property_id,estimated_value_aed")
	assert.Contains(t, out, "p-1,2400000,2160000,2640000,HIGH,2000.0,10,144000,6.00,3.2")
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}
