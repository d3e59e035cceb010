package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gulfgate/valuer/internal/valuation"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{950, "950"},
		{2400000, "2,400,000"},
		{12345678, "12,345,678"},
		{-50000, "-50,000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMoney(tt.in))
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"pool", "gym"}, splitAndTrim(" pool , gym ,"))
	assert.Nil(t, splitAndTrim(" , "))
}

func TestSubjectFromFlagsByID(t *testing.T) {
	cmd := estimateCmd
	require.NoError(t, cmd.Flags().Set("id", "p-1"))
	t.Cleanup(func() { cmd.Flags().Set("id", "") })

	subject, err := subjectFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, valuation.PropertyRef("p-1"), subject)
}

func TestSubjectFromFlagsManual(t *testing.T) {
	cmd := estimateCmd
	require.NoError(t, cmd.Flags().Set("community", "Dubai Marina"))
	require.NoError(t, cmd.Flags().Set("type", "apartment"))
	require.NoError(t, cmd.Flags().Set("bedrooms", "2"))
	require.NoError(t, cmd.Flags().Set("area", "1200"))
	require.NoError(t, cmd.Flags().Set("amenities", "pool,gym"))
	t.Cleanup(func() {
		cmd.Flags().Set("community", "")
		cmd.Flags().Set("type", "")
		cmd.Flags().Set("bedrooms", "-1")
		cmd.Flags().Set("area", "0")
		cmd.Flags().Set("amenities", "")
	})

	subject, err := subjectFromFlags(cmd)
	require.NoError(t, err)

	manual, ok := subject.(valuation.ManualTarget)
	require.True(t, ok)
	assert.Equal(t, "Dubai Marina", manual.Community)
	require.NotNil(t, manual.Bedrooms)
	assert.Equal(t, 2, *manual.Bedrooms)
	assert.Equal(t, []string{"pool", "gym"}, manual.Amenities)
}

func TestSubjectFromFlagsMutuallyExclusive(t *testing.T) {
	cmd := estimateCmd
	require.NoError(t, cmd.Flags().Set("id", "p-1"))
	require.NoError(t, cmd.Flags().Set("community", "JVC"))
	t.Cleanup(func() {
		cmd.Flags().Set("id", "")
		cmd.Flags().Set("community", "")
	})

	_, err := subjectFromFlags(cmd)
	assert.Error(t, err)
}
