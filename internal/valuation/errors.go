// Package valuation orchestrates feature extraction, comparable selection,
// and statistical estimation into immutable Valuation records.
package valuation

import "github.com/rotisserie/eris"

// Caller-visible failure taxonomy. Checked with eris.Is; never silently
// converted to a zero estimate.
var (
	// ErrNotFound means a supplied property id does not resolve.
	ErrNotFound = eris.New("valuation: property not found")

	// ErrInsufficientData means zero comparables were found, or the total
	// similarity weight is zero, so no estimate can be produced.
	ErrInsufficientData = eris.New("valuation: insufficient comparable data")

	// ErrInvalidInput means the manual attribute bundle is missing mandatory
	// fields, or carries a non-positive area.
	ErrInvalidInput = eris.New("valuation: invalid input")
)
