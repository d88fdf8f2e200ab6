package momentarm

import (
	"errors"
	"fmt"
	"math"
)

// Error kinds reported by the moment-arm checks.
var (
	// ErrToleranceViolation indicates two derivations of the same quantity
	// disagree by more than the caller's tolerance.
	ErrToleranceViolation = errors.New("momentarm: tolerance violation")

	// ErrArithmetic indicates a degenerate perturbation or a vanishing
	// coupling reference speed.
	ErrArithmetic = errors.New("momentarm: arithmetic error")

	// ErrConfiguration indicates a coordinate, muscle or constraint name
	// that the model does not define.
	ErrConfiguration = errors.New("momentarm: configuration error")
)

// ToleranceError records a failed comparison.
type ToleranceError struct {
	Quantity  string
	Expected  float64
	Found     float64
	Tolerance float64
}

func (e *ToleranceError) Error() string {
	return fmt.Sprintf("momentarm: %s: expected %g, found %g (tolerance %g, discrepancy %g)",
		e.Quantity, e.Expected, e.Found, e.Tolerance, e.Found-e.Expected)
}

func (e *ToleranceError) Unwrap() error {
	return ErrToleranceViolation
}

// ArithmeticError reports which computation degenerated.
type ArithmeticError struct {
	Op         string
	Coordinate string
	Detail     string
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("momentarm: %s for %s: %s", e.Op, e.Coordinate, e.Detail)
}

func (e *ArithmeticError) Unwrap() error {
	return ErrArithmetic
}

// Within reports whether found matches expected under the relative-or-
// absolute rule: |found-expected| <= max(tol, |expected|*tol).
func Within(expected, found, tol float64) bool {
	return math.Abs(found-expected) <= scaledTolerance(expected, tol)
}

// Compare returns a *ToleranceError when found is not Within tol of expected.
func Compare(quantity string, expected, found, tol float64) error {
	if e := compare(quantity, expected, found, tol); e != nil {
		return e
	}
	return nil
}

func compare(quantity string, expected, found, tol float64) *ToleranceError {
	if Within(expected, found, tol) {
		return nil
	}
	return &ToleranceError{Quantity: quantity, Expected: expected, Found: found, Tolerance: scaledTolerance(expected, tol)}
}

func scaledTolerance(expected, tol float64) float64 {
	return math.Max(tol, math.Abs(expected)*tol)
}
