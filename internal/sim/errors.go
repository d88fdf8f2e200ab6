package sim

import "errors"

var (
	// ErrInvalidState indicates a state vector holding NaN or Inf.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("sim: dimension mismatch between state and system")

	ErrInvalidConfig = errors.New("sim: invalid configuration")
)

// SimulationError wraps an error with the step at which it occurred.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return e.Wrapped.Error()
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
