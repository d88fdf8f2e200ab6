package mbe

import (
	"errors"
	"fmt"
)

// Domain errors for engine operations.
var (
	// ErrNotFound indicates a body, coordinate, constraint or force name
	// that the model does not define.
	ErrNotFound = errors.New("mbe: name not found in model")

	// ErrStage indicates a quantity was requested before its stage was realized.
	ErrStage = errors.New("mbe: state not realized to required stage")

	// ErrSingular indicates a singular system matrix (e.g. massless bodies).
	ErrSingular = errors.New("mbe: singular system matrix")

	// ErrAssembly indicates constraints could not be satisfied.
	ErrAssembly = errors.New("mbe: constraints could not be satisfied")

	// ErrTopology indicates an invalid model description.
	ErrTopology = errors.New("mbe: invalid model topology")

	// ErrDimensionMismatch indicates a state or vector that does not match the model.
	ErrDimensionMismatch = errors.New("mbe: dimension mismatch between state and model")
)

// StageError reports which stage was required and which was available.
type StageError struct {
	Required Stage
	Current  Stage
}

func (e *StageError) Error() string {
	return fmt.Sprintf("mbe: stage %s required, state is at %s", e.Required, e.Current)
}

func (e *StageError) Unwrap() error {
	return ErrStage
}

func notFound(kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
}
