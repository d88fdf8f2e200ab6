package sim

import (
	"context"
	"fmt"
)

type Simulator struct {
	dyn        Dynamics
	integrator Integrator
	controller Controller
	observers  []Observer
}

func New(dyn Dynamics, integrator Integrator, controller Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run integrates from x0 for cfg.Duration. On failure the result holds the
// trajectory up to the failing step.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration/cfg.Dt + 0.5)
	result := &Result{
		States:   make([]State, 0, steps+1),
		Controls: make([]Control, 0, steps),
		Times:    make([]float64, 0, steps+1),
	}

	x := x0.Clone()
	t := 0.0
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		u := s.controller.Compute(x, t)
		if len(u) != s.dyn.ControlDim() {
			return result, &SimulationError{Step: i, Time: t, State: x.Clone(),
				Wrapped: fmt.Errorf("%w: %d controls for %d actuators", ErrDimensionMismatch, len(u), s.dyn.ControlDim())}
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		next, err := s.integrator.Step(s.dyn, x, u, t, cfg.Dt)
		if err != nil {
			return result, &SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: err}
		}
		if !next.IsValid() {
			return result, &SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: ErrInvalidState}
		}

		x = next
		t = float64(i+1) * cfg.Dt

		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, t)
	}

	return result, nil
}

func (s *Simulator) validate(x0 State, cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, cfg.Duration)
	}
	if len(x0) != s.dyn.StateDim() {
		return fmt.Errorf("%w: state has %d entries, system needs %d", ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}
	return nil
}
