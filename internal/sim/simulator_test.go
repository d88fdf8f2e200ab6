package sim

import (
	"context"
	"errors"
	"math"
	"testing"
)

type decay struct{ fail float64 }

func (d *decay) Derivative(x State, u Control, t float64) (State, error) {
	if d.fail > 0 && t >= d.fail {
		return nil, errors.New("decay: refused")
	}
	return State{-x[0] + u[0]}, nil
}

func (d *decay) StateDim() int   { return 1 }
func (d *decay) ControlDim() int { return 1 }

type euler struct{}

func (euler) Step(dyn Dynamics, x State, u Control, t float64, dt float64) (State, error) {
	dx, err := dyn.Derivative(x, u, t)
	if err != nil {
		return nil, err
	}
	return State{x[0] + dt*dx[0]}, nil
}

type constant float64

func (c constant) Compute(x State, t float64) Control { return Control{float64(c)} }

type counter struct{ n int }

func (c *counter) OnStep(x State, u Control, t float64) { c.n++ }

func TestSimulatorRun(t *testing.T) {
	sim := New(&decay{}, euler{}, constant(0))
	obs := &counter{}
	sim.AddObserver(obs)

	result, err := sim.Run(context.Background(), State{1.0}, Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 11 || len(result.Times) != 11 || len(result.Controls) != 10 {
		t.Errorf("got %d states, %d times, %d controls", len(result.States), len(result.Times), len(result.Controls))
	}
	if obs.n != 10 {
		t.Errorf("observer saw %d steps", obs.n)
	}
	if math.Abs(result.Times[10]-1) > 1e-12 {
		t.Errorf("final time = %v", result.Times[10])
	}

	finalState := result.States[len(result.States)-1][0]
	expected := math.Exp(-1.0)
	if math.Abs(finalState-expected) > 0.05 {
		t.Errorf("expected final state ~%.4f, got %.4f", expected, finalState)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(&decay{}, euler{}, constant(0))

	tests := []struct {
		name string
		x0   State
		cfg  Config
		want error
	}{
		{"zero dt", State{1}, Config{Dt: 0, Duration: 1.0}, ErrInvalidConfig},
		{"negative dt", State{1}, Config{Dt: -0.1, Duration: 1.0}, ErrInvalidConfig},
		{"zero duration", State{1}, Config{Dt: 0.1, Duration: 0}, ErrInvalidConfig},
		{"wrong state size", State{1, 2}, Config{Dt: 0.1, Duration: 1}, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sim.Run(context.Background(), tt.x0, tt.cfg); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSimulatorStopsOnFailure(t *testing.T) {
	sim := New(&decay{fail: 0.5}, euler{}, constant(0))
	result, err := sim.Run(context.Background(), State{1.0}, Config{Dt: 0.1, Duration: 1.0})

	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %v", err)
	}
	if simErr.Step != 5 {
		t.Errorf("failed at step %d", simErr.Step)
	}
	if len(result.States) != 6 {
		t.Errorf("kept %d states", len(result.States))
	}
}

func TestSimulatorRejectsNaN(t *testing.T) {
	sim := New(&decay{}, euler{}, constant(math.NaN()))
	_, err := sim.Run(context.Background(), State{1.0}, Config{Dt: 0.1, Duration: 1.0})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected invalid state, got %v", err)
	}
}

func TestSimulatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sim := New(&decay{}, euler{}, constant(0))
	if _, err := sim.Run(ctx, State{1.0}, Config{Dt: 0.1, Duration: 1.0}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
