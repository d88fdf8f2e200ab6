package integrators

import (
	"fmt"

	"github.com/san-kum/armcheck/internal/sim"
)

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t float64, dt float64) (sim.State, error) {
	dx, err := dyn.Derivative(x, u, t)
	if err != nil {
		return nil, err
	}
	result := make(sim.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result, nil
}

// New returns the integrator registered under name.
func New(name string) (sim.Integrator, error) {
	switch name {
	case "rk4", "":
		return NewRK4(), nil
	case "euler":
		return NewEuler(), nil
	}
	return nil, fmt.Errorf("unknown integrator: %s", name)
}
