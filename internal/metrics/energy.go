package metrics

import (
	"math"

	"github.com/san-kum/armcheck/internal/mbe"
	"github.com/san-kum/armcheck/internal/sim"
)

// EnergyDrift tracks the largest relative change in mechanical energy
// from the first observed step. Muscles do work on the model, so the
// drift is only an integrator diagnostic when they are idle.
type EnergyDrift struct {
	model    *mbe.Model
	state    *mbe.State
	initial  float64
	current  float64
	maxDrift float64
	samples  int
	err      error
}

// NewEnergyDrift evaluates energies on a private copy of s.
func NewEnergyDrift(m *mbe.Model, s *mbe.State) *EnergyDrift {
	return &EnergyDrift{model: m, state: s.Clone()}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

// Energy returns kinetic plus potential energy of the state vector x.
func (e *EnergyDrift) Energy(x sim.State) (float64, error) {
	nq := e.model.NumCoordinates()
	e.state.SetQ(x[:nq])
	e.state.SetU(x[nq:])
	if err := e.model.Realize(e.state, mbe.StagePosition); err != nil {
		return 0, err
	}
	ke, err := e.model.KineticEnergy(e.state)
	if err != nil {
		return 0, err
	}
	pe, err := e.model.PotentialEnergy(e.state)
	if err != nil {
		return 0, err
	}
	return ke + pe, nil
}

func (e *EnergyDrift) OnStep(x sim.State, u sim.Control, t float64) {
	if e.err != nil {
		return
	}
	energy, err := e.Energy(x)
	if err != nil {
		e.err = err
		return
	}
	if e.samples == 0 {
		e.initial = energy
	}
	e.current = energy
	e.samples++

	scale := math.Abs(e.initial)
	if scale == 0 {
		scale = 1
	}
	e.maxDrift = math.Max(e.maxDrift, math.Abs(energy-e.initial)/scale)
}

// Value is NaN once an energy evaluation has failed.
func (e *EnergyDrift) Value() float64 {
	if e.err != nil {
		return math.NaN()
	}
	return e.maxDrift
}

func (e *EnergyDrift) Current() float64 { return e.current }

func (e *EnergyDrift) Err() error { return e.err }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.current = 0
	e.maxDrift = 0
	e.samples = 0
	e.err = nil
}
