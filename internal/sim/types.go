package sim

import "math"

// State is a flat state vector. Musculoskeletal models lay it out as
// generalized coordinates followed by generalized speeds.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Control holds one excitation per actuator.
type Control []float64

type Dynamics interface {
	Derivative(x State, u Control, t float64) (State, error)
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t float64, dt float64) (State, error)
}

type Controller interface {
	Compute(x State, t float64) Control
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

type Config struct {
	Dt       float64
	Duration float64
}

type Result struct {
	States   []State
	Controls []Control
	Times    []float64
}
