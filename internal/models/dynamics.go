package models

import (
	"fmt"

	"github.com/san-kum/armcheck/internal/mbe"
	"github.com/san-kum/armcheck/internal/muscle"
	"github.com/san-kum/armcheck/internal/sim"
)

// MuscleDriven exposes a model to the simulator. The state is [q; u] and
// the control holds one activation per muscle, in registration order.
// It is not safe for concurrent use.
type MuscleDriven struct {
	model   *mbe.Model
	state   *mbe.State
	muscles []*muscle.Muscle
	nq      int
}

// NewMuscleDriven takes s as the template for force toggles and the
// initial pose.
func NewMuscleDriven(m *mbe.Model, s *mbe.State) *MuscleDriven {
	return &MuscleDriven{
		model:   m,
		state:   s.Clone(),
		muscles: Muscles(m),
		nq:      m.NumCoordinates(),
	}
}

func (d *MuscleDriven) StateDim() int   { return 2 * d.nq }
func (d *MuscleDriven) ControlDim() int { return len(d.muscles) }

func (d *MuscleDriven) Muscles() []*muscle.Muscle { return d.muscles }

// InitialState returns the template pose and speeds as a flat state.
func (d *MuscleDriven) InitialState() sim.State {
	return append(sim.State(d.state.Q()), d.state.U()...)
}

// Labels names the state entries.
func (d *MuscleDriven) Labels() []string {
	coords := d.model.Coordinates()
	out := make([]string, 0, 2*len(coords))
	for _, c := range coords {
		out = append(out, c.Name())
	}
	for _, c := range coords {
		out = append(out, c.Name()+"_speed")
	}
	return out
}

func (d *MuscleDriven) Derivative(x sim.State, u sim.Control, t float64) (sim.State, error) {
	if len(x) != 2*d.nq || len(u) != len(d.muscles) {
		return nil, fmt.Errorf("%w: state %d, control %d", sim.ErrDimensionMismatch, len(x), len(u))
	}
	s := d.state
	s.SetQ(x[:d.nq])
	s.SetU(x[d.nq:])
	for i, mu := range d.muscles {
		mu.SetActivation(s, u[i])
	}
	if err := d.model.Realize(s, mbe.StagePosition); err != nil {
		return nil, err
	}
	for _, mu := range d.muscles {
		if err := mu.Equilibrate(s); err != nil {
			return nil, err
		}
	}
	if err := d.model.Realize(s, mbe.StageAcceleration); err != nil {
		return nil, err
	}
	udot, err := d.model.UDot(s)
	if err != nil {
		return nil, err
	}

	dx := make(sim.State, 0, 2*d.nq)
	dx = append(dx, x[d.nq:]...)
	return append(dx, udot...), nil
}

// SetPose assigns coordinate values by name, assembling couplers after
// each one.
func SetPose(m *mbe.Model, s *mbe.State, values map[string]float64) error {
	for _, c := range m.Coordinates() {
		v, ok := values[c.Name()]
		if !ok {
			continue
		}
		if err := c.SetValue(s, v, true); err != nil {
			return err
		}
	}
	for name := range values {
		if _, err := m.Coordinate(name); err != nil {
			return err
		}
	}
	return nil
}
