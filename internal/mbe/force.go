package mbe

import "gonum.org/v1/gonum/spatial/r2"

// Force contributes loads to a state being realized to Dynamics. The state
// is realized through Velocity when ApplyForces is called.
type Force interface {
	Name() string
	ApplyForces(m *Model, s *State, bodyForces []SpatialForce, mobilityForces []float64) error
}

func (m *Model) applyGravity(s *State, bodyForces []SpatialForce) {
	if s.gravityDisabled || (m.gravity == r2.Vec{}) {
		return
	}
	for _, b := range m.bodies {
		if b.Mass == 0 {
			continue
		}
		m.ApplyPointForce(s, b.index, b.COM, r2.Scale(b.Mass, m.gravity), bodyForces)
	}
}
