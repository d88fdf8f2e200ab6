package mbe

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func newPendulum(t *testing.T, mass, length float64) (*Model, *State) {
	t.Helper()
	m := NewModel("pendulum")
	m.AddBody("rod", mass, r2.Vec{Y: -length}, 0)
	m.AddJoint("hinge", Pin, Ground, "rod", r2.Vec{}, r2.Vec{}, "theta")
	s, err := m.InitSystem()
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	return m, s
}

// newDoublePendulum uses an absolute first angle and a relative second angle.
func newDoublePendulum(t *testing.T, m1, m2, l1, l2 float64) (*Model, *State) {
	t.Helper()
	m := NewModel("double_pendulum")
	m.AddBody("upper", m1, r2.Vec{Y: -l1}, 0)
	m.AddBody("lower", m2, r2.Vec{Y: -l2}, 0)
	m.AddJoint("shoulder", Pin, Ground, "upper", r2.Vec{}, r2.Vec{}, "q1")
	m.AddJoint("elbow", Pin, "upper", "lower", r2.Vec{Y: -l1}, r2.Vec{}, "q2")
	s, err := m.InitSystem()
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	return m, s
}

// newCoupledPair ties q2 = ratio·q1.
func newCoupledPair(t *testing.T, ratio float64) (*Model, *State) {
	t.Helper()
	m := NewModel("coupled_pair")
	m.AddBody("upper", 1, r2.Vec{Y: -0.5}, 0.1)
	m.AddBody("lower", 1, r2.Vec{Y: -0.5}, 0.1)
	m.AddJoint("shoulder", Pin, Ground, "upper", r2.Vec{}, r2.Vec{}, "q1")
	m.AddJoint("elbow", Pin, "upper", "lower", r2.Vec{Y: -1}, r2.Vec{}, "q2")
	m.AddCoupler("q2_follows_q1", "q2", LinearFunction{Coefficients: []float64{ratio}}, "q1")
	s, err := m.InitSystem()
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	return m, s
}

func mustCoordinate(t *testing.T, m *Model, name string) *Coordinate {
	t.Helper()
	c, err := m.Coordinate(name)
	if err != nil {
		t.Fatalf("coordinate %s: %v", name, err)
	}
	return c
}

func mustRealize(t *testing.T, m *Model, s *State, stage Stage) {
	t.Helper()
	if err := m.Realize(s, stage); err != nil {
		t.Fatalf("realize %s failed: %v", stage, err)
	}
}
