package momentarm

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/armcheck/internal/mbe"
	"github.com/san-kum/armcheck/internal/muscle"
)

// coordinatePath has a length given directly as a function of one coordinate.
type coordinatePath struct {
	coord *mbe.Coordinate
	fn    func(q float64) float64
}

func (p coordinatePath) Length(s *mbe.State) (float64, error) {
	return p.fn(p.coord.Value(s)), nil
}

// stuckCoordinate ignores every attempt to move it.
type stuckCoordinate struct {
	*mbe.Coordinate
}

func (stuckCoordinate) SetValue(*mbe.State, float64, bool) error { return nil }

func rigidMuscleParams(slack float64) muscle.Parameters {
	return muscle.Parameters{
		MaxIsometricForce:      100,
		OptimalFiberLength:     0.1,
		TendonSlackLength:      slack,
		IgnoreTendonCompliance: true,
		DefaultActivation:      1,
	}
}

type fixture struct {
	model  *mbe.Model
	state  *mbe.State
	muscle *muscle.Muscle
}

func (f fixture) coordinate(t *testing.T, name string) *mbe.Coordinate {
	t.Helper()
	c, err := f.model.Coordinate(name)
	if err != nil {
		t.Fatalf("coordinate %s: %v", name, err)
	}
	return c
}

// prepare disables gravity and every force but the muscle, sets the muscle
// state and realizes to Acceleration.
func (f fixture) prepare(t *testing.T) {
	t.Helper()
	f.model.DisableAllForces(f.state)
	if err := f.model.SetForceDisabled(f.state, f.muscle.Name(), false); err != nil {
		t.Fatal(err)
	}
	if err := f.model.Realize(f.state, mbe.StagePosition); err != nil {
		t.Fatal(err)
	}
	if err := f.muscle.Equilibrate(f.state); err != nil {
		t.Fatal(err)
	}
	if err := f.model.Realize(f.state, mbe.StageAcceleration); err != nil {
		t.Fatalf("realize: %v", err)
	}
}

func build(t *testing.T, m *mbe.Model, mu func(*mbe.Model) (*muscle.Muscle, error)) fixture {
	t.Helper()
	actuator, err := mu(m)
	if err != nil {
		t.Fatalf("muscle: %v", err)
	}
	m.AddForce(actuator)
	s, err := m.InitSystem()
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	return fixture{model: m, state: s, muscle: actuator}
}

func pendulum(mass, length float64) *mbe.Model {
	m := mbe.NewModel("pendulum")
	m.AddBody("rod", mass, r2.Vec{Y: -length}, 0)
	m.AddJoint("hinge", mbe.Pin, mbe.Ground, "rod", r2.Vec{}, r2.Vec{}, "theta")
	return m
}

// pulleyPendulum carries a muscle with a constant moment arm of radius that
// sits at optimal fiber length when theta equals at.
func pulleyPendulum(t *testing.T, radius, at float64) fixture {
	t.Helper()
	return build(t, pendulum(1, 1), func(m *mbe.Model) (*muscle.Muscle, error) {
		path, err := muscle.NewPulleyPath(m, 0.3+radius*at, muscle.Pulley{Coordinate: "theta", Radius: radius})
		if err != nil {
			return nil, err
		}
		return muscle.New(m, "flexor", path, rigidMuscleParams(0.2))
	})
}

// linePendulum carries a muscle along a straight line from ground to the rod.
func linePendulum(t *testing.T) fixture {
	t.Helper()
	return build(t, pendulum(1, 1), func(m *mbe.Model) (*muscle.Muscle, error) {
		path, err := muscle.NewGeometryPath(m,
			muscle.PathPoint{Body: mbe.Ground, Location: r2.Vec{X: 0.2, Y: 0.1}},
			muscle.PathPoint{Body: "rod", Location: r2.Vec{X: 0.02, Y: -0.5}},
		)
		if err != nil {
			return nil, err
		}
		return muscle.New(m, "biceps", path, rigidMuscleParams(0.5))
	})
}

// coupledPair ties q2 = ratio·q1 and runs a pulley muscle over q2.
func coupledPair(t *testing.T, ratio float64) fixture {
	t.Helper()
	m := mbe.NewModel("coupled_pair")
	m.AddBody("upper", 1, r2.Vec{Y: -0.5}, 0.1)
	m.AddBody("lower", 1, r2.Vec{Y: -0.5}, 0.1)
	m.AddJoint("shoulder", mbe.Pin, mbe.Ground, "upper", r2.Vec{}, r2.Vec{}, "q1")
	m.AddJoint("elbow", mbe.Pin, "upper", "lower", r2.Vec{Y: -1}, r2.Vec{}, "q2")
	m.AddCoupler("q2_follows_q1", "q2", mbe.LinearFunction{Coefficients: []float64{ratio}}, "q1")
	return build(t, m, func(m *mbe.Model) (*muscle.Muscle, error) {
		path, err := muscle.NewPulleyPath(m, 0.34, muscle.Pulley{Coordinate: "q2", Radius: 0.1})
		if err != nil {
			return nil, err
		}
		return muscle.New(m, "crossing", path, rigidMuscleParams(0.2))
	})
}
