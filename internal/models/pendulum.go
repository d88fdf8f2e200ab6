package models

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/armcheck/internal/mbe"
	"github.com/san-kum/armcheck/internal/muscle"
)

const (
	PendulumLength = 1.0
	PendulumMass   = 1.0
	PulleyRadius   = 0.05
	// PulleyOptimalAngle is where the flexor sits at optimal fiber length
	// and develops its full isometric force.
	PulleyOptimalAngle = 0.3
)

func pendulum() *mbe.Model {
	m := mbe.NewModel("pendulum")
	m.AddBody("rod", PendulumMass, r2.Vec{Y: -PendulumLength}, 0)
	j := m.AddJoint("hinge", mbe.Pin, mbe.Ground, "rod", r2.Vec{}, r2.Vec{}, "theta")
	if cs := j.Coordinates(); len(cs) == 1 {
		cs[0].DefaultValue = PulleyOptimalAngle
	}
	return m
}

// NewPendulum has a flexor over a pulley on the hinge, so its moment arm is
// the pulley radius at every angle.
func NewPendulum() (*mbe.Model, error) {
	m := pendulum()
	params := muscle.Parameters{
		MaxIsometricForce:      100,
		OptimalFiberLength:     0.1,
		TendonSlackLength:      0.2,
		IgnoreTendonCompliance: true,
		DefaultActivation:      1,
	}
	rest := params.TendonSlackLength + params.OptimalFiberLength + PulleyRadius*PulleyOptimalAngle
	path, err := muscle.NewPulleyPath(m, rest, muscle.Pulley{Coordinate: "theta", Radius: PulleyRadius})
	if err != nil {
		return nil, err
	}
	if err := attach(m, "flexor", path, params); err != nil {
		return nil, err
	}
	return m, nil
}

func NewLinePendulum() (*mbe.Model, error) {
	m := pendulum()
	path, err := muscle.NewGeometryPath(m,
		muscle.PathPoint{Body: mbe.Ground, Location: r2.Vec{X: 0.2, Y: 0.1}},
		muscle.PathPoint{Body: "rod", Location: r2.Vec{X: 0.02, Y: -0.5}},
	)
	if err != nil {
		return nil, err
	}
	err = attach(m, "biceps", path, muscle.Parameters{
		MaxIsometricForce:  300,
		OptimalFiberLength: 0.1,
		TendonSlackLength:  0.5,
		PennationAngle:     0.1,
		DefaultActivation:  0.1,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
