package models

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/armcheck/internal/mbe"
	"github.com/san-kum/armcheck/internal/muscle"
)

// CoupledRatio is dq2/dq1 in the coupled pair.
const CoupledRatio = 2.0

func NewCoupledPair() (*mbe.Model, error) {
	m := mbe.NewModel("coupled_pair")
	m.AddBody("upper", 1, r2.Vec{Y: -0.5}, 0.1)
	m.AddBody("lower", 1, r2.Vec{Y: -0.5}, 0.1)
	m.AddJoint("shoulder", mbe.Pin, mbe.Ground, "upper", r2.Vec{}, r2.Vec{}, "q1")
	m.AddJoint("elbow", mbe.Pin, "upper", "lower", r2.Vec{Y: -1}, r2.Vec{}, "q2")
	m.AddCoupler("q2_follows_q1", "q2", mbe.LinearFunction{Coefficients: []float64{CoupledRatio}}, "q1")

	path, err := muscle.NewPulleyPath(m, 0.3, muscle.Pulley{Coordinate: "q2", Radius: 0.1})
	if err != nil {
		return nil, err
	}
	err = attach(m, "crossing", path, muscle.Parameters{
		MaxIsometricForce:      100,
		OptimalFiberLength:     0.1,
		TendonSlackLength:      0.2,
		IgnoreTendonCompliance: true,
		DefaultActivation:      0.1,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewSled puts an arm on a cart whose rail position follows the arm angle,
// x = 0.1·q. The cart coordinate is translational.
func NewSled() (*mbe.Model, error) {
	m := mbe.NewModel("sled")
	m.AddBody("cart", 2, r2.Vec{}, 0.1)
	m.AddBody("arm", 1, r2.Vec{Y: -0.5}, 0.1)
	m.AddJoint("rail", mbe.Slider, mbe.Ground, "cart", r2.Vec{}, r2.Vec{}, "x")
	m.AddJoint("pivot", mbe.Pin, "cart", "arm", r2.Vec{}, r2.Vec{}, "q")
	m.AddCoupler("x_follows_q", "x", mbe.LinearFunction{Coefficients: []float64{0.1}}, "q")

	path, err := muscle.NewGeometryPath(m,
		muscle.PathPoint{Body: mbe.Ground, Location: r2.Vec{X: 0.3}},
		muscle.PathPoint{Body: "arm", Location: r2.Vec{Y: -0.4}},
	)
	if err != nil {
		return nil, err
	}
	err = attach(m, "puller", path, muscle.Parameters{
		MaxIsometricForce:      200,
		OptimalFiberLength:     0.2,
		TendonSlackLength:      0.3,
		IgnoreTendonCompliance: true,
		DefaultActivation:      0.1,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
