package models

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/armcheck/internal/mbe"
	"github.com/san-kum/armcheck/internal/muscle"
)

// PatellaJoint carries the patella on the tibia. Its coordinate follows the
// knee angle through a coupler.
const PatellaJoint = "tib_pat_r"

// patellaCoupling is the patella angle as a function of the knee angle.
var patellaCoupling = mbe.PolynomialFunction{Coefficients: []float64{0, -0.35, 0.04}}

// NewKneePatella is a right leg: hip and knee pins, and a patella whose
// angle is coupled to the knee. The quadriceps insert on the patella.
func NewKneePatella() (*mbe.Model, error) {
	m := mbe.NewModel("knee_patella")
	m.AddBody("femur_r", 9.3, r2.Vec{Y: -0.17}, 0.13)
	m.AddBody("tibia_r", 3.7, r2.Vec{Y: -0.19}, 0.05)
	m.AddBody("patella_r", 0.09, r2.Vec{}, 0.001)

	hip := m.AddJoint("hip_r", mbe.Pin, mbe.Ground, "femur_r", r2.Vec{}, r2.Vec{}, "hip_flexion_r")
	knee := m.AddJoint("knee_r", mbe.Pin, "femur_r", "tibia_r", r2.Vec{Y: -0.4}, r2.Vec{}, "knee_angle_r")
	m.AddJoint(PatellaJoint, mbe.Pin, "tibia_r", "patella_r", r2.Vec{X: 0.05}, r2.Vec{}, "knee_angle_r_beta")
	m.AddCoupler("patellofemoral", "knee_angle_r_beta", patellaCoupling, "knee_angle_r")

	setRange(hip, -0.5, 2.1)
	setRange(knee, -2.1, 0.17)

	via := muscle.PathPoint{Body: "femur_r", Location: r2.Vec{X: 0.035, Y: -0.36}}
	insertion := muscle.PathPoint{Body: "patella_r", Location: r2.Vec{Y: 0.04}}

	rectFem, err := muscle.NewGeometryPath(m,
		muscle.PathPoint{Body: mbe.Ground, Location: r2.Vec{X: 0.04, Y: 0.05}},
		via, insertion,
	)
	if err != nil {
		return nil, err
	}
	err = attach(m, "rect_fem_r", rectFem, muscle.Parameters{
		MaxIsometricForce:  1169,
		OptimalFiberLength: 0.114,
		TendonSlackLength:  0.31,
		PennationAngle:     0.087,
		DefaultActivation:  0.1,
	})
	if err != nil {
		return nil, err
	}

	vasInt, err := muscle.NewGeometryPath(m,
		muscle.PathPoint{Body: "femur_r", Location: r2.Vec{X: 0.03, Y: -0.22}},
		via, insertion,
	)
	if err != nil {
		return nil, err
	}
	err = attach(m, "vas_int_r", vasInt, muscle.Parameters{
		MaxIsometricForce:  1365,
		OptimalFiberLength: 0.1,
		TendonSlackLength:  0.06,
		PennationAngle:     0.05,
		DefaultActivation:  0.1,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func setRange(j *mbe.Joint, lo, hi float64) {
	for _, c := range j.Coordinates() {
		c.Range = [2]float64{lo, hi}
	}
}
