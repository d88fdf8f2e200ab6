package models

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/armcheck/internal/mbe"
	"github.com/san-kum/armcheck/internal/muscle"
)

// NewWrist is a hand on a radiocarpal pin fixed to the forearm (ground). The
// extensor carpi ulnaris wraps over a via point on the forearm.
func NewWrist() (*mbe.Model, error) {
	m := mbe.NewModel("wrist")
	m.AddBody("hand", 0.4, r2.Vec{X: 0.07}, 0.0006)
	j := m.AddJoint("radiocarpal", mbe.Pin, mbe.Ground, "hand", r2.Vec{}, r2.Vec{}, "flexion")
	setRange(j, -math.Pi/3, math.Pi/3)

	path, err := muscle.NewGeometryPath(m,
		muscle.PathPoint{Body: mbe.Ground, Location: r2.Vec{X: -0.2, Y: 0.015}},
		muscle.PathPoint{Body: mbe.Ground, Location: r2.Vec{X: -0.03, Y: 0.012}},
		muscle.PathPoint{Body: "hand", Location: r2.Vec{X: 0.025, Y: 0.008}},
	)
	if err != nil {
		return nil, err
	}
	err = attach(m, "ECU", path, muscle.Parameters{
		MaxIsometricForce:  200,
		OptimalFiberLength: 0.06,
		TendonSlackLength:  0.16,
		PennationAngle:     0.07,
		DefaultActivation:  0.1,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewElbow has a biceps from the scapula (ground) over a humeral via point
// to the forearm, so it crosses both the shoulder and the elbow.
func NewElbow() (*mbe.Model, error) {
	m := mbe.NewModel("elbow")
	m.AddBody("humerus", 2.0, r2.Vec{Y: -0.16}, 0.015)
	m.AddBody("ulna", 1.1, r2.Vec{Y: -0.12}, 0.008)
	shoulder := m.AddJoint("shoulder", mbe.Pin, mbe.Ground, "humerus", r2.Vec{}, r2.Vec{}, "shoulder_elv")
	elbow := m.AddJoint("elbow", mbe.Pin, "humerus", "ulna", r2.Vec{Y: -0.3}, r2.Vec{}, "r_elbow_flex")
	setRange(shoulder, -math.Pi/2, math.Pi)
	setRange(elbow, 0, 2.27)

	path, err := muscle.NewGeometryPath(m,
		muscle.PathPoint{Body: mbe.Ground, Location: r2.Vec{X: 0.02, Y: 0.03}},
		muscle.PathPoint{Body: "humerus", Location: r2.Vec{X: 0.025, Y: -0.28}},
		muscle.PathPoint{Body: "ulna", Location: r2.Vec{X: 0.01, Y: -0.05}},
	)
	if err != nil {
		return nil, err
	}
	err = attach(m, "BIClong", path, muscle.Parameters{
		MaxIsometricForce:  624,
		OptimalFiberLength: 0.116,
		TendonSlackLength:  0.24,
		DefaultActivation:  0.1,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewPlanarArm hangs an arm on a planar joint, so its coordinates are one
// rotation followed by two translations.
func NewPlanarArm() (*mbe.Model, error) {
	m := mbe.NewModel("planar_arm")
	m.AddBody("arm", 2, r2.Vec{X: 0.3}, 0.06)
	j := m.AddJoint("free", mbe.Planar, mbe.Ground, "arm", r2.Vec{}, r2.Vec{}, "arm_rz", "arm_tx", "arm_ty")
	if cs := j.Coordinates(); len(cs) == 3 {
		cs[0].Range = [2]float64{-math.Pi, math.Pi}
		cs[1].Range = [2]float64{-0.5, 0.5}
		cs[2].Range = [2]float64{-0.5, 0.5}
	}

	path, err := muscle.NewGeometryPath(m,
		muscle.PathPoint{Body: mbe.Ground, Location: r2.Vec{Y: 0.1}},
		muscle.PathPoint{Body: "arm", Location: r2.Vec{X: 0.15, Y: 0.02}},
	)
	if err != nil {
		return nil, err
	}
	err = attach(m, "deltoid", path, muscle.Parameters{
		MaxIsometricForce:      400,
		OptimalFiberLength:     0.1,
		TendonSlackLength:      0.06,
		IgnoreTendonCompliance: true,
		DefaultActivation:      0.1,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
