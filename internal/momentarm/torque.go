package momentarm

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/armcheck/internal/mbe"
)

// TorqueReport is the outcome of CheckTorqueConsistency.
type TorqueReport struct {
	Coordinate  string
	MomentArm   float64
	MuscleForce float64

	// TauDirect is W applied to the tree-equivalent of the applied forces.
	TauDirect float64
	// TauIVD is W applied to the inverse-dynamics residual plus the
	// constraint forces.
	TauIVD float64
	// Expected is MomentArm * MuscleForce.
	Expected float64

	DirectDiscrepancy   float64
	ExpectedDiscrepancy float64

	Consistent bool
	Violations []*ToleranceError
}

// Err joins the violations, or returns nil for a consistent report.
func (r *TorqueReport) Err() error {
	errs := make([]error, len(r.Violations))
	for i, v := range r.Violations {
		errs[i] = v
	}
	return errors.Join(errs...)
}

// CheckTorqueConsistency reduces the generalized forces at s to the
// equivalent torque on coord two ways and compares them with each other and
// with momentArm*muscleForce. s should have gravity disabled and only the
// muscle under test enabled. The model must have mass; a massless model
// makes inverse dynamics degenerate.
func CheckTorqueConsistency(eng Engine, s *mbe.State, coord Coordinate, W []float64, muscleForce, momentArm, tol float64) (*TorqueReport, error) {
	if len(W) != eng.NumSpeeds() {
		return nil, fmt.Errorf("%w: coupling vector has %d entries, model has %d speeds", mbe.ErrDimensionMismatch, len(W), eng.NumSpeeds())
	}
	w := acquire(s)
	defer release(w)

	if err := eng.Realize(w, mbe.StageAcceleration); err != nil {
		return nil, err
	}

	bodyForces, err := eng.RigidBodyForces(w, mbe.StageDynamics)
	if err != nil {
		return nil, err
	}
	direct, err := eng.CalcTreeEquivalentMobilityForces(w, bodyForces)
	if err != nil {
		return nil, err
	}
	mobility, err := eng.AppliedMobilityForces(w)
	if err != nil {
		return nil, err
	}
	floats.Add(direct, mobility)

	udot, err := eng.UDot(w)
	if err != nil {
		return nil, err
	}
	lambda, err := eng.Multipliers(w)
	if err != nil {
		return nil, err
	}
	_, constraintForces, err := eng.CalcConstraintForcesFromMultipliers(w, lambda)
	if err != nil {
		return nil, err
	}
	ivd, err := eng.CalcResidualForceIgnoringConstraints(w, nil, nil, udot)
	if err != nil {
		return nil, err
	}
	floats.Add(ivd, constraintForces)

	r := &TorqueReport{
		Coordinate:  coord.Name(),
		MomentArm:   momentArm,
		MuscleForce: muscleForce,
		TauDirect:   floats.Dot(W, direct),
		TauIVD:      floats.Dot(W, ivd),
		Expected:    momentArm * muscleForce,
	}
	r.DirectDiscrepancy = r.TauIVD - r.TauDirect
	r.ExpectedDiscrepancy = r.TauIVD - r.Expected

	if v := compare("inverse dynamics vs direct torque", r.TauDirect, r.TauIVD, tol); v != nil {
		r.Violations = append(r.Violations, v)
	}
	if v := compare("inverse dynamics vs moment arm * force", r.Expected, r.TauIVD, tol); v != nil {
		r.Violations = append(r.Violations, v)
	}
	r.Consistent = len(r.Violations) == 0
	return r, nil
}
