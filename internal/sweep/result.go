package sweep

import (
	"time"

	"github.com/san-kum/armcheck/internal/config"
	"github.com/san-kum/armcheck/internal/momentarm"
)

// Sample is the outcome of the checks at one coordinate value.
type Sample struct {
	Index int
	Value float64
	// MomentArm is the analytic moment arm reported by the muscle and
	// Estimate the central-difference -dL/dq.
	MomentArm     float64
	Estimate      float64
	DefinitionErr error

	MuscleForce float64
	Coupling    []float64
	Torque      *momentarm.TorqueReport

	// Err is set when the moment arms could not be evaluated and
	// DynamicsErr when the torque check could not be carried out.
	Err         error
	DynamicsErr error
}

func (s *Sample) DefinitionOK() bool {
	return s.Err == nil && s.DefinitionErr == nil
}

// DynamicsOK reports whether the torque check ran and found the torques
// consistent.
func (s *Sample) DynamicsOK() bool {
	return s.Err == nil && s.DynamicsErr == nil && s.Torque != nil && s.Torque.Consistent
}

// Result is the outcome of one scenario.
type Result struct {
	Scenario   config.Scenario
	Coordinate string
	Muscle     string
	Coupled    []string
	Samples    []Sample

	PassesDefinition         bool
	PassesDynamicConsistency bool
	// DynamicsSkipped is set for massless scenarios, whose dynamic
	// verdict holds trivially.
	DynamicsSkipped bool
	Warnings        []string

	Started time.Time
	Elapsed time.Duration
}

// Passed reports whether either verdict holds.
func (r *Result) Passed() bool {
	return r.PassesDefinition || r.PassesDynamicConsistency
}

// Failures counts the samples failing each check.
func (r *Result) Failures() (definition, dynamics int) {
	for i := range r.Samples {
		s := &r.Samples[i]
		if !s.DefinitionOK() {
			definition++
		}
		if !r.DynamicsSkipped && !s.DynamicsOK() {
			dynamics++
		}
	}
	return definition, dynamics
}

// MaxDefinitionDiscrepancy is the largest |analytic - estimate| over the
// samples that produced both values.
func (r *Result) MaxDefinitionDiscrepancy() float64 {
	worst := 0.0
	for i := range r.Samples {
		s := &r.Samples[i]
		if s.Err != nil {
			continue
		}
		d := s.MomentArm - s.Estimate
		if d < 0 {
			d = -d
		}
		if d > worst {
			worst = d
		}
	}
	return worst
}
