package momentarm

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/san-kum/armcheck/internal/mbe"
)

// TranslationalPolicy decides whether translational coordinates take part
// in the coupling vector.
type TranslationalPolicy int

const (
	// ExcludeTranslational drops every translational coordinate.
	ExcludeTranslational TranslationalPolicy = iota
	// IncludeSelf keeps the coordinate under test even when it is
	// translational; coupled translational coordinates are still dropped.
	IncludeSelf
	// IncludeTranslational keeps translational coordinates.
	IncludeTranslational
)

func (p TranslationalPolicy) String() string {
	switch p {
	case IncludeSelf:
		return "include-self"
	case IncludeTranslational:
		return "include"
	default:
		return "exclude"
	}
}

// ParseTranslationalPolicy is the inverse of String. The empty string maps
// to ExcludeTranslational.
func ParseTranslationalPolicy(s string) (TranslationalPolicy, error) {
	switch s {
	case "", "exclude":
		return ExcludeTranslational, nil
	case "include-self":
		return IncludeSelf, nil
	case "include":
		return IncludeTranslational, nil
	}
	return 0, fmt.Errorf("%w: unknown translational policy %q", ErrConfiguration, s)
}

// CouplingPolicy filters which coupled coordinates contribute to W.
type CouplingPolicy struct {
	// ExcludedJoints names joints whose coordinates cannot carry torque
	// about the coordinate under test, such as a patella riding on the tibia.
	ExcludedJoints map[string]bool
	Translational  TranslationalPolicy
	// ReferenceEpsilon bounds the post-projection speed of the coordinate
	// under test from below.
	ReferenceEpsilon float64
	// ProjectionTolerance is passed to the velocity projection.
	ProjectionTolerance float64
}

func DefaultCouplingPolicy() CouplingPolicy {
	return CouplingPolicy{
		ExcludedJoints:      map[string]bool{},
		Translational:       ExcludeTranslational,
		ReferenceEpsilon:    1e-12,
		ProjectionTolerance: 1e-10,
	}
}

// ExcludeJoints returns a copy of p that also excludes the named joints.
func (p CouplingPolicy) ExcludeJoints(names ...string) CouplingPolicy {
	excluded := make(map[string]bool, len(p.ExcludedJoints)+len(names))
	for k, v := range p.ExcludedJoints {
		excluded[k] = v
	}
	for _, n := range names {
		excluded[n] = true
	}
	p.ExcludedJoints = excluded
	return p
}

func (p CouplingPolicy) admits(c *mbe.Coordinate, self bool) bool {
	if p.ExcludedJoints[c.JointName()] {
		return false
	}
	if c.MotionType() != mbe.Translational {
		return true
	}
	switch p.Translational {
	case IncludeTranslational:
		return true
	case IncludeSelf:
		return self
	}
	return false
}

// CoupledCoordinateNames collects every coordinate that shares a coupling
// constraint with coordName, excluding coordName itself. The order follows
// the constraint set and names are not repeated.
func CoupledCoordinateNames[C Constraint](constraints []C, coordName string) []string {
	var names []string
	seen := map[string]bool{coordName: true}
	for _, c := range constraints {
		if c.Type() != mbe.CouplerType {
			continue
		}
		members := c.CoordinateNames()
		involved := false
		for _, n := range members {
			if n == coordName {
				involved = true
				break
			}
		}
		if !involved {
			continue
		}
		for _, n := range members {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// CouplingRatios returns C, the speed of every mobility per unit speed of
// coord once speeds are made consistent with the constraints. It starts
// from a pose with only coord moving at unit speed and projects with unit
// weights on every speed and multiplier.
func CouplingRatios(eng Engine, s *mbe.State, coord Coordinate, policy CouplingPolicy) ([]float64, error) {
	w := acquire(s)
	defer release(w)

	if err := eng.Realize(w, mbe.StageInstance); err != nil {
		return nil, err
	}
	w.ZeroU()
	coord.SetSpeedValue(w, 1)
	if err := eng.Realize(w, mbe.StageVelocity); err != nil {
		return nil, err
	}
	yWeights := ones(eng.NumY())
	cWeights := ones(eng.NumMultipliers(w))
	if err := eng.Project(w, policy.ProjectionTolerance, yWeights, cWeights, mbe.VelocityOnly); err != nil {
		return nil, err
	}

	u := w.U()
	ref := u[coord.SpeedIndex()]
	if math.IsNaN(ref) || math.Abs(ref) <= policy.ReferenceEpsilon {
		return nil, &ArithmeticError{Op: "coupling", Coordinate: coord.Name(),
			Detail: fmt.Sprintf("reference speed %g after projection", ref)}
	}
	for i := range u {
		u[i] /= ref
	}
	return u, nil
}

// ComputeCoupling returns W: the coupling ratio at coord and at each
// coordinate in coupled that the policy admits, zero elsewhere. W·f reduces
// a generalized force f to the equivalent torque on coord.
func ComputeCoupling(eng Engine, s *mbe.State, coord Coordinate, coupled []string, policy CouplingPolicy) ([]float64, error) {
	ratios, err := CouplingRatios(eng, s, coord, policy)
	if err != nil {
		return nil, err
	}
	members := make(map[string]bool, len(coupled)+1)
	for _, n := range coupled {
		members[n] = true
	}

	W := make([]float64, eng.NumSpeeds())
	for _, c := range eng.Coordinates() {
		self := c.Name() == coord.Name()
		if !self && !members[c.Name()] {
			continue
		}
		delete(members, c.Name())
		if policy.admits(c, self) {
			W[c.SpeedIndex()] = ratios[c.SpeedIndex()]
		}
	}
	if len(members) > 0 {
		missing := slices.Sorted(maps.Keys(members))
		return nil, fmt.Errorf("%w: coupled coordinates %s not in model", ErrConfiguration, strings.Join(missing, ", "))
	}
	return W, nil
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}
