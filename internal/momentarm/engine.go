package momentarm

import "github.com/san-kum/armcheck/internal/mbe"

// Engine is the multibody engine the checks run against. *mbe.Model
// implements it.
type Engine interface {
	Realize(s *mbe.State, stage mbe.Stage) error
	Project(s *mbe.State, tol float64, yWeights, cWeights []float64, opts mbe.ProjectOptions) error
	NumSpeeds() int
	NumY() int
	NumMultipliers(s *mbe.State) int
	Coordinates() []*mbe.Coordinate

	RigidBodyForces(s *mbe.State, stage mbe.Stage) ([]mbe.SpatialForce, error)
	AppliedMobilityForces(s *mbe.State) ([]float64, error)
	CalcTreeEquivalentMobilityForces(s *mbe.State, bodyForces []mbe.SpatialForce) ([]float64, error)
	CalcConstraintForcesFromMultipliers(s *mbe.State, lambda []float64) ([]mbe.SpatialForce, []float64, error)
	CalcResidualForceIgnoringConstraints(s *mbe.State, appliedMobility []float64, appliedBody []mbe.SpatialForce, knownUDot []float64) ([]float64, error)
	UDot(s *mbe.State) ([]float64, error)
	Multipliers(s *mbe.State) ([]float64, error)
}

// Coordinate is the degree of freedom under test. *mbe.Coordinate
// implements it.
type Coordinate interface {
	Name() string
	MotionType() mbe.MotionType
	JointName() string
	SpeedIndex() int
	Value(s *mbe.State) float64
	SetValue(s *mbe.State, value float64, enforceConstraints bool) error
	SpeedValue(s *mbe.State) float64
	SetSpeedValue(s *mbe.State, value float64)
	SetClamped(s *mbe.State, clamped bool)
	SetLocked(s *mbe.State, locked bool)
}

// Path exposes the length of a force-transmitting path at a pose.
type Path interface {
	Length(s *mbe.State) (float64, error)
}

// Constraint is one entry of a model's constraint set.
type Constraint interface {
	Type() string
	// CoordinateNames lists the independent coordinates followed by the
	// dependent one.
	CoordinateNames() []string
}

var (
	_ Engine     = (*mbe.Model)(nil)
	_ Coordinate = (*mbe.Coordinate)(nil)
	_ Constraint = (*mbe.CoordinateCoupler)(nil)
)

var poses = mbe.NewStatePool()

// acquire returns a pooled working copy of s. Callers release it when the
// experiment is done; s itself is never modified.
func acquire(s *mbe.State) *mbe.State {
	return poses.GetAndCopy(s)
}

func release(w *mbe.State) {
	poses.Put(w)
}
