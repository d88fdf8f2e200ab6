package muscle

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/armcheck/internal/mbe"
)

var (
	ErrInvalidParameters  = errors.New("muscle: invalid muscle parameters")
	ErrDegenerateCoupling = errors.New("muscle: coordinate speed vanished under constraint projection")
)

const (
	equilibriumIterations = 200
	equilibriumTolerance  = 1e-12
)

type Parameters struct {
	MaxIsometricForce  float64 `yaml:"max_isometric_force"`
	OptimalFiberLength float64 `yaml:"optimal_fiber_length"`
	TendonSlackLength  float64 `yaml:"tendon_slack_length"`
	// PennationAngle is the fiber angle at optimal length. Fibers keep a
	// constant height as they change length.
	PennationAngle         float64 `yaml:"pennation_angle_at_optimal"`
	IgnoreTendonCompliance bool    `yaml:"ignore_tendon_compliance"`
	DefaultActivation      float64 `yaml:"default_activation"`
}

func (p Parameters) Validate() error {
	switch {
	case !(p.MaxIsometricForce > 0):
		return fmt.Errorf("%w: max isometric force %g", ErrInvalidParameters, p.MaxIsometricForce)
	case !(p.OptimalFiberLength > 0):
		return fmt.Errorf("%w: optimal fiber length %g", ErrInvalidParameters, p.OptimalFiberLength)
	case !(p.TendonSlackLength >= 0):
		return fmt.Errorf("%w: tendon slack length %g", ErrInvalidParameters, p.TendonSlackLength)
	case !(p.PennationAngle >= 0 && p.PennationAngle < math.Pi/2):
		return fmt.Errorf("%w: pennation angle %g", ErrInvalidParameters, p.PennationAngle)
	case !(p.DefaultActivation >= 0 && p.DefaultActivation <= 1):
		return fmt.Errorf("%w: default activation %g", ErrInvalidParameters, p.DefaultActivation)
	case !p.IgnoreTendonCompliance && p.TendonSlackLength == 0:
		return fmt.Errorf("%w: compliant tendon needs a positive slack length", ErrInvalidParameters)
	}
	return nil
}

// Curves groups the characteristic curves of a Muscle.
type Curves struct {
	ActiveForceLength ActiveForceLengthCurve `yaml:"active_force_length"`
	ForceVelocity     ForceVelocityCurve     `yaml:"force_velocity"`
	TendonForceLength TendonForceLengthCurve `yaml:"tendon_force_length"`
	FiberForceLength  FiberForceLengthCurve  `yaml:"fiber_force_length"`
}

func DefaultCurves() Curves {
	return Curves{
		ActiveForceLength: DefaultActiveForceLengthCurve(),
		ForceVelocity:     DefaultForceVelocityCurve(),
		TendonForceLength: DefaultTendonForceLengthCurve(),
		FiberForceLength:  DefaultFiberForceLengthCurve(),
	}
}

func (c Curves) Validate() error {
	for _, curve := range []Curve{c.ActiveForceLength, c.ForceVelocity, c.TendonForceLength, c.FiberForceLength} {
		if err := curve.Validate(); err != nil {
			return fmt.Errorf("%s: %w", curve.Name(), err)
		}
	}
	return nil
}

// Muscle is a Hill-type muscle-tendon actuator along a Path. Activation and
// fiber length live in the state as "<name>.activation" and
// "<name>.fiber_length". Forces are computed at zero fiber velocity.
type Muscle struct {
	name   string
	model  *mbe.Model
	path   Path
	params Parameters
	curves Curves
}

func New(m *mbe.Model, name string, path Path, params Parameters) (*Muscle, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidParameters)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("muscle %s: %w", name, err)
	}
	return &Muscle{name: name, model: m, path: path, params: params, curves: DefaultCurves()}, nil
}

func (mu *Muscle) Name() string           { return mu.name }
func (mu *Muscle) Path() Path             { return mu.path }
func (mu *Muscle) Parameters() Parameters { return mu.params }
func (mu *Muscle) Curves() Curves         { return mu.curves }

func (mu *Muscle) SetCurves(c Curves) error {
	if err := c.Validate(); err != nil {
		return err
	}
	mu.curves = c
	return nil
}

func (mu *Muscle) ActivationVar() string  { return mu.name + ".activation" }
func (mu *Muscle) FiberLengthVar() string { return mu.name + ".fiber_length" }

// Length is the muscle-tendon length along the path.
func (mu *Muscle) Length(s *mbe.State) (float64, error) {
	return mu.path.Length(s)
}

func (mu *Muscle) Activation(s *mbe.State) float64 {
	if a, ok := s.Var(mu.ActivationVar()); ok {
		return a
	}
	return mu.params.DefaultActivation
}

// SetActivation stores a in s, limited to [0, 1].
func (mu *Muscle) SetActivation(s *mbe.State, a float64) {
	s.SetVar(mu.ActivationVar(), math.Max(0, math.Min(1, a)))
}

func (mu *Muscle) height() float64 {
	return mu.params.OptimalFiberLength * math.Sin(mu.params.PennationAngle)
}

func (mu *Muscle) minFiberLength() float64 {
	return math.Max(0.01*mu.params.OptimalFiberLength, 1.001*mu.height())
}

func (mu *Muscle) cosPennation(l float64) float64 {
	r := mu.height() / l
	return math.Sqrt(math.Max(0, 1-r*r))
}

// fiberForceAlongTendon is the fiber force projected on the tendon.
func (mu *Muscle) fiberForceAlongTendon(a, l float64) float64 {
	n := l / mu.params.OptimalFiberLength
	f := a*mu.curves.ActiveForceLength.Value(n)*mu.curves.ForceVelocity.Value(0) + mu.curves.FiberForceLength.Value(n)
	return mu.params.MaxIsometricForce * f * mu.cosPennation(l)
}

func (mu *Muscle) tendonForce(length, l float64) float64 {
	tendon := length - l*mu.cosPennation(l)
	return mu.params.MaxIsometricForce * mu.curves.TendonForceLength.Value(tendon/mu.params.TendonSlackLength)
}

func (mu *Muscle) rigidFiberLength(length float64) float64 {
	along := math.Max(0, length-mu.params.TendonSlackLength)
	h := mu.height()
	return math.Max(mu.minFiberLength(), math.Sqrt(h*h+along*along))
}

// equilibriumFiberLength solves tendon force = fiber force along the
// tendon by bisection. When the fiber overpowers the tendon everywhere it
// returns the shortest admissible fiber length.
func (mu *Muscle) equilibriumFiberLength(length, a float64) float64 {
	if mu.params.IgnoreTendonCompliance {
		return mu.rigidFiberLength(length)
	}
	residual := func(l float64) float64 {
		return mu.tendonForce(length, l) - mu.fiberForceAlongTendon(a, l)
	}
	lo := mu.minFiberLength()
	h := mu.height()
	hi := math.Max(lo, math.Sqrt(h*h+length*length))
	if residual(lo) <= 0 {
		return lo
	}
	for i := 0; i < equilibriumIterations && hi-lo > equilibriumTolerance*mu.params.OptimalFiberLength; i++ {
		mid := 0.5 * (lo + hi)
		if residual(mid) > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}

// Equilibrate sets the fiber length so that tendon and fiber forces balance
// at the current path length and activation. s must be realized to
// Position for geometry paths.
func (mu *Muscle) Equilibrate(s *mbe.State) error {
	length, err := mu.path.Length(s)
	if err != nil {
		return fmt.Errorf("muscle %s: %w", mu.name, err)
	}
	s.SetVar(mu.FiberLengthVar(), mu.equilibriumFiberLength(length, mu.Activation(s)))
	return nil
}

// FiberLength returns the stored fiber length, or the equilibrium length
// when none has been stored. A rigid tendon always derives it from the path.
func (mu *Muscle) FiberLength(s *mbe.State) (float64, error) {
	if !mu.params.IgnoreTendonCompliance {
		if l, ok := s.Var(mu.FiberLengthVar()); ok {
			return l, nil
		}
	}
	length, err := mu.path.Length(s)
	if err != nil {
		return 0, fmt.Errorf("muscle %s: %w", mu.name, err)
	}
	return mu.equilibriumFiberLength(length, mu.Activation(s)), nil
}

// TendonForce is the tension the muscle-tendon unit transmits along its path.
func (mu *Muscle) TendonForce(s *mbe.State) (float64, error) {
	l, err := mu.FiberLength(s)
	if err != nil {
		return 0, err
	}
	if mu.params.IgnoreTendonCompliance {
		return mu.fiberForceAlongTendon(mu.Activation(s), l), nil
	}
	length, err := mu.path.Length(s)
	if err != nil {
		return 0, fmt.Errorf("muscle %s: %w", mu.name, err)
	}
	return mu.tendonForce(length, l), nil
}

func (mu *Muscle) ApplyForces(_ *mbe.Model, s *mbe.State, bodyForces []mbe.SpatialForce, mobilityForces []float64) error {
	tension, err := mu.TendonForce(s)
	if err != nil {
		return err
	}
	return mu.path.ApplyTension(s, tension, bodyForces, mobilityForces)
}

// ComputeMomentArm returns the moment arm of the path about coord from the
// generalized forces of a unit tension, weighted by how every coordinate
// moves when coord moves under the model's constraints.
func (mu *Muscle) ComputeMomentArm(s *mbe.State, coord *mbe.Coordinate) (float64, error) {
	m := mu.model
	w := s.Clone()
	coord.SetLocked(w, false)
	w.ZeroU()
	coord.SetSpeedValue(w, 1)
	if err := m.Realize(w, mbe.StageVelocity); err != nil {
		return 0, err
	}
	if err := m.Project(w, 1e-10, nil, nil, mbe.VelocityOnly); err != nil {
		return 0, err
	}
	if err := m.Realize(w, mbe.StagePosition); err != nil {
		return 0, err
	}
	u := w.U()
	ref := u[coord.SpeedIndex()]
	if math.Abs(ref) < 1e-12 {
		return 0, fmt.Errorf("%w: %s", ErrDegenerateCoupling, coord.Name())
	}

	bodyForces := make([]mbe.SpatialForce, m.NumBodies())
	mobility := make([]float64, m.NumSpeeds())
	if err := mu.path.ApplyTension(w, 1, bodyForces, mobility); err != nil {
		return 0, err
	}
	tree, err := m.CalcTreeEquivalentMobilityForces(w, bodyForces)
	if err != nil {
		return 0, err
	}
	arm := 0.0
	for i := range u {
		arm += u[i] / ref * (tree[i] + mobility[i])
	}
	return arm, nil
}
