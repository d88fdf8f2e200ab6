package muscle

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ErrInvalidCurve is returned by curve setters and Validate when a
// parameter would produce a curve without the required shape.
var ErrInvalidCurve = errors.New("muscle: invalid curve parameter")

// Curve is a dimensionless muscle characteristic.
type Curve interface {
	Name() string
	Value(x float64) float64
	Derivative(x float64) float64
	// Domain is the interval over which the curve is not a straight line.
	Domain() (lo, hi float64)
	Validate() error
}

// Sample evaluates c at n+1 evenly spaced points across its domain.
func Sample(c Curve, n int) [][3]float64 {
	if n < 1 {
		n = 1
	}
	lo, hi := c.Domain()
	out := make([][3]float64, n+1)
	for i := range out {
		x := lo + (hi-lo)*float64(i)/float64(n)
		out[i] = [3]float64{x, c.Value(x), c.Derivative(x)}
	}
	return out
}

// WriteCSV writes a sampled curve as x,value,derivative rows.
func WriteCSV(w io.Writer, c Curve, n int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"x", c.Name(), "d" + c.Name()}); err != nil {
		return err
	}
	for _, row := range Sample(c, n) {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = strconv.FormatFloat(v, 'g', 10, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// hermite evaluates the cubic through (x0,y0) and (x1,y1) with end slopes
// m0 and m1, returning value and slope.
func hermite(x, x0, x1, y0, y1, m0, m1 float64) (float64, float64) {
	h := x1 - x0
	t := (x - x0) / h
	t2, t3 := t*t, t*t*t
	v := (2*t3-3*t2+1)*y0 + (t3-2*t2+t)*h*m0 + (-2*t3+3*t2)*y1 + (t3-t2)*h*m1
	d := (6*t2-6*t)*y0/h + (3*t2-4*t+1)*m0 + (-6*t2+6*t)*y1/h + (3*t2-2*t)*m1
	return v, d
}

// ActiveForceLengthCurve scales active fiber force with normalized fiber
// length. It rises along a shallow line from MinActiveFiberLength to
// TransitionFiberLength, peaks at 1.0 and falls back to MinValue at
// MaxActiveFiberLength.
type ActiveForceLengthCurve struct {
	MinActiveFiberLength  float64 `yaml:"min_norm_active_fiber_length"`
	TransitionFiberLength float64 `yaml:"transition_norm_fiber_length"`
	MaxActiveFiberLength  float64 `yaml:"max_norm_active_fiber_length"`
	ShallowAscendingSlope float64 `yaml:"shallow_ascending_slope"`
	MinValue              float64 `yaml:"minimum_value"`
}

func DefaultActiveForceLengthCurve() ActiveForceLengthCurve {
	return ActiveForceLengthCurve{
		MinActiveFiberLength:  0.4,
		TransitionFiberLength: 0.75,
		MaxActiveFiberLength:  1.6,
		ShallowAscendingSlope: 0.75,
		MinValue:              0.05,
	}
}

func (c ActiveForceLengthCurve) Name() string { return "active_force_length" }

func (c ActiveForceLengthCurve) Domain() (float64, float64) {
	return c.MinActiveFiberLength, c.MaxActiveFiberLength
}

func (c ActiveForceLengthCurve) transitionValue() float64 {
	return c.MinValue + c.ShallowAscendingSlope*(c.TransitionFiberLength-c.MinActiveFiberLength)
}

func (c ActiveForceLengthCurve) eval(x float64) (float64, float64) {
	switch {
	case x <= c.MinActiveFiberLength || x >= c.MaxActiveFiberLength:
		return c.MinValue, 0
	case x < c.TransitionFiberLength:
		return c.MinValue + c.ShallowAscendingSlope*(x-c.MinActiveFiberLength), c.ShallowAscendingSlope
	case x <= 1:
		return hermite(x, c.TransitionFiberLength, 1, c.transitionValue(), 1, c.ShallowAscendingSlope, 0)
	default:
		return hermite(x, 1, c.MaxActiveFiberLength, 1, c.MinValue, 0, 0)
	}
}

func (c ActiveForceLengthCurve) Value(x float64) float64 {
	v, _ := c.eval(x)
	return v
}

func (c ActiveForceLengthCurve) Derivative(x float64) float64 {
	_, d := c.eval(x)
	return d
}

func (c ActiveForceLengthCurve) Validate() error {
	switch {
	case !(c.MinActiveFiberLength >= 0 && c.MinActiveFiberLength < c.TransitionFiberLength):
		return fmt.Errorf("%w: min active fiber length %g must be in [0, %g)", ErrInvalidCurve, c.MinActiveFiberLength, c.TransitionFiberLength)
	case !(c.TransitionFiberLength < 1):
		return fmt.Errorf("%w: transition fiber length %g must be below 1", ErrInvalidCurve, c.TransitionFiberLength)
	case !(c.MaxActiveFiberLength > 1):
		return fmt.Errorf("%w: max active fiber length %g must exceed 1", ErrInvalidCurve, c.MaxActiveFiberLength)
	case !(c.MinValue >= 0 && c.MinValue < 1):
		return fmt.Errorf("%w: minimum value %g must be in [0, 1)", ErrInvalidCurve, c.MinValue)
	case c.ShallowAscendingSlope < 0:
		return fmt.Errorf("%w: shallow ascending slope %g is negative", ErrInvalidCurve, c.ShallowAscendingSlope)
	}
	// a monotone rise to the plateau needs the shallow slope below 3x the secant
	secant := (1 - c.transitionValue()) / (1 - c.TransitionFiberLength)
	if secant <= 0 || c.ShallowAscendingSlope > 3*secant {
		return fmt.Errorf("%w: shallow ascending slope %g overshoots the plateau", ErrInvalidCurve, c.ShallowAscendingSlope)
	}
	return nil
}

func (c *ActiveForceLengthCurve) set(apply func(*ActiveForceLengthCurve)) error {
	next := *c
	apply(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func (c *ActiveForceLengthCurve) SetMinActiveFiberLength(v float64) error {
	return c.set(func(n *ActiveForceLengthCurve) { n.MinActiveFiberLength = v })
}

func (c *ActiveForceLengthCurve) SetTransitionFiberLength(v float64) error {
	return c.set(func(n *ActiveForceLengthCurve) { n.TransitionFiberLength = v })
}

func (c *ActiveForceLengthCurve) SetMaxActiveFiberLength(v float64) error {
	return c.set(func(n *ActiveForceLengthCurve) { n.MaxActiveFiberLength = v })
}

func (c *ActiveForceLengthCurve) SetShallowAscendingSlope(v float64) error {
	return c.set(func(n *ActiveForceLengthCurve) { n.ShallowAscendingSlope = v })
}

func (c *ActiveForceLengthCurve) SetMinValue(v float64) error {
	return c.set(func(n *ActiveForceLengthCurve) { n.MinValue = v })
}

// ForceVelocityCurve maps normalized fiber velocity (negative when
// shortening, -1 at maximum shortening speed) to a force multiplier. The
// concentric branch is Hill's hyperbola; the eccentric branch saturates at
// MaxEccentricMultiplier. Both meet at (0, 1) with IsometricSlope.
type ForceVelocityCurve struct {
	IsometricSlope         float64 `yaml:"isometric_max_slope"`
	MaxEccentricMultiplier float64 `yaml:"max_eccentric_velocity_force_multiplier"`
}

func DefaultForceVelocityCurve() ForceVelocityCurve {
	return ForceVelocityCurve{IsometricSlope: 5, MaxEccentricMultiplier: 1.8}
}

func (c ForceVelocityCurve) Name() string { return "force_velocity" }

func (c ForceVelocityCurve) Domain() (float64, float64) { return -1, 1 }

// kappa is the Hill curvature a/F0 giving slope IsometricSlope at v = 0.
func (c ForceVelocityCurve) kappa() float64 { return 1 / (c.IsometricSlope - 1) }

func (c ForceVelocityCurve) eccentricScale() float64 {
	return (c.MaxEccentricMultiplier - 1) / c.IsometricSlope
}

func (c ForceVelocityCurve) Value(v float64) float64 {
	if v < -1 {
		return 0
	}
	if v < 0 {
		return (1 + v) / (1 - v/c.kappa())
	}
	return c.MaxEccentricMultiplier - (c.MaxEccentricMultiplier-1)*math.Exp(-v/c.eccentricScale())
}

func (c ForceVelocityCurve) Derivative(v float64) float64 {
	if v < -1 {
		return 0
	}
	if v < 0 {
		k := c.kappa()
		den := 1 - v/k
		return (1 + 1/k) / (den * den)
	}
	return c.IsometricSlope * math.Exp(-v/c.eccentricScale())
}

// Inverse returns the normalized fiber velocity producing multiplier f.
// f is limited to [0, MaxEccentricMultiplier).
func (c ForceVelocityCurve) Inverse(f float64) (float64, error) {
	if f < 0 || f >= c.MaxEccentricMultiplier || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: multiplier %g outside [0, %g)", ErrInvalidCurve, f, c.MaxEccentricMultiplier)
	}
	if f <= 1 {
		return (f - 1) / (1 + f/c.kappa()), nil
	}
	return -c.eccentricScale() * math.Log((c.MaxEccentricMultiplier-f)/(c.MaxEccentricMultiplier-1)), nil
}

func (c ForceVelocityCurve) Validate() error {
	if !(c.IsometricSlope > 1) {
		return fmt.Errorf("%w: isometric slope %g must exceed 1", ErrInvalidCurve, c.IsometricSlope)
	}
	if !(c.MaxEccentricMultiplier > 1) {
		return fmt.Errorf("%w: max eccentric multiplier %g must exceed 1", ErrInvalidCurve, c.MaxEccentricMultiplier)
	}
	return nil
}

func (c *ForceVelocityCurve) SetIsometricSlope(v float64) error {
	next := *c
	next.IsometricSlope = v
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func (c *ForceVelocityCurve) SetMaxEccentricMultiplier(v float64) error {
	next := *c
	next.MaxEccentricMultiplier = v
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// toeCurve is zero below 1, rises as a power law through the toe region
// [1, 1+Strain] to 1 and continues linearly with slope Stiffness.
type toeCurve struct {
	Strain    float64 `yaml:"strain_at_one_norm_force"`
	Stiffness float64 `yaml:"stiffness_at_one_norm_force"`
}

func (c toeCurve) exponent() float64 { return c.Stiffness * c.Strain }

func (c toeCurve) Domain() (float64, float64) { return 1, 1 + c.Strain }

func (c toeCurve) Value(x float64) float64 {
	switch {
	case x <= 1:
		return 0
	case x >= 1+c.Strain:
		return 1 + c.Stiffness*(x-1-c.Strain)
	default:
		return math.Pow((x-1)/c.Strain, c.exponent())
	}
}

func (c toeCurve) Derivative(x float64) float64 {
	switch {
	case x <= 1:
		return 0
	case x >= 1+c.Strain:
		return c.Stiffness
	default:
		p := c.exponent()
		return p / c.Strain * math.Pow((x-1)/c.Strain, p-1)
	}
}

func (c toeCurve) Validate() error {
	if !(c.Strain > 0) {
		return fmt.Errorf("%w: strain at one norm force %g must be positive", ErrInvalidCurve, c.Strain)
	}
	if !(c.exponent() > 1) {
		return fmt.Errorf("%w: stiffness %g must exceed 1/strain (%g)", ErrInvalidCurve, c.Stiffness, 1/c.Strain)
	}
	return nil
}

func (c *toeCurve) setStrain(v float64) error {
	next := *c
	next.Strain = v
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func (c *toeCurve) setStiffness(v float64) error {
	next := *c
	next.Stiffness = v
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// TendonForceLengthCurve maps normalized tendon length to normalized force.
type TendonForceLengthCurve struct {
	toeCurve `yaml:",inline"`
}

func DefaultTendonForceLengthCurve() TendonForceLengthCurve {
	return TendonForceLengthCurve{toeCurve{Strain: 0.04, Stiffness: 42}}
}

func (c TendonForceLengthCurve) Name() string { return "tendon_force_length" }

func (c *TendonForceLengthCurve) SetStrainAtOneNormForce(v float64) error { return c.setStrain(v) }
func (c *TendonForceLengthCurve) SetStiffnessAtOneNormForce(v float64) error {
	return c.setStiffness(v)
}

// FiberForceLengthCurve is the passive fiber force for normalized fiber length.
type FiberForceLengthCurve struct {
	toeCurve `yaml:",inline"`
}

func DefaultFiberForceLengthCurve() FiberForceLengthCurve {
	return FiberForceLengthCurve{toeCurve{Strain: 0.6, Stiffness: 8.4}}
}

func (c FiberForceLengthCurve) Name() string { return "fiber_force_length" }

func (c *FiberForceLengthCurve) SetStrainAtOneNormForce(v float64) error { return c.setStrain(v) }
func (c *FiberForceLengthCurve) SetStiffnessAtOneNormForce(v float64) error {
	return c.setStiffness(v)
}
