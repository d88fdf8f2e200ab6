package mbe

// Function maps independent coordinate values to a dependent value.
type Function interface {
	Value(x []float64) float64
	// Gradient writes df/dx_i into grad.
	Gradient(x, grad []float64)
	// Curvature returns xdotᵀ H(x) xdot.
	Curvature(x, xdot []float64) float64
}

// LinearFunction is f(x) = Σ Coefficients[i]·x[i] + Offset.
type LinearFunction struct {
	Coefficients []float64
	Offset       float64
}

func (f LinearFunction) Value(x []float64) float64 {
	v := f.Offset
	for i, c := range f.Coefficients {
		v += c * x[i]
	}
	return v
}

func (f LinearFunction) Gradient(_ []float64, grad []float64) {
	copy(grad, f.Coefficients)
}

func (f LinearFunction) Curvature(_, _ []float64) float64 { return 0 }

// PolynomialFunction is f(x) = Σ Coefficients[k]·x^k of a single variable.
type PolynomialFunction struct {
	Coefficients []float64
}

func (p PolynomialFunction) eval(x float64, deriv int) float64 {
	v := 0.0
	for k := len(p.Coefficients) - 1; k >= deriv; k-- {
		c := p.Coefficients[k]
		for d := 0; d < deriv; d++ {
			c *= float64(k - d)
		}
		v = v*x + c
	}
	return v
}

func (p PolynomialFunction) Value(x []float64) float64 { return p.eval(x[0], 0) }

func (p PolynomialFunction) Gradient(x, grad []float64) { grad[0] = p.eval(x[0], 1) }

func (p PolynomialFunction) Curvature(x, xdot []float64) float64 {
	return p.eval(x[0], 2) * xdot[0] * xdot[0]
}

// CouplerType is the type tag reported by CoordinateCoupler.Type.
const CouplerType = "CoordinateCouplerConstraint"

// CoordinateCoupler enforces q_dependent = fn(q_independent...).
type CoordinateCoupler struct {
	name        string
	dependent   *Coordinate
	independent []*Coordinate
	fn          Function
}

func (c *CoordinateCoupler) Name() string { return c.name }
func (c *CoordinateCoupler) Type() string { return CouplerType }

func (c *CoordinateCoupler) DependentCoordinateName() string { return c.dependent.name }

func (c *CoordinateCoupler) IndependentCoordinateNames() []string {
	names := make([]string, len(c.independent))
	for i, in := range c.independent {
		names[i] = in.name
	}
	return names
}

// CoordinateNames lists the independent names followed by the dependent one.
func (c *CoordinateCoupler) CoordinateNames() []string {
	return append(c.IndependentCoordinateNames(), c.dependent.name)
}

func (c *CoordinateCoupler) gather(v []float64) []float64 {
	x := make([]float64, len(c.independent))
	for i, in := range c.independent {
		x[i] = v[in.index]
	}
	return x
}

// positionError is q_dep - f(q_indep).
func (c *CoordinateCoupler) positionError(q []float64) float64 {
	return q[c.dependent.index] - c.fn.Value(c.gather(q))
}

// jacobianRow writes ∂φ/∂q into row, which must be zeroed by the caller.
func (c *CoordinateCoupler) jacobianRow(q []float64, row []float64) {
	x := c.gather(q)
	grad := make([]float64, len(x))
	c.fn.Gradient(x, grad)
	row[c.dependent.index] += 1
	for i, in := range c.independent {
		row[in.index] -= grad[i]
	}
}

// accelerationBias is the right-hand side b of G·u̇ = b.
func (c *CoordinateCoupler) accelerationBias(q, u []float64) float64 {
	return c.fn.Curvature(c.gather(q), c.gather(u))
}
