package mbe

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type ProjectOptions int

const (
	ProjectAll ProjectOptions = iota
	PositionOnly
	VelocityOnly
)

const (
	defaultAssemblyTolerance = 1e-10
	maxAssemblyIterations    = 50
	pinvCutoff               = 1e-12
)

// Project moves s onto the constraint manifold with the smallest weighted
// change. yWeights has NumY entries ([q; u]) and cWeights NumMultipliers
// entries; nil means unit weights. Locked coordinates never move.
func (m *Model) Project(s *State, tol float64, yWeights, cWeights []float64, opts ProjectOptions) error {
	if err := m.checkState(s); err != nil {
		return err
	}
	n := len(s.q)
	if yWeights != nil && len(yWeights) != 2*n {
		return fmt.Errorf("%w: %d state weights, want %d", ErrDimensionMismatch, len(yWeights), 2*n)
	}
	if cWeights != nil && len(cWeights) != m.NumMultipliers(s) {
		return fmt.Errorf("%w: %d constraint weights, want %d", ErrDimensionMismatch, len(cWeights), m.NumMultipliers(s))
	}
	var qw, uw []float64
	if yWeights != nil {
		qw, uw = yWeights[:n], yWeights[n:]
	}
	if opts != VelocityOnly {
		if err := m.assembleWeighted(s, nil, tol, qw, cWeights); err != nil {
			return err
		}
	}
	if opts != PositionOnly {
		return m.projectVelocities(s, tol, uw, cWeights)
	}
	return nil
}

func (m *Model) assemble(s *State, held int, tol float64) error {
	var frozen []bool
	if held >= 0 {
		frozen = make([]bool, len(s.q))
		frozen[held] = true
	}
	return m.assembleWeighted(s, frozen, tol, nil, nil)
}

// assembleDefaults moves only coupler dependents so that the defaults of
// independent coordinates survive. When that cannot converge every
// unlocked coordinate is freed.
func (m *Model) assembleDefaults(s *State, tol float64) error {
	frozen := make([]bool, len(s.q))
	for i := range frozen {
		frozen[i] = true
	}
	for _, c := range m.couplers {
		frozen[c.dependent.index] = false
	}
	start := cloneFloats(s.q)
	if err := m.assembleWeighted(s, frozen, tol, nil, nil); err == nil {
		return nil
	}
	copy(s.q, start)
	s.invalidate(StageTime)
	return m.assembleWeighted(s, nil, tol, nil, nil)
}

// assembleWeighted solves the coupler position errors by Gauss-Newton with
// minimum weighted-norm steps. Frozen and locked coordinates do not move.
func (m *Model) assembleWeighted(s *State, frozen []bool, tol float64, weights, cWeights []float64) error {
	rows := len(m.couplers)
	if rows == 0 {
		return nil
	}
	n := len(s.q)
	inv := inverseWeights(n, weights)
	for k := range inv {
		if (frozen != nil && frozen[k]) || s.locked[k] {
			inv[k] = 0
		}
	}

	r := make([]float64, rows)
	row := make([]float64, n)
	worst := math.Inf(1)
	for iter := 0; iter < maxAssemblyIterations; iter++ {
		J := mat.NewDense(rows, n, nil)
		worst = 0
		for i, c := range m.couplers {
			scale := constraintScale(cWeights, i)
			r[i] = c.positionError(s.q) * scale
			worst = math.Max(worst, math.Abs(r[i]))
			for k := range row {
				row[k] = 0
			}
			c.jacobianRow(s.q, row)
			floats.Scale(scale, row)
			J.SetRow(i, row)
		}
		if worst <= tol {
			s.invalidate(StageTime)
			return nil
		}
		dq, err := minNormCorrection(J, r, inv)
		if err != nil {
			return err
		}
		if floats.Norm(dq, math.Inf(1)) == 0 {
			break
		}
		floats.Sub(s.q, dq)
		s.invalidate(StageTime)
	}
	return fmt.Errorf("%w: position error %g exceeds %g", ErrAssembly, worst, tol)
}

func (m *Model) projectVelocities(s *State, tol float64, weights, cWeights []float64) error {
	G, rows := m.constraintJacobian(s)
	if rows == 0 {
		return nil
	}
	for i := 0; i < rows; i++ {
		scale := constraintScale(cWeights, i)
		if scale != 1 {
			row := mat.Row(nil, i, G)
			floats.Scale(scale, row)
			G.SetRow(i, row)
		}
	}
	var r mat.VecDense
	r.MulVec(G, mat.NewVecDense(len(s.u), cloneFloats(s.u)))
	du, err := minNormCorrection(G, cloneFloats(r.RawVector().Data), inverseWeights(len(s.u), weights))
	if err != nil {
		return err
	}
	floats.Sub(s.u, du)
	s.invalidate(StagePosition)

	r.MulVec(G, mat.NewVecDense(len(s.u), cloneFloats(s.u)))
	if worst := floats.Norm(r.RawVector().Data, math.Inf(1)); worst > math.Max(tol, 1e-9) {
		return fmt.Errorf("%w: velocity error %g exceeds %g", ErrAssembly, worst, tol)
	}
	return nil
}

func inverseWeights(n int, weights []float64) []float64 {
	inv := make([]float64, n)
	for k := range inv {
		inv[k] = 1
		if weights != nil && weights[k] > 0 {
			inv[k] = 1 / weights[k]
		}
	}
	return inv
}

func constraintScale(cWeights []float64, i int) float64 {
	if cWeights == nil || cWeights[i] <= 0 {
		return 1
	}
	return 1 / cWeights[i]
}

// minNormCorrection returns Δ with a·Δ = r (in the least-squares sense) and
// the smallest Σ(Δ_k/inv_k)². Columns with inv_k = 0 are frozen.
func minNormCorrection(a *mat.Dense, r, inv []float64) ([]float64, error) {
	rows, cols := a.Dims()
	var ad mat.Dense
	ad.Mul(a, mat.NewDiagDense(cols, inv))

	var svd mat.SVD
	if ok := svd.Factorize(&ad, mat.SVDThin); !ok {
		return nil, fmt.Errorf("%w: SVD factorization failed", ErrSingular)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sv := svd.Values(nil)

	var y mat.VecDense
	y.MulVec(u.T(), mat.NewVecDense(rows, cloneFloats(r)))
	cutoff := 0.0
	if len(sv) > 0 {
		cutoff = pinvCutoff * sv[0]
	}
	for i, sigma := range sv {
		if sigma > cutoff && sigma > 0 {
			y.SetVec(i, y.AtVec(i)/sigma)
		} else {
			y.SetVec(i, 0)
		}
	}
	var x mat.VecDense
	x.MulVec(&v, &y)

	out := make([]float64, cols)
	for k := range out {
		out[k] = inv[k] * x.AtVec(k)
	}
	return out, nil
}
