package mbe

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
)

// Realize advances s through every stage up to target. Stages already
// realized are not recomputed.
func (m *Model) Realize(s *State, target Stage) error {
	if err := m.checkState(s); err != nil {
		return err
	}
	if target > StageAcceleration {
		target = StageAcceleration
	}
	for s.stage < target {
		next := s.stage + 1
		switch next {
		case StagePosition:
			m.realizePosition(s)
		case StageVelocity:
			m.propagate(s, s.u, nil, s.kin)
		case StageDynamics:
			if err := m.realizeDynamics(s); err != nil {
				return err
			}
		case StageAcceleration:
			if err := m.realizeAcceleration(s); err != nil {
				return err
			}
		}
		s.stage = next
	}
	return nil
}

func (m *Model) realizeDynamics(s *State) error {
	for i := range s.bodyForces {
		s.bodyForces[i] = SpatialForce{}
	}
	for i := range s.mobility {
		s.mobility[i] = 0
	}
	m.applyGravity(s, s.bodyForces)
	for i, f := range m.forces {
		if s.forceDisabled[i] {
			continue
		}
		if err := f.ApplyForces(m, s, s.bodyForces, s.mobility); err != nil {
			return fmt.Errorf("mbe: force %q: %w", f.Name(), err)
		}
	}
	return nil
}

func (m *Model) realizeAcceleration(s *State) error {
	n := len(s.q)
	bias := m.residual(s, make([]float64, n), nil, nil)
	f := m.mobilityFromBodyForces(s, s.bodyForces)
	for k := range f {
		f[k] += s.mobility[k] - bias[k]
	}

	M := m.massMatrix(s)
	G, b := m.accelerationConstraints(s)
	rows := len(b)

	K := mat.NewDense(n+rows, n+rows, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			K.Set(i, j, M.At(i, j))
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < n; c++ {
			g := G.At(r, c)
			K.Set(n+r, c, g)
			K.Set(c, n+r, g)
		}
	}
	rhs := mat.NewVecDense(n+rows, append(f, b...))

	var x mat.VecDense
	if err := x.SolveVec(K, rhs); err != nil {
		var cond mat.Condition
		switch {
		case errors.As(err, &cond):
			return fmt.Errorf("%w: condition number %g (total mass %g)", ErrSingular, float64(cond), m.TotalMass())
		case errors.Is(err, mat.ErrSingular):
			return fmt.Errorf("%w: singular system matrix (total mass %g)", ErrSingular, m.TotalMass())
		}
		return err
	}
	s.udot = copyInto(s.udot, x.RawVector().Data[:n])
	s.lambda = copyInto(s.lambda, x.RawVector().Data[n:])
	for _, v := range s.udot {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite acceleration", ErrSingular)
		}
	}
	return nil
}

// mobilityFromBodyForces maps spatial forces at body origins onto the
// generalized speeds: f_k = Σ_b F_b·v_kb + τ_b·ω_kb.
func (m *Model) mobilityFromBodyForces(s *State, forces []SpatialForce) []float64 {
	f := make([]float64, len(s.q))
	for k := range f {
		unit := s.unit[k]
		for b, F := range forces {
			f[k] += r2.Dot(F.Force, unit[b].vel) + F.Torque*unit[b].omega
		}
	}
	return f
}

// residual computes M·u̇ + c(q,u) - appliedMobility - Jᵀ·appliedBody.
func (m *Model) residual(s *State, udot, appliedMobility []float64, appliedBody []SpatialForce) []float64 {
	kin := make([]bodyKin, len(m.bodies))
	m.propagate(s, s.u, udot, kin)

	inertial := make([]SpatialForce, len(m.bodies))
	for _, body := range m.bodies {
		b := body.index
		fr := s.frames[b]
		k := kin[b]
		r := rotate(body.COM, fr.angle)
		aCOM := r2.Add(k.acc, r2.Scale(k.alpha, perp(r)))
		aCOM = r2.Sub(aCOM, r2.Scale(k.omega*k.omega, r))
		F := r2.Scale(body.Mass, aCOM)
		inertial[b] = SpatialForce{
			Force:  F,
			Torque: body.Inertia*k.alpha + r2.Cross(r, F),
		}
	}

	tau := m.mobilityFromBodyForces(s, inertial)
	if appliedBody != nil {
		applied := m.mobilityFromBodyForces(s, appliedBody)
		for k := range tau {
			tau[k] -= applied[k]
		}
	}
	for k := range appliedMobility {
		tau[k] -= appliedMobility[k]
	}
	return tau
}

// massMatrix assembles M = Σ m·Jcᵀ·Jc + I·Jωᵀ·Jω.
func (m *Model) massMatrix(s *State) *mat.SymDense {
	n := len(s.q)
	M := mat.NewSymDense(n, nil)
	vcom := make([][]r2.Vec, n)
	for k := range vcom {
		vcom[k] = make([]r2.Vec, len(m.bodies))
		for _, body := range m.bodies {
			b := body.index
			r := rotate(body.COM, s.frames[b].angle)
			uk := s.unit[k][b]
			vcom[k][b] = r2.Add(uk.vel, r2.Scale(uk.omega, perp(r)))
		}
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := 0.0
			for _, body := range m.bodies {
				b := body.index
				v += body.Mass*r2.Dot(vcom[i][b], vcom[j][b]) +
					body.Inertia*s.unit[i][b].omega*s.unit[j][b].omega
			}
			M.SetSym(i, j, v)
		}
	}
	return M
}

// accelerationConstraints returns G and b of G·u̇ = b: couplers first,
// then one row per locked coordinate.
func (m *Model) accelerationConstraints(s *State) (*mat.Dense, []float64) {
	G, _ := m.constraintJacobian(s)
	b := make([]float64, 0, m.NumMultipliers(s))
	for _, c := range m.couplers {
		b = append(b, c.accelerationBias(s.q, s.u))
	}
	for _, l := range s.locked {
		if l {
			b = append(b, 0)
		}
	}
	return G, b
}

// constraintJacobian returns the velocity constraint matrix G and its row count.
func (m *Model) constraintJacobian(s *State) (*mat.Dense, int) {
	n := len(s.q)
	rows := m.NumMultipliers(s)
	if rows == 0 {
		return nil, 0
	}
	G := mat.NewDense(rows, n, nil)
	row := make([]float64, n)
	r := 0
	for _, c := range m.couplers {
		for k := range row {
			row[k] = 0
		}
		c.jacobianRow(s.q, row)
		G.SetRow(r, row)
		r++
	}
	for k, l := range s.locked {
		if l {
			G.Set(r, k, 1)
			r++
		}
	}
	return G, rows
}

// CalcM returns the system mass matrix.
func (m *Model) CalcM(s *State) (*mat.SymDense, error) {
	if s.stage < StagePosition {
		return nil, &StageError{Required: StagePosition, Current: s.stage}
	}
	return m.massMatrix(s), nil
}

// RigidBodyForces returns the body forces accumulated at stage, which must
// be Dynamics or later.
func (m *Model) RigidBodyForces(s *State, stage Stage) ([]SpatialForce, error) {
	if stage < StageDynamics || s.stage < stage {
		return nil, &StageError{Required: maxStage(stage, StageDynamics), Current: s.stage}
	}
	out := make([]SpatialForce, len(s.bodyForces))
	copy(out, s.bodyForces)
	return out, nil
}

// AppliedMobilityForces returns forces that elements applied directly in
// mobility space.
func (m *Model) AppliedMobilityForces(s *State) ([]float64, error) {
	if s.stage < StageDynamics {
		return nil, &StageError{Required: StageDynamics, Current: s.stage}
	}
	return cloneFloats(s.mobility), nil
}

// CalcTreeEquivalentMobilityForces converts body forces into the
// generalized forces that would have the same effect on the tree.
func (m *Model) CalcTreeEquivalentMobilityForces(s *State, bodyForces []SpatialForce) ([]float64, error) {
	if s.stage < StagePosition {
		return nil, &StageError{Required: StagePosition, Current: s.stage}
	}
	if len(bodyForces) != len(m.bodies) {
		return nil, fmt.Errorf("%w: %d body forces for %d bodies", ErrDimensionMismatch, len(bodyForces), len(m.bodies))
	}
	return m.mobilityFromBodyForces(s, bodyForces), nil
}

// CalcConstraintForcesFromMultipliers returns the body and mobility
// forces Gᵀ·λ of the constraints. Coordinate couplers and locks act only
// in mobility space, so the body forces are zero.
func (m *Model) CalcConstraintForcesFromMultipliers(s *State, lambda []float64) ([]SpatialForce, []float64, error) {
	if s.stage < StagePosition {
		return nil, nil, &StageError{Required: StagePosition, Current: s.stage}
	}
	G, rows := m.constraintJacobian(s)
	if len(lambda) != rows {
		return nil, nil, fmt.Errorf("%w: %d multipliers for %d constraints", ErrDimensionMismatch, len(lambda), rows)
	}
	mobility := make([]float64, len(s.q))
	if rows > 0 {
		var f mat.VecDense
		f.MulVec(G.T(), mat.NewVecDense(rows, cloneFloats(lambda)))
		for k := range mobility {
			mobility[k] = f.AtVec(k)
		}
	}
	return make([]SpatialForce, len(m.bodies)), mobility, nil
}

// CalcResidualForceIgnoringConstraints performs inverse dynamics: the
// mobility forces needed, beyond the applied ones, to produce knownUDot.
// Nil applied slices count as zero.
func (m *Model) CalcResidualForceIgnoringConstraints(s *State, appliedMobility []float64, appliedBody []SpatialForce, knownUDot []float64) ([]float64, error) {
	if s.stage < StageVelocity {
		return nil, &StageError{Required: StageVelocity, Current: s.stage}
	}
	n := len(s.q)
	if len(knownUDot) != n || (appliedMobility != nil && len(appliedMobility) != n) ||
		(appliedBody != nil && len(appliedBody) != len(m.bodies)) {
		return nil, ErrDimensionMismatch
	}
	return m.residual(s, knownUDot, appliedMobility, appliedBody), nil
}

func (m *Model) UDot(s *State) ([]float64, error) {
	if s.stage < StageAcceleration {
		return nil, &StageError{Required: StageAcceleration, Current: s.stage}
	}
	return cloneFloats(s.udot), nil
}

// Multipliers returns λ ordered as couplers then locked coordinates.
func (m *Model) Multipliers(s *State) ([]float64, error) {
	if s.stage < StageAcceleration {
		return nil, &StageError{Required: StageAcceleration, Current: s.stage}
	}
	return cloneFloats(s.lambda), nil
}

// KineticEnergy returns ½·uᵀ·M·u.
func (m *Model) KineticEnergy(s *State) (float64, error) {
	M, err := m.CalcM(s)
	if err != nil {
		return 0, err
	}
	u := mat.NewVecDense(len(s.u), cloneFloats(s.u))
	return 0.5 * mat.Inner(u, M, u), nil
}

// PotentialEnergy returns the gravitational potential of every body
// relative to the ground origin. It is zero while gravity is disabled.
func (m *Model) PotentialEnergy(s *State) (float64, error) {
	if s.stage < StagePosition {
		return 0, &StageError{Required: StagePosition, Current: s.stage}
	}
	if s.gravityDisabled {
		return 0, nil
	}
	var pe float64
	for _, b := range m.bodies {
		com, err := m.StationLocation(s, b.index, b.COM)
		if err != nil {
			return 0, err
		}
		pe -= b.Mass * r2.Dot(m.gravity, com)
	}
	return pe, nil
}

func maxStage(a, b Stage) Stage {
	if a > b {
		return a
	}
	return b
}
