package mbe

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// rotate turns v by angle radians.
func rotate(v r2.Vec, angle float64) r2.Vec {
	sin, cos := math.Sincos(angle)
	return r2.Vec{X: cos*v.X - sin*v.Y, Y: sin*v.X + cos*v.Y}
}

// perp is ẑ × v.
func perp(v r2.Vec) r2.Vec {
	return r2.Vec{X: -v.Y, Y: v.X}
}

func (m *Model) parentFrame(s *State, j *Joint) frame {
	if j.parent == groundIndex {
		return frame{}
	}
	return s.frames[j.parent]
}

func (m *Model) parentKin(kin []bodyKin, j *Joint) bodyKin {
	if j.parent == groundIndex {
		return bodyKin{}
	}
	return kin[j.parent]
}

// jointMotion splits a joint's generalized values into a rotation and a
// translation expressed in the parent frame.
func jointMotion(j *Joint, v []float64) (float64, r2.Vec) {
	i := j.coords[0].index
	switch j.Type {
	case Slider:
		return 0, r2.Scale(v[i], j.Axis)
	case Planar:
		return v[i], r2.Vec{X: v[i+1], Y: v[i+2]}
	default:
		return v[i], r2.Vec{}
	}
}

func (m *Model) realizePosition(s *State) {
	for ji, j := range m.joints {
		pf := m.parentFrame(s, j)
		theta, t := jointMotion(j, s.q)
		pivot := r2.Add(pf.origin, rotate(r2.Add(j.LocationInParent, t), pf.angle))
		angle := pf.angle + theta
		s.pivots[ji] = pivot
		s.frames[j.child] = frame{
			angle:  angle,
			origin: r2.Sub(pivot, rotate(j.LocationInChild, angle)),
		}
	}

	e := make([]float64, len(s.q))
	for k := range s.unit {
		e[k] = 1
		m.propagate(s, e, nil, s.unit[k])
		e[k] = 0
	}
}

// propagate computes body velocities for speeds u and, when udot is
// non-nil, body accelerations. Frames must be realized.
func (m *Model) propagate(s *State, u, udot []float64, out []bodyKin) {
	for ji, j := range m.joints {
		pf := m.parentFrame(s, j)
		pk := m.parentKin(out, j)
		pivot := s.pivots[ji]
		child := s.frames[j.child]

		thetaDot, tDot := jointMotion(j, u)
		tDotW := rotate(tDot, pf.angle)
		rp := r2.Sub(pivot, pf.origin)
		rc := r2.Sub(child.origin, pivot)

		vPivot := r2.Add(r2.Add(pk.vel, r2.Scale(pk.omega, perp(rp))), tDotW)
		omega := pk.omega + thetaDot
		k := bodyKin{
			omega: omega,
			vel:   r2.Add(vPivot, r2.Scale(omega, perp(rc))),
		}

		if udot != nil {
			thetaDDot, tDDot := jointMotion(j, udot)
			aPivot := r2.Add(pk.acc, r2.Scale(pk.alpha, perp(rp)))
			aPivot = r2.Sub(aPivot, r2.Scale(pk.omega*pk.omega, rp))
			aPivot = r2.Add(aPivot, rotate(tDDot, pf.angle))
			aPivot = r2.Add(aPivot, r2.Scale(2*pk.omega, perp(tDotW)))
			k.alpha = pk.alpha + thetaDDot
			k.acc = r2.Add(aPivot, r2.Scale(k.alpha, perp(rc)))
			k.acc = r2.Sub(k.acc, r2.Scale(omega*omega, rc))
		}
		out[j.child] = k
	}
}

// StationLocation returns the ground-frame location of a point fixed in a body.
func (m *Model) StationLocation(s *State, body int, local r2.Vec) (r2.Vec, error) {
	if s.stage < StagePosition {
		return r2.Vec{}, &StageError{Required: StagePosition, Current: s.stage}
	}
	if body == groundIndex {
		return local, nil
	}
	f := s.frames[body]
	return r2.Add(f.origin, rotate(local, f.angle)), nil
}

// StationVelocity returns the ground-frame velocity of a point fixed in a body.
func (m *Model) StationVelocity(s *State, body int, local r2.Vec) (r2.Vec, error) {
	if s.stage < StageVelocity {
		return r2.Vec{}, &StageError{Required: StageVelocity, Current: s.stage}
	}
	if body == groundIndex {
		return r2.Vec{}, nil
	}
	f := s.frames[body]
	k := s.kin[body]
	return r2.Add(k.vel, r2.Scale(k.omega, perp(rotate(local, f.angle)))), nil
}

// StationJacobian returns ∂p/∂u for a body-fixed point, one column per speed.
func (m *Model) StationJacobian(s *State, body int, local r2.Vec) ([]r2.Vec, error) {
	if s.stage < StagePosition {
		return nil, &StageError{Required: StagePosition, Current: s.stage}
	}
	cols := make([]r2.Vec, len(s.q))
	if body == groundIndex {
		return cols, nil
	}
	r := rotate(local, s.frames[body].angle)
	for k := range cols {
		uk := s.unit[k][body]
		cols[k] = r2.Add(uk.vel, r2.Scale(uk.omega, perp(r)))
	}
	return cols, nil
}

// BodyAngle returns the orientation of a body in ground.
func (m *Model) BodyAngle(s *State, body int) (float64, error) {
	if s.stage < StagePosition {
		return 0, &StageError{Required: StagePosition, Current: s.stage}
	}
	if body == groundIndex {
		return 0, nil
	}
	return s.frames[body].angle, nil
}

// ApplyPointForce accumulates a ground-frame force acting at a body-fixed
// point into the per-body spatial forces at the body origins.
func (m *Model) ApplyPointForce(s *State, body int, local, force r2.Vec, bodyForces []SpatialForce) {
	if body == groundIndex {
		return
	}
	r := rotate(local, s.frames[body].angle)
	bodyForces[body].Force = r2.Add(bodyForces[body].Force, force)
	bodyForces[body].Torque += r2.Cross(r, force)
}
