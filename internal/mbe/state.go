package mbe

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"
)

type frame struct {
	angle  float64
	origin r2.Vec
}

// bodyKin holds angular and origin kinematics of one body.
type bodyKin struct {
	omega float64
	vel   r2.Vec
	alpha float64
	acc   r2.Vec
}

// SpatialForce is a planar force applied at a body origin plus a torque.
type SpatialForce struct {
	Torque float64
	Force  r2.Vec
}

// State is a value snapshot of a model configuration. Copies made with
// Clone or CopyFrom share nothing with the source.
type State struct {
	q, u, udot, lambda []float64
	clamped, locked    []bool
	forceDisabled      []bool
	gravityDisabled    bool
	vars               map[string]float64
	stage              Stage

	frames     []frame
	pivots     []r2.Vec
	kin        []bodyKin
	unit       [][]bodyKin
	bodyForces []SpatialForce
	mobility   []float64
}

func (s *State) Stage() Stage { return s.stage }

func (s *State) invalidate(to Stage) {
	if s.stage > to {
		s.stage = to
	}
}

func (s *State) NQ() int { return len(s.q) }
func (s *State) NU() int { return len(s.u) }

func (s *State) Q() []float64 { return cloneFloats(s.q) }
func (s *State) U() []float64 { return cloneFloats(s.u) }

func (s *State) SetQ(q []float64) {
	copy(s.q, q)
	s.invalidate(StageTime)
}

func (s *State) SetU(u []float64) {
	copy(s.u, u)
	s.invalidate(StagePosition)
}

// ZeroU sets every generalized speed to zero.
func (s *State) ZeroU() {
	for i := range s.u {
		s.u[i] = 0
	}
	s.invalidate(StagePosition)
}

// Var returns a named auxiliary variable such as a muscle activation.
func (s *State) Var(name string) (float64, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// SetVar writes an auxiliary variable; it invalidates Dynamics.
func (s *State) SetVar(name string, v float64) {
	s.vars[name] = v
	s.invalidate(StageVelocity)
}

// IsValid reports whether q and u are free of NaN and Inf.
func (s *State) IsValid() bool {
	for _, v := range s.q {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	for _, v := range s.u {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s *State) Clone() *State {
	c := &State{}
	c.CopyFrom(s)
	return c
}

// CopyFrom overwrites s with a deep copy of src, reusing s's storage
// when the sizes already match.
func (s *State) CopyFrom(src *State) {
	s.q = copyInto(s.q, src.q)
	s.u = copyInto(s.u, src.u)
	s.udot = copyInto(s.udot, src.udot)
	s.lambda = copyInto(s.lambda, src.lambda)
	s.clamped = copyBools(s.clamped, src.clamped)
	s.locked = copyBools(s.locked, src.locked)
	s.forceDisabled = copyBools(s.forceDisabled, src.forceDisabled)
	s.gravityDisabled = src.gravityDisabled
	if s.vars == nil {
		s.vars = make(map[string]float64, len(src.vars))
	}
	for k := range s.vars {
		if _, ok := src.vars[k]; !ok {
			delete(s.vars, k)
		}
	}
	for k, v := range src.vars {
		s.vars[k] = v
	}
	s.stage = src.stage

	s.frames = append(s.frames[:0], src.frames...)
	s.pivots = append(s.pivots[:0], src.pivots...)
	s.kin = append(s.kin[:0], src.kin...)
	if len(s.unit) != len(src.unit) {
		s.unit = make([][]bodyKin, len(src.unit))
	}
	for k := range src.unit {
		s.unit[k] = append(s.unit[k][:0], src.unit[k]...)
	}
	s.bodyForces = append(s.bodyForces[:0], src.bodyForces...)
	s.mobility = copyInto(s.mobility, src.mobility)
}

func copyInto(dst, src []float64) []float64 {
	if src == nil {
		return dst[:0]
	}
	if cap(dst) < len(src) {
		dst = make([]float64, len(src))
	}
	dst = dst[:len(src)]
	copy(dst, src)
	return dst
}

func copyBools(dst, src []bool) []bool {
	if cap(dst) < len(src) {
		dst = make([]bool, len(src))
	}
	dst = dst[:len(src)]
	copy(dst, src)
	return dst
}

func cloneFloats(v []float64) []float64 {
	c := make([]float64, len(v))
	copy(c, v)
	return c
}

// StatePool recycles scratch states so that perturbation experiments do
// not allocate a full snapshot each time.
type StatePool struct {
	pool sync.Pool
}

func NewStatePool() *StatePool {
	return &StatePool{
		pool: sync.Pool{
			New: func() interface{} {
				return &State{}
			},
		},
	}
}

func (p *StatePool) Get() *State {
	return p.pool.Get().(*State)
}

func (p *StatePool) Put(s *State) {
	if s != nil {
		p.pool.Put(s)
	}
}

// GetAndCopy returns a pooled state holding a deep copy of src.
func (p *StatePool) GetAndCopy(src *State) *State {
	dst := p.Get()
	dst.CopyFrom(src)
	return dst
}
