package mbe

import "math"

type MotionType int

const (
	Rotational MotionType = iota
	Translational
)

func (t MotionType) String() string {
	if t == Translational {
		return "translational"
	}
	return "rotational"
}

// Coordinate is one generalized coordinate of a Model. Its value, speed,
// clamp and lock flags live in a State; the Coordinate only describes it.
type Coordinate struct {
	DefaultValue   float64
	DefaultClamped bool
	DefaultLocked  bool
	Range          [2]float64

	model  *Model
	joint  *Joint
	name   string
	motion MotionType
	index  int
}

func newCoordinate(m *Model, j *Joint, name string, motion MotionType, index int) *Coordinate {
	return &Coordinate{
		Range:  defaultRange(motion),
		model:  m,
		joint:  j,
		name:   name,
		motion: motion,
		index:  index,
	}
}

func (c *Coordinate) Name() string            { return c.name }
func (c *Coordinate) MotionType() MotionType  { return c.motion }
func (c *Coordinate) JointName() string       { return c.joint.Name }
func (c *Coordinate) Joint() *Joint           { return c.joint }
func (c *Coordinate) SpeedIndex() int         { return c.index }
func (c *Coordinate) Value(s *State) float64  { return s.q[c.index] }
func (c *Coordinate) IsClamped(s *State) bool { return s.clamped[c.index] }
func (c *Coordinate) IsLocked(s *State) bool  { return s.locked[c.index] }
func (c *Coordinate) SpeedValue(s *State) float64 {
	return s.u[c.index]
}

// SetValue writes the coordinate. A clamped coordinate is limited to its
// Range and a locked coordinate keeps its value, so callers must read the
// value back. With enforceConstraints the other coordinates are assembled
// onto the constraint manifold while this one is held.
func (c *Coordinate) SetValue(s *State, value float64, enforceConstraints bool) error {
	if s.locked[c.index] {
		return nil
	}
	if s.clamped[c.index] {
		value = math.Max(c.Range[0], math.Min(c.Range[1], value))
	}
	s.q[c.index] = value
	s.invalidate(StageTime)
	if !enforceConstraints {
		return nil
	}
	return c.model.assemble(s, c.index, defaultAssemblyTolerance)
}

func (c *Coordinate) SetSpeedValue(s *State, value float64) {
	s.u[c.index] = value
	s.invalidate(StagePosition)
}

func (c *Coordinate) SetClamped(s *State, clamped bool) {
	s.clamped[c.index] = clamped
}

func (c *Coordinate) SetLocked(s *State, locked bool) {
	if s.locked[c.index] != locked {
		s.locked[c.index] = locked
		s.invalidate(StageInstance)
	}
}
