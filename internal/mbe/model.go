package mbe

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Ground is the name of the inertial reference body.
const Ground = "ground"

const groundIndex = -1

// DefaultGravity is standard gravity along -Y.
var DefaultGravity = r2.Vec{X: 0, Y: -9.8065}

type Body struct {
	Name    string
	Mass    float64
	COM     r2.Vec // in the body frame
	Inertia float64
	index   int
	jointed bool
}

func (b *Body) Index() int { return b.index }

type JointType int

const (
	// Pin rotates the child about the joint origin.
	Pin JointType = iota
	// Slider translates the child along Axis, expressed in the parent frame.
	Slider
	// Planar translates (tx, ty) in the parent frame then rotates rz.
	// Coordinates are ordered rz, tx, ty.
	Planar
)

func (t JointType) String() string {
	switch t {
	case Pin:
		return "PinJoint"
	case Slider:
		return "SliderJoint"
	case Planar:
		return "PlanarJoint"
	}
	return "UnknownJoint"
}

func (t JointType) numCoordinates() int {
	if t == Planar {
		return 3
	}
	return 1
}

type Joint struct {
	Name             string
	Type             JointType
	LocationInParent r2.Vec
	LocationInChild  r2.Vec
	Axis             r2.Vec
	parent           int
	child            int
	coords           []*Coordinate
}

func (j *Joint) Coordinates() []*Coordinate { return j.coords }

// Model is a planar tree of bodies. Build it with the Add* methods, then
// call InitSystem. The first builder error is kept and reported by
// InitSystem.
type Model struct {
	name        string
	bodies      []*Body
	bodyIndex   map[string]int
	joints      []*Joint
	coords      []*Coordinate
	coordIndex  map[string]int
	couplers    []*CoordinateCoupler
	forces      []Force
	forceIndex  map[string]int
	gravity     r2.Vec
	initialized bool
	err         error
}

func NewModel(name string) *Model {
	return &Model{
		name:       name,
		bodyIndex:  make(map[string]int),
		coordIndex: make(map[string]int),
		forceIndex: make(map[string]int),
		gravity:    DefaultGravity,
	}
}

func (m *Model) Name() string { return m.name }

func (m *Model) fail(format string, args ...any) {
	if m.err == nil {
		m.err = fmt.Errorf("%w: "+format, append([]any{ErrTopology}, args...)...)
	}
}

func (m *Model) AddBody(name string, mass float64, com r2.Vec, inertia float64) *Body {
	b := &Body{Name: name, Mass: mass, COM: com, Inertia: inertia, index: len(m.bodies)}
	if name == Ground {
		m.fail("body name %q is reserved", name)
		return b
	}
	if _, dup := m.bodyIndex[name]; dup {
		m.fail("duplicate body %q", name)
		return b
	}
	if m.initialized {
		m.fail("body %q added after InitSystem", name)
		return b
	}
	m.bodyIndex[name] = b.index
	m.bodies = append(m.bodies, b)
	return b
}

// AddJoint connects child to parent. Parents must be ground or a body that
// was already jointed, which keeps joints in topological order.
func (m *Model) AddJoint(name string, typ JointType, parent, child string, inParent, inChild r2.Vec, coordNames ...string) *Joint {
	j := &Joint{
		Name:             name,
		Type:             typ,
		LocationInParent: inParent,
		LocationInChild:  inChild,
		Axis:             r2.Vec{X: 1},
		parent:           groundIndex,
	}
	if m.initialized {
		m.fail("joint %q added after InitSystem", name)
		return j
	}
	if len(coordNames) != typ.numCoordinates() {
		m.fail("joint %q of type %s needs %d coordinates, got %d", name, typ, typ.numCoordinates(), len(coordNames))
		return j
	}
	if parent != Ground {
		pi, ok := m.bodyIndex[parent]
		if !ok || !m.bodies[pi].jointed {
			m.fail("joint %q: parent %q must be ground or an already connected body", name, parent)
			return j
		}
		j.parent = pi
	}
	ci, ok := m.bodyIndex[child]
	if !ok {
		m.fail("joint %q: unknown child body %q", name, child)
		return j
	}
	if m.bodies[ci].jointed {
		m.fail("body %q already has an inboard joint", child)
		return j
	}
	j.child = ci
	m.bodies[ci].jointed = true

	for i, cn := range coordNames {
		if _, dup := m.coordIndex[cn]; dup {
			m.fail("duplicate coordinate %q", cn)
			return j
		}
		motion := Rotational
		if typ == Slider || (typ == Planar && i > 0) {
			motion = Translational
		}
		c := newCoordinate(m, j, cn, motion, len(m.coords))
		m.coordIndex[cn] = c.index
		m.coords = append(m.coords, c)
		j.coords = append(j.coords, c)
	}
	m.joints = append(m.joints, j)
	return j
}

// AddCoupler constrains dependent = fn(independents...).
func (m *Model) AddCoupler(name string, dependent string, fn Function, independents ...string) *CoordinateCoupler {
	c := &CoordinateCoupler{name: name, fn: fn}
	dep, ok := m.coordIndex[dependent]
	if !ok {
		m.fail("coupler %q: unknown dependent coordinate %q", name, dependent)
		return c
	}
	c.dependent = m.coords[dep]
	for _, in := range independents {
		idx, ok := m.coordIndex[in]
		if !ok {
			m.fail("coupler %q: unknown independent coordinate %q", name, in)
			return c
		}
		if idx == dep {
			m.fail("coupler %q: coordinate %q is both dependent and independent", name, in)
			return c
		}
		c.independent = append(c.independent, m.coords[idx])
	}
	m.couplers = append(m.couplers, c)
	return c
}

// AddForce registers a force element. Forces are applied in registration order.
func (m *Model) AddForce(f Force) {
	if _, dup := m.forceIndex[f.Name()]; dup {
		m.fail("duplicate force %q", f.Name())
		return
	}
	m.forceIndex[f.Name()] = len(m.forces)
	m.forces = append(m.forces, f)
}

func (m *Model) SetGravity(g r2.Vec) { m.gravity = g }
func (m *Model) Gravity() r2.Vec     { return m.gravity }

// InitSystem validates the topology and returns a default state assembled
// onto the constraint manifold and realized to Position.
func (m *Model) InitSystem() (*State, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, b := range m.bodies {
		if !b.jointed {
			return nil, fmt.Errorf("%w: body %q has no inboard joint", ErrTopology, b.Name)
		}
	}
	m.initialized = true

	s := m.newState()
	for i, c := range m.coords {
		s.q[i] = c.DefaultValue
		s.clamped[i] = c.DefaultClamped
		s.locked[i] = c.DefaultLocked
	}
	s.stage = StageInstance
	if err := m.assembleDefaults(s, defaultAssemblyTolerance); err != nil {
		return nil, err
	}
	if err := m.Realize(s, StagePosition); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Model) newState() *State {
	nq := len(m.coords)
	nb := len(m.bodies)
	s := &State{
		q:             make([]float64, nq),
		u:             make([]float64, nq),
		udot:          make([]float64, nq),
		clamped:       make([]bool, nq),
		locked:        make([]bool, nq),
		forceDisabled: make([]bool, len(m.forces)),
		vars:          make(map[string]float64),
		frames:        make([]frame, nb),
		pivots:        make([]r2.Vec, len(m.joints)),
		kin:           make([]bodyKin, nb),
		unit:          make([][]bodyKin, nq),
		bodyForces:    make([]SpatialForce, nb),
		mobility:      make([]float64, nq),
	}
	for k := range s.unit {
		s.unit[k] = make([]bodyKin, nb)
	}
	return s
}

func (m *Model) checkState(s *State) error {
	if len(s.q) != len(m.coords) || len(s.frames) != len(m.bodies) || len(s.forceDisabled) != len(m.forces) {
		return fmt.Errorf("%w: state has %d coordinates, model %q has %d", ErrDimensionMismatch, len(s.q), m.name, len(m.coords))
	}
	return nil
}

func (m *Model) NumBodies() int      { return len(m.bodies) }
func (m *Model) NumCoordinates() int { return len(m.coords) }

// NumSpeeds equals NumCoordinates: every mobility is one q and one u.
func (m *Model) NumSpeeds() int { return len(m.coords) }

// NumY is the length of the y = [q; u] vector used for projection weights.
func (m *Model) NumY() int { return 2 * len(m.coords) }

// NumMultipliers counts coupler constraints plus locked coordinates in s.
func (m *Model) NumMultipliers(s *State) int {
	n := len(m.couplers)
	for _, l := range s.locked {
		if l {
			n++
		}
	}
	return n
}

func (m *Model) Bodies() []*Body { return m.bodies }

func (m *Model) Body(name string) (*Body, error) {
	i, ok := m.bodyIndex[name]
	if !ok {
		return nil, notFound("body", name)
	}
	return m.bodies[i], nil
}

// BodyIndex resolves a body name; ground resolves to -1.
func (m *Model) BodyIndex(name string) (int, error) {
	if name == Ground {
		return groundIndex, nil
	}
	i, ok := m.bodyIndex[name]
	if !ok {
		return 0, notFound("body", name)
	}
	return i, nil
}

func (m *Model) Joints() []*Joint { return m.joints }

func (m *Model) Coordinates() []*Coordinate { return m.coords }

func (m *Model) Coordinate(name string) (*Coordinate, error) {
	i, ok := m.coordIndex[name]
	if !ok {
		return nil, notFound("coordinate", name)
	}
	return m.coords[i], nil
}

func (m *Model) Constraints() []*CoordinateCoupler { return m.couplers }

func (m *Model) Forces() []Force { return m.forces }

func (m *Model) Force(name string) (Force, error) {
	i, ok := m.forceIndex[name]
	if !ok {
		return nil, notFound("force", name)
	}
	return m.forces[i], nil
}

// TotalMass sums the mass of all bodies.
func (m *Model) TotalMass() float64 {
	total := 0.0
	for _, b := range m.bodies {
		total += b.Mass
	}
	return total
}

// SetUniformMass overrides every body's mass. Each central inertia is set
// to the same value.
func (m *Model) SetUniformMass(mass float64) {
	for _, b := range m.bodies {
		b.Mass = mass
		b.Inertia = mass
	}
}

func (m *Model) SetForceDisabled(s *State, name string, disabled bool) error {
	i, ok := m.forceIndex[name]
	if !ok {
		return notFound("force", name)
	}
	if s.forceDisabled[i] != disabled {
		s.forceDisabled[i] = disabled
		s.invalidate(StageInstance)
	}
	return nil
}

func (m *Model) IsForceDisabled(s *State, name string) (bool, error) {
	i, ok := m.forceIndex[name]
	if !ok {
		return false, notFound("force", name)
	}
	return s.forceDisabled[i], nil
}

// DisableAllForces disables every registered force element and gravity.
func (m *Model) DisableAllForces(s *State) {
	for i := range s.forceDisabled {
		s.forceDisabled[i] = true
	}
	s.gravityDisabled = true
	s.invalidate(StageInstance)
}

func (m *Model) SetGravityDisabled(s *State, disabled bool) {
	if s.gravityDisabled != disabled {
		s.gravityDisabled = disabled
		s.invalidate(StageInstance)
	}
}

func defaultRange(motion MotionType) [2]float64 {
	if motion == Translational {
		return [2]float64{-10, 10}
	}
	return [2]float64{-math.Pi, math.Pi}
}
