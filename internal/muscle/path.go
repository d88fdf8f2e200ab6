package muscle

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/armcheck/internal/mbe"
)

// Path is the line of action of a muscle-tendon unit.
type Path interface {
	Length(s *mbe.State) (float64, error)
	LengtheningSpeed(s *mbe.State) (float64, error)
	// ApplyTension adds the loads of a tension (positive pulls the path
	// ends together) to the force accumulators.
	ApplyTension(s *mbe.State, tension float64, bodyForces []mbe.SpatialForce, mobilityForces []float64) error
}

// PathPoint is a via point fixed in a body.
type PathPoint struct {
	Body     string `yaml:"body"`
	Location r2.Vec `yaml:"location"`
}

// GeometryPath is a piecewise-straight path through points fixed on bodies.
type GeometryPath struct {
	model  *mbe.Model
	points []PathPoint
	bodies []int
}

// NewGeometryPath resolves the bodies of points in m.
func NewGeometryPath(m *mbe.Model, points ...PathPoint) (*GeometryPath, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("muscle: geometry path needs at least 2 points, got %d", len(points))
	}
	p := &GeometryPath{model: m, points: points, bodies: make([]int, len(points))}
	for i, pt := range points {
		idx, err := m.BodyIndex(pt.Body)
		if err != nil {
			return nil, err
		}
		p.bodies[i] = idx
	}
	return p, nil
}

func (p *GeometryPath) Points() []PathPoint { return p.points }

func (p *GeometryPath) locations(s *mbe.State) ([]r2.Vec, error) {
	locs := make([]r2.Vec, len(p.points))
	for i, pt := range p.points {
		loc, err := p.model.StationLocation(s, p.bodies[i], pt.Location)
		if err != nil {
			return nil, err
		}
		locs[i] = loc
	}
	return locs, nil
}

func (p *GeometryPath) Length(s *mbe.State) (float64, error) {
	locs, err := p.locations(s)
	if err != nil {
		return 0, err
	}
	length := 0.0
	for i := 1; i < len(locs); i++ {
		length += r2.Norm(r2.Sub(locs[i], locs[i-1]))
	}
	return length, nil
}

func (p *GeometryPath) LengtheningSpeed(s *mbe.State) (float64, error) {
	locs, err := p.locations(s)
	if err != nil {
		return 0, err
	}
	speed := 0.0
	prev, err := p.model.StationVelocity(s, p.bodies[0], p.points[0].Location)
	if err != nil {
		return 0, err
	}
	for i := 1; i < len(locs); i++ {
		vel, err := p.model.StationVelocity(s, p.bodies[i], p.points[i].Location)
		if err != nil {
			return 0, err
		}
		if dir, ok := unit(r2.Sub(locs[i], locs[i-1])); ok {
			speed += r2.Dot(r2.Sub(vel, prev), dir)
		}
		prev = vel
	}
	return speed, nil
}

func (p *GeometryPath) ApplyTension(s *mbe.State, tension float64, bodyForces []mbe.SpatialForce, _ []float64) error {
	locs, err := p.locations(s)
	if err != nil {
		return err
	}
	for i := 1; i < len(locs); i++ {
		dir, ok := unit(r2.Sub(locs[i], locs[i-1]))
		if !ok {
			continue
		}
		f := r2.Scale(tension, dir)
		p.model.ApplyPointForce(s, p.bodies[i-1], p.points[i-1].Location, f, bodyForces)
		p.model.ApplyPointForce(s, p.bodies[i], p.points[i].Location, r2.Scale(-1, f), bodyForces)
	}
	return nil
}

func unit(v r2.Vec) (r2.Vec, bool) {
	n := r2.Norm(v)
	if n < 1e-12 {
		return r2.Vec{}, false
	}
	return r2.Scale(1/n, v), true
}

// Pulley wraps the path around a coordinate with a fixed radius. A positive
// coordinate change shortens the path by Radius times the change.
type Pulley struct {
	Coordinate string  `yaml:"coordinate"`
	Radius     float64 `yaml:"radius"`
}

// PulleyPath is a tendon running over pulleys: L = RestLength - Σ r·q.
// Its moment arm about each pulley coordinate is exactly the radius.
type PulleyPath struct {
	model      *mbe.Model
	restLength float64
	pulleys    []Pulley
	coords     []*mbe.Coordinate
}

func NewPulleyPath(m *mbe.Model, restLength float64, pulleys ...Pulley) (*PulleyPath, error) {
	p := &PulleyPath{model: m, restLength: restLength, pulleys: pulleys}
	for _, pl := range pulleys {
		c, err := m.Coordinate(pl.Coordinate)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(pl.Radius) || math.IsInf(pl.Radius, 0) {
			return nil, fmt.Errorf("muscle: pulley on %s has radius %g", pl.Coordinate, pl.Radius)
		}
		p.coords = append(p.coords, c)
	}
	return p, nil
}

func (p *PulleyPath) Pulleys() []Pulley { return p.pulleys }

func (p *PulleyPath) Length(s *mbe.State) (float64, error) {
	length := p.restLength
	for i, c := range p.coords {
		length -= p.pulleys[i].Radius * c.Value(s)
	}
	return length, nil
}

func (p *PulleyPath) LengtheningSpeed(s *mbe.State) (float64, error) {
	speed := 0.0
	for i, c := range p.coords {
		speed -= p.pulleys[i].Radius * c.SpeedValue(s)
	}
	return speed, nil
}

func (p *PulleyPath) ApplyTension(_ *mbe.State, tension float64, _ []mbe.SpatialForce, mobilityForces []float64) error {
	for i, c := range p.coords {
		mobilityForces[c.SpeedIndex()] += tension * p.pulleys[i].Radius
	}
	return nil
}
