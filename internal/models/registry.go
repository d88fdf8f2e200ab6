package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/armcheck/internal/mbe"
	"github.com/san-kum/armcheck/internal/muscle"
)

var (
	ErrUnknownModel  = errors.New("models: unknown model")
	ErrUnknownMuscle = errors.New("models: unknown muscle")
)

// Builder returns a fresh model instance. Every call must build new bodies
// so that callers may change masses without affecting other runs.
type Builder func() (*mbe.Model, error)

type Entry struct {
	Name        string
	Description string
	build       Builder
}

type Registry struct {
	entries map[string]Entry
}

func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]Entry)}

	r.Register("pendulum", "1 m, 1 kg pendulum with a 5 cm pulley flexor", NewPendulum)
	r.Register("pendulum_line", "pendulum with a straight-line muscle from ground to rod", NewLinePendulum)
	r.Register("coupled_pair", "two-link chain with q2 = 2·q1 and a pulley muscle over q2", NewCoupledPair)
	r.Register("knee_patella", "hip, knee and a patella on tib_pat_r coupled to the knee angle", NewKneePatella)
	r.Register("wrist", "hand on a radiocarpal pin with an extensor carpi ulnaris", NewWrist)
	r.Register("elbow", "shoulder and elbow with a biceps crossing both", NewElbow)
	r.Register("planar_arm", "free planar arm (rz, tx, ty) with one muscle", NewPlanarArm)
	r.Register("sled", "arm on a cart whose position is coupled to the arm angle", NewSled)

	return r
}

func (r *Registry) Register(name, description string, b Builder) {
	r.entries[name] = Entry{Name: name, Description: description, build: b}
}

func (r *Registry) Build(name string) (*mbe.Model, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	m, err := e.build()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return m, nil
}

func (r *Registry) List() []Entry {
	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Muscles returns the muscles registered as forces on m, in registration order.
func Muscles(m *mbe.Model) []*muscle.Muscle {
	var out []*muscle.Muscle
	for _, f := range m.Forces() {
		if mu, ok := f.(*muscle.Muscle); ok {
			out = append(out, mu)
		}
	}
	return out
}

// FindMuscle looks a muscle up by name. An empty name selects the first one.
func FindMuscle(m *mbe.Model, name string) (*muscle.Muscle, error) {
	all := Muscles(m)
	if name == "" {
		if len(all) == 0 {
			return nil, fmt.Errorf("%w: model %s has no muscles", ErrUnknownMuscle, m.Name())
		}
		return all[0], nil
	}
	for _, mu := range all {
		if mu.Name() == name {
			return mu, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in model %s", ErrUnknownMuscle, name, m.Name())
}

// attach builds a muscle on path and registers it with m.
func attach(m *mbe.Model, name string, path muscle.Path, params muscle.Parameters) error {
	mu, err := muscle.New(m, name, path, params)
	if err != nil {
		return err
	}
	m.AddForce(mu)
	return nil
}
