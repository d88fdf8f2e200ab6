package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/armcheck/internal/momentarm"
)

const (
	DefaultSteps      = 10
	DefaultActivation = 0.1
	DefaultStepSize   = 1e-3
	DefaultTolerance  = 1e-3
	// NoMassOverride keeps the masses the model was built with.
	NoMassOverride = -1.0
)

// DefaultRange is the sweep range used when a scenario names none.
var DefaultRange = [2]float64{-math.Pi / 2, 0}

// Scenario describes one moment-arm sweep.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Model       string `yaml:"model"`
	// Coordinate and Muscle default to the model's first coordinate and
	// first muscle when empty.
	Coordinate string     `yaml:"coordinate,omitempty"`
	Muscle     string     `yaml:"muscle,omitempty"`
	Range      [2]float64 `yaml:"range,flow"`
	Steps      int        `yaml:"steps"`
	// Mass >= 0 sets every body's mass and central inertia. Zero skips the
	// dynamic consistency check.
	Mass           float64  `yaml:"mass"`
	Activation     float64  `yaml:"activation"`
	StepSize       float64  `yaml:"step_size"`
	Tolerance      float64  `yaml:"tolerance"`
	ExcludedJoints []string `yaml:"excluded_joints,omitempty,flow"`
	Translational  string   `yaml:"translational,omitempty"`
}

func DefaultScenario() Scenario {
	return Scenario{
		Range:      DefaultRange,
		Steps:      DefaultSteps,
		Mass:       NoMassOverride,
		Activation: DefaultActivation,
		StepSize:   DefaultStepSize,
		Tolerance:  DefaultTolerance,
	}
}

// UnmarshalYAML fills fields missing from the document with defaults.
func (s *Scenario) UnmarshalYAML(node *yaml.Node) error {
	type plain Scenario
	p := plain(DefaultScenario())
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = Scenario(p)
	return nil
}

func (s Scenario) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: scenario without a name", momentarm.ErrConfiguration)
	case s.Model == "":
		return fmt.Errorf("%w: scenario %s has no model", momentarm.ErrConfiguration, s.Name)
	case s.Steps < 1:
		return fmt.Errorf("%w: scenario %s: steps %d", momentarm.ErrConfiguration, s.Name, s.Steps)
	case !(s.Range[0] <= s.Range[1]):
		return fmt.Errorf("%w: scenario %s: range [%g, %g]", momentarm.ErrConfiguration, s.Name, s.Range[0], s.Range[1])
	case !(s.StepSize > 0):
		return fmt.Errorf("%w: scenario %s: step size %g", momentarm.ErrConfiguration, s.Name, s.StepSize)
	case !(s.Tolerance > 0):
		return fmt.Errorf("%w: scenario %s: tolerance %g", momentarm.ErrConfiguration, s.Name, s.Tolerance)
	case !(s.Activation >= 0 && s.Activation <= 1):
		return fmt.Errorf("%w: scenario %s: activation %g", momentarm.ErrConfiguration, s.Name, s.Activation)
	}
	if _, err := momentarm.ParseTranslationalPolicy(s.Translational); err != nil {
		return fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return nil
}

// Policy builds the coupling policy the scenario asks for.
func (s Scenario) Policy() (momentarm.CouplingPolicy, error) {
	p := momentarm.DefaultCouplingPolicy()
	tp, err := momentarm.ParseTranslationalPolicy(s.Translational)
	if err != nil {
		return p, err
	}
	p.Translational = tp
	return p.ExcludeJoints(s.ExcludedJoints...), nil
}

// Samples returns the Steps+1 equally spaced coordinate values of the sweep.
func (s Scenario) Samples() []float64 {
	out := make([]float64, s.Steps+1)
	dq := (s.Range[1] - s.Range[0]) / float64(s.Steps)
	for i := range out {
		out[i] = s.Range[0] + float64(i)*dq
	}
	return out
}

// ChecksDynamics reports whether the torque consistency check runs.
func (s Scenario) ChecksDynamics() bool {
	return s.Mass != 0
}

// File is the on-disk form of a scenario battery.
type File struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(f.Scenarios))
	for _, s := range f.Scenarios {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: duplicate scenario %s", momentarm.ErrConfiguration, s.Name)
		}
		seen[s.Name] = true
	}
	return f.Scenarios, nil
}

func SaveScenarios(path string, scenarios []Scenario) error {
	data, err := yaml.Marshal(File{Scenarios: scenarios})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
