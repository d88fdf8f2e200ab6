package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt         = 0.001
	DefaultDuration   = 1.0
	DefaultIntegrator = "rk4"
	DefaultController = "constant"
)

// Config describes a forward simulation of a model under its muscles.
type Config struct {
	Model      string  `yaml:"model"`
	Integrator string  `yaml:"integrator"`
	Controller string  `yaml:"controller"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	// Activation drives every muscle under the constant controller and
	// caps the activation the PID controller may request.
	Activation float64 `yaml:"activation"`
	// Gravity toggles the model's gravity during the run.
	Gravity          bool               `yaml:"gravity"`
	InitState        map[string]float64 `yaml:"init_state"`
	ControllerParams ControllerConfig   `yaml:"controller_params"`
}

// ControllerConfig tunes the PID activation controller, which tracks Target
// on Coordinate.
type ControllerConfig struct {
	Coordinate string  `yaml:"coordinate"`
	Kp         float64 `yaml:"kp"`
	Ki         float64 `yaml:"ki"`
	Kd         float64 `yaml:"kd"`
	Target     float64 `yaml:"target"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "pendulum",
		Integrator: DefaultIntegrator,
		Controller: DefaultController,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Activation: DefaultActivation,
		InitState:  map[string]float64{},
		ControllerParams: ControllerConfig{
			Kp: 5,
			Ki: 0.5,
			Kd: 0.2,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
