package config

import (
	"math"
	"sort"
)

func scenario(name, description, model, coord, muscle string, lo, hi, mass float64) Scenario {
	s := DefaultScenario()
	s.Name = name
	s.Description = description
	s.Model = model
	s.Coordinate = coord
	s.Muscle = muscle
	s.Range = [2]float64{lo, hi}
	s.Mass = mass
	return s
}

func withActivation(s Scenario, a float64) Scenario {
	s.Activation = a
	return s
}

func excluding(s Scenario, joints ...string) Scenario {
	s.ExcludedJoints = joints
	return s
}

func translational(s Scenario, policy string) Scenario {
	s.Translational = policy
	return s
}

// Battery is the built-in set of moment-arm sweeps.
var Battery = []Scenario{
	withActivation(scenario("pendulum_pulley", "constant 5 cm arm, 100 N at 0.3 rad",
		"pendulum", "theta", "flexor", 0, 0.6, NoMassOverride), 1),
	scenario("pendulum_line", "straight-line path on a pendulum",
		"pendulum_line", "theta", "biceps", -1, 1, NoMassOverride),
	scenario("coupled_pair_q1", "pulley on q2 seen from q1 through q2 = 2·q1",
		"coupled_pair", "q1", "crossing", -0.5, 0.5, NoMassOverride),
	scenario("rect_fem_hip", "rectus femoris about the hip",
		"knee_patella", "hip_flexion_r", "rect_fem_r", DefaultRange[0], DefaultRange[1], NoMassOverride),
	excluding(scenario("rect_fem_knee", "rectus femoris about the knee via the patella; the excluded patella pin carries torque, so only the definition check passes",
		"knee_patella", "knee_angle_r", "rect_fem_r", DefaultRange[0], DefaultRange[1], NoMassOverride), "tib_pat_r"),
	excluding(scenario("vas_int_knee", "vastus intermedius about the knee via the patella; definition check only, as rect_fem_knee",
		"knee_patella", "knee_angle_r", "vas_int_r", DefaultRange[0], DefaultRange[1], NoMassOverride), "tib_pat_r"),
	scenario("wrist_ecu_massless", "ECU over the wrist, kinematics only",
		"wrist", "flexion", "ECU", -math.Pi/3, math.Pi/3, 0),
	scenario("wrist_ecu_1kg", "ECU over the wrist, 1 kg bodies",
		"wrist", "flexion", "ECU", -math.Pi/3, math.Pi/3, 1),
	scenario("wrist_ecu_100kg", "ECU over the wrist, 100 kg bodies",
		"wrist", "flexion", "ECU", -math.Pi/3, math.Pi/3, 100),
	scenario("elbow_biceps", "biceps about the elbow",
		"elbow", "r_elbow_flex", "BIClong", 0, 2, NoMassOverride),
	scenario("shoulder_biceps", "biceps about the shoulder",
		"elbow", "shoulder_elv", "BIClong", DefaultRange[0], DefaultRange[1], NoMassOverride),
	scenario("planar_rz", "rotation of a planar joint",
		"planar_arm", "arm_rz", "deltoid", DefaultRange[0], DefaultRange[1], NoMassOverride),
	translational(scenario("planar_tx", "translation of a planar joint",
		"planar_arm", "arm_tx", "deltoid", -0.05, 0.05, NoMassOverride), "include-self"),
	scenario("sled_q", "arm angle with a translational cart coupled to it",
		"sled", "q", "puller", -0.5, 0.5, NoMassOverride),
	translational(scenario("sled_q_translational", "as sled_q, with the cart in the coupling vector",
		"sled", "q", "puller", -0.5, 0.5, NoMassOverride), "include"),
}

func GetScenario(name string) (Scenario, bool) {
	for _, s := range Battery {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

func ListScenarios() []string {
	names := make([]string, len(Battery))
	for i, s := range Battery {
		names[i] = s.Name
	}
	return names
}

// Presets are named forward simulations per model.
var Presets = map[string]map[string]*Config{
	"pendulum": {
		"release": {
			Model: "pendulum", Integrator: "rk4", Controller: "constant", Dt: 0.001, Duration: 2.0,
			Activation: 0, Gravity: true, InitState: map[string]float64{"theta": 0.8},
		},
		"flex": {
			Model: "pendulum", Integrator: "rk4", Controller: "constant", Dt: 0.001, Duration: 1.0,
			Activation: 1, InitState: map[string]float64{"theta": 0},
		},
	},
	"elbow": {
		"hold": {
			Model: "elbow", Integrator: "rk4", Controller: "pid", Dt: 0.0005, Duration: 2.0,
			Activation: 1, Gravity: true, InitState: map[string]float64{"r_elbow_flex": 1.2},
			ControllerParams: ControllerConfig{Coordinate: "r_elbow_flex", Kp: 5, Ki: 1, Kd: 0.2, Target: 1.2},
		},
		"curl": {
			Model: "elbow", Integrator: "rk4", Controller: "constant", Dt: 0.0005, Duration: 0.5,
			Activation: 0.5, InitState: map[string]float64{"r_elbow_flex": 0.2},
		},
	},
	"wrist": {
		"extend": {
			Model: "wrist", Integrator: "euler", Controller: "constant", Dt: 0.0001, Duration: 0.2,
			Activation: 0.3, InitState: map[string]float64{"flexion": 0.5},
		},
	},
}

func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
