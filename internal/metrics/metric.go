// Package metrics summarizes simulated trajectories of musculoskeletal
// models. Every metric is a sim.Observer.
package metrics

import "github.com/san-kum/armcheck/internal/sim"

type Metric interface {
	sim.Observer
	Name() string
	Value() float64
	Reset()
}

// Values collects the current value of every metric by name.
func Values(ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
