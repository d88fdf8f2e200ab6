package metrics

import (
	"math"

	"github.com/san-kum/armcheck/internal/sim"
)

// ActivationEffort is the mean over steps of the summed squared muscle
// activations.
type ActivationEffort struct {
	sum     float64
	samples int
}

func NewActivationEffort() *ActivationEffort {
	return &ActivationEffort{}
}

func (a *ActivationEffort) Name() string { return "activation_effort" }

func (a *ActivationEffort) OnStep(x sim.State, u sim.Control, t float64) {
	for _, v := range u {
		a.sum += v * v
	}
	a.samples++
}

func (a *ActivationEffort) Value() float64 {
	if a.samples == 0 {
		return 0
	}
	return a.sum / float64(a.samples)
}

func (a *ActivationEffort) Reset() {
	a.sum = 0
	a.samples = 0
}

// PeakActivation is the largest activation requested of any muscle.
type PeakActivation struct {
	peak float64
}

func NewPeakActivation() *PeakActivation { return &PeakActivation{} }

func (p *PeakActivation) Name() string { return "peak_activation" }

func (p *PeakActivation) OnStep(x sim.State, u sim.Control, t float64) {
	for _, v := range u {
		p.peak = math.Max(p.peak, v)
	}
}

func (p *PeakActivation) Value() float64 { return p.peak }

func (p *PeakActivation) Reset() { p.peak = 0 }
