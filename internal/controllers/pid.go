package controllers

import "github.com/san-kum/armcheck/internal/sim"

// PID drives every muscle with one activation that tracks Target on a
// coordinate. The state is laid out as coordinates then speeds.
type PID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64
	// Max caps the activation; the floor is always 0.
	Max float64

	index    int
	nq       int
	dim      int
	integral float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd, target float64, index, nq, dim int) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		Max:    1,
		index:  index,
		nq:     nq,
		dim:    dim,
		first:  true,
	}
}

func (p *PID) Compute(x sim.State, t float64) sim.Control {
	u := make(sim.Control, p.dim)
	if len(x) < p.nq+p.index+1 {
		return u
	}

	err := p.Target - x[p.index]
	rate := -x[p.nq+p.index]

	if p.first {
		p.first = false
	} else if dt := t - p.prevT; dt > 0 {
		p.integral += err * dt
	}
	p.prevT = t

	a := clamp(p.Kp*err+p.Ki*p.integral+p.Kd*rate, 0, p.Max)
	for i := range u {
		u[i] = a
	}
	return u
}

func (p *PID) Reset() {
	p.integral = 0
	p.first = true
}
