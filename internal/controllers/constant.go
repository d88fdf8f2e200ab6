package controllers

import (
	"math"

	"github.com/san-kum/armcheck/internal/sim"
)

// Constant holds every muscle at the same activation.
type Constant struct {
	dim        int
	activation float64
}

func NewConstant(dim int, activation float64) *Constant {
	return &Constant{dim: dim, activation: clamp(activation, 0, 1)}
}

func (c *Constant) Compute(x sim.State, t float64) sim.Control {
	u := make(sim.Control, c.dim)
	for i := range u {
		u[i] = c.activation
	}
	return u
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
