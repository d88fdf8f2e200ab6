package metrics

import (
	"github.com/san-kum/armcheck/internal/mbe"
	"github.com/san-kum/armcheck/internal/sim"
)

// RangeCompliance is the fraction of steps on which every coordinate
// stayed inside its range.
type RangeCompliance struct {
	coords     []*mbe.Coordinate
	violations int
	samples    int
}

func NewRangeCompliance(coords []*mbe.Coordinate) *RangeCompliance {
	return &RangeCompliance{coords: coords}
}

func (r *RangeCompliance) Name() string { return "range_compliance" }

func (r *RangeCompliance) OnStep(x sim.State, u sim.Control, t float64) {
	r.samples++
	for _, c := range r.coords {
		q := x[c.SpeedIndex()]
		if q < c.Range[0] || q > c.Range[1] {
			r.violations++
			return
		}
	}
}

func (r *RangeCompliance) Value() float64 {
	if r.samples == 0 {
		return 1
	}
	return 1 - float64(r.violations)/float64(r.samples)
}

func (r *RangeCompliance) Reset() {
	r.violations = 0
	r.samples = 0
}
