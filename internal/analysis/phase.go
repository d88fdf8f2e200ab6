package analysis

import (
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

// PhasePortrait is a coordinate history against its speed.
type PhasePortrait struct {
	Points []r2.Vec
}

// NewPhasePortrait pairs q and u up to the shorter of the two.
func NewPhasePortrait(q, u []float64) *PhasePortrait {
	n := min(len(q), len(u))
	p := &PhasePortrait{Points: make([]r2.Vec, n)}
	for i := 0; i < n; i++ {
		p.Points[i] = r2.Vec{X: q[i], Y: u[i]}
	}
	return p
}

func (p *PhasePortrait) bounds() (lo, hi r2.Vec) {
	lo, hi = p.Points[0], p.Points[0]
	for _, pt := range p.Points[1:] {
		lo = r2.Vec{X: min(lo.X, pt.X), Y: min(lo.Y, pt.Y)}
		hi = r2.Vec{X: max(hi.X, pt.X), Y: max(hi.Y, pt.Y)}
	}
	span := r2.Sub(hi, lo)
	if span.X == 0 {
		span.X = 1
	}
	if span.Y == 0 {
		span.Y = 1
	}
	pad := r2.Scale(0.1, span)
	return r2.Sub(lo, pad), r2.Add(hi, pad)
}

// ASCII draws the portrait on a width by height grid, with axes where
// they fall inside the plotted area.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}
	lo, hi := p.bounds()
	span := r2.Sub(hi, lo)

	col := func(x float64) int { return int((x - lo.X) / span.X * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-lo.Y)/span.Y*float64(height-1)) }

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	for _, pt := range p.Points {
		r, c := row(pt.Y), col(pt.X)
		if r >= 0 && r < height && c >= 0 && c < width {
			canvas[r][c] = '•'
		}
	}

	if lo.X <= 0 && hi.X >= 0 {
		c := col(0)
		for r := range canvas {
			if canvas[r][c] == ' ' {
				canvas[r][c] = '│'
			}
		}
	}
	if lo.Y <= 0 && hi.Y >= 0 {
		r := row(0)
		for c := range canvas[r] {
			if canvas[r][c] == ' ' {
				canvas[r][c] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, line := range canvas {
		sb.WriteString(string(line))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// Crossings returns the interpolated times at which series passes through
// level in either direction.
func Crossings(series, times []float64, level float64) []float64 {
	n := min(len(series), len(times))
	var out []float64
	for i := 1; i < n; i++ {
		a, b := series[i-1]-level, series[i]-level
		if a == 0 || a*b >= 0 {
			if b == 0 && a != 0 {
				out = append(out, times[i])
			}
			continue
		}
		frac := a / (a - b)
		out = append(out, times[i-1]+frac*(times[i]-times[i-1]))
	}
	return out
}

// Extent returns the smallest and largest value of series.
func Extent(series []float64) (float64, float64) {
	if len(series) == 0 {
		return 0, 0
	}
	return floats.Min(series), floats.Max(series)
}
