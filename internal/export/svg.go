// Package export writes stored runs in formats other tools read: SVG
// charts and a single JSON document.
package export

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/armcheck/internal/storage"
)

// Series is one polyline of a chart.
type Series struct {
	Name   string
	Color  string
	Points []r2.Vec
}

type bounds struct {
	lo, hi r2.Vec
}

func seriesBounds(series []Series) (bounds, bool) {
	b := bounds{lo: r2.Vec{X: math.Inf(1), Y: math.Inf(1)}, hi: r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}}
	seen := false
	for _, s := range series {
		for _, p := range s.Points {
			b.lo = r2.Vec{X: math.Min(b.lo.X, p.X), Y: math.Min(b.lo.Y, p.Y)}
			b.hi = r2.Vec{X: math.Max(b.hi.X, p.X), Y: math.Max(b.hi.Y, p.Y)}
			seen = true
		}
	}
	if !seen {
		return b, false
	}

	span := r2.Sub(b.hi, b.lo)
	if span.X == 0 {
		span.X = 1
	}
	if span.Y == 0 {
		span.Y = 1
	}
	pad := r2.Scale(0.1, span)
	b.lo = r2.Sub(b.lo, pad)
	b.hi = r2.Add(b.hi, pad)
	return b, true
}

// ChartSVG draws every series on shared axes with a legend in the top
// left corner. It returns "" when no series has two points.
func ChartSVG(title string, series []Series, width, height int) string {
	drawable := series[:0:0]
	for _, s := range series {
		if len(s.Points) >= 2 {
			drawable = append(drawable, s)
		}
	}
	b, ok := seriesBounds(drawable)
	if !ok {
		return ""
	}
	span := r2.Sub(b.hi, b.lo)
	toPixel := func(p r2.Vec) r2.Vec {
		return r2.Vec{
			X: (p.X - b.lo.X) / span.X * float64(width),
			Y: float64(height) - (p.Y-b.lo.Y)/span.Y*float64(height),
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
	if title != "" {
		fmt.Fprintf(&sb, `<text x="%d" y="16" fill="#cccccc" font-family="monospace" font-size="12" text-anchor="middle">%s</text>
`, width/2, escape(title))
	}

	if b.lo.Y <= 0 && b.hi.Y >= 0 {
		y := toPixel(r2.Vec{}).Y
		fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444466" stroke-width="1"/>
`, y, width, y)
	}

	for i, s := range drawable {
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, s.Color)
		for j, p := range s.Points {
			px := toPixel(p)
			if j == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", px.X, px.Y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", px.X, px.Y)
			}
		}
		sb.WriteString("\"/>\n")
		fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="11">%s</text>
`, 32+14*i, s.Color, escape(s.Name))
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// MomentArmSVG charts the analytic and finite-difference moment arms of a
// sweep against the coordinate value in degrees.
func MomentArmSVG(meta *storage.RunMetadata, rows []storage.SampleRow, width, height int) string {
	analytic := Series{Name: "analytic", Color: "#00ccff"}
	estimate := Series{Name: "-dL/dq", Color: "#ffaa00"}
	for _, r := range rows {
		if r.Error != "" {
			continue
		}
		deg := r.Value * 180 / math.Pi
		analytic.Points = append(analytic.Points, r2.Vec{X: deg, Y: r.MomentArm})
		estimate.Points = append(estimate.Points, r2.Vec{X: deg, Y: r.Estimate})
	}
	title := fmt.Sprintf("%s: moment arm of %s about %s", meta.Name, meta.Muscle, meta.Coordinate)
	return ChartSVG(title, []Series{analytic, estimate}, width, height)
}

var trajectoryColors = []string{"#00ccff", "#ffaa00", "#00ff88", "#ff66cc", "#aaaaff", "#ff4444"}

// TrajectorySVG charts the named state columns of a simulation against
// time.
func TrajectorySVG(meta *storage.RunMetadata, states [][]float64, times []float64, columns []string, width, height int) string {
	var series []Series
	for idx, name := range columns {
		if len(series) == len(trajectoryColors) {
			break
		}
		s := Series{Name: name, Color: trajectoryColors[len(series)]}
		for i, x := range states {
			if idx < len(x) && i < len(times) {
				s.Points = append(s.Points, r2.Vec{X: times[i], Y: x[idx]})
			}
		}
		series = append(series, s)
	}
	return ChartSVG(meta.Name+": trajectory", series, width, height)
}
