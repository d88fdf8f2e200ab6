package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/armcheck/internal/storage"
)

// PlotMomentArms draws the analytic and estimated moment arms against the
// sample index.
func PlotMomentArms(rows []storage.SampleRow, caption string) string {
	if len(rows) == 0 {
		return ""
	}
	analytic := make([]float64, len(rows))
	estimate := make([]float64, len(rows))
	for i, r := range rows {
		analytic[i] = r.MomentArm
		estimate[i] = r.Estimate
	}
	return asciigraph.PlotMany([][]float64{analytic, estimate},
		asciigraph.Height(12),
		asciigraph.Width(70),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Yellow),
		asciigraph.Caption(caption),
	)
}

// PlotTorques draws the inverse-dynamics torque and r*F per sample.
func PlotTorques(rows []storage.SampleRow, caption string) string {
	ivd := make([]float64, 0, len(rows))
	expected := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.Error != "" || math.IsNaN(r.TauIVD) {
			continue
		}
		ivd = append(ivd, r.TauIVD)
		expected = append(expected, r.TauExpected)
	}
	if len(ivd) == 0 {
		return ""
	}
	return asciigraph.PlotMany([][]float64{ivd, expected},
		asciigraph.Height(12),
		asciigraph.Width(70),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
		asciigraph.Caption(caption),
	)
}

// PlotSeries draws one trajectory column.
func PlotSeries(data []float64, caption string) string {
	if len(data) == 0 {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
}
