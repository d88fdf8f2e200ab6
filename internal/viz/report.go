package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/armcheck/internal/storage"
	"github.com/san-kum/armcheck/internal/sweep"
)

// SampleLines renders one sample as the moment-arm line and, when the
// torque check ran, the torque line.
func SampleLines(row storage.SampleRow, dynamics bool) []string {
	deg := row.Value * 180 / math.Pi
	lines := []string{fmt.Sprintf("r = %s :: %s at q = %.2f",
		Mark(fmt.Sprintf("%.6f", row.MomentArm), row.DefinitionOK),
		Mark(fmt.Sprintf("%.6f", row.Estimate), row.DefinitionOK),
		deg)}
	if dynamics && row.Error == "" {
		lines = append(lines, fmt.Sprintf("  tau = %s :: %s   r*F = %s",
			Mark(fmt.Sprintf("%.6f", row.TauIVD), row.DynamicsOK),
			Mark(fmt.Sprintf("%.6f", row.TauDirect), row.DynamicsOK),
			Mark(fmt.Sprintf("%.6f", row.TauExpected), row.DynamicsOK)))
	}
	if row.Error != "" {
		lines = append(lines, "  "+Warning.Render(row.Error))
	}
	return lines
}

// Report is the printable form of a sweep, live or loaded from the store.
type Report struct {
	Name            string
	Model           string
	Coordinate      string
	Muscle          string
	Coupled         []string
	Definition      bool
	Dynamics        bool
	DynamicsSkipped bool
	Warnings        []string
	Rows            []storage.SampleRow
}

func (r Report) Passed() bool { return r.Definition || r.Dynamics }

func FromResult(res *sweep.Result) Report {
	return Report{
		Name:            res.Scenario.Name,
		Model:           res.Scenario.Model,
		Coordinate:      res.Coordinate,
		Muscle:          res.Muscle,
		Coupled:         res.Coupled,
		Definition:      res.PassesDefinition,
		Dynamics:        res.PassesDynamicConsistency,
		DynamicsSkipped: res.DynamicsSkipped,
		Warnings:        res.Warnings,
		Rows:            storage.Rows(res),
	}
}

func FromStored(meta *storage.RunMetadata, rows []storage.SampleRow) Report {
	return Report{
		Name:            meta.Name,
		Model:           meta.Model,
		Coordinate:      meta.Coordinate,
		Muscle:          meta.Muscle,
		Coupled:         meta.Coupled,
		Definition:      meta.PassesDefinition,
		Dynamics:        meta.PassesDynamicConsistency,
		DynamicsSkipped: meta.DynamicsSkipped,
		Warnings:        meta.Warnings,
		Rows:            rows,
	}
}

// Render lays out the header, the sample lines, the verdicts and the
// end-of-run warnings.
func (r Report) Render() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s  %s", r.Name, Subtle.Render(r.Model))))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s   %s %s", Label.Render("coordinate"), Value.Render(r.Coordinate),
		Label.Render("muscle"), Value.Render(r.Muscle))
	if len(r.Coupled) > 0 {
		fmt.Fprintf(&b, "   %s %s", Label.Render("coupled"), Value.Render(strings.Join(r.Coupled, ", ")))
	}
	b.WriteString("\n\n")

	for _, row := range r.Rows {
		for _, line := range SampleLines(row, !r.DynamicsSkipped) {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	dyn := Verdict(r.Dynamics)
	if r.DynamicsSkipped {
		dyn = Skipped.Render("SKIPPED (massless)")
	}
	fmt.Fprintf(&b, "%s %s   %s %s   %s %s\n",
		Label.Render("definition"), Verdict(r.Definition),
		Label.Render("dynamics"), dyn,
		Label.Render("overall"), Verdict(r.Passed()))
	for _, w := range r.Warnings {
		b.WriteString(Warning.Render("WARNING: " + w))
		b.WriteString("\n")
	}
	return b.String()
}

// BatterySummary renders one line per scenario and the totals.
func BatterySummary(names []string, results []*sweep.Result, errs map[string]error) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("battery"))
	b.WriteString("\n")

	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}
	for i, name := range names {
		res := results[i]
		pad := strings.Repeat(" ", width-len(name))
		if res == nil {
			msg := "aborted"
			if err, ok := errs[name]; ok {
				msg = err.Error()
			}
			fmt.Fprintf(&b, "%s%s  %s  %s\n", name, pad, Fail.Render("ERROR"), Subtle.Render(msg))
			continue
		}
		def, dyn := res.Failures()
		detail := fmt.Sprintf("definition %d/%d", len(res.Samples)-def, len(res.Samples))
		if res.DynamicsSkipped {
			detail += ", dynamics skipped"
		} else {
			detail += fmt.Sprintf(", dynamics %d/%d", len(res.Samples)-dyn, len(res.Samples))
		}
		fmt.Fprintf(&b, "%s%s  %s  %s\n", name, pad, Verdict(res.Passed()), Subtle.Render(detail))
	}

	sum := sweep.Summarize(results)
	fmt.Fprintf(&b, "\n%s passed, %s failed, %s aborted of %d\n",
		Pass.Render(fmt.Sprint(sum.Passed)), Fail.Render(fmt.Sprint(sum.Failed)),
		Warning.Render(fmt.Sprint(sum.Aborted)), sum.Total)
	return b.String()
}
