package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/armcheck/internal/storage"
)

// Sample is the JSON form of one sweep sample.
type Sample struct {
	Index        int     `json:"index"`
	Value        float64 `json:"value"`
	MomentArm    float64 `json:"moment_arm"`
	Estimate     float64 `json:"estimate"`
	DefinitionOK bool    `json:"definition_ok"`
	MuscleForce  float64 `json:"muscle_force"`
	TauDirect    float64 `json:"tau_direct"`
	TauIVD       float64 `json:"tau_ivd"`
	TauExpected  float64 `json:"tau_expected"`
	DynamicsOK   bool    `json:"dynamics_ok"`
	Error        string  `json:"error,omitempty"`
}

// Run is a stored run in one document.
type Run struct {
	Metadata *storage.RunMetadata `json:"metadata"`
	Samples  []Sample             `json:"samples,omitempty"`
	Times    []float64            `json:"times,omitempty"`
	Columns  []string             `json:"columns,omitempty"`
	States   [][]float64          `json:"states,omitempty"`
}

func SweepRun(meta *storage.RunMetadata, rows []storage.SampleRow) Run {
	samples := make([]Sample, len(rows))
	for i, r := range rows {
		samples[i] = Sample(r)
	}
	return Run{Metadata: meta, Samples: samples}
}

func TrajectoryRun(meta *storage.RunMetadata, states [][]float64, times []float64, columns []string) Run {
	return Run{Metadata: meta, Times: times, Columns: columns, States: states}
}

func WriteJSON(w io.Writer, run Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}
