package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/armcheck/internal/storage"
)

func sweepFixture() (*storage.RunMetadata, []storage.SampleRow) {
	meta := &storage.RunMetadata{
		ID: "pendulum_pulley_0001", Kind: storage.KindSweep, Name: "pendulum_pulley",
		Model: "pendulum", Coordinate: "theta", Muscle: "flexor",
	}
	rows := []storage.SampleRow{
		{Index: 0, Value: 0, MomentArm: 0.05, Estimate: 0.05, DefinitionOK: true},
		{Index: 1, Value: 0.3, MomentArm: 0.05, Estimate: 0.0501, DefinitionOK: true, MuscleForce: 100, TauIVD: 5, TauDirect: 5, TauExpected: 5, DynamicsOK: true},
		{Index: 2, Value: 0.6, Error: "momentarm: degenerate"},
	}
	return meta, rows
}

func TestMomentArmSVG(t *testing.T) {
	meta, rows := sweepFixture()
	svg := MomentArmSVG(meta, rows, 400, 200)
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Fatalf("not an svg document:\n%s", svg)
	}
	if got := strings.Count(svg, "<path"); got != 2 {
		t.Errorf("%d paths, want 2", got)
	}
	if !strings.Contains(svg, "moment arm of flexor about theta") {
		t.Error("missing title")
	}
	// errored samples are left out, so each path has two vertices
	if got := strings.Count(svg, " L"); got != 2 {
		t.Errorf("%d line segments, want 2", got)
	}
}

func TestChartSVGSkipsShortSeries(t *testing.T) {
	if svg := ChartSVG("x", []Series{{Name: "one", Points: []r2.Vec{{X: 1, Y: 1}}}}, 100, 100); svg != "" {
		t.Errorf("expected empty output, got %q", svg)
	}
	svg := ChartSVG("a < b", []Series{
		{Name: "flat", Color: "#fff", Points: []r2.Vec{{X: 0, Y: 2}, {X: 1, Y: 2}}},
	}, 100, 50)
	if !strings.Contains(svg, "a &lt; b") {
		t.Error("title not escaped")
	}
	if strings.Contains(svg, "NaN") {
		t.Errorf("degenerate bounds produced NaN:\n%s", svg)
	}
}

func TestTrajectorySVG(t *testing.T) {
	meta := &storage.RunMetadata{Name: "pendulum"}
	states := [][]float64{{0.1, 0, 1}, {0.2, 1, 1}, {0.3, 2, 1}}
	svg := TrajectorySVG(meta, states, []float64{0, 0.1, 0.2}, []string{"theta", "theta_speed", "a0"}, 300, 150)
	if got := strings.Count(svg, "<path"); got != 3 {
		t.Errorf("%d paths, want 3", got)
	}
	for _, name := range []string{"theta", "theta_speed", "a0"} {
		if !strings.Contains(svg, ">"+name+"<") {
			t.Errorf("legend missing %s", name)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	meta, rows := sweepFixture()
	var buf bytes.Buffer
	if err := WriteJSON(&buf, SweepRun(meta, rows)); err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Metadata struct {
			ID    string `json:"id"`
			Model string `json:"model"`
		} `json:"metadata"`
		Samples []map[string]any `json:"samples"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Metadata.ID != meta.ID || decoded.Metadata.Model != "pendulum" {
		t.Errorf("metadata = %+v", decoded.Metadata)
	}
	if len(decoded.Samples) != 3 {
		t.Fatalf("%d samples", len(decoded.Samples))
	}
	if decoded.Samples[1]["tau_ivd"] != 5.0 {
		t.Errorf("sample 1 = %v", decoded.Samples[1])
	}
	if _, ok := decoded.Samples[0]["error"]; ok {
		t.Error("empty error should be omitted")
	}
}
