package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/armcheck/internal/config"
	"github.com/san-kum/armcheck/internal/sim"
	"github.com/san-kum/armcheck/internal/sweep"
)

const (
	KindSweep      = "sweep"
	KindSimulation = "simulation"

	metadataFile = "metadata.json"
	samplesFile  = "samples.csv"
	statesFile   = "states.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes a stored run. Sweep fields are empty for
// simulations and the other way around.
type RunMetadata struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`

	Scenario                 *config.Scenario `json:"scenario,omitempty"`
	Coordinate               string           `json:"coordinate,omitempty"`
	Muscle                   string           `json:"muscle,omitempty"`
	Coupled                  []string         `json:"coupled,omitempty"`
	Passed                   bool             `json:"passed"`
	PassesDefinition         bool             `json:"passes_definition"`
	PassesDynamicConsistency bool             `json:"passes_dynamic_consistency"`
	DynamicsSkipped          bool             `json:"dynamics_skipped"`
	Warnings                 []string         `json:"warnings,omitempty"`
	ElapsedMs                float64          `json:"elapsed_ms,omitempty"`

	Dt         float64  `json:"dt,omitempty"`
	Duration   float64  `json:"duration,omitempty"`
	Integrator string   `json:"integrator,omitempty"`
	Controller string   `json:"controller,omitempty"`
	Labels     []string `json:"labels,omitempty"`

	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// SampleRow is one stored sample of a sweep.
type SampleRow struct {
	Index        int
	Value        float64
	MomentArm    float64
	Estimate     float64
	DefinitionOK bool
	MuscleForce  float64
	TauDirect    float64
	TauIVD       float64
	TauExpected  float64
	DynamicsOK   bool
	Error        string
}

var sampleHeader = []string{
	"index", "value", "moment_arm", "estimate", "definition_ok",
	"muscle_force", "tau_direct", "tau_ivd", "tau_expected", "dynamics_ok", "error",
}

func newRunID(name string) string {
	return fmt.Sprintf("%s_%s", name, uuid.NewString()[:8])
}

func (s *Store) createRun(meta *RunMetadata) (string, error) {
	meta.ID = newRunID(meta.Name)
	meta.Timestamp = time.Now()
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, metadataFile), append(data, '\n'), 0644); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return runDir, nil
}

// SaveSweep stores a sweep result and returns its run ID.
func (s *Store) SaveSweep(res *sweep.Result) (string, error) {
	sc := res.Scenario
	meta := RunMetadata{
		Kind:                     KindSweep,
		Name:                     sc.Name,
		Model:                    sc.Model,
		Scenario:                 &sc,
		Coordinate:               res.Coordinate,
		Muscle:                   res.Muscle,
		Coupled:                  res.Coupled,
		Passed:                   res.Passed(),
		PassesDefinition:         res.PassesDefinition,
		PassesDynamicConsistency: res.PassesDynamicConsistency,
		DynamicsSkipped:          res.DynamicsSkipped,
		Warnings:                 res.Warnings,
		ElapsedMs:                float64(res.Elapsed.Microseconds()) / 1000,
	}
	return s.saveRun(&meta, samplesFile, func(w *csv.Writer) error {
		if err := w.Write(sampleHeader); err != nil {
			return err
		}
		for _, row := range Rows(res) {
			if err := w.Write(row.record()); err != nil {
				return err
			}
		}
		return nil
	})
}

// saveRun creates the run directory and writes its data file. A failed
// write removes the whole run.
func (s *Store) saveRun(meta *RunMetadata, name string, write func(*csv.Writer) error) (string, error) {
	runDir, err := s.createRun(meta)
	if err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, name), write); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return meta.ID, nil
}

func writeCSV(path string, write func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := write(w); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Rows flattens the samples of a sweep.
func Rows(res *sweep.Result) []SampleRow {
	rows := make([]SampleRow, len(res.Samples))
	for i := range res.Samples {
		smp := &res.Samples[i]
		row := SampleRow{
			Index:        smp.Index,
			Value:        smp.Value,
			MomentArm:    smp.MomentArm,
			Estimate:     smp.Estimate,
			DefinitionOK: smp.DefinitionOK(),
			MuscleForce:  smp.MuscleForce,
			DynamicsOK:   smp.DynamicsOK(),
		}
		if smp.Torque != nil {
			row.TauDirect = smp.Torque.TauDirect
			row.TauIVD = smp.Torque.TauIVD
			row.TauExpected = smp.Torque.Expected
		}
		switch {
		case smp.Err != nil:
			row.Error = smp.Err.Error()
		case smp.DynamicsErr != nil:
			row.Error = smp.DynamicsErr.Error()
		}
		rows[i] = row
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (r SampleRow) record() []string {
	return []string{
		strconv.Itoa(r.Index),
		formatFloat(r.Value),
		formatFloat(r.MomentArm),
		formatFloat(r.Estimate),
		strconv.FormatBool(r.DefinitionOK),
		formatFloat(r.MuscleForce),
		formatFloat(r.TauDirect),
		formatFloat(r.TauIVD),
		formatFloat(r.TauExpected),
		strconv.FormatBool(r.DynamicsOK),
		r.Error,
	}
}

func parseSampleRow(record []string) (SampleRow, error) {
	if len(record) != len(sampleHeader) {
		return SampleRow{}, fmt.Errorf("storage: sample row has %d fields, want %d", len(record), len(sampleHeader))
	}
	var (
		row  SampleRow
		errs []error
	)
	num := func(i int) float64 {
		v, err := strconv.ParseFloat(record[i], 64)
		errs = append(errs, err)
		return v
	}
	flag := func(i int) bool {
		v, err := strconv.ParseBool(record[i])
		errs = append(errs, err)
		return v
	}
	idx, err := strconv.Atoi(record[0])
	errs = append(errs, err)
	row.Index = idx
	row.Value = num(1)
	row.MomentArm = num(2)
	row.Estimate = num(3)
	row.DefinitionOK = flag(4)
	row.MuscleForce = num(5)
	row.TauDirect = num(6)
	row.TauIVD = num(7)
	row.TauExpected = num(8)
	row.DynamicsOK = flag(9)
	row.Error = record[10]
	return row, errors.Join(errs...)
}

// SaveTrajectory stores a forward simulation. meta supplies the run
// description; its ID, Kind and Timestamp are filled in.
func (s *Store) SaveTrajectory(meta RunMetadata, result *sim.Result) (string, error) {
	meta.Kind = KindSimulation
	return s.saveRun(&meta, statesFile, func(w *csv.Writer) error {
		if len(result.States) == 0 {
			return nil
		}

		header := []string{"time"}
		for i := range result.States[0] {
			if i < len(meta.Labels) {
				header = append(header, meta.Labels[i])
			} else {
				header = append(header, fmt.Sprintf("x%d", i))
			}
		}

		numControls := 0
		if len(result.Controls) > 0 && len(result.Controls[0]) > 0 {
			numControls = len(result.Controls[0])
			for i := 0; i < numControls; i++ {
				header = append(header, fmt.Sprintf("a%d", i))
			}
		}

		if err := w.Write(header); err != nil {
			return err
		}

		for i := range result.States {
			row := []string{strconv.FormatFloat(result.Times[i], 'f', 6, 64)}

			for _, val := range result.States[i] {
				row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
			}

			if i < len(result.Controls) && len(result.Controls[i]) > 0 {
				for _, val := range result.Controls[i] {
					row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
				}
			} else if numControls > 0 {
				for j := 0; j < numControls; j++ {
					row = append(row, "0")
				}
			}

			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// List returns stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadSamples(runID string) ([]SampleRow, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s has no samples", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []SampleRow{}, nil
	}

	rows := make([]SampleRow, 0, len(records)-1)
	for i, record := range records[1:] {
		row, err := parseSampleRow(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", samplesFile, i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadStates returns the stored trajectory, the sample times and the
// column names of the state entries.
func (s *Store) LoadStates(runID string) ([][]float64, []float64, []string, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil, fmt.Errorf("%w: %s has no trajectory", ErrRunNotFound, runID)
		}
		return nil, nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}

	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil, nil
	}
	columns := records[0][1:]

	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		times = append(times, t)

		state := make([]float64, 0, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				continue
			}
			state = append(state, val)
		}
		states = append(states, state)
	}

	return states, times, columns, nil
}
