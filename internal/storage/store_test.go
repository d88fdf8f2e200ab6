package storage

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/armcheck/internal/config"
	"github.com/san-kum/armcheck/internal/momentarm"
	"github.com/san-kum/armcheck/internal/sim"
	"github.com/san-kum/armcheck/internal/sweep"
)

func sweepResult() *sweep.Result {
	sc, _ := config.GetScenario("pendulum_pulley")
	sc.Steps = 2
	return &sweep.Result{
		Scenario:                 sc,
		Coordinate:               "theta",
		Muscle:                   "flexor",
		PassesDefinition:         true,
		PassesDynamicConsistency: false,
		Warnings:                 []string{"torque mismatch"},
		Elapsed:                  1500 * time.Microsecond,
		Samples: []sweep.Sample{
			{
				Index: 0, Value: 0, MomentArm: 0.05, Estimate: 0.05, MuscleForce: 40,
				Coupling: []float64{1},
				Torque:   &momentarm.TorqueReport{TauDirect: 2, TauIVD: 2, Expected: 2, Consistent: true},
			},
			{
				Index: 1, Value: 0.3, MomentArm: 0.05, Estimate: 0.05, MuscleForce: 100,
				Coupling: []float64{1},
				Torque:   &momentarm.TorqueReport{TauDirect: 5, TauIVD: 5, Expected: 6},
			},
			{
				Index: 2, Value: 0.6, MomentArm: 0.05,
				Err: &momentarm.ArithmeticError{Op: "estimate", Coordinate: "theta", Detail: "collapsed"},
			},
		},
	}
}

func TestSaveSweep(t *testing.T) {
	store := New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	id, err := store.SaveSweep(sweepResult())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(id, "pendulum_pulley_") {
		t.Errorf("run id = %s", id)
	}

	meta, err := store.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Kind != KindSweep || meta.Model != "pendulum" || !meta.Passed || meta.PassesDynamicConsistency {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.Scenario == nil || meta.Scenario.Steps != 2 || meta.ElapsedMs != 1.5 {
		t.Errorf("scenario/elapsed not stored: %+v", meta)
	}

	rows, err := store.LoadSamples(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if !rows[0].DefinitionOK || !rows[0].DynamicsOK || rows[0].TauIVD != 2 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].DynamicsOK || rows[1].TauExpected != 6 || rows[1].Value != 0.3 {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[2].DefinitionOK || !strings.Contains(rows[2].Error, "collapsed") {
		t.Errorf("row 2 = %+v", rows[2])
	}
}

func TestSaveTrajectory(t *testing.T) {
	store := New(t.TempDir())
	result := &sim.Result{
		States:   []sim.State{{0.8, 0}, {0.79, -0.1}},
		Controls: []sim.Control{{0.5}},
		Times:    []float64{0, 0.01},
	}
	meta := RunMetadata{Name: "pendulum_release", Model: "pendulum", Dt: 0.01, Duration: 0.01,
		Integrator: "rk4", Controller: "constant", Labels: []string{"theta", "theta_speed"}}

	id, err := store.SaveTrajectory(meta, result)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := store.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Kind != KindSimulation || loaded.Integrator != "rk4" {
		t.Errorf("metadata = %+v", loaded)
	}

	states, times, columns, err := store.LoadStates(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 2 || len(times) != 2 {
		t.Fatalf("got %d states, %d times", len(states), len(times))
	}
	if states[1][1] != -0.1 || states[1][2] != 0 {
		t.Errorf("state row = %v", states[1])
	}
	if strings.Join(columns, ",") != "theta,theta_speed,a0" {
		t.Errorf("columns = %v", columns)
	}
}

func TestListAndMissingRuns(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	runs, err := store.List()
	if err != nil || len(runs) != 0 {
		t.Fatalf("empty store: %v, %v", runs, err)
	}

	first, _ := store.SaveSweep(sweepResult())
	time.Sleep(10 * time.Millisecond)
	second, _ := store.SaveSweep(sweepResult())
	if err := os.MkdirAll(filepath.Join(dir, "stray"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != second || runs[1].ID != first {
		t.Errorf("runs out of order: %v", runs)
	}

	if _, err := store.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := store.LoadSamples("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, _, _, err := store.LoadStates(first); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("sweep runs have no trajectory, got %v", err)
	}
}

func TestFailedWriteRemovesRun(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	errWrite := errors.New("disk gone")
	meta := RunMetadata{Kind: KindSweep, Name: "broken"}
	_, err := store.saveRun(&meta, samplesFile, func(w *csv.Writer) error {
		if err := w.Write(sampleHeader); err != nil {
			return err
		}
		return errWrite
	})
	if !errors.Is(err, errWrite) {
		t.Fatalf("expected write error, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, meta.ID)); !os.IsNotExist(err) {
		t.Errorf("run directory %s left behind: %v", meta.ID, err)
	}
	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestWriteCSVReportsFlushError(t *testing.T) {
	// writes to /dev/full fail with ENOSPC once the buffer is flushed
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	err := writeCSV("/dev/full", func(w *csv.Writer) error {
		return w.Write([]string{"time", "theta"})
	})
	if err == nil {
		t.Fatal("expected flush error writing to /dev/full")
	}
}
