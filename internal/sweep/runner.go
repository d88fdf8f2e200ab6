package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/armcheck/internal/config"
	"github.com/san-kum/armcheck/internal/mbe"
	"github.com/san-kum/armcheck/internal/models"
	"github.com/san-kum/armcheck/internal/momentarm"
	"github.com/san-kum/armcheck/internal/muscle"
)

const (
	warnDefinition = "moment arm does not match -dL/dq"
	warnDynamics   = "moment arm times muscle force does not match inverse dynamics"
)

// Runner sweeps a muscle's moment arm over a coordinate range and checks
// it against the length derivative and against the model's dynamics.
type Runner struct {
	registry *models.Registry
	logger   *zap.Logger
}

func NewRunner(registry *models.Registry, logger *zap.Logger) *Runner {
	if registry == nil {
		registry = models.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{registry: registry, logger: logger}
}

// experiment is a scenario resolved against a freshly built model.
type experiment struct {
	model   *mbe.Model
	state   *mbe.State
	coord   *mbe.Coordinate
	muscle  *muscle.Muscle
	coupled []string
	policy  momentarm.CouplingPolicy
}

func configurationError(err error) error {
	if errors.Is(err, momentarm.ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %w", momentarm.ErrConfiguration, err)
}

func (r *Runner) setup(sc config.Scenario) (*experiment, error) {
	policy, err := sc.Policy()
	if err != nil {
		return nil, err
	}
	m, err := r.registry.Build(sc.Model)
	if err != nil {
		return nil, configurationError(err)
	}
	if sc.Mass >= 0 {
		m.SetUniformMass(sc.Mass)
	}
	s, err := m.InitSystem()
	if err != nil {
		return nil, configurationError(err)
	}

	var coord *mbe.Coordinate
	if sc.Coordinate == "" {
		coords := m.Coordinates()
		if len(coords) == 0 {
			return nil, fmt.Errorf("%w: model %s has no coordinates", momentarm.ErrConfiguration, sc.Model)
		}
		coord = coords[0]
	} else if coord, err = m.Coordinate(sc.Coordinate); err != nil {
		return nil, configurationError(err)
	}
	mu, err := models.FindMuscle(m, sc.Muscle)
	if err != nil {
		return nil, configurationError(err)
	}

	s.ZeroU()
	m.DisableAllForces(s)
	if err := m.SetForceDisabled(s, mu.Name(), false); err != nil {
		return nil, configurationError(err)
	}
	coord.SetClamped(s, false)
	coord.SetLocked(s, false)

	return &experiment{
		model:   m,
		state:   s,
		coord:   coord,
		muscle:  mu,
		coupled: momentarm.CoupledCoordinateNames(m.Constraints(), coord.Name()),
		policy:  policy,
	}, nil
}

// Run executes one scenario. Failed checks and numerical trouble at a
// sample degrade the verdicts; configuration errors abort the run.
func (r *Runner) Run(ctx context.Context, sc config.Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	log := r.logger.With(zap.String("scenario", sc.Name), zap.String("model", sc.Model))

	ex, err := r.setup(sc)
	if err != nil {
		log.Error("scenario setup failed", zap.Error(err))
		return nil, err
	}

	res := &Result{
		Scenario:                 sc,
		Coordinate:               ex.coord.Name(),
		Muscle:                   ex.muscle.Name(),
		Coupled:                  ex.coupled,
		PassesDefinition:         true,
		PassesDynamicConsistency: true,
		DynamicsSkipped:          !sc.ChecksDynamics(),
		Started:                  time.Now(),
	}
	log.Debug("sweep started",
		zap.String("coordinate", res.Coordinate),
		zap.String("muscle", res.Muscle),
		zap.Strings("coupled", res.Coupled))

	for i, q := range sc.Samples() {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		sample, err := r.sample(ex, sc, i, q)
		if err != nil {
			log.Error("sweep aborted", zap.Int("sample", i), zap.Error(err))
			return nil, err
		}
		r.logSample(log, sample)

		if !sample.DefinitionOK() {
			res.PassesDefinition = false
		}
		if !res.DynamicsSkipped && !sample.DynamicsOK() {
			res.PassesDynamicConsistency = false
		}
		res.Samples = append(res.Samples, sample)
	}
	res.Elapsed = time.Since(res.Started)

	if !res.PassesDefinition {
		res.Warnings = append(res.Warnings, warnDefinition)
	}
	if !res.PassesDynamicConsistency {
		res.Warnings = append(res.Warnings, warnDynamics)
	}

	definition, dynamics := res.Failures()
	log.Info("sweep finished",
		zap.Bool("passed", res.Passed()),
		zap.Bool("definition", res.PassesDefinition),
		zap.Bool("dynamics", res.PassesDynamicConsistency),
		zap.Bool("dynamics_skipped", res.DynamicsSkipped),
		zap.Int("definition_failures", definition),
		zap.Int("dynamics_failures", dynamics),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// sample evaluates the checks at coordinate value q. Only configuration
// errors are returned; everything else is recorded on the sample.
func (r *Runner) sample(ex *experiment, sc config.Scenario, i int, q float64) (Sample, error) {
	m, s, coord, mu := ex.model, ex.state, ex.coord, ex.muscle
	out := Sample{Index: i, Value: q}

	if err := coord.SetValue(s, q, true); err != nil {
		out.Err = err
		return out, nil
	}
	out.Value = coord.Value(s)
	mu.SetActivation(s, sc.Activation)
	if err := m.Realize(s, mbe.StagePosition); err != nil {
		out.Err = err
		return out, nil
	}
	if err := mu.Equilibrate(s); err != nil {
		out.Err = err
		return out, nil
	}

	arm, err := mu.ComputeMomentArm(s, coord)
	if err != nil {
		out.Err = err
		return out, nil
	}
	out.MomentArm = arm
	est, err := momentarm.EstimateMomentArm(m, s, mu.Path(), coord, sc.StepSize)
	if err != nil {
		out.Err = err
		return out, nil
	}
	out.Estimate = est
	out.DefinitionErr = momentarm.Compare("moment arm vs -dL/dq", arm, est, sc.Tolerance)

	if !sc.ChecksDynamics() {
		return out, nil
	}
	if err := m.Realize(s, mbe.StageAcceleration); err != nil {
		out.DynamicsErr = err
		return out, nil
	}
	force, err := mu.TendonForce(s)
	if err != nil {
		out.DynamicsErr = err
		return out, nil
	}
	out.MuscleForce = force
	W, err := momentarm.ComputeCoupling(m, s, coord, ex.coupled, ex.policy)
	if err != nil {
		if errors.Is(err, momentarm.ErrConfiguration) {
			return out, err
		}
		out.DynamicsErr = err
		return out, nil
	}
	out.Coupling = W
	report, err := momentarm.CheckTorqueConsistency(m, s, coord, W, force, arm, sc.Tolerance)
	if err != nil {
		out.DynamicsErr = err
		return out, nil
	}
	out.Torque = report
	return out, nil
}

func (r *Runner) logSample(log *zap.Logger, s Sample) {
	fields := []zap.Field{
		zap.Int("sample", s.Index),
		zap.Float64("value", s.Value),
		zap.Float64("moment_arm", s.MomentArm),
		zap.Float64("estimate", s.Estimate),
	}
	if s.Torque != nil {
		fields = append(fields,
			zap.Float64("tau_ivd", s.Torque.TauIVD),
			zap.Float64("tau_direct", s.Torque.TauDirect),
			zap.Float64("tau_expected", s.Torque.Expected))
	}
	log.Debug("sample", fields...)

	switch {
	case s.Err != nil:
		log.Warn("moment arm not evaluated", zap.Int("sample", s.Index), zap.Error(s.Err))
	case s.DefinitionErr != nil:
		log.Warn("definition check failed", zap.Int("sample", s.Index), zap.Error(s.DefinitionErr))
	}
	switch {
	case s.DynamicsErr != nil:
		log.Warn("torque check not carried out", zap.Int("sample", s.Index), zap.Error(s.DynamicsErr))
	case s.Torque != nil && !s.Torque.Consistent:
		log.Warn("torque check failed", zap.Int("sample", s.Index), zap.Error(s.Torque.Err()))
	}
}
