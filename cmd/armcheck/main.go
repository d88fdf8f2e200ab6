package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/armcheck/internal/analysis"
	"github.com/san-kum/armcheck/internal/config"
	"github.com/san-kum/armcheck/internal/controllers"
	"github.com/san-kum/armcheck/internal/export"
	"github.com/san-kum/armcheck/internal/integrators"
	"github.com/san-kum/armcheck/internal/metrics"
	"github.com/san-kum/armcheck/internal/models"
	"github.com/san-kum/armcheck/internal/muscle"
	"github.com/san-kum/armcheck/internal/optim"
	"github.com/san-kum/armcheck/internal/sim"
	"github.com/san-kum/armcheck/internal/storage"
	"github.com/san-kum/armcheck/internal/sweep"
	"github.com/san-kum/armcheck/internal/tui"
	"github.com/san-kum/armcheck/internal/viz"
)

var (
	dataDir string
	verbose bool
	noSave  bool

	// sweep overrides
	scenarioFile  string
	steps         int
	mass          float64
	activation    float64
	tolerance     float64
	stepSize      float64
	rangeFrom     float64
	rangeTo       float64
	excluded      []string
	translational string
	workers       int
	writeFile     string

	// simulation
	configFile string
	preset     string
	dt         float64
	duration   float64
	integrator string
	controller string
	gravity    bool
	initPose   map[string]string
	kp         float64
	ki         float64
	kd         float64
	target     float64
	trackCoord string

	curvePoints int
	curveCSV    string

	svgOut  string
	jsonOut string

	tuneMin    float64
	tuneMax    float64
	tunePoints int
)

// main registers the commands and exits with status 1 when one fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "armcheck",
		Short:         "moment-arm verification for musculoskeletal models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".armcheck", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every sample")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "sweep one scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&scenarioFile, "file", "", "scenario file (yaml) to look the scenario up in")
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of intervals in the sweep")
	runCmd.Flags().Float64Var(&mass, "mass", config.NoMassOverride, "set every body mass (0 skips the torque check, <0 keeps the model's)")
	runCmd.Flags().Float64Var(&activation, "activation", config.DefaultActivation, "muscle activation")
	runCmd.Flags().Float64Var(&tolerance, "tol", config.DefaultTolerance, "comparison tolerance")
	runCmd.Flags().Float64Var(&stepSize, "step-size", config.DefaultStepSize, "finite-difference perturbation")
	runCmd.Flags().Float64Var(&rangeFrom, "from", config.DefaultRange[0], "first coordinate value")
	runCmd.Flags().Float64Var(&rangeTo, "to", config.DefaultRange[1], "last coordinate value")
	runCmd.Flags().StringSliceVar(&excluded, "exclude", nil, "joints left out of the coupling vector")
	runCmd.Flags().StringVar(&translational, "translational", "", "translational coordinates in the coupling vector: exclude, include-self, include")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	batteryCmd := &cobra.Command{
		Use:   "battery",
		Short: "sweep every scenario of the built-in battery or a scenario file",
		Args:  cobra.NoArgs,
		RunE:  runBattery,
	}
	batteryCmd.Flags().StringVar(&scenarioFile, "file", "", "scenario file (yaml)")
	batteryCmd.Flags().IntVar(&workers, "workers", 0, "concurrent scenarios (0 = one per CPU)")
	batteryCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list the built-in scenarios",
		Args:  cobra.NoArgs,
		RunE:  listScenarios,
	}
	scenariosCmd.Flags().StringVar(&writeFile, "write", "", "also write the battery to this yaml file")

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "pick and run scenarios interactively",
		Args:  cobra.NoArgs,
		RunE:  browseScenarios,
	}
	browseCmd.Flags().StringVar(&scenarioFile, "file", "", "scenario file (yaml)")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list models and their muscles",
		Args:  cobra.NoArgs,
		RunE:  listModels,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	simulateCmd := &cobra.Command{
		Use:   "simulate [model]",
		Short: "integrate a model forward under its muscles",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	simulateCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	simulateCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	simulateCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	simulateCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	simulateCmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator: rk4, euler")
	simulateCmd.Flags().StringVar(&controller, "controller", config.DefaultController, "controller: constant, pid")
	simulateCmd.Flags().Float64Var(&activation, "activation", config.DefaultActivation, "constant activation, or the pid cap")
	simulateCmd.Flags().BoolVar(&gravity, "gravity", false, "apply gravity")
	simulateCmd.Flags().StringToStringVar(&initPose, "init", nil, "initial coordinate values, e.g. theta=0.5")
	simulateCmd.Flags().Float64Var(&kp, "kp", 5, "pid kp")
	simulateCmd.Flags().Float64Var(&ki, "ki", 0.5, "pid ki")
	simulateCmd.Flags().Float64Var(&kd, "kd", 0.2, "pid kd")
	simulateCmd.Flags().Float64Var(&target, "target", 0, "pid target")
	simulateCmd.Flags().StringVar(&trackCoord, "track", "", "coordinate the pid tracks (default: first)")
	simulateCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	curvesCmd := &cobra.Command{
		Use:   "curves",
		Short: "print the default muscle curves",
		Args:  cobra.NoArgs,
		RunE:  printCurves,
	}
	curvesCmd.Flags().StringVar(&curveCSV, "csv", "", "sample one curve as csv: active_force_length, force_velocity, tendon_force_length, fiber_force_length")
	curvesCmd.Flags().IntVar(&curvePoints, "points", 100, "csv sample count")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "write a stored run as svg or json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&svgOut, "svg", "", "write an svg chart to this file")
	exportCmd.Flags().StringVar(&jsonOut, "json", "", "write json to this file (- for stdout)")

	tuneCmd := &cobra.Command{
		Use:   "tune [scenario]",
		Short: "find the finite-difference step that best reproduces the analytic moment arm",
		Args:  cobra.ExactArgs(1),
		RunE:  tuneStepSize,
	}
	tuneCmd.Flags().StringVar(&scenarioFile, "file", "", "scenario file (yaml) to look the scenario up in")
	tuneCmd.Flags().Float64Var(&tuneMin, "min", 1e-9, "smallest step")
	tuneCmd.Flags().Float64Var(&tuneMax, "max", 1e-1, "largest step")
	tuneCmd.Flags().IntVar(&tunePoints, "points", 9, "steps on the log grid")

	rootCmd.AddCommand(runCmd, batteryCmd, browseCmd, tuneCmd, scenariosCmd, modelsCmd, listCmd, showCmd, plotCmd, exportCmd, simulateCmd, curvesCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, viz.Fail.Render("error:"), err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.Encoding = "console"
	return cfg.Build()
}

func findScenario(name string) (config.Scenario, error) {
	if scenarioFile != "" {
		all, err := config.LoadScenarios(scenarioFile)
		if err != nil {
			return config.Scenario{}, err
		}
		for _, sc := range all {
			if sc.Name == name {
				return sc, nil
			}
		}
		return config.Scenario{}, fmt.Errorf("scenario %s not in %s", name, scenarioFile)
	}
	sc, ok := config.GetScenario(name)
	if !ok {
		return config.Scenario{}, fmt.Errorf("unknown scenario: %s (available: %s)", name, strings.Join(config.ListScenarios(), ", "))
	}
	return sc, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := findScenario(args[0])
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		sc.Steps = steps
	}
	if flags.Changed("mass") {
		sc.Mass = mass
	}
	if flags.Changed("activation") {
		sc.Activation = activation
	}
	if flags.Changed("tol") {
		sc.Tolerance = tolerance
	}
	if flags.Changed("step-size") {
		sc.StepSize = stepSize
	}
	if flags.Changed("from") {
		sc.Range[0] = rangeFrom
	}
	if flags.Changed("to") {
		sc.Range[1] = rangeTo
	}
	if flags.Changed("exclude") {
		sc.ExcludedJoints = excluded
	}
	if flags.Changed("translational") {
		sc.Translational = translational
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	runner := sweep.NewRunner(models.NewRegistry(), logger)
	res, err := runner.Run(cmd.Context(), sc)
	if err != nil {
		return err
	}
	fmt.Println(viz.FromResult(res).Render())

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.SaveSweep(res)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s (%v)\n", runID, res.Elapsed.Round(time.Microsecond))
	}
	return scenarioVerdict(res)
}

// scenarioVerdict is the error a command exits with for a finished sweep.
func scenarioVerdict(res *sweep.Result) error {
	if res.Passed() {
		return nil
	}
	return fmt.Errorf("scenario %s did not pass", res.Scenario.Name)
}

func runBattery(cmd *cobra.Command, args []string) error {
	scenarios := config.Battery
	if scenarioFile != "" {
		loaded, err := config.LoadScenarios(scenarioFile)
		if err != nil {
			return err
		}
		scenarios = loaded
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	runner := sweep.NewRunner(models.NewRegistry(), logger)
	start := time.Now()
	results, runErr := runner.RunBattery(cmd.Context(), scenarios, workers)

	// errors.Join keeps the failures in scenario order
	var failures []error
	if joined, ok := runErr.(interface{ Unwrap() []error }); ok {
		failures = joined.Unwrap()
	}
	names := make([]string, len(scenarios))
	errs := make(map[string]error)
	for i, sc := range scenarios {
		names[i] = sc.Name
		if results[i] == nil && len(failures) > 0 {
			errs[sc.Name] = failures[0]
			failures = failures[1:]
		}
	}
	for _, res := range results {
		if res != nil {
			fmt.Println(viz.FromResult(res).Render())
		}
	}
	fmt.Println(viz.BatterySummary(names, results, errs))
	fmt.Printf("completed in %v\n", time.Since(start).Round(time.Millisecond))

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		for _, res := range results {
			if res == nil {
				continue
			}
			if _, err := st.SaveSweep(res); err != nil {
				return err
			}
		}
	}

	if sum := sweep.Summarize(results); sum.Failed+sum.Aborted > 0 {
		return fmt.Errorf("%d of %d scenarios did not pass", sum.Failed+sum.Aborted, sum.Total)
	}
	return nil
}

func browseScenarios(cmd *cobra.Command, args []string) error {
	scenarios := config.Battery
	if scenarioFile != "" {
		loaded, err := config.LoadScenarios(scenarioFile)
		if err != nil {
			return err
		}
		scenarios = loaded
	}
	// logging would tear the alternate screen
	runner := sweep.NewRunner(models.NewRegistry(), zap.NewNop())
	return tui.Run(cmd.Context(), runner, scenarios)
}

func listScenarios(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMODEL\tCOORDINATE\tMUSCLE\tRANGE\tMASS\tDESCRIPTION")
	for _, sc := range config.Battery {
		massStr := "model"
		if sc.Mass >= 0 {
			massStr = strconv.FormatFloat(sc.Mass, 'g', -1, 64)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t[%.3f, %.3f]\t%s\t%s\n",
			sc.Name, sc.Model, sc.Coordinate, sc.Muscle, sc.Range[0], sc.Range[1], massStr, sc.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if writeFile != "" {
		if err := config.SaveScenarios(writeFile, config.Battery); err != nil {
			return err
		}
		fmt.Printf("\nwrote %s\n", writeFile)
	}
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	registry := models.NewRegistry()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tCOORDINATES\tMUSCLES\tDESCRIPTION")
	for _, e := range registry.List() {
		m, err := registry.Build(e.Name)
		if err != nil {
			return err
		}
		var coords, muscles []string
		for _, c := range m.Coordinates() {
			coords = append(coords, c.Name())
		}
		for _, mu := range models.Muscles(m) {
			muscles = append(muscles, mu.Name())
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, strings.Join(coords, ","), strings.Join(muscles, ","), e.Description)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tMODEL\tTIME\tRESULT")

	for _, run := range runs {
		result := fmt.Sprintf("%.2fs %s", run.Duration, run.Integrator)
		if run.Kind == storage.KindSweep {
			result = viz.Verdict(run.Passed)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.Kind,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			result,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	if meta.Kind != storage.KindSweep {
		out, err := yaml.Marshal(meta)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	}
	rows, err := st.LoadSamples(meta.ID)
	if err != nil {
		return err
	}
	fmt.Println(viz.FromStored(meta, rows).Render())
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n\n", meta.Model)

	if meta.Kind == storage.KindSweep {
		rows, err := st.LoadSamples(meta.ID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("no data to plot")
		}
		fmt.Println(viz.PlotMomentArms(rows, fmt.Sprintf("moment arm of %s about %s: analytic, -dL/dq", meta.Muscle, meta.Coordinate)))
		if !meta.DynamicsSkipped {
			fmt.Println()
			fmt.Println(viz.PlotTorques(rows, "torque: inverse dynamics, r*F"))
		}
		return nil
	}

	states, _, columns, err := st.LoadStates(meta.ID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	numVars := min(len(states[0]), 6)
	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, len(states))
		for i := range states {
			if varIdx < len(states[i]) {
				data[i] = states[i][varIdx]
			}
		}
		caption := fmt.Sprintf("x%d vs time", varIdx)
		if varIdx < len(columns) {
			caption = columns[varIdx] + " vs time"
		}
		fmt.Println(viz.PlotSeries(data, caption))
		fmt.Println()
	}

	nq := len(meta.Labels) / 2
	column := func(idx int) []float64 {
		out := make([]float64, 0, len(states))
		for _, x := range states {
			if idx < len(x) {
				out = append(out, x[idx])
			}
		}
		return out
	}
	for i := 0; i < nq; i++ {
		q := column(i)
		lo, hi := analysis.Extent(q)
		line := fmt.Sprintf("%s: range [%.4f, %.4f]", meta.Labels[i], lo, hi)
		f, err := analysis.DominantFrequency(q, meta.Dt)
		switch {
		case err == nil:
			line += fmt.Sprintf(", dominant frequency %.4f Hz", f)
		case !errors.Is(err, analysis.ErrShortSeries):
			return err
		}
		fmt.Println(line)
	}
	if nq > 0 {
		fmt.Printf("\nphase portrait: %s vs %s\n", meta.Labels[0], meta.Labels[nq])
		fmt.Print(analysis.NewPhasePortrait(column(0), column(nq)).ASCII(60, 16))
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	if svgOut == "" && jsonOut == "" {
		jsonOut = "-"
	}

	var run export.Run
	var svg string
	if meta.Kind == storage.KindSweep {
		rows, err := st.LoadSamples(meta.ID)
		if err != nil {
			return err
		}
		run = export.SweepRun(meta, rows)
		svg = export.MomentArmSVG(meta, rows, 800, 400)
	} else {
		states, times, columns, err := st.LoadStates(meta.ID)
		if err != nil {
			return err
		}
		run = export.TrajectoryRun(meta, states, times, columns)
		svg = export.TrajectorySVG(meta, states, times, columns, 800, 400)
	}

	if svgOut != "" {
		if svg == "" {
			return fmt.Errorf("no data to chart")
		}
		if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", svgOut)
	}
	switch jsonOut {
	case "":
	case "-":
		return export.WriteJSON(os.Stdout, run)
	default:
		f, err := os.Create(jsonOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := export.WriteJSON(f, run); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", jsonOut)
	}
	return nil
}

func tuneStepSize(cmd *cobra.Command, args []string) error {
	sc, err := findScenario(args[0])
	if err != nil {
		return err
	}
	if tuneMin <= 0 || tuneMax < tuneMin || tunePoints < 1 {
		return fmt.Errorf("invalid step grid [%g, %g] with %d points", tuneMin, tuneMax, tunePoints)
	}
	// the definition check alone decides the step
	sc.Mass = 0

	runner := sweep.NewRunner(models.NewRegistry(), zap.NewNop())
	search, err := optim.NewGridSearch([]string{"step_size"}, [][]float64{optim.LogSpace(tuneMin, tuneMax, tunePoints)})
	if err != nil {
		return err
	}
	best, evals, err := search.Search(cmd.Context(), func(ctx context.Context, p map[string]float64) (float64, error) {
		trial := sc
		trial.StepSize = p["step_size"]
		res, err := runner.Run(ctx, trial)
		if err != nil {
			return 0, err
		}
		for _, smp := range res.Samples {
			if smp.Err != nil {
				return 0, smp.Err
			}
		}
		return res.MaxDefinitionDiscrepancy(), nil
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tMAX |r - (-dL/dq)|")
	for _, e := range evals {
		val := fmt.Sprintf("%.3e", e.Value)
		if e.Err != nil {
			val = viz.Warning.Render(e.Err.Error())
		}
		fmt.Fprintf(w, "%.1e\t%s\n", e.Params["step_size"], val)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}
	fmt.Printf("\nbest step for %s: %s (discrepancy %.3e, tolerance %g)\n",
		sc.Name, viz.Value.Render(fmt.Sprintf("%.1e", best.Params["step_size"])), best.Value, sc.Tolerance)
	return nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	model := args[0]
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		c := *p
		cfg = &c
	}

	// config file overrides preset
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if cfg.Model == "" {
			cfg.Model = model
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") || (preset == "" && configFile == "") {
		cfg.Dt = dt
	}
	if flags.Changed("time") || (preset == "" && configFile == "") {
		cfg.Duration = duration
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("controller") {
		cfg.Controller = controller
	}
	if flags.Changed("activation") {
		cfg.Activation = activation
	}
	if flags.Changed("gravity") {
		cfg.Gravity = gravity
	}
	if flags.Changed("kp") {
		cfg.ControllerParams.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.ControllerParams.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.ControllerParams.Kd = kd
	}
	if flags.Changed("target") {
		cfg.ControllerParams.Target = target
	}
	if flags.Changed("track") {
		cfg.ControllerParams.Coordinate = trackCoord
	}
	pose := make(map[string]float64, len(cfg.InitState)+len(initPose))
	for k, v := range cfg.InitState {
		pose[k] = v
	}
	for k, v := range initPose {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("--init %s=%s: %w", k, v, err)
		}
		pose[k] = f
	}

	m, err := models.NewRegistry().Build(cfg.Model)
	if err != nil {
		return err
	}
	s, err := m.InitSystem()
	if err != nil {
		return err
	}
	m.SetGravityDisabled(s, !cfg.Gravity)
	if err := models.SetPose(m, s, pose); err != nil {
		return err
	}
	dyn := models.NewMuscleDriven(m, s)

	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return err
	}

	var ctrl sim.Controller
	switch cfg.Controller {
	case "constant", "":
		ctrl = controllers.NewConstant(dyn.ControlDim(), cfg.Activation)
	case "pid":
		index := 0
		if name := cfg.ControllerParams.Coordinate; name != "" {
			c, err := m.Coordinate(name)
			if err != nil {
				return err
			}
			index = c.SpeedIndex()
		}
		p := cfg.ControllerParams
		pid := controllers.NewPID(p.Kp, p.Ki, p.Kd, p.Target, index, m.NumCoordinates(), dyn.ControlDim())
		pid.Max = cfg.Activation
		ctrl = pid
	default:
		return fmt.Errorf("unknown controller: %s", cfg.Controller)
	}

	fmt.Printf("running %s simulation...\n", cfg.Model)
	start := time.Now()

	drift := metrics.NewEnergyDrift(m, s)
	tracked := []metrics.Metric{
		metrics.NewActivationEffort(),
		metrics.NewPeakActivation(),
		metrics.NewRangeCompliance(m.Coordinates()),
		drift,
	}
	simulator := sim.New(dyn, integ, ctrl)
	for _, mt := range tracked {
		simulator.AddObserver(mt)
	}

	result, err := simulator.Run(cmd.Context(), dyn.InitialState(), sim.Config{Dt: cfg.Dt, Duration: cfg.Duration})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	values := metrics.Values(tracked...)

	labels := dyn.Labels()
	final := result.States[len(result.States)-1]
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("steps: %d\n", len(result.States)-1)
	fmt.Println("\nfinal state:")
	for i, v := range final {
		fmt.Printf("  %s: %s\n", viz.Label.Render(labels[i]), viz.Value.Render(fmt.Sprintf("%.6f", v)))
	}
	fmt.Println("\nmetrics:")
	for _, mt := range tracked {
		fmt.Printf("  %s: %s\n", viz.Label.Render(mt.Name()), viz.Value.Render(fmt.Sprintf("%.6g", values[mt.Name()])))
	}
	if err := drift.Err(); err != nil {
		fmt.Println(viz.Warning.Render("energy not evaluated: " + err.Error()))
	}

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	name := cfg.Model
	if preset != "" {
		name += "_" + preset
	}
	runID, err := st.SaveTrajectory(storage.RunMetadata{
		Name:       name,
		Model:      cfg.Model,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Integrator: cfg.Integrator,
		Controller: cfg.Controller,
		Labels:     labels,
		Metrics:    values,
	}, result)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func printCurves(cmd *cobra.Command, args []string) error {
	curves := muscle.DefaultCurves()
	if curveCSV == "" {
		out, err := yaml.Marshal(curves)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	}

	var c muscle.Curve
	switch curveCSV {
	case "active_force_length":
		c = curves.ActiveForceLength
	case "force_velocity":
		c = curves.ForceVelocity
	case "tendon_force_length":
		c = curves.TendonForceLength
	case "fiber_force_length":
		c = curves.FiberForceLength
	default:
		return fmt.Errorf("unknown curve: %s", curveCSV)
	}
	return muscle.WriteCSV(os.Stdout, c, curvePoints)
}
