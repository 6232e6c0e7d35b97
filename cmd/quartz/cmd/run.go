package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/romain1189/quartz/eventset"
	"github.com/romain1189/quartz/monitoring"
	"github.com/romain1189/quartz/sim"
	"github.com/romain1189/quartz/tracing"
)

var (
	runConfigPath string
	runScheduler  string
	runFlatten    bool
	runVerbose    bool
)

// runCmd executes one of the bundled experiments.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a bundled experiment",
	Long: `Run a bundled experiment. The experiment, its event set ` +
		`discipline, and the tracing backends are read from a YAML config ` +
		`file; flags override the config.`,
	RunE: runExperiment,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "",
		"path of the experiment YAML config")
	runCmd.Flags().StringVar(&runScheduler, "scheduler", "",
		"event set discipline (binary_heap, fibonacci_heap, heap_set, "+
			"ladder_queue, calendar_queue)")
	runCmd.Flags().BoolVar(&runFlatten, "flatten", false,
		"collapse the model hierarchy before simulating")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false,
		"enable debug logging")

	rootCmd.AddCommand(runCmd)
}

func runExperiment(_ *cobra.Command, _ []string) error {
	if runVerbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg, err := loadExperimentConfig(runConfigPath)
	if err != nil {
		return err
	}

	if runScheduler != "" {
		cfg.Scheduler = runScheduler
	}

	if runFlatten {
		cfg.Flatten = true
	}

	scheduler, err := eventset.KindFromString(cfg.Scheduler)
	if err != nil {
		return err
	}

	experiment, err := buildExperiment(cfg)
	if err != nil {
		return err
	}

	builder := sim.MakeBuilder().
		WithModel(experiment.root).
		WithScheduler(scheduler)

	if cfg.Flatten {
		builder = builder.WithFlattenedHierarchy()
	}

	if cfg.End != nil {
		builder = builder.WithEndTime(cfg.End.toDuration())
	}

	simulation := builder.Build()

	attachTracers(cfg, experiment)

	var monitor *monitoring.Monitor
	if cfg.Monitor > 0 {
		monitor = monitoring.NewMonitor().WithPortNumber(cfg.Monitor)
		monitor.RegisterSimulation(simulation)
		monitor.StartServer()
	}

	logrus.WithFields(logrus.Fields{
		"experiment": cfg.Experiment,
		"scheduler":  scheduler.String(),
		"flatten":    cfg.Flatten,
	}).Info("starting simulation")

	if err := simulation.Simulate(); err != nil {
		return err
	}

	stats := simulation.TransitionStats()

	logrus.WithFields(logrus.Fields{
		"virtual_time": simulation.VirtualTime().String(),
		"transitions":  stats.Overall.Total(),
		"elapsed_secs": simulation.ElapsedSeconds(),
	}).Info("simulation finished")

	for class, counts := range stats.ByClass {
		logrus.WithFields(logrus.Fields{
			"internal":  counts.Internal,
			"external":  counts.External,
			"confluent": counts.Confluent,
		}).Infof("transitions of %s", class)
	}

	return nil
}

func attachTracers(cfg experimentConfig, experiment experimentModels) {
	if cfg.Trace != "" {
		tracer := tracing.NewCSVTracer(cfg.Trace)
		tracer.Init()

		for _, a := range experiment.atomics {
			a.AcceptHook(tracer)
		}
	}

	if cfg.Record != "" {
		recorder := tracing.NewRecorder(cfg.Record)

		for _, a := range experiment.atomics {
			a.AcceptHook(recorder)
		}
	}
}
