package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/romain1189/quartz/examples/models"
	"github.com/romain1189/quartz/sim"
	"github.com/romain1189/quartz/timing"
)

// durationConfig is the YAML shape of a duration.
type durationConfig struct {
	Multiplier float64 `yaml:"multiplier"`
	Precision  int     `yaml:"precision"`
}

func (d durationConfig) toDuration() timing.Duration {
	return timing.MakeDuration(d.Multiplier, timing.Scale(d.Precision))
}

// experimentConfig describes one simulation run.
type experimentConfig struct {
	Experiment string          `yaml:"experiment"`
	Scheduler  string          `yaml:"scheduler"`
	Flatten    bool            `yaml:"flatten"`
	End        *durationConfig `yaml:"end"`

	Generator struct {
		Period durationConfig `yaml:"period"`
		Limit  int            `yaml:"limit"`
	} `yaml:"generator"`

	Trace   string `yaml:"trace"`
	Record  string `yaml:"record"`
	Monitor int    `yaml:"monitor"`
}

func defaultExperimentConfig() experimentConfig {
	cfg := experimentConfig{
		Experiment: "fanin",
		Scheduler:  "binary_heap",
	}

	cfg.Generator.Period = durationConfig{Multiplier: 1, Precision: 0}

	return cfg
}

func loadExperimentConfig(path string) (experimentConfig, error) {
	cfg := defaultExperimentConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("cannot parse config: %w", err)
	}

	return cfg, nil
}

// experimentModels holds the observed atomics of an assembled experiment.
type experimentModels struct {
	root    *sim.CoupledModel
	atomics []*sim.AtomicBase
}

// buildFanIn assembles the two-generators-one-receiver topology through
// intermediate shells, the richer routing variant of the fan-in experiment.
func buildFanIn(cfg experimentConfig) (experimentModels, error) {
	period := cfg.Generator.Period.toDuration()

	root := sim.NewCoupledModel("root")
	gen := sim.NewCoupledModel("gen")
	recv := sim.NewCoupledModel("recv")
	root.AddChild(gen)
	root.AddChild(recv)

	g1 := models.NewGenerator("g1", period, "value", cfg.Generator.Limit)
	g2 := models.NewGenerator("g2", period, "value", cfg.Generator.Limit)
	gen.AddChild(g1)
	gen.AddChild(g2)

	genOut := gen.AddOutputPort("out")
	if err := gen.AttachOutput(g1.Out, genOut); err != nil {
		return experimentModels{}, err
	}

	if err := gen.AttachOutput(g2.Out, genOut); err != nil {
		return experimentModels{}, err
	}

	r := models.NewReceiver("r")
	recv.AddChild(r)

	recvIn := recv.AddInputPort("in")
	if err := recv.AttachInput(recvIn, r.In); err != nil {
		return experimentModels{}, err
	}

	if err := root.Attach(genOut, recvIn); err != nil {
		return experimentModels{}, err
	}

	return experimentModels{
		root:    root,
		atomics: []*sim.AtomicBase{g1.AtomicBase, g2.AtomicBase, r.AtomicBase},
	}, nil
}

// buildPipeline assembles the generator-buffer-server pipeline across mixed
// precisions.
func buildPipeline(cfg experimentConfig) (experimentModels, error) {
	root := sim.NewCoupledModel("pipeline")

	gen := models.NewGenerator(
		"gen", timing.MakeDuration(1, timing.Micro), "job",
		cfg.Generator.Limit)
	gen.SetPrecision(timing.Micro)

	buf := models.NewBuffer("buf", timing.MakeDuration(2, timing.Micro))
	buf.SetPrecision(timing.Micro)

	cpu := models.NewServer("cpu", timing.MakeDuration(500, timing.Nano))
	cpu.SetPrecision(timing.Nano)

	root.AddChild(gen)
	root.AddChild(buf)
	root.AddChild(cpu)

	if err := root.Attach(gen.Out, buf.In); err != nil {
		return experimentModels{}, err
	}

	if err := root.Attach(buf.Out, cpu.In); err != nil {
		return experimentModels{}, err
	}

	return experimentModels{
		root: root,
		atomics: []*sim.AtomicBase{
			gen.AtomicBase, buf.AtomicBase, cpu.AtomicBase,
		},
	}, nil
}

func buildExperiment(cfg experimentConfig) (experimentModels, error) {
	switch cfg.Experiment {
	case "fanin":
		return buildFanIn(cfg)
	case "pipeline":
		return buildPipeline(cfg)
	default:
		return experimentModels{},
			fmt.Errorf("unknown experiment %q", cfg.Experiment)
	}
}
