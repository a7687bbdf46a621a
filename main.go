package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/g-uva/cloud-task-scheduler/benchmark"
	"github.com/g-uva/cloud-task-scheduler/pkg/config"
	"github.com/g-uva/cloud-task-scheduler/pkg/core"
	"github.com/g-uva/cloud-task-scheduler/pkg/generator"
	"github.com/g-uva/cloud-task-scheduler/pkg/loader"
	"github.com/g-uva/cloud-task-scheduler/pkg/metrics"
)

var (
	version string
	app     = kingpin.New("schedsim", "Cloud task scheduling simulator")

	debug = app.Flag(
		"debug", "enable debug logging").
		Short('d').
		Default("false").
		Envar("ENABLE_DEBUG_LOGGING").
		Bool()

	jsonLogs = app.Flag(
		"json-logs", "log in JSON").
		Default("false").
		Envar("JSON_LOGS").
		Bool()

	cfgFiles = app.Flag(
		"config",
		"YAML config files (can be provided multiple times to merge configs)").
		Short('c').
		ExistingFiles()

	taskCount = app.Flag(
		"tasks", "number of generated tasks (workload.task_count override)").
		Int()

	vmCount = app.Flag(
		"vms", "number of generated VMs (workload.vm_count override)").
		Int()

	seed = app.Flag(
		"seed", "generator seed (workload.seed override, negative keeps the config value)").
		Default("-1").
		Int64()

	pattern = app.Flag(
		"pattern", "canned workload shape: burst, periodic, long, latency or mixed").
		Enum("burst", "periodic", "long", "latency", "mixed")

	workloadDir = app.Flag(
		"workload-dir", "load tasks.csv and vms.csv from this directory instead of generating").
		ExistingDir()

	nodeList = app.Flag(
		"nodes", "take the VM pool from a Kubernetes NodeList manifest").
		ExistingFile()

	quantum = app.Flag(
		"quantum", "Round Robin time slice in work units (quantum override)").
		String()

	compare = app.Command("compare", "run strategies on one workload and compare their metrics").Default()

	strategies = compare.Flag(
		"strategy", "strategy to compare (repeatable, defaults to the configured set)").
		Short('s').
		Strings()

	parallelism = compare.Flag(
		"parallelism", "strategies run at once (parallelism override)").
		Int()

	timeout = compare.Flag(
		"timeout", "abort the comparison after this long (timeout override)").
		Duration()

	resultsCSV = compare.Flag(
		"csv", "write the comparison to this CSV file (output.results_csv override)").
		String()

	resultsDir = compare.Flag(
		"results-dir", "write the comparison to a run-named CSV file in this directory").
		String()

	metricsAddr = compare.Flag(
		"metrics-addr", "serve Prometheus metrics on this address and wait for an interrupt (metrics_addr override)").
		Envar("METRICS_ADDR").
		String()

	timeline         = app.Command("timeline", "print the schedule one strategy produces")
	timelineStrategy = timeline.Arg("strategy", "strategy name").Required().String()

	timelineCSV = timeline.Flag(
		"csv", "write the Gantt rows to this CSV file (output.timeline_csv override)").
		String()

	generate = app.Command("generate", "generate a workload and save it as CSV")

	generateOut = generate.Flag(
		"out", "directory for tasks.csv and vms.csv (output.workload_dir override)").
		String()

	list = app.Command("strategies", "list the available strategies")
)

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *jsonLogs {
		log.SetFormatter(&log.JSONFormatter{})
	}
	initialLevel := log.InfoLevel
	if *debug {
		initialLevel = log.DebugLevel
	}
	log.SetLevel(initialLevel)

	cfg := config.Default()
	log.WithField("files", *cfgFiles).Debug("Loading config")
	if err := config.Parse(&cfg, *cfgFiles...); err != nil {
		log.WithError(err).Fatal("Cannot parse yaml config")
	}
	if err := applyOverrides(&cfg); err != nil {
		log.WithError(err).Fatal("Invalid flags")
	}

	var err error
	switch command {
	case compare.FullCommand():
		err = runCompare(&cfg)
	case timeline.FullCommand():
		err = runTimeline(&cfg, *timelineStrategy)
	case generate.FullCommand():
		err = runGenerate(&cfg)
	case list.FullCommand():
		for _, name := range core.StrategyNames() {
			fmt.Println(name)
		}
	}
	if err != nil {
		log.WithError(err).Fatal("Command failed")
	}
}

// applyOverrides copies every flag the user set into cfg.
func applyOverrides(cfg *config.Config) error {
	if *pattern != "" {
		wc, err := benchmark.PatternConfig(benchmark.Pattern(*pattern), cfg.Workload.TaskCount)
		if err != nil {
			return err
		}
		wc.VMCount = cfg.Workload.VMCount
		wc.CapacityRange = cfg.Workload.CapacityRange
		wc.CostRange = cfg.Workload.CostRange
		wc.Seed = cfg.Workload.Seed
		cfg.Workload = wc
	}
	if *taskCount != 0 {
		cfg.Workload.TaskCount = *taskCount
	}
	if *vmCount != 0 {
		cfg.Workload.VMCount = *vmCount
	}
	if *seed >= 0 {
		s := *seed
		cfg.Workload.Seed = &s
	}
	if *workloadDir != "" {
		cfg.WorkloadDir = *workloadDir
	}
	if *nodeList != "" {
		cfg.NodeList = *nodeList
	}
	if *quantum != "" {
		q, err := strconv.ParseFloat(*quantum, 64)
		if err != nil {
			return errors.Wrapf(core.ErrInvalidConfig, "quantum %q is not a number", *quantum)
		}
		cfg.Quantum = q
	}
	if len(*strategies) > 0 {
		cfg.Strategies = *strategies
	}
	if *parallelism != 0 {
		cfg.Parallelism = *parallelism
	}
	if *timeout != 0 {
		cfg.Timeout = *timeout
	}
	if *resultsCSV != "" {
		cfg.Output.ResultsCSV = *resultsCSV
	}
	if *timelineCSV != "" {
		cfg.Output.TimelineCSV = *timelineCSV
	}
	if *generateOut != "" {
		cfg.Output.WorkloadDir = *generateOut
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	return nil
}

// loadWorkload reads the workload the config points at, or generates one.
// A node list replaces whichever VM pool that produced.
func loadWorkload(cfg *config.Config) (*core.Workload, error) {
	var (
		w   *core.Workload
		err error
	)
	if cfg.WorkloadDir != "" {
		w, err = loader.LoadWorkload(cfg.WorkloadDir)
	} else {
		w, err = generator.Generate(cfg.Workload)
	}
	if err != nil {
		return nil, err
	}

	if cfg.NodeList != "" {
		vms, err := loader.LoadVMsFromNodeList(cfg.NodeList)
		if err != nil {
			return nil, err
		}
		w.VMs = vms
		if err := w.Validate(); err != nil {
			return nil, err
		}
	}

	log.WithFields(log.Fields{
		"tasks": len(w.Tasks),
		"vms":   len(w.VMs),
	}).Info("Workload ready")
	return w, nil
}

func runCompare(cfg *config.Config) error {
	w, err := loadWorkload(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	report, err := benchmark.RunComparison(ctx, cfg.Strategies, w.Tasks, w.VMs, benchmark.Config{
		Quantum:     cfg.Quantum,
		Parallelism: cfg.Parallelism,
	})
	if report == nil || len(report.Results) == 0 {
		return err
	}
	if err != nil {
		log.WithError(err).Warn("Comparison incomplete")
	}

	benchmark.PrintTableOfResults(os.Stdout, report)
	if report.Best != "" {
		fmt.Printf("Recommended strategy: %s (lowest makespan)\n", report.Best)
	}

	if cfg.Output.ResultsCSV != "" {
		if err := writeResults(cfg.Output.ResultsCSV, report); err != nil {
			return err
		}
	}
	if *resultsDir != "" {
		if err := os.MkdirAll(*resultsDir, os.ModePerm); err != nil {
			return errors.Wrapf(err, "creating %s", *resultsDir)
		}
		if err := writeResults(benchmark.ResultsFilename(*resultsDir, report, time.Now()), report); err != nil {
			return err
		}
	}

	if cfg.MetricsAddr != "" {
		return serveMetrics(cfg.MetricsAddr, report)
	}
	return nil
}

func writeResults(path string, report *benchmark.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := benchmark.WriteCSV(f, report); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	log.WithField("path", path).Info("Exported comparison")
	return f.Close()
}

// serveMetrics publishes the report on /metrics until SIGINT or SIGTERM.
func serveMetrics(addr string, report *benchmark.Report) error {
	reg := prometheus.NewRegistry()
	exporter, err := metrics.NewExporter(reg)
	if err != nil {
		return err
	}
	for _, name := range report.Strategies {
		if m, ok := report.Results[name]; ok {
			exporter.Observe(m)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	log.WithFields(log.Fields{
		"addr":   addr,
		"run_id": report.RunID.String(),
	}).Info("Serving metrics, interrupt to exit")

	select {
	case err := <-errc:
		return errors.Wrap(err, "metrics server")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runTimeline(cfg *config.Config, name string) error {
	w, err := loadWorkload(cfg)
	if err != nil {
		return err
	}
	tl, err := benchmark.GetTimeline(name, w.Tasks, w.VMs, benchmark.Config{Quantum: cfg.Quantum})
	if err != nil {
		return err
	}
	benchmark.PrintTableOfTimeline(os.Stdout, tl)

	if cfg.Output.TimelineCSV == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Output.TimelineCSV), os.ModePerm); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(cfg.Output.TimelineCSV))
	}
	f, err := os.Create(cfg.Output.TimelineCSV)
	if err != nil {
		return errors.Wrapf(err, "creating %s", cfg.Output.TimelineCSV)
	}
	if err := benchmark.WriteTimelineCSV(f, tl); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", cfg.Output.TimelineCSV)
	}
	log.WithField("path", cfg.Output.TimelineCSV).Info("Exported timeline")
	return f.Close()
}

func runGenerate(cfg *config.Config) error {
	if cfg.Output.WorkloadDir == "" {
		return errors.Wrap(core.ErrInvalidConfig, "generate needs --out or output.workload_dir")
	}
	w, err := loadWorkload(cfg)
	if err != nil {
		return err
	}
	if err := loader.SaveWorkload(cfg.Output.WorkloadDir, w); err != nil {
		return err
	}
	log.WithField("dir", cfg.Output.WorkloadDir).Info("Saved workload")
	return nil
}
