package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"

	"github.com/g-uva/cloud-task-scheduler/pkg/core"
	"github.com/g-uva/cloud-task-scheduler/pkg/generator"
)

// Config holds everything a simulation run needs.
type Config struct {
	// Workload is generated unless WorkloadDir or NodeList point at inputs.
	Workload generator.Config `yaml:"workload"`
	// WorkloadDir holds tasks.csv/vms.csv written by a previous run.
	WorkloadDir string `yaml:"workload_dir"`
	// NodeList replaces the generated VMs with the nodes of a Kubernetes manifest.
	NodeList string `yaml:"node_list"`

	Strategies []string `yaml:"strategies" validate:"nonzero"`
	// Quantum is the Round Robin time slice, in work units.
	Quantum float64 `yaml:"quantum"`
	// Parallelism bounds how many strategies run at once. Zero means one per strategy.
	Parallelism int `yaml:"parallelism" validate:"min=0"`
	// Timeout aborts a comparison. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`

	MetricsAddr string       `yaml:"metrics_addr"`
	Output      OutputConfig `yaml:"output"`
}

// OutputConfig lists the optional export files. Empty paths are skipped.
type OutputConfig struct {
	ResultsCSV  string `yaml:"results_csv"`
	TimelineCSV string `yaml:"timeline_csv"`
	WorkloadDir string `yaml:"workload_dir"`
}

// Default returns the built-in configuration: the reference workload, every
// strategy and a quantum of 20 work units.
func Default() Config {
	return Config{
		Workload:   generator.DefaultConfig(),
		Strategies: core.StrategyNames(),
		Quantum:    20,
	}
}

// ValidationError is returned when a configuration fails to pass validation.
type ValidationError struct {
	errorMap validator.ErrorMap
}

// ErrForField returns the validation error for the given field.
func (e ValidationError) ErrForField(name string) error {
	return e.errorMap[name]
}

// Error returns the error string from a ValidationError.
func (e ValidationError) Error() string {
	var w bytes.Buffer

	fmt.Fprintf(&w, "validation failed")
	for f, err := range e.errorMap {
		fmt.Fprintf(&w, "   %s: %v\n", f, err)
	}

	return w.String()
}

// Parse loads the given configFiles in order, merges them on top of whatever
// config already holds, and validates the result.
func Parse(config interface{}, configFiles ...string) error {
	for _, fname := range configFiles {
		data, err := os.ReadFile(fname)
		if err != nil {
			return errors.Wrapf(err, "reading %s", fname)
		}

		if err := yaml.UnmarshalStrict(data, config); err != nil {
			return errors.Wrapf(err, "parsing %s", fname)
		}
	}

	// Validate on the merged config at the end.
	if err := validator.Validate(config); err != nil {
		if errMap, ok := err.(validator.ErrorMap); ok {
			return ValidationError{errorMap: errMap}
		}
		return err
	}
	return nil
}
