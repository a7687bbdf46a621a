package loader

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/g-uva/cloud-task-scheduler/pkg/core"
)

// File names used by SaveWorkload and LoadWorkload.
const (
	TasksFile = "tasks.csv"
	VMsFile   = "vms.csv"
)

var (
	taskHeader = []string{"id", "arrival_time", "length", "priority", "footprint"}
	vmHeader   = []string{"id", "name", "capacity", "cost_per_unit_time", "ready_time"}
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteTasksCSV writes tasks as:
//
//	id,arrival_time,length,priority,footprint
//
// Floats use the shortest representation that parses back to the same value.
func WriteTasksCSV(w io.Writer, tasks []core.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(taskHeader); err != nil {
		return errors.Wrap(err, "writing task header")
	}
	for _, t := range tasks {
		rec := []string{
			strconv.Itoa(t.ID),
			formatFloat(t.ArrivalTime),
			formatFloat(t.Length),
			strconv.Itoa(t.Priority),
			formatFloat(t.Footprint),
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "writing task %d", t.ID)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteVMsCSV writes vms as:
//
//	id,name,capacity,cost_per_unit_time,ready_time
func WriteVMsCSV(w io.Writer, vms []core.VM) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(vmHeader); err != nil {
		return errors.Wrap(err, "writing vm header")
	}
	for _, vm := range vms {
		rec := []string{
			strconv.Itoa(vm.ID),
			vm.Name,
			formatFloat(vm.Capacity),
			formatFloat(vm.CostPerUnitTime),
			formatFloat(vm.ReadyTime),
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "writing vm %d", vm.ID)
		}
	}
	cw.Flush()
	return cw.Error()
}

// readRecords returns the data rows after checking the header.
func readRecords(r io.Reader, header []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(core.ErrInvalidConfig, "reading csv: %v", err)
	}
	if len(rows) == 0 {
		return nil, errors.Wrap(core.ErrInvalidConfig, "missing csv header")
	}
	for i, col := range header {
		if rows[0][i] != col {
			return nil, errors.Wrapf(core.ErrInvalidConfig, "header column %d is %q, want %q", i, rows[0][i], col)
		}
	}
	return rows[1:], nil
}

type fieldParser struct {
	line int
	err  error
}

func (p *fieldParser) atoi(s, field string) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.err = errors.Wrapf(core.ErrInvalidConfig, "line %d: %s %q is not an integer", p.line, field, s)
	}
	return v
}

func (p *fieldParser) parseFloat(s, field string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = errors.Wrapf(core.ErrInvalidConfig, "line %d: %s %q is not a number", p.line, field, s)
	}
	return v
}

// ReadTasksCSV parses the format written by WriteTasksCSV.
func ReadTasksCSV(r io.Reader) ([]core.Task, error) {
	rows, err := readRecords(r, taskHeader)
	if err != nil {
		return nil, err
	}
	tasks := make([]core.Task, 0, len(rows))
	for i, rec := range rows {
		p := fieldParser{line: i + 2}
		t := core.Task{
			ID:          p.atoi(rec[0], "id"),
			ArrivalTime: p.parseFloat(rec[1], "arrival_time"),
			Length:      p.parseFloat(rec[2], "length"),
			Priority:    p.atoi(rec[3], "priority"),
			Footprint:   p.parseFloat(rec[4], "footprint"),
		}
		if p.err != nil {
			return nil, p.err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ReadVMsCSV parses the format written by WriteVMsCSV.
func ReadVMsCSV(r io.Reader) ([]core.VM, error) {
	rows, err := readRecords(r, vmHeader)
	if err != nil {
		return nil, err
	}
	vms := make([]core.VM, 0, len(rows))
	for i, rec := range rows {
		p := fieldParser{line: i + 2}
		vm := core.VM{
			ID:              p.atoi(rec[0], "id"),
			Name:            rec[1],
			Capacity:        p.parseFloat(rec[2], "capacity"),
			CostPerUnitTime: p.parseFloat(rec[3], "cost_per_unit_time"),
			ReadyTime:       p.parseFloat(rec[4], "ready_time"),
		}
		if p.err != nil {
			return nil, p.err
		}
		vms = append(vms, vm)
	}
	return vms, nil
}

// SaveWorkload writes tasks.csv and vms.csv into dir, creating it if needed.
func SaveWorkload(dir string, w *core.Workload) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	if err := writeFile(filepath.Join(dir, TasksFile), func(f io.Writer) error {
		return WriteTasksCSV(f, w.Tasks)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, VMsFile), func(f io.Writer) error {
		return WriteVMsCSV(f, w.VMs)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}

// LoadWorkload reads a workload saved by SaveWorkload and validates it.
func LoadWorkload(dir string) (*core.Workload, error) {
	tf, err := os.Open(filepath.Join(dir, TasksFile))
	if err != nil {
		return nil, errors.Wrap(err, "opening tasks")
	}
	defer tf.Close()
	tasks, err := ReadTasksCSV(tf)
	if err != nil {
		return nil, errors.Wrap(err, TasksFile)
	}

	vf, err := os.Open(filepath.Join(dir, VMsFile))
	if err != nil {
		return nil, errors.Wrap(err, "opening vms")
	}
	defer vf.Close()
	vms, err := ReadVMsCSV(vf)
	if err != nil {
		return nil, errors.Wrap(err, VMsFile)
	}

	w := &core.Workload{Tasks: tasks, VMs: vms}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}
