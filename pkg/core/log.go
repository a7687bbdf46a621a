package core

// ScheduleEntry is the concrete execution interval the simulator commits for
// a task. For Round Robin, Start is the first burst's start and Finish the
// final burst's finish.
type ScheduleEntry struct {
	TaskID int     `json:"task_id"`
	VMID   int     `json:"vm_id"`
	Start  float64 `json:"start_time"`
	Finish float64 `json:"finish_time"`
}

// Duration is Finish - Start.
func (e ScheduleEntry) Duration() float64 { return e.Finish - e.Start }

// Burst is one Round Robin slice of a task.
type Burst struct {
	TaskID int     `json:"task_id"`
	VMID   int     `json:"vm_id"`
	Seq    int     `json:"seq"`
	Start  float64 `json:"start_time"`
	Finish float64 `json:"finish_time"`
	// Work is the amount of the task's length consumed by this burst.
	Work float64 `json:"work"`
}

// BurstLog records every Round Robin slice in start-time order.
type BurstLog []Burst

// ForTask returns the bursts belonging to taskID.
func (l BurstLog) ForTask(taskID int) []Burst {
	var out []Burst
	for _, b := range l {
		if b.TaskID == taskID {
			out = append(out, b)
		}
	}
	return out
}

// Interval is a busy period of a VM.
type Interval struct {
	VMID   int
	Start  float64
	Finish float64
}

// Timeline is the simulator's output: one entry per task, plus the burst log
// when the strategy was time-sliced.
type Timeline struct {
	Strategy string          `json:"strategy"`
	Entries  []ScheduleEntry `json:"entries"`
	Bursts   BurstLog        `json:"bursts,omitempty"`
}

// Len returns the number of entries.
func (tl *Timeline) Len() int { return len(tl.Entries) }

// Busy returns the intervals during which VMs were actually executing work.
// Time-sliced timelines report their bursts, others their entries.
func (tl *Timeline) Busy() []Interval {
	if len(tl.Bursts) > 0 {
		out := make([]Interval, 0, len(tl.Bursts))
		for _, b := range tl.Bursts {
			out = append(out, Interval{VMID: b.VMID, Start: b.Start, Finish: b.Finish})
		}
		return out
	}
	out := make([]Interval, 0, len(tl.Entries))
	for _, e := range tl.Entries {
		out = append(out, Interval{VMID: e.VMID, Start: e.Start, Finish: e.Finish})
	}
	return out
}

// ByVM groups the entries by VM, keeping timeline order.
func (tl *Timeline) ByVM() map[int][]ScheduleEntry {
	out := make(map[int][]ScheduleEntry)
	for _, e := range tl.Entries {
		out[e.VMID] = append(out[e.VMID], e)
	}
	return out
}
