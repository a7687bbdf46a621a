package benchmark

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/g-uva/cloud-task-scheduler/pkg/core"
)

// PrintTableOfResults writes the completed strategies of r, best first, as
// an ASCII table.
func PrintTableOfResults(writer io.Writer, r *Report) {
	table := tablewriter.NewWriter(writer)

	table.SetHeader([]string{"Strategy", "Makespan", "Throughput", "Cost", "Mean Util", "Util StdDev", "Avg Wait", "Avg Turnaround", "Best"})
	table.SetAutoWrapText(false)

	for _, m := range r.Ranked() {
		best := ""
		if m.Strategy == r.Best {
			best = "*"
		}
		table.Append([]string{
			m.Strategy,
			fmt.Sprintf("%.2f", m.Makespan),
			fmt.Sprintf("%.4f", m.Throughput),
			fmt.Sprintf("%.2f", m.TotalCost),
			fmt.Sprintf("%.1f%%", m.MeanUtilization*100),
			fmt.Sprintf("%.3f", m.UtilizationStdDev),
			fmt.Sprintf("%.2f", m.AvgWaitTime),
			fmt.Sprintf("%.2f", m.AvgTurnaround),
			best,
		})
	}

	table.Render()
}

// PrintTableOfTimeline writes one row per VM listing the tasks it ran in
// timeline order.
func PrintTableOfTimeline(writer io.Writer, tl *core.Timeline) {
	table := tablewriter.NewWriter(writer)

	table.SetHeader([]string{"VM", "Tasks", "Busy Until"})
	table.SetAutoWrapText(false)
	table.SetColWidth(80)

	byVM := tl.ByVM()
	ids := make([]int, 0, len(byVM))
	for id := range byVM {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		var (
			entries = byVM[id]
			tasks   = make([]string, 0, len(entries))
			until   float64
		)
		for _, e := range entries {
			tasks = append(tasks, strconv.Itoa(e.TaskID))
			if e.Finish > until {
				until = e.Finish
			}
		}
		table.Append([]string{strconv.Itoa(id), strings.Join(tasks, " "), fmt.Sprintf("%.2f", until)})
	}

	table.Render()
}
