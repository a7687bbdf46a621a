package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "schedsim"

// Exporter publishes strategy metrics as Prometheus gauges, labelled by strategy.
type Exporter struct {
	runs        *prometheus.CounterVec
	makespan    *prometheus.GaugeVec
	throughput  *prometheus.GaugeVec
	cost        *prometheus.GaugeVec
	utilization *prometheus.GaugeVec
	avgWait     *prometheus.GaugeVec
}

// NewExporter creates the collectors and registers them with reg.
func NewExporter(reg prometheus.Registerer) (*Exporter, error) {
	e := &Exporter{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "strategy_runs_total",
				Help:      "Number of simulated runs per scheduling strategy.",
			},
			[]string{"strategy"},
		),
		makespan: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "makespan",
				Help:      "Completion time of the last task in the latest run.",
			},
			[]string{"strategy"},
		),
		throughput: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "throughput",
				Help:      "Tasks completed per unit of simulated time.",
			},
			[]string{"strategy"},
		),
		cost: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "total_cost",
				Help:      "Busy time multiplied by VM cost, summed over the run.",
			},
			[]string{"strategy"},
		),
		utilization: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "vm_utilization_ratio",
				Help:      "Fraction of the makespan a VM spent busy.",
			},
			[]string{"strategy", "vm"},
		),
		avgWait: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "avg_wait_time",
				Help:      "Mean time between task arrival and first execution.",
			},
			[]string{"strategy"},
		),
	}
	for _, c := range []prometheus.Collector{e.runs, e.makespan, e.throughput, e.cost, e.utilization, e.avgWait} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Observe records m under its strategy label.
func (e *Exporter) Observe(m *Metrics) {
	e.runs.WithLabelValues(m.Strategy).Inc()
	e.makespan.WithLabelValues(m.Strategy).Set(m.Makespan)
	e.throughput.WithLabelValues(m.Strategy).Set(m.Throughput)
	e.cost.WithLabelValues(m.Strategy).Set(m.TotalCost)
	e.avgWait.WithLabelValues(m.Strategy).Set(m.AvgWaitTime)
	for vm, u := range m.Utilization {
		e.utilization.WithLabelValues(m.Strategy, strconv.Itoa(vm)).Set(u)
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
