// Package metrics exposes Prometheus gauges over the Run Manager's live
// state: active runs, running workers, and pending tasks across every
// known run. Grounded on the admin surface's promauto-based exporter,
// scaled down to this orchestrator's three headline gauges (spec §6).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coderun-dev/fleet/internal/model"
)

const namespace = "fleet"

// RunSource is the subset of runmgr.Manager metrics needs to poll.
type RunSource interface {
	List() []*model.Run
	ActiveCount() int
}

// Metrics holds every Prometheus collector this orchestrator exports.
type Metrics struct {
	activeRuns    prometheus.Gauge
	runningWorkers prometheus.Gauge
	pendingTasks  prometheus.Gauge
	runsByStatus  *prometheus.GaugeVec

	source RunSource
}

// New registers the orchestrator's gauges against the default
// Prometheus registry and binds them to source for on-demand refresh.
func New(source RunSource) *Metrics {
	return NewWithRegisterer(source, prometheus.DefaultRegisterer)
}

// NewWithRegisterer is New with an explicit registerer, so tests can
// pass a fresh prometheus.NewRegistry() instead of polluting the
// package-global default.
func NewWithRegisterer(source RunSource, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Number of runs currently driven by a scheduler goroutine.",
		}),
		runningWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running_workers",
			Help:      "Number of workers currently in the running status, summed across all runs.",
		}),
		pendingTasks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_tasks",
			Help:      "Number of tasks currently pending, summed across all runs.",
		}),
		runsByStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_by_status",
			Help:      "Number of known runs in each status.",
		}, []string{"status"}),
		source: source,
	}
}

// Refresh recomputes every gauge from the current Run Manager state. It
// should be called on each scrape (wired into the /metrics handler) so
// values never drift stale between polls.
func (m *Metrics) Refresh() {
	runs := m.source.List()

	counts := map[model.RunStatus]int{}
	runningWorkers := 0
	pendingTasks := 0

	for _, r := range runs {
		counts[r.Status]++
		for _, w := range r.Workers {
			if w.Status == model.WorkerRunning {
				runningWorkers++
			}
		}
		for _, t := range r.Tasks {
			if t.Status == model.TaskPending {
				pendingTasks++
			}
		}
	}

	m.activeRuns.Set(float64(m.source.ActiveCount()))
	m.runningWorkers.Set(float64(runningWorkers))
	m.pendingTasks.Set(float64(pendingTasks))

	for _, status := range []model.RunStatus{
		model.RunIdle, model.RunPlanning, model.RunExecuting, model.RunJudging,
		model.RunPaused, model.RunStopped, model.RunCompleted, model.RunFailed,
	} {
		m.runsByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

// Handler returns an http.Handler that refreshes every gauge and then
// serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	next := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Refresh()
		next.ServeHTTP(w, r)
	})
}
