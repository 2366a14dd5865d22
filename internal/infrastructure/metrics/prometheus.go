// Package metrics exposes grant and evaluation counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coursehub/course-tracker/internal/application/query"
	"github.com/coursehub/course-tracker/internal/application/saga"
	"github.com/coursehub/course-tracker/internal/domain/achievement"
)

const namespace = "tracker"

var (
	_ query.EvaluationObserver = (*Recorder)(nil)
	_ saga.GrantObserver       = (*Recorder)(nil)
)

// Recorder owns the tracker collectors and a dedicated registry.
type Recorder struct {
	registry *prometheus.Registry

	Granted       *prometheus.CounterVec
	GrantFailures *prometheus.CounterVec
	GrantRuns     *prometheus.CounterVec
	Evaluation    prometheus.Histogram
}

// NewRecorder creates the collectors and registers them, together with the
// Go runtime and process collectors, on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Granted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_granted_total",
			Help:      "Achievements persisted by the grant engine.",
		}, []string{"achievement_id"}),
		GrantFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievement_grant_failures_total",
			Help:      "Achievement writes that failed.",
		}, []string{"achievement_id"}),
		GrantRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grant_runs_total",
			Help:      "Grant engine runs by outcome.",
		}, []string{"outcome"}),
		Evaluation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "progress_evaluation_seconds",
			Help:      "Time to load a snapshot and evaluate the catalog.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}

	r.registry.MustRegister(
		r.Granted,
		r.GrantFailures,
		r.GrantRuns,
		r.Evaluation,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry the collectors live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveEvaluation(d time.Duration) {
	r.Evaluation.Observe(d.Seconds())
}

func (r *Recorder) GrantSucceeded(id achievement.ID) {
	r.Granted.WithLabelValues(string(id)).Inc()
}

func (r *Recorder) GrantFailed(id achievement.ID) {
	r.GrantFailures.WithLabelValues(string(id)).Inc()
}

func (r *Recorder) RunFinished(outcome string) {
	r.GrantRuns.WithLabelValues(outcome).Inc()
}
