package metrics

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

const namespace = "modjar"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg             *prom.Registry
	taskDuration    *prom.HistogramVec
	taskResults     *prom.CounterVec
	buildDuration   prom.Histogram
	buildOutcome    *prom.CounterVec
	artifactEntries *prom.GaugeVec
	artifactChanges *prom.CounterVec
	elementLists    *prom.CounterVec
	concurrency     prom.Gauge
}

// NewPrometheusRecorder constructs and registers the build metrics on reg,
// or on a fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		taskDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of build tasks by kind",
			Buckets:   prom.DefBuckets,
		}, []string{"kind"}),
		taskResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_results_total",
			Help:      "Task results by kind and outcome",
		}, []string{"kind", "result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		artifactEntries: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_entries",
			Help:      "Entries in the last assembled artifact of a project",
		}, []string{"project"}),
		artifactChanges: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "Artifacts written, split by whether the normalized content changed",
		}, []string{"changed"}),
		elementLists: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "element_lists_total",
			Help:      "External element lists by source",
		}, []string{"source"}),
		concurrency: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "concurrency",
			Help:      "Configured collaborator concurrency of the last build",
		}),
	}
	reg.MustRegister(pr.taskDuration, pr.taskResults, pr.buildDuration, pr.buildOutcome,
		pr.artifactEntries, pr.artifactChanges, pr.elementLists, pr.concurrency)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) ObserveTaskDuration(kind string, d time.Duration) {
	p.taskDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(kind string, result ResultLabel) {
	p.taskResults.WithLabelValues(kind, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveArtifact(project string, entries int, changed bool) {
	p.artifactEntries.WithLabelValues(project).Set(float64(entries))
	label := "false"
	if changed {
		label = "true"
	}
	p.artifactChanges.WithLabelValues(label).Inc()
}

func (p *PrometheusRecorder) IncElementLists(fetched, cached int) {
	p.elementLists.WithLabelValues("fetched").Add(float64(fetched))
	p.elementLists.WithLabelValues("cached").Add(float64(cached))
}

func (p *PrometheusRecorder) SetConcurrency(n int) {
	p.concurrency.Set(float64(n))
}

// WriteTextfile writes the registry in text exposition format, atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create metrics directory").
			WithContext(errors.ContextPath, path).
			Build()
	}
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write metrics textfile").
			WithContext(errors.ContextPath, path).
			Build()
	}
	return nil
}

// HTTPHandler serves the recorder's registry.
func (p *PrometheusRecorder) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
