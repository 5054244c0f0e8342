// Package metrics exports training and watch activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driven"
)

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

const (
	promNamespace = "carat"

	outcomeError = "error"
)

// Recorder is a driven.MetricsRecorder backed by its own registry.
type Recorder struct {
	registry *prom.Registry

	trainingRuns    *prom.CounterVec
	trainingSeconds *prom.HistogramVec
	modelInfo       *prom.GaugeVec
	modelRMSE       prom.Gauge
	modelMAE        prom.Gauge
	modelR2         prom.Gauge
	watchEvents     *prom.CounterVec
}

// NewRecorder creates a recorder with Go runtime and process collectors
// registered alongside carat's own metrics.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prom.NewRegistry(),
		trainingRuns: prom.NewCounterVec(prom.CounterOpts{
			Namespace: promNamespace,
			Subsystem: "training",
			Name:      "runs_total",
			Help:      "training runs by mode and outcome",
		}, []string{"mode", "outcome"}),
		trainingSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: promNamespace,
			Subsystem: "training",
			Name:      "seconds",
			Help:      "duration of training runs",
			Buckets:   prom.ExponentialBuckets(0.1, 2, 12),
		}, []string{"mode"}),
		modelInfo: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: promNamespace,
			Subsystem: "model",
			Name:      "info",
			Help:      "the published model version, always 1",
		}, []string{"version"}),
		modelRMSE: prom.NewGauge(prom.GaugeOpts{
			Namespace: promNamespace,
			Subsystem: "model",
			Name:      "rmse",
			Help:      "holdout RMSE of the published model",
		}),
		modelMAE: prom.NewGauge(prom.GaugeOpts{
			Namespace: promNamespace,
			Subsystem: "model",
			Name:      "mae",
			Help:      "holdout MAE of the published model",
		}),
		modelR2: prom.NewGauge(prom.GaugeOpts{
			Namespace: promNamespace,
			Subsystem: "model",
			Name:      "r_squared",
			Help:      "holdout R-squared of the published model",
		}),
		watchEvents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: promNamespace,
			Subsystem: "watch",
			Name:      "events_total",
			Help:      "directory watch events by kind and result",
		}, []string{"kind", "result"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.trainingRuns,
		r.trainingSeconds,
		r.modelInfo,
		r.modelRMSE,
		r.modelMAE,
		r.modelR2,
		r.watchEvents,
	)
	return r
}

// TrainingFinished records one training run.
func (r *Recorder) TrainingFinished(mode domain.TrainMode, outcome domain.TrainOutcome, elapsed time.Duration, err error) {
	label := string(outcome)
	if err != nil {
		label = outcomeError
	}
	r.trainingRuns.WithLabelValues(string(mode), label).Inc()
	if err == nil && outcome == domain.OutcomeTrained {
		r.trainingSeconds.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	}
}

// ModelPublished records the newly published model.
func (r *Recorder) ModelPublished(version string, metrics *domain.Metrics) {
	r.modelInfo.Reset()
	r.modelInfo.WithLabelValues(version).Set(1)
	if metrics != nil {
		r.modelRMSE.Set(metrics.RMSE)
		r.modelMAE.Set(metrics.MAE)
		r.modelR2.Set(metrics.R2)
	}
}

// WatchEvent records a watch event and what became of it.
func (r *Recorder) WatchEvent(kind domain.WatchEventKind, result string) {
	r.watchEvents.WithLabelValues(string(kind), result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prom.Registry {
	return r.registry
}
