// Package metrics records the outcome of a run in a private prometheus
// registry that can be written in the node exporter textfile format.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "schemasync"

// Run summarises one orchestrator run.
type Run struct {
	Mode           string
	Status         string
	Models         int
	FilesWritten   int
	FilesUnchanged int
	FilesRemoved   int
	Unmapped       int
	Errors         int
	DriftedModels  int
	Duration       time.Duration
}

// Recorder owns the registry and the collectors of a run.
type Recorder struct {
	registry *prometheus.Registry

	runs      *prometheus.CounterVec
	models    prometheus.Gauge
	files     *prometheus.GaugeVec
	unmapped  prometheus.Gauge
	errors    prometheus.Gauge
	drifted   prometheus.Gauge
	duration  prometheus.Gauge
	lastRunAt prometheus.Gauge
}

// New registers the run collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Runs by mode and final status.",
		}, []string{"mode", "status"}),
		models: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "models",
			Help:      "Models in the introspected registry.",
		}),
		files: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files",
			Help:      "Generated files by outcome.",
		}, []string{"outcome"}),
		unmapped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unmapped_constraints",
			Help:      "Constraints that could not be expressed in a target.",
		}),
		errors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "errors",
			Help:      "Errors reported by the run.",
		}),
		drifted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drifted_models",
			Help:      "Models whose generated files differ from disk.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the run.",
		}),
		lastRunAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished.",
		}),
	}
	r.registry.MustRegister(r.runs, r.models, r.files, r.unmapped, r.errors, r.drifted, r.duration, r.lastRunAt)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Record stores run in the collectors.
func (r *Recorder) Record(run Run) {
	r.runs.WithLabelValues(run.Mode, run.Status).Inc()
	r.models.Set(float64(run.Models))
	r.files.WithLabelValues("written").Set(float64(run.FilesWritten))
	r.files.WithLabelValues("unchanged").Set(float64(run.FilesUnchanged))
	r.files.WithLabelValues("removed").Set(float64(run.FilesRemoved))
	r.unmapped.Set(float64(run.Unmapped))
	r.errors.Set(float64(run.Errors))
	r.drifted.Set(float64(run.DriftedModels))
	r.duration.Set(run.Duration.Seconds())
	r.lastRunAt.SetToCurrentTime()
}

// WriteFile writes the registry to path in the textfile collector format.
func (r *Recorder) WriteFile(path string) error {
	if path == "" {
		return errors.New("metrics: file path is required")
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
