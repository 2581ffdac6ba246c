// Package metrics exposes run measurements as Prometheus collectors.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/overlay"
	"github.com/meshblock/conflator/pkg/report"
)

const namespace = "conflator"

// Recorder collects the measurements of conflation runs into its own
// registry. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	BlocksLoaded    *prometheus.GaugeVec
	GeometryErrors  *prometheus.GaugeVec
	Candidates      prometheus.Counter
	Intersections   prometheus.Counter
	Slivers         prometheus.Counter
	OverlayFailures prometheus.Counter
	Statuses        *prometheus.GaugeVec
	Cardinality     *prometheus.GaugeVec
	Threshold       prometheus.Gauge
	StageDuration   *prometheus.HistogramVec
	Runs            prometheus.Counter
}

// New creates a recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		BlocksLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blocks_loaded",
			Help:      "Blocks loaded per partition",
		}, []string{"partition"}),
		GeometryErrors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geometry_errors",
			Help:      "Blocks flagged with a geometry error per partition",
		}, []string{"partition"}),
		Candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overlay_candidates_total",
			Help:      "Candidate NGD/EGP pairs returned by the spatial index",
		}),
		Intersections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overlay_intersections_total",
			Help:      "Intersection records with non-zero area",
		}),
		Slivers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overlay_slivers_total",
			Help:      "Intersections discarded as below the area tolerance",
		}),
		OverlayFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overlay_failures_total",
			Help:      "NGD blocks whose overlay failed",
		}),
		Statuses: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blocks_by_status",
			Help:      "NGD blocks per containment status in the latest report",
		}, []string{"status"}),
		Cardinality: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "groups_by_cardinality",
			Help:      "Cardinality groups per tag in the latest report",
		}, []string{"tag"}),
		Threshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "threshold",
			Help:      "Containment threshold of the latest report",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Reports built, including reclassifications",
		}),
	}
	r.registry.MustRegister(
		r.BlocksLoaded, r.GeometryErrors,
		r.Candidates, r.Intersections, r.Slivers, r.OverlayFailures,
		r.Statuses, r.Cardinality, r.Threshold,
		r.StageDuration, r.Runs,
	)
	return r
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current values to path for the node exporter
// textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// StageFinished records the duration of one stage.
func (r *Recorder) StageFinished(stage string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// PartitionLoaded records the size of a loaded partition.
func (r *Recorder) PartitionLoaded(kind block.Kind, blocks, issues int) {
	if r == nil {
		return
	}
	r.BlocksLoaded.WithLabelValues(string(kind)).Set(float64(blocks))
	r.GeometryErrors.WithLabelValues(string(kind)).Set(float64(issues))
}

// OverlayFinished records overlay work counts.
func (r *Recorder) OverlayFinished(stats overlay.Stats) {
	if r == nil {
		return
	}
	r.Candidates.Add(float64(stats.Candidates))
	r.Intersections.Add(float64(stats.Intersections))
	r.Slivers.Add(float64(stats.Slivers))
	r.OverlayFailures.Add(float64(stats.Failures))
}

// ReportBuilt records the latest report's counts.
func (r *Recorder) ReportBuilt(s report.Summary) {
	if r == nil {
		return
	}
	r.Runs.Inc()
	r.Threshold.Set(s.Threshold)
	for status, n := range s.ByStatus {
		r.Statuses.WithLabelValues(string(status)).Set(float64(n))
	}
	for tag, n := range s.Groups {
		r.Cardinality.WithLabelValues(string(tag)).Set(float64(n))
	}
}
