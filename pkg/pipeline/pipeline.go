// Package pipeline wires the conflation stages together: load the two
// partitions, overlay them, classify containment, group by cardinality and
// build the report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/cardinality"
	"github.com/meshblock/conflator/pkg/containment"
	"github.com/meshblock/conflator/pkg/errors"
	"github.com/meshblock/conflator/pkg/geo"
	"github.com/meshblock/conflator/pkg/overlay"
	"github.com/meshblock/conflator/pkg/report"
	"github.com/meshblock/conflator/pkg/validation"
)

// Stage names used in logs and metrics.
const (
	StageLoad        = "load"
	StageOverlay     = "overlay"
	StageContainment = "containment"
	StageCardinality = "cardinality"
	StageReport      = "report"
)

// Observer receives run measurements. internal/metrics provides the
// Prometheus implementation.
type Observer interface {
	StageFinished(stage string, elapsed time.Duration)
	PartitionLoaded(kind block.Kind, blocks, issues int)
	OverlayFinished(stats overlay.Stats)
	ReportBuilt(summary report.Summary)
}

// Options are the explicit parameters of one run.
type Options struct {
	Threshold containment.Threshold
	Workers   int
	Tolerance geo.Tolerance
	Logger    zerolog.Logger
	Observer  Observer
}

// Layer is one partition as handed over by a loader.
type Layer struct {
	CRS    string
	Blocks []block.Input
}

// Outcome holds every stage output of a run. Everything except Results and
// Report is independent of the threshold and is shared by Reclassify.
type Outcome struct {
	Store      *block.Store
	Overlay    *overlay.Result
	Analysis   *cardinality.Analysis
	Results    []containment.Result
	Report     *report.Report
	Validation *validation.Report
	Threshold  containment.Threshold

	opts Options
}

// Run loads both layers and executes the full pipeline.
func Run(ctx context.Context, ngd, egp Layer, opts Options) (*Outcome, error) {
	store, err := LoadStore(ngd, egp, opts)
	if err != nil {
		return nil, err
	}
	return Execute(ctx, store, opts)
}

// LoadStore builds both partitions. The CRS checks run first so a mismatch
// or a geographic CRS fails before any geometry is touched.
func LoadStore(ngd, egp Layer, opts Options) (*block.Store, error) {
	if ngd.CRS != egp.CRS {
		return nil, &errors.CoordinateSystemMismatchError{NGD: ngd.CRS, EGP: egp.CRS}
	}
	if geo.Geographic(ngd.CRS) {
		return nil, &errors.GeographicCRSError{CRS: ngd.CRS}
	}
	tol := opts.tolerance()
	done := opts.stage(StageLoad)

	n, err := block.NewPartition(block.NGD, ngd.CRS, ngd.Blocks, tol)
	if err != nil {
		return nil, fmt.Errorf("loading NGD partition: %w", err)
	}
	opts.loaded(n)
	e, err := block.NewPartition(block.EGP, egp.CRS, egp.Blocks, tol)
	if err != nil {
		return nil, fmt.Errorf("loading EGP partition: %w", err)
	}
	opts.loaded(e)

	store, err := block.NewStore(n, e)
	if err != nil {
		return nil, err
	}
	done()
	return store, nil
}

// Execute runs every stage after loading. Overlay work is parallel across
// NGD blocks; the remaining stages wait for it to finish.
func Execute(ctx context.Context, store *block.Store, opts Options) (*Outcome, error) {
	tol := opts.tolerance()

	done := opts.stage(StageOverlay)
	eng := &overlay.Engine{Workers: opts.Workers, Tolerance: tol, Logger: opts.Logger}
	ov, err := eng.Run(ctx, store)
	if err != nil {
		return nil, err
	}
	done()
	opts.Logger.Info().
		Int("candidates", ov.Stats.Candidates).
		Int("intersections", ov.Stats.Intersections).
		Int("slivers", ov.Stats.Slivers).
		Int("failures", ov.Stats.Failures).
		Msg("overlay complete")
	if opts.Observer != nil {
		opts.Observer.OverlayFinished(ov.Stats)
	}

	done = opts.stage(StageCardinality)
	analysis := cardinality.Analyze(store, ov.Records)
	done()

	val := validation.NewReport()
	val.Merge(validation.ValidatePartition(store.NGD))
	val.Merge(validation.ValidatePartition(store.EGP))
	val.Merge(validation.ValidateFailures(ov.Failures))

	o := &Outcome{
		Store:      store,
		Overlay:    ov,
		Analysis:   analysis,
		Validation: val,
		opts:       opts,
	}
	o.classify(opts.Threshold)
	return o, nil
}

// Reclassify returns a new outcome for another threshold, reusing the
// overlay and cardinality results of o.
func (o *Outcome) Reclassify(t containment.Threshold) *Outcome {
	next := &Outcome{
		Store:      o.Store,
		Overlay:    o.Overlay,
		Analysis:   o.Analysis,
		Validation: o.Validation,
		opts:       o.opts,
	}
	next.classify(t)
	return next
}

func (o *Outcome) classify(t containment.Threshold) {
	done := o.opts.stage(StageContainment)
	o.Threshold = t
	o.Results = containment.Classify(o.Store.NGD, o.Overlay, t, o.opts.tolerance())
	done()

	done = o.opts.stage(StageReport)
	o.Report = report.Build(o.Results, o.Analysis, o.Store.EGP.Issues(), t)
	done()

	s := o.Report.Summary
	o.opts.Logger.Info().
		Float64("threshold", float64(t)).
		Int("conflated", s.ByStatus[containment.Conflated]).
		Int("unconflated", s.ByStatus[containment.Unconflated]).
		Int("geometry_errors", s.GeometryErrors).
		Int("egp_geometry_errors", len(s.EGPGeometryErrors)).
		Int("groups", len(o.Report.Groups)).
		Msg("classification complete")
	if o.opts.Observer != nil {
		o.opts.Observer.ReportBuilt(s)
	}
}

func (o Options) tolerance() geo.Tolerance {
	if o.Tolerance == (geo.Tolerance{}) {
		return geo.DefaultTolerance
	}
	return o.Tolerance
}

// stage logs the start of a stage and returns a func that logs its elapsed
// time.
func (o Options) stage(name string) func() {
	start := time.Now()
	o.Logger.Debug().Str("stage", name).Msg("stage started")
	return func() {
		elapsed := time.Since(start)
		o.Logger.Info().Str("stage", name).Dur("elapsed", elapsed).Msg("stage finished")
		if o.Observer != nil {
			o.Observer.StageFinished(name, elapsed)
		}
	}
}

func (o Options) loaded(p *block.Partition) {
	issues := len(p.Issues())
	o.Logger.Info().
		Str("partition", string(p.Kind())).
		Str("crs", p.CRS()).
		Int("blocks", p.Len()).
		Int("geometry_errors", issues).
		Msg("partition loaded")
	for _, issue := range p.Issues() {
		o.Logger.Warn().Str("partition", issue.Partition).Str("block", issue.BlockID).Err(issue.Err).Msg(issue.Reason)
	}
	if o.Observer != nil {
		o.Observer.PartitionLoaded(p.Kind(), p.Len(), issues)
	}
}
