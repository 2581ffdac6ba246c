// Package overlay intersects every NGD block with the EGP blocks it
// overlaps and measures the shared area.
package overlay

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ctessum/geom"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/errors"
	"github.com/meshblock/conflator/pkg/geo"
)

// Record is the non-empty intersection of one NGD block with one EGP block.
type Record struct {
	NGD      *block.Block
	EGP      *block.Block
	Geometry geom.Polygon
	Area     float64
}

// Stats counts the work done by one overlay run.
type Stats struct {
	Blocks        int `json:"blocks"`
	Candidates    int `json:"candidates"`
	Intersections int `json:"intersections"`
	Slivers       int `json:"slivers"`
	Failures      int `json:"failures"`
}

// Result holds every intersection record ordered by (NGD id, EGP id) and the
// NGD blocks whose overlay failed.
type Result struct {
	Records  []Record
	Failures []*errors.GeometryError
	Stats    Stats

	byNGD    map[string][]Record
	failedBy map[string]*errors.GeometryError
}

// ForNGD returns the records of one NGD block ordered by EGP id.
func (r *Result) ForNGD(id string) []Record {
	return r.byNGD[id]
}

// Failure returns the overlay error recorded for an NGD block, if any.
func (r *Result) Failure(id string) *errors.GeometryError {
	return r.failedBy[id]
}

// Engine runs the overlay. The zero value uses one worker per CPU and the
// default tolerance.
type Engine struct {
	Workers   int
	Tolerance geo.Tolerance
	Logger    zerolog.Logger

	// intersect is replaced in tests to inject failures.
	intersect func(a, b geom.Polygon) geom.Polygon
}

// slot is the output of one NGD block. Each worker owns exactly one slot.
type slot struct {
	records    []Record
	candidates int
	slivers    int
	failure    *errors.GeometryError
}

// Run intersects every valid NGD block of the store with its EGP
// candidates. Blocks are processed in parallel; records are merged in NGD id
// order after all workers finish. Cancelling ctx stops dispatching further
// blocks and returns the context error.
func (e *Engine) Run(ctx context.Context, store *block.Store) (*Result, error) {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	tol := e.Tolerance
	if tol == (geo.Tolerance{}) {
		tol = geo.DefaultTolerance
	}

	ngd := store.NGD.Blocks()
	slots := make([]slot, len(ngd))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, n := range ngd {
		if !n.Valid() {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			slots[i] = e.overlayBlock(store.EGP, n, tol)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("overlay cancelled: %w", err)
	}

	res := &Result{
		byNGD:    make(map[string][]Record),
		failedBy: make(map[string]*errors.GeometryError),
	}
	for i, s := range slots {
		if !ngd[i].Valid() {
			continue
		}
		res.Stats.Blocks++
		res.Stats.Candidates += s.candidates
		res.Stats.Slivers += s.slivers
		if s.failure != nil {
			res.Stats.Failures++
			res.Failures = append(res.Failures, s.failure)
			res.failedBy[ngd[i].ID] = s.failure
			e.Logger.Warn().
				Str("block", ngd[i].ID).
				Err(s.failure.Err).
				Msg("overlay failed, block flagged")
			continue
		}
		if len(s.records) == 0 {
			continue
		}
		start := len(res.Records)
		res.Records = append(res.Records, s.records...)
		res.byNGD[ngd[i].ID] = res.Records[start:len(res.Records):len(res.Records)]
	}
	res.Stats.Intersections = len(res.Records)
	return res, nil
}

// overlayBlock computes the records of one NGD block. A panic inside the
// polygon clipper flags the block instead of taking down the run.
func (e *Engine) overlayBlock(egp *block.Partition, n *block.Block, tol geo.Tolerance) (s slot) {
	defer func() {
		if r := recover(); r != nil {
			s = slot{
				candidates: s.candidates,
				failure: errors.NewGeometryError(string(n.Kind), n.ID, errors.StageOverlay,
					"intersection failed", fmt.Errorf("%v", r)),
			}
		}
	}()

	intersect := e.intersect
	if intersect == nil {
		intersect = block.Intersection
	}
	for _, c := range egp.Candidates(n.Bounds) {
		s.candidates++
		if !geo.BoundsOverlap(n.Bounds, c.Bounds) {
			continue
		}
		g := intersect(n.Geometry, c.Geometry)
		area := geo.Area(g)
		if area <= tol.Area {
			if area > 0 {
				s.slivers++
			}
			continue
		}
		s.records = append(s.records, Record{NGD: n, EGP: c, Geometry: g, Area: area})
	}
	return s
}
