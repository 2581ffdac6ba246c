// Package containment labels each NGD block conflated or unconflated from
// the share of its area covered by its best-matching EGP block.
package containment

import (
	"fmt"
	"math"

	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/errors"
	"github.com/meshblock/conflator/pkg/geo"
	"github.com/meshblock/conflator/pkg/overlay"
)

// Threshold is the minimum containment fraction for a block to count as
// conflated.
type Threshold float64

// DefaultThreshold is used when no threshold is configured.
const DefaultThreshold Threshold = 0.80

// NewThreshold validates v as a fraction in [0,1].
func NewThreshold(v float64) (Threshold, error) {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return 0, fmt.Errorf("%w: %v is outside [0,1]", errors.ErrInvalidThreshold, v)
	}
	return Threshold(v), nil
}

// Status is the classification of one NGD block.
type Status string

const (
	Conflated     Status = "conflated"
	Unconflated   Status = "unconflated"
	GeometryError Status = "geometry_error"
)

// Statuses lists every status in report order.
var Statuses = []Status{Conflated, Unconflated, GeometryError}

// Result is the containment outcome of one NGD block.
type Result struct {
	Block     *block.Block
	Match     *block.Block // nil when nothing overlaps
	MatchArea float64
	Fraction  float64
	Status    Status
	Tie       bool
	TiedWith  []string // other EGP ids with the same best area
	Issue     *errors.GeometryError
}

// Classify computes one result per NGD block, in NGD id order. Only the
// overlay records are consulted; no geometry is recomputed.
func Classify(ngd *block.Partition, ov *overlay.Result, t Threshold, tol geo.Tolerance) []Result {
	results := make([]Result, 0, ngd.Len())
	for _, b := range ngd.Blocks() {
		results = append(results, classifyBlock(b, ov, t, tol))
	}
	return results
}

func classifyBlock(b *block.Block, ov *overlay.Result, t Threshold, tol geo.Tolerance) Result {
	r := Result{Block: b, Status: Unconflated}
	if b.Err != nil {
		r.Status = GeometryError
		r.Issue = b.Err
		return r
	}
	if f := ov.Failure(b.ID); f != nil {
		r.Status = GeometryError
		r.Issue = f
		return r
	}

	// Every record within the area tolerance of the largest one ties. Records
	// are ordered by EGP id, so the first of them is the lowest id.
	recs := ov.ForNGD(b.ID)
	best := math.Inf(-1)
	for _, rec := range recs {
		best = math.Max(best, rec.Area)
	}
	for _, rec := range recs {
		switch {
		case best-rec.Area > tol.Area:
		case r.Match == nil:
			r.Match = rec.EGP
			r.MatchArea = rec.Area
		default:
			r.TiedWith = append(r.TiedWith, rec.EGP.ID)
		}
	}
	r.Tie = len(r.TiedWith) > 0
	if r.Match == nil || b.Area <= 0 {
		return r
	}

	r.Fraction = fraction(r.MatchArea, b.Area, tol.Area)
	if r.Fraction >= float64(t) {
		r.Status = Conflated
	}
	return r
}

// fraction returns matched/total clamped to [0,1], snapping to exactly 1
// when the uncovered remainder is within the area tolerance.
func fraction(matched, total, areaTol float64) float64 {
	if total-matched <= areaTol {
		return 1
	}
	f := matched / total
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
