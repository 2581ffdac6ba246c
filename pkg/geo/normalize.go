package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/geom"
)

// Tolerance controls coordinate snapping and the area below which a ring,
// intersection or overlap is treated as empty.
type Tolerance struct {
	Grid float64 `yaml:"grid" json:"grid" mapstructure:"grid"`
	Area float64 `yaml:"area" json:"area" mapstructure:"area"`
}

// DefaultTolerance snaps to 1e-7 units and ignores areas up to 1e-6.
var DefaultTolerance = Tolerance{Grid: 1e-7, Area: 1e-6}

// Validate checks that both tolerances are non-negative and finite.
func (t Tolerance) Validate() error {
	if t.Grid < 0 || math.IsNaN(t.Grid) || math.IsInf(t.Grid, 0) {
		return fmt.Errorf("grid tolerance must be a non-negative number, got %v", t.Grid)
	}
	if t.Area < 0 || math.IsNaN(t.Area) || math.IsInf(t.Area, 0) {
		return fmt.Errorf("area tolerance must be a non-negative number, got %v", t.Area)
	}
	return nil
}

// Normalization failures.
var (
	ErrEmptyGeometry    = errors.New("empty geometry")
	ErrDegenerateRing   = errors.New("degenerate outer ring")
	ErrSelfIntersection = errors.New("self-intersecting ring")
	ErrZeroArea         = errors.New("zero area")
	ErrNonFinite        = errors.New("non-finite coordinate")
)

// Normalize prepares a polygon for overlay. Coordinates are snapped to the
// tolerance grid, closing and repeated vertices are dropped, back-tracking
// spikes are removed, degenerate holes are discarded and rings are oriented
// with outer boundaries counterclockwise. Rings that cross themselves or an
// area at or below the tolerance are reported as errors.
func Normalize(p geom.Polygon, tol Tolerance) (geom.Polygon, error) {
	if len(p) == 0 {
		return nil, ErrEmptyGeometry
	}
	out := make(geom.Polygon, 0, len(p))
	for i, ring := range p {
		r, err := cleanRing(ring, tol.Grid)
		if err != nil {
			return nil, fmt.Errorf("ring %d: %w", i, err)
		}
		if len(r) < 3 || math.Abs(RingSignedArea(r)) <= tol.Area {
			if i == 0 {
				return nil, ErrDegenerateRing
			}
			continue
		}
		if a, b, bad := ringSelfIntersection(r); bad {
			return nil, fmt.Errorf("ring %d edges %d and %d: %w", i, a, b, ErrSelfIntersection)
		}
		out = append(out, r)
	}
	out = Orient(out)
	for _, part := range Parts(out) {
		shell := math.Abs(RingSignedArea(part[0]))
		for _, hole := range part[1:] {
			if math.Abs(RingSignedArea(hole)) >= shell-tol.Area {
				return nil, fmt.Errorf("hole fills its shell: %w", ErrZeroArea)
			}
		}
	}
	if Area(out) <= tol.Area {
		return nil, ErrZeroArea
	}
	return out, nil
}

// cleanRing snaps, de-duplicates and de-spikes a single ring. The result is
// open, the first vertex is not repeated at the end.
func cleanRing(ring geom.Path, grid float64) (geom.Path, error) {
	r := make(geom.Path, 0, len(ring))
	for _, v := range ring {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
			return nil, ErrNonFinite
		}
		s := Snap(v, grid)
		if len(r) > 0 && r[len(r)-1] == s {
			continue
		}
		r = append(r, s)
	}
	for len(r) > 1 && r[0] == r[len(r)-1] {
		r = r[:len(r)-1]
	}
	return removeSpikes(r), nil
}

// removeSpikes drops vertices where the boundary doubles back on itself
// along a straight line, repeating until none remain.
func removeSpikes(r geom.Path) geom.Path {
	for changed := true; changed && len(r) >= 3; {
		changed = false
		n := len(r)
		for i := 0; i < n; i++ {
			prev := r[(i+n-1)%n]
			curr := r[i]
			next := r[(i+1)%n]
			in := sub(curr, prev)
			outv := sub(next, curr)
			if prev == next || (cross(in, outv) == 0 && dot(in, outv) < 0) {
				r = append(r[:i:i], r[i+1:]...)
				changed = true
				break
			}
		}
		// Removing a spike tip can leave two equal neighbours.
		r = dedupe(r)
	}
	return r
}

func dedupe(r geom.Path) geom.Path {
	out := r[:0]
	for _, v := range r {
		if len(out) > 0 && out[len(out)-1] == v {
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}
