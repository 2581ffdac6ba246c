package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/ctessum/geom"
)

const tolerance = 1e-9

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

// --- Point tests ---

func TestSnap(t *testing.T) {
	p := Snap(Pt(1.00000004, -2.00000006), 1e-7)
	if !approxEqual(p.X, 1.0, 1e-12) || !approxEqual(p.Y, -2.0000001, 1e-12) {
		t.Errorf("expected (1, -2.0000001), got (%.10f, %.10f)", p.X, p.Y)
	}
	if q := Snap(Pt(1.23, 4.56), 0); q != Pt(1.23, 4.56) {
		t.Errorf("zero grid should not move the point, got %v", q)
	}
}

// --- Polygon tests ---

func TestRingSignedArea(t *testing.T) {
	sq := Rect(0, 0, 2, 2)[0]
	if a := RingSignedArea(sq); !approxEqual(a, 4, tolerance) {
		t.Errorf("expected CCW area 4, got %f", a)
	}
	if a := RingSignedArea(reverse(sq)); !approxEqual(a, -4, tolerance) {
		t.Errorf("expected CW area -4, got %f", a)
	}
	closed := append(geom.Path{}, sq...)
	closed = append(closed, sq[0])
	if a := RingSignedArea(closed); !approxEqual(a, 4, tolerance) {
		t.Errorf("closing vertex changed area: %f", a)
	}
}

func TestAreaWithHole(t *testing.T) {
	p := geom.Polygon{
		Rect(0, 0, 10, 10)[0],
		Rect(2, 2, 4, 4)[0], // wrong winding on purpose
	}
	if a := Area(p); !approxEqual(a, 96, tolerance) {
		t.Errorf("expected area 96, got %f", a)
	}
}

func TestAreaDisjointParts(t *testing.T) {
	p := geom.Polygon{Rect(0, 0, 1, 1)[0], Rect(5, 5, 7, 7)[0]}
	if a := Area(p); !approxEqual(a, 5, tolerance) {
		t.Errorf("expected area 5, got %f", a)
	}
}

func TestAreaCoincidentRings(t *testing.T) {
	p := geom.Polygon{Rect(0, 0, 1, 1)[0], Rect(0, 0, 1, 1)[0]}
	if d := depth(p, 1); d != 1 {
		t.Errorf("expected the repeated ring to be a hole, got depth %d", d)
	}
	if a := Area(p); !approxEqual(a, 0, tolerance) {
		t.Errorf("expected area 0, got %f", a)
	}
}

func TestAreaHoleSharingEdge(t *testing.T) {
	// The hole's first edge lies on the shell's bottom edge.
	p := geom.Polygon{
		Rect(0, 0, 10, 10)[0],
		{Pt(2, 0), Pt(4, 0), Pt(4, 3), Pt(2, 3)},
	}
	if a := Area(p); !approxEqual(a, 94, tolerance) {
		t.Errorf("expected area 94, got %f", a)
	}
}

func TestParts(t *testing.T) {
	p := geom.Polygon{
		Rect(0, 0, 10, 10)[0],
		Rect(2, 2, 4, 4)[0],
		Rect(20, 0, 21, 1)[0],
	}
	parts := Parts(p)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if len(parts[0]) != 2 {
		t.Errorf("expected the hole under the first shell, got %d rings", len(parts[0]))
	}
	if len(parts[1]) != 1 {
		t.Errorf("expected a bare second shell, got %d rings", len(parts[1]))
	}
}

func TestRingContains(t *testing.T) {
	sq := Rect(0, 0, 10, 10)[0]
	if !RingContains(sq, Pt(5, 5)) {
		t.Error("center should be inside")
	}
	if RingContains(sq, Pt(15, 5)) {
		t.Error("(15,5) should be outside")
	}
}

func TestOrient(t *testing.T) {
	p := Orient(geom.Polygon{reverse(Rect(0, 0, 10, 10)[0]), Rect(2, 2, 4, 4)[0]})
	if RingSignedArea(p[0]) <= 0 {
		t.Error("outer ring should be counterclockwise")
	}
	if RingSignedArea(p[1]) >= 0 {
		t.Error("hole should be clockwise")
	}
}

func TestBoundsHelpers(t *testing.T) {
	a := &geom.Bounds{Min: Pt(0, 0), Max: Pt(1, 1)}
	b := &geom.Bounds{Min: Pt(1, 1), Max: Pt(2, 2)}
	c := &geom.Bounds{Min: Pt(1.5, 1.5), Max: Pt(2, 2)}
	if !BoundsOverlap(a, b) {
		t.Error("touching boxes should overlap")
	}
	if BoundsOverlap(a, c) {
		t.Error("separate boxes should not overlap")
	}
	if !BoundsOverlap(ExpandBounds(a, 0.6), c) {
		t.Error("expanded box should reach c")
	}
}

// --- Normalize tests ---

func TestNormalizeClosedCWRing(t *testing.T) {
	ring := geom.Path{Pt(0, 0), Pt(0, 2), Pt(2, 2), Pt(2, 0), Pt(0, 0)}
	out, err := Normalize(geom.Polygon{ring}, DefaultTolerance)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(out[0]) != 4 {
		t.Errorf("expected closing vertex dropped, got %d vertices", len(out[0]))
	}
	if RingSignedArea(out[0]) <= 0 {
		t.Error("expected counterclockwise outer ring")
	}
}

func TestNormalizeRemovesSpike(t *testing.T) {
	ring := geom.Path{Pt(0, 0), Pt(2, 0), Pt(2, 1), Pt(3, 1), Pt(2, 1), Pt(2, 2), Pt(0, 2)}
	out, err := Normalize(geom.Polygon{ring}, DefaultTolerance)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !approxEqual(Area(out), 4, tolerance) {
		t.Errorf("expected area 4, got %f", Area(out))
	}
	for _, v := range out[0] {
		if v == Pt(3, 1) {
			t.Error("spike tip should be removed")
		}
	}
}

func TestNormalizeDropsSliverHole(t *testing.T) {
	hole := geom.Path{Pt(1, 1), Pt(1, 1.0000001), Pt(1.0000001, 1)}
	out, err := Normalize(geom.Polygon{Rect(0, 0, 2, 2)[0], hole}, DefaultTolerance)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("expected degenerate hole dropped, got %d rings", len(out))
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		poly geom.Polygon
		want error
	}{
		{"empty", nil, ErrEmptyGeometry},
		{"two vertices", geom.Polygon{{Pt(0, 0), Pt(1, 1)}}, ErrDegenerateRing},
		{"collinear", geom.Polygon{{Pt(0, 0), Pt(1, 0), Pt(2, 0)}}, ErrDegenerateRing},
		{"bowtie", geom.Polygon{{Pt(0, 0), Pt(4, 2), Pt(4, 0), Pt(0, 3)}}, ErrSelfIntersection},
		{"nan", geom.Polygon{{Pt(0, 0), Pt(math.NaN(), 1), Pt(1, 0)}}, ErrNonFinite},
		{"hole fills shell", geom.Polygon{Rect(0, 0, 1, 1)[0], Rect(0, 0, 1, 1)[0]}, ErrZeroArea},
		{"hole fills reversed shell", geom.Polygon{reverse(Rect(0, 0, 1, 1)[0]), Rect(0, 0, 1, 1)[0]}, ErrZeroArea},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.poly, DefaultTolerance)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestToleranceValidate(t *testing.T) {
	if err := DefaultTolerance.Validate(); err != nil {
		t.Errorf("default tolerance invalid: %v", err)
	}
	if err := (Tolerance{Grid: -1}).Validate(); err == nil {
		t.Error("expected error for negative grid")
	}
	if err := (Tolerance{Area: math.Inf(1)}).Validate(); err == nil {
		t.Error("expected error for infinite area")
	}
}

// --- Clipping tests ---

func TestSegmentsIntersect(t *testing.T) {
	if !segmentsIntersect(Pt(0, 0), Pt(2, 2), Pt(0, 2), Pt(2, 0)) {
		t.Error("crossing diagonals should intersect")
	}
	if !segmentsIntersect(Pt(0, 0), Pt(2, 0), Pt(1, 0), Pt(3, 0)) {
		t.Error("collinear overlap should intersect")
	}
	if segmentsIntersect(Pt(0, 0), Pt(1, 0), Pt(0, 1), Pt(1, 1)) {
		t.Error("parallel segments should not intersect")
	}
}

func TestClipToHalfPlane(t *testing.T) {
	sq := Rect(0, 0, 10, 10)[0]
	// Keep the left side of the upward line x=5.
	out := clipToHalfPlane(sq, Pt(5, 0), Pt(5, 10))
	if a := RingSignedArea(out); !approxEqual(a, 50, 1e-6) {
		t.Errorf("expected area 50, got %f", a)
	}
}

// --- Voronoi tests ---

func TestVoronoiCellsTileBounds(t *testing.T) {
	bounds := Rect(0, 0, 10, 10)[0]
	seeds := []geom.Point{Pt(2, 2), Pt(8, 2), Pt(5, 8), Pt(1, 9)}
	cells := VoronoiCells(seeds, bounds)
	if len(cells) != len(seeds) {
		t.Fatalf("expected %d cells, got %d", len(seeds), len(cells))
	}
	total := 0.0
	for i, c := range cells {
		if len(c) < 3 {
			t.Fatalf("cell %d is empty", i)
		}
		if !RingContains(c, seeds[i]) {
			t.Errorf("cell %d should contain its seed", i)
		}
		total += RingSignedArea(c)
	}
	if !approxEqual(total, 100, 1e-6) {
		t.Errorf("cells should tile the bounds, total area %f", total)
	}
}

func TestVoronoiCellsSingleSeed(t *testing.T) {
	bounds := Rect(0, 0, 4, 4)[0]
	cells := VoronoiCells([]geom.Point{Pt(1, 1)}, bounds)
	if len(cells) != 1 || !approxEqual(RingSignedArea(cells[0]), 16, tolerance) {
		t.Errorf("single seed should own the whole boundary, got %v", cells)
	}
}

// --- CRS tests ---

func TestGeographic(t *testing.T) {
	tests := []struct {
		crs  string
		want bool
	}{
		{"EPSG:4326", true},
		{"EPSG:4269", true},
		{"epsg:4617", true},
		{"+proj=longlat +datum=WGS84", true},
		{"EPSG:3348", false},
		{"EPSG:3857", false},
		{"EPSG:2954", false}, // unknown to proj
		{"", false},
	}
	for _, tt := range tests {
		if got := Geographic(tt.crs); got != tt.want {
			t.Errorf("Geographic(%q) = %v, want %v", tt.crs, got, tt.want)
		}
	}
}

func TestReprojectNilTransform(t *testing.T) {
	p := Rect(0, 0, 1, 1)
	out, err := Reproject(p, nil)
	if err != nil {
		t.Fatalf("Reproject: %v", err)
	}
	if Area(out) != 1 {
		t.Errorf("expected the polygon unchanged, got area %f", Area(out))
	}
}
