package geo

import (
	"math"

	"github.com/ctessum/geom"
)

// isInsideEdge returns true if point p is on the left side of (or on) the
// directed edge from a to b.
func isInsideEdge(p, a, b geom.Point) bool {
	return orientation(a, b, p) >= 0
}

// lineIntersection computes the intersection of line segment p1-p2 with
// the infinite line through p3-p4.
func lineIntersection(p1, p2, p3, p4 geom.Point) (geom.Point, bool) {
	d1 := sub(p2, p1)
	d2 := sub(p4, p3)
	denom := cross(d1, d2)
	if math.Abs(denom) < 1e-12 {
		return geom.Point{}, false
	}
	t := cross(sub(p3, p1), d2) / denom
	return add(p1, geom.Point{X: d1.X * t, Y: d1.Y * t}), true
}

// clipToHalfPlane clips a convex ring to the left side of the directed line
// from a to b.
func clipToHalfPlane(ring geom.Path, a, b geom.Point) geom.Path {
	n := len(ring)
	if n < 3 {
		return nil
	}
	output := make(geom.Path, 0, n)
	for i := 0; i < n; i++ {
		curr := ring[i]
		next := ring[(i+1)%n]
		currInside := isInsideEdge(curr, a, b)
		nextInside := isInsideEdge(next, a, b)

		if currInside && nextInside {
			output = append(output, next)
		} else if currInside && !nextInside {
			if ix, ok := lineIntersection(curr, next, a, b); ok {
				output = append(output, ix)
			}
		} else if !currInside && nextInside {
			if ix, ok := lineIntersection(curr, next, a, b); ok {
				output = append(output, ix)
			}
			output = append(output, next)
		}
	}
	if len(output) < 3 {
		return nil
	}
	return output
}

// onSegment reports whether c, known to be collinear with a-b, lies within
// the segment's bounding box.
func onSegment(a, b, c geom.Point) bool {
	return math.Min(a.X, b.X) <= c.X && c.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= c.Y && c.Y <= math.Max(a.Y, b.Y)
}

// segmentsIntersect reports whether closed segments p1-p2 and p3-p4 share
// at least one point, including touching endpoints and collinear overlap.
func segmentsIntersect(p1, p2, p3, p4 geom.Point) bool {
	d1 := orientation(p3, p4, p1)
	d2 := orientation(p3, p4, p2)
	d3 := orientation(p1, p2, p3)
	d4 := orientation(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(p3, p4, p1):
		return true
	case d2 == 0 && onSegment(p3, p4, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, p3):
		return true
	case d4 == 0 && onSegment(p1, p2, p4):
		return true
	}
	return false
}

// ringSelfIntersection returns the indices of the first pair of
// non-adjacent edges of an open ring that touch or cross. ok is false when
// the ring is simple.
func ringSelfIntersection(r geom.Path) (i, j int, ok bool) {
	n := len(r)
	if n < 4 {
		return 0, 0, false
	}
	type box struct{ minX, minY, maxX, maxY float64 }
	boxes := make([]box, n)
	for k := 0; k < n; k++ {
		a, b := r[k], r[(k+1)%n]
		boxes[k] = box{
			minX: math.Min(a.X, b.X), minY: math.Min(a.Y, b.Y),
			maxX: math.Max(a.X, b.X), maxY: math.Max(a.Y, b.Y),
		}
	}
	for i = 0; i < n; i++ {
		for j = i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // adjacent through the closing edge
			}
			bi, bj := boxes[i], boxes[j]
			if bi.maxX < bj.minX || bj.maxX < bi.minX || bi.maxY < bj.minY || bj.maxY < bi.minY {
				continue
			}
			if segmentsIntersect(r[i], r[(i+1)%n], r[j], r[(j+1)%n]) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}
