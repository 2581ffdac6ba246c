package geo

import (
	"math"

	"github.com/ctessum/geom"
)

// Rect returns an axis-aligned rectangle as a single counterclockwise ring.
func Rect(minX, minY, maxX, maxY float64) geom.Polygon {
	return geom.Polygon{{
		Pt(minX, minY), Pt(maxX, minY), Pt(maxX, maxY), Pt(minX, maxY),
	}}
}

// RingSignedArea returns the signed area of a ring using the shoelace formula.
// Positive for counterclockwise winding, negative for clockwise. A repeated
// closing vertex contributes nothing.
func RingSignedArea(r geom.Path) float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += r[i].X * r[j].Y
		area -= r[j].X * r[i].Y
	}
	return area / 2
}

// RingContains returns true if the point is inside the ring using ray casting.
func RingContains(r geom.Path, pt geom.Point) bool {
	n := len(r)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi := r[i]
		vj := r[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) &&
			pt.X < (vj.X-vi.X)*(pt.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// reverse returns the ring with reversed vertex order.
func reverse(r geom.Path) geom.Path {
	n := len(r)
	rev := make(geom.Path, n)
	for i, v := range r {
		rev[n-1-i] = v
	}
	return rev
}

// depth returns how many other rings of p enclose ring i. Even depth is an
// outer boundary, odd depth is a hole.
func depth(p geom.Polygon, i int) int {
	d := 0
	for j := range p {
		if j != i && encloses(p, j, i) {
			d++
		}
	}
	return d
}

// encloses reports whether ring outer of p contains ring inner. The first
// vertex or edge midpoint of inner that is off the boundary of outer decides.
// Coincident rings nest in ring order.
func encloses(p geom.Polygon, outer, inner int) bool {
	r := p[inner]
	for k := range r {
		if !onRing(p[outer], r[k]) {
			return RingContains(p[outer], r[k])
		}
	}
	for k := range r {
		mid := MidPoint(r[k], r[(k+1)%len(r)])
		if !onRing(p[outer], mid) {
			return RingContains(p[outer], mid)
		}
	}
	return len(r) > 0 && outer < inner
}

// onRing reports whether pt lies on an edge of r.
func onRing(r geom.Path, pt geom.Point) bool {
	n := len(r)
	for k := 0; k < n; k++ {
		a, b := r[k], r[(k+1)%n]
		ab := sub(b, a)
		if math.Abs(cross(ab, sub(pt, a))) <= 1e-9*dot(ab, ab) && onSegment(a, b, pt) {
			return true
		}
	}
	return false
}

// Area returns the unsigned area of a polygon made of any number of outer
// rings and holes, regardless of ring winding. Rings nested at an odd depth
// are subtracted.
func Area(p geom.Polygon) float64 {
	if len(p) == 1 {
		return math.Abs(RingSignedArea(p[0]))
	}
	total := 0.0
	for i, r := range p {
		a := math.Abs(RingSignedArea(r))
		if depth(p, i)%2 == 0 {
			total += a
		} else {
			total -= a
		}
	}
	return math.Max(total, 0)
}

// Orient returns p with outer rings counterclockwise and holes clockwise.
func Orient(p geom.Polygon) geom.Polygon {
	out := make(geom.Polygon, len(p))
	for i, r := range p {
		ccw := RingSignedArea(r) > 0
		hole := depth(p, i)%2 == 1
		if ccw == hole {
			out[i] = reverse(r)
		} else {
			out[i] = r
		}
	}
	return out
}

// Parts splits p into single-shell polygons. Each hole is attached to the
// innermost shell that contains it.
func Parts(p geom.Polygon) []geom.Polygon {
	depths := make([]int, len(p))
	var parts []geom.Polygon
	shellOf := make(map[int]int)
	for i := range p {
		depths[i] = depth(p, i)
		if depths[i]%2 == 0 {
			shellOf[i] = len(parts)
			parts = append(parts, geom.Polygon{p[i]})
		}
	}
	for i, r := range p {
		if depths[i]%2 == 0 || len(r) == 0 {
			continue
		}
		for j := range p {
			if depths[j] == depths[i]-1 && encloses(p, j, i) {
				parts[shellOf[j]] = append(parts[shellOf[j]], r)
				break
			}
		}
	}
	return parts
}

// ExpandBounds returns a copy of b grown by d on every side.
func ExpandBounds(b *geom.Bounds, d float64) *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: b.Min.X - d, Y: b.Min.Y - d},
		Max: geom.Point{X: b.Max.X + d, Y: b.Max.Y + d},
	}
}

// BoundsOverlap reports whether two boxes share any point.
func BoundsOverlap(a, b *geom.Bounds) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y
}
