package geo

import "github.com/ctessum/geom"

// VoronoiCells partitions a convex boundary ring into one cell per seed.
// cells[i] holds every boundary point closer to seeds[i] than to any other
// seed. Cells are counterclockwise; a seed whose cell vanishes gets nil.
func VoronoiCells(seeds []geom.Point, bounds geom.Path) []geom.Path {
	n := len(seeds)
	if n == 0 {
		return nil
	}
	if RingSignedArea(bounds) < 0 {
		bounds = reverse(bounds)
	}
	cells := make([]geom.Path, n)
	for i := range seeds {
		cells[i] = voronoiCellByHalfPlanes(i, seeds, bounds)
	}
	return cells
}

// voronoiCellByHalfPlanes computes a Voronoi cell by intersecting half-planes.
// For each other seed, clip the bounds to the half-plane closer to seed[i].
func voronoiCellByHalfPlanes(seedIdx int, seeds []geom.Point, bounds geom.Path) geom.Path {
	cell := bounds
	seed := seeds[seedIdx]
	for j, other := range seeds {
		if j == seedIdx || other == seed {
			continue
		}
		mid := MidPoint(seed, other)
		dir := perp(sub(other, seed))
		cell = clipToHalfPlane(cell, mid, add(mid, dir))
		if len(cell) == 0 {
			break
		}
	}
	return cell
}
