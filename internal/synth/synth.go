// Package synth generates synthetic NGD/EGP partition pairs for trials,
// demos and tests. Output depends only on the options, so a seed always
// reproduces the same layers.
package synth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/ctessum/geom"

	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/geo"
)

// Options control a generated pair.
type Options struct {
	Seed      int64
	NGDBlocks int
	EGPBlocks int
	Width     float64
	Height    float64
	OriginX   float64
	OriginY   float64

	// GridEGP replaces the EGP tessellation with a regular grid of roughly
	// EGPBlocks square-ish cells.
	GridEGP bool
}

// DefaultOptions produce a small study area with a more detailed EGP layer.
var DefaultOptions = Options{
	Seed:      1,
	NGDBlocks: 40,
	EGPBlocks: 120,
	Width:     1000,
	Height:    1000,
}

// Pair generates an NGD and an EGP partition over the same extent. Both are
// Voronoi tessellations with independent seeds, so every cardinality shows up.
func Pair(o Options) (ngd, egp []block.Input, err error) {
	if o.NGDBlocks <= 0 || o.EGPBlocks <= 0 {
		return nil, nil, fmt.Errorf("block counts must be positive, got %d NGD and %d EGP", o.NGDBlocks, o.EGPBlocks)
	}
	if o.Width <= 0 || o.Height <= 0 {
		return nil, nil, fmt.Errorf("extent must be positive, got %vx%v", o.Width, o.Height)
	}
	bounds := geo.Rect(o.OriginX, o.OriginY, o.OriginX+o.Width, o.OriginY+o.Height)[0]
	rng := rand.New(rand.NewSource(o.Seed))
	ngd = Voronoi("N", seeds(rng, o.NGDBlocks, o), bounds)
	if o.GridEGP {
		cols := int(math.Ceil(math.Sqrt(float64(o.EGPBlocks) * o.Width / o.Height)))
		rows := (o.EGPBlocks + cols - 1) / cols
		egp = Grid("E", cols, rows, o.OriginX, o.OriginY, o.OriginX+o.Width, o.OriginY+o.Height)
		return ngd, egp, nil
	}
	egp = Voronoi("E", seeds(rng, o.EGPBlocks, o), bounds)
	return ngd, egp, nil
}

// Voronoi tessellates a convex boundary around the given seeds. Block ids are
// prefix plus a zero-padded seed number so that id order matches seed order.
func Voronoi(prefix string, seeds []geom.Point, bounds geom.Path) []block.Input {
	cells := geo.VoronoiCells(seeds, bounds)
	inputs := make([]block.Input, 0, len(cells))
	for i, c := range cells {
		if len(c) < 3 {
			continue
		}
		inputs = append(inputs, block.Input{
			ID:       fmt.Sprintf("%s%05d", prefix, i+1),
			Geometry: geom.Polygon{c},
		})
	}
	return inputs
}

// Grid splits a rectangle into cols x rows equal cells, numbered row by row.
func Grid(prefix string, cols, rows int, minX, minY, maxX, maxY float64) []block.Input {
	w := (maxX - minX) / float64(cols)
	h := (maxY - minY) / float64(rows)
	inputs := make([]block.Input, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := minX + float64(c)*w
			y := minY + float64(r)*h
			inputs = append(inputs, block.Input{
				ID:       fmt.Sprintf("%s%05d", prefix, r*cols+c+1),
				Geometry: geo.Rect(x, y, x+w, y+h),
			})
		}
	}
	return inputs
}

// seeds draws n distinct points inside the extent, snapped to a coarse grid
// so that generated coordinates stay short.
func seeds(rng *rand.Rand, n int, o Options) []geom.Point {
	seen := make(map[geom.Point]bool, n)
	pts := make([]geom.Point, 0, n)
	for len(pts) < n {
		p := geo.Snap(geo.Pt(
			o.OriginX+rng.Float64()*o.Width,
			o.OriginY+rng.Float64()*o.Height,
		), 0.01)
		if seen[p] {
			continue
		}
		seen[p] = true
		pts = append(pts, p)
	}
	return pts
}
