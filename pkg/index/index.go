// Package index answers "which shapes might touch this box" over a fixed
// set of polygons using an R-tree.
package index

import (
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/meshblock/conflator/pkg/geo"
)

// entry ties a shape in the tree back to its position in the input slice.
type entry struct {
	geom.Polygonal
	key int
}

// Index is a read-only bounding-box index. Safe for concurrent queries once
// built.
type Index struct {
	tree *rtree.Rtree
	pad  float64
	n    int
}

// New indexes shapes by position. Query boxes are expanded by pad on every
// side so that shapes touching within tolerance are still returned.
func New(shapes []geom.Polygonal, pad float64) *Index {
	ix := &Index{tree: rtree.NewTree(25, 50), pad: pad}
	for i, s := range shapes {
		if s == nil {
			continue
		}
		ix.tree.Insert(&entry{Polygonal: s, key: i})
		ix.n++
	}
	return ix
}

// Len returns the number of indexed shapes.
func (ix *Index) Len() int {
	return ix.n
}

// Query returns the keys of every shape whose bounds intersect b, in
// ascending order. The result is a superset of the shapes that actually
// overlap.
func (ix *Index) Query(b *geom.Bounds) []int {
	if b == nil || ix.n == 0 {
		return nil
	}
	hits := ix.tree.SearchIntersect(geo.ExpandBounds(b, ix.pad))
	keys := make([]int, 0, len(hits))
	for _, h := range hits {
		keys = append(keys, h.(*entry).key)
	}
	sort.Ints(keys)
	return keys
}
