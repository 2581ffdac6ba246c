// Package block holds the two planar partitions being conflated. A
// partition is loaded once, validated as interior-disjoint, and is read-only
// afterwards.
package block

import (
	"sort"

	"github.com/ctessum/geom"

	"github.com/meshblock/conflator/pkg/errors"
	"github.com/meshblock/conflator/pkg/geo"
	"github.com/meshblock/conflator/pkg/index"
)

// Kind names a partition.
type Kind string

const (
	NGD Kind = "NGD"
	EGP Kind = "EGP"
)

// Input is one (id, polygon) pair as handed over by a loader. Geometry may
// hold several outer rings when the source feature was multipart.
type Input struct {
	ID       string
	Geometry geom.Polygon
}

// Block is a normalized polygon with its precomputed area and bounds.
// Blocks whose geometry could not be normalized carry Err and have no
// geometry.
type Block struct {
	ID       string
	Kind     Kind
	Geometry geom.Polygon
	Area     float64
	Bounds   *geom.Bounds
	Err      *errors.GeometryError
}

// Valid reports whether the block takes part in the overlay.
func (b *Block) Valid() bool {
	return b.Err == nil
}

// Partition is one meshblock layer. Blocks are ordered by id.
type Partition struct {
	kind   Kind
	crs    string
	tol    geo.Tolerance
	blocks []*Block
	byID   map[string]*Block
	valid  []*Block // index keys refer to this slice
	index  *index.Index
}

// NewPartition normalizes every input polygon and checks that the result is
// a planar partition: ids are non-empty and unique, and no two blocks overlap
// by more than tol.Area. Inputs that cannot be normalized become flagged
// blocks rather than failing the load.
func NewPartition(kind Kind, crs string, inputs []Input, tol geo.Tolerance) (*Partition, error) {
	p := &Partition{
		kind: kind,
		crs:  crs,
		tol:  tol,
		byID: make(map[string]*Block, len(inputs)),
	}

	invalid := &errors.InvalidPartitionError{Partition: string(kind)}
	dupSeen := make(map[string]bool)
	for _, in := range inputs {
		if in.ID == "" {
			invalid.EmptyIDs++
			continue
		}
		if _, exists := p.byID[in.ID]; exists {
			if !dupSeen[in.ID] {
				invalid.Duplicates = append(invalid.Duplicates, in.ID)
				dupSeen[in.ID] = true
			}
			continue
		}
		b := newBlock(kind, in, tol)
		p.byID[b.ID] = b
		p.blocks = append(p.blocks, b)
	}
	sort.Slice(p.blocks, func(i, j int) bool { return p.blocks[i].ID < p.blocks[j].ID })
	sort.Strings(invalid.Duplicates)

	shapes := make([]geom.Polygonal, 0, len(p.blocks))
	for _, b := range p.blocks {
		if b.Valid() {
			p.valid = append(p.valid, b)
			shapes = append(shapes, b.Geometry)
		}
	}
	p.index = index.New(shapes, tol.Grid)

	invalid.Overlaps = p.overlaps()
	if len(invalid.Duplicates) > 0 || invalid.EmptyIDs > 0 || len(invalid.Overlaps) > 0 {
		return nil, invalid
	}
	return p, nil
}

func newBlock(kind Kind, in Input, tol geo.Tolerance) *Block {
	b := &Block{ID: in.ID, Kind: kind}
	g, err := geo.Normalize(in.Geometry, tol)
	if err != nil {
		reason := "invalid geometry"
		if errors.Is(err, geo.ErrZeroArea) || errors.Is(err, geo.ErrDegenerateRing) || errors.Is(err, geo.ErrEmptyGeometry) {
			reason = "zero-area geometry"
		}
		b.Err = errors.NewGeometryError(string(kind), in.ID, errors.StageNormalize, reason, err)
		return b
	}
	b.Geometry = g
	b.Area = geo.Area(g)
	b.Bounds = g.Bounds()
	return b
}

// overlaps returns every pair of blocks whose shared area exceeds the
// tolerance, ordered by (A, B) with A < B.
func (p *Partition) overlaps() []errors.OverlapPair {
	var pairs []errors.OverlapPair
	for i, a := range p.valid {
		for _, j := range p.index.Query(a.Bounds) {
			if j <= i {
				continue
			}
			b := p.valid[j]
			if !geo.BoundsOverlap(a.Bounds, b.Bounds) {
				continue
			}
			if area := IntersectionArea(a.Geometry, b.Geometry); area > p.tol.Area {
				pairs = append(pairs, errors.OverlapPair{A: a.ID, B: b.ID, Area: area})
			}
		}
	}
	return pairs
}

// IntersectionArea returns the area shared by two normalized polygons.
func IntersectionArea(a, b geom.Polygon) float64 {
	return geo.Area(Intersection(a, b))
}

// Intersection returns the region shared by two normalized polygons.
func Intersection(a, b geom.Polygon) geom.Polygon {
	g := a.Intersection(b)
	if g == nil {
		return nil
	}
	var out geom.Polygon
	for _, part := range g.Polygons() {
		out = append(out, part...)
	}
	return out
}

// Kind returns the partition's name.
func (p *Partition) Kind() Kind { return p.kind }

// CRS returns the coordinate reference system shared by every block.
func (p *Partition) CRS() string { return p.crs }

// Tolerance returns the tolerance the partition was normalized with.
func (p *Partition) Tolerance() geo.Tolerance { return p.tol }

// Blocks returns every block, including flagged ones, ordered by id.
// The slice must not be modified.
func (p *Partition) Blocks() []*Block { return p.blocks }

// Len returns the number of blocks including flagged ones.
func (p *Partition) Len() int { return len(p.blocks) }

// Block looks up a block by id.
func (p *Partition) Block(id string) (*Block, bool) {
	b, ok := p.byID[id]
	return b, ok
}

// Area returns the precomputed area of a block, or false when the id is
// unknown. Flagged blocks report zero.
func (p *Partition) Area(id string) (float64, bool) {
	b, ok := p.byID[id]
	if !ok {
		return 0, false
	}
	return b.Area, true
}

// TotalArea sums the area of every valid block.
func (p *Partition) TotalArea() float64 {
	total := 0.0
	for _, b := range p.valid {
		total += b.Area
	}
	return total
}

// Issues returns the geometry errors of flagged blocks, ordered by id.
func (p *Partition) Issues() []*errors.GeometryError {
	var issues []*errors.GeometryError
	for _, b := range p.blocks {
		if b.Err != nil {
			issues = append(issues, b.Err)
		}
	}
	return issues
}

// Candidates returns the valid blocks whose bounds intersect the given box,
// ordered by id. The result may include blocks that do not actually overlap.
func (p *Partition) Candidates(bounds *geom.Bounds) []*Block {
	keys := p.index.Query(bounds)
	out := make([]*Block, 0, len(keys))
	for _, k := range keys {
		out = append(out, p.valid[k])
	}
	return out
}

// Store pairs the NGD and EGP partitions for one run.
type Store struct {
	NGD *Partition
	EGP *Partition
}

// NewStore checks that both partitions are present, correctly named and in
// the same coordinate reference system.
func NewStore(ngd, egp *Partition) (*Store, error) {
	if ngd == nil || egp == nil {
		return nil, &errors.InvalidPartitionError{Partition: "store", Message: "both NGD and EGP partitions are required"}
	}
	if ngd.kind != NGD {
		return nil, &errors.InvalidPartitionError{Partition: string(ngd.kind), Message: "expected an NGD partition"}
	}
	if egp.kind != EGP {
		return nil, &errors.InvalidPartitionError{Partition: string(egp.kind), Message: "expected an EGP partition"}
	}
	if ngd.crs != egp.crs {
		return nil, &errors.CoordinateSystemMismatchError{NGD: ngd.crs, EGP: egp.crs}
	}
	return &Store{NGD: ngd, EGP: egp}, nil
}
