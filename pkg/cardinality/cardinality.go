// Package cardinality groups NGD and EGP blocks into connected components of
// their overlap graph and tags each component by its shape.
package cardinality

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/overlay"
)

// Tag classifies a component.
type Tag string

const (
	OneToOne   Tag = "one-to-one"
	OneToMany  Tag = "one-to-many"
	ManyToOne  Tag = "many-to-one"
	ManyToMany Tag = "many-to-many"
	Orphan     Tag = "orphan"
)

// Tags lists every tag in report order.
var Tags = []Tag{OneToOne, OneToMany, ManyToOne, ManyToMany, Orphan}

// TagFor classifies a component from its NGD and EGP member counts.
func TagFor(ngd, egp int) Tag {
	switch {
	case ngd+egp <= 1 || ngd == 0 || egp == 0:
		return Orphan
	case ngd == 1 && egp == 1:
		return OneToOne
	case ngd == 1:
		return OneToMany
	case egp == 1:
		return ManyToOne
	default:
		return ManyToMany
	}
}

// Group is one connected component. Member ids are sorted.
type Group struct {
	ID  int      `json:"id" yaml:"id"`
	Tag Tag      `json:"tag" yaml:"tag"`
	NGD []string `json:"ngd" yaml:"ngd"`
	EGP []string `json:"egp" yaml:"egp"`
}

// Size returns the number of blocks in the group.
func (g Group) Size() int {
	return len(g.NGD) + len(g.EGP)
}

// Analysis holds every group of one run. Groups are numbered from 1 in order
// of their smallest NGD id, then groups without NGD members by smallest EGP id.
type Analysis struct {
	Groups []Group

	ngd map[string]int
	egp map[string]int
}

// Analyze builds the bipartite overlap graph over every block of the store,
// including flagged ones, and splits it into components. Each record is one
// edge.
func Analyze(store *block.Store, records []overlay.Record) *Analysis {
	ngdBlocks := store.NGD.Blocks()
	egpBlocks := store.EGP.Blocks()
	offset := int64(len(ngdBlocks))

	nodeOf := make(map[*block.Block]int64, len(ngdBlocks)+len(egpBlocks))
	g := simple.NewUndirectedGraph()
	for i, b := range ngdBlocks {
		nodeOf[b] = int64(i)
		g.AddNode(simple.Node(int64(i)))
	}
	for i, b := range egpBlocks {
		nodeOf[b] = offset + int64(i)
		g.AddNode(simple.Node(offset + int64(i)))
	}
	for _, r := range records {
		g.SetEdge(g.NewEdge(simple.Node(nodeOf[r.NGD]), simple.Node(nodeOf[r.EGP])))
	}

	a := &Analysis{
		ngd: make(map[string]int, len(ngdBlocks)),
		egp: make(map[string]int, len(egpBlocks)),
	}
	for _, comp := range topo.ConnectedComponents(g) {
		var grp Group
		for _, n := range comp {
			id := n.ID()
			if id < offset {
				grp.NGD = append(grp.NGD, ngdBlocks[id].ID)
			} else {
				grp.EGP = append(grp.EGP, egpBlocks[id-offset].ID)
			}
		}
		sort.Strings(grp.NGD)
		sort.Strings(grp.EGP)
		grp.Tag = TagFor(len(grp.NGD), len(grp.EGP))
		a.Groups = append(a.Groups, grp)
	}

	sort.Slice(a.Groups, func(i, j int) bool {
		return groupKey(a.Groups[i]) < groupKey(a.Groups[j])
	})
	for i := range a.Groups {
		a.Groups[i].ID = i + 1
		for _, id := range a.Groups[i].NGD {
			a.ngd[id] = i
		}
		for _, id := range a.Groups[i].EGP {
			a.egp[id] = i
		}
	}
	return a
}

func groupKey(g Group) string {
	if len(g.NGD) > 0 {
		return "0" + g.NGD[0]
	}
	return "1" + g.EGP[0]
}

// NGDGroup returns the group containing an NGD block.
func (a *Analysis) NGDGroup(id string) (*Group, bool) {
	i, ok := a.ngd[id]
	if !ok {
		return nil, false
	}
	return &a.Groups[i], true
}

// EGPGroup returns the group containing an EGP block.
func (a *Analysis) EGPGroup(id string) (*Group, bool) {
	i, ok := a.egp[id]
	if !ok {
		return nil, false
	}
	return &a.Groups[i], true
}

// Counts returns the number of groups per tag.
func (a *Analysis) Counts() map[Tag]int {
	counts := make(map[Tag]int, len(Tags))
	for _, t := range Tags {
		counts[t] = 0
	}
	for _, g := range a.Groups {
		counts[g.Tag]++
	}
	return counts
}

// Members returns the number of blocks per tag across all groups.
func (a *Analysis) Members() map[Tag]int {
	members := make(map[Tag]int, len(Tags))
	for _, t := range Tags {
		members[t] = 0
	}
	for _, g := range a.Groups {
		members[g.Tag] += g.Size()
	}
	return members
}

// EGPOrphans returns the ids of EGP blocks that overlap no NGD block.
func (a *Analysis) EGPOrphans() []string {
	var ids []string
	for _, g := range a.Groups {
		if g.Tag == Orphan && len(g.EGP) > 0 {
			ids = append(ids, g.EGP...)
		}
	}
	sort.Strings(ids)
	return ids
}
