package cardinality

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/geo"
	"github.com/meshblock/conflator/pkg/overlay"
)

func rect(id string, minX, minY, maxX, maxY float64) block.Input {
	return block.Input{ID: id, Geometry: geo.Rect(minX, minY, maxX, maxY)}
}

func analyze(t *testing.T, ngd, egp []block.Input) (*block.Store, *Analysis) {
	t.Helper()
	n, err := block.NewPartition(block.NGD, "", ngd, geo.DefaultTolerance)
	require.NoError(t, err)
	e, err := block.NewPartition(block.EGP, "", egp, geo.DefaultTolerance)
	require.NoError(t, err)
	s, err := block.NewStore(n, e)
	require.NoError(t, err)
	ov, err := (&overlay.Engine{}).Run(context.Background(), s)
	require.NoError(t, err)
	return s, Analyze(s, ov.Records)
}

func TestTagFor(t *testing.T) {
	tests := []struct {
		ngd, egp int
		want     Tag
	}{
		{1, 1, OneToOne},
		{1, 3, OneToMany},
		{4, 1, ManyToOne},
		{2, 2, ManyToMany},
		{1, 0, Orphan},
		{0, 1, Orphan},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TagFor(tt.ngd, tt.egp), "%d NGD / %d EGP", tt.ngd, tt.egp)
	}
}

func TestAnalyzeMixedLayout(t *testing.T) {
	s, a := analyze(t,
		[]block.Input{
			rect("n1", 0, 0, 1, 1),   // one-to-one with e1
			rect("n2", 2, 0, 4, 1),   // one-to-many with e2, e3
			rect("n3", 5, 0, 6, 1),   // many-to-one with e4
			rect("n4", 6, 0, 7, 1),   // many-to-one with e4
			rect("n5", 20, 0, 21, 1), // orphan
		},
		[]block.Input{
			rect("e1", 0, 0, 1, 1),
			rect("e2", 2, 0, 3, 1),
			rect("e3", 3, 0, 4, 1),
			rect("e4", 5, 0, 7, 1),
			rect("e9", 30, 0, 31, 1), // orphan
		},
	)
	require.Len(t, a.Groups, 5)

	g, ok := a.NGDGroup("n1")
	require.True(t, ok)
	assert.Equal(t, OneToOne, g.Tag)
	assert.Equal(t, 1, g.ID)

	g, _ = a.NGDGroup("n2")
	assert.Equal(t, OneToMany, g.Tag)
	assert.Equal(t, []string{"e2", "e3"}, g.EGP)

	g, _ = a.EGPGroup("e4")
	assert.Equal(t, ManyToOne, g.Tag)
	assert.Equal(t, []string{"n3", "n4"}, g.NGD)

	g, _ = a.NGDGroup("n5")
	assert.Equal(t, Orphan, g.Tag)
	assert.Equal(t, []string{"e9"}, a.EGPOrphans())

	last := a.Groups[len(a.Groups)-1]
	assert.Equal(t, []string{"e9"}, last.EGP, "EGP-only groups sort last")

	total := 0
	for _, n := range a.Members() {
		total += n
	}
	assert.Equal(t, s.NGD.Len()+s.EGP.Len(), total)

	assert.Equal(t, map[Tag]int{
		OneToOne:   1,
		OneToMany:  1,
		ManyToOne:  1,
		ManyToMany: 0,
		Orphan:     2,
	}, a.Counts())
}

func TestAnalyzeManyToMany(t *testing.T) {
	_, a := analyze(t,
		[]block.Input{rect("n1", 0, 0, 2, 1), rect("n2", 2, 0, 4, 1)},
		[]block.Input{rect("e1", 0, 0, 3, 1), rect("e2", 3, 0, 4, 1)},
	)
	require.Len(t, a.Groups, 1)
	assert.Equal(t, ManyToMany, a.Groups[0].Tag)
	assert.Equal(t, 4, a.Groups[0].Size())
}
