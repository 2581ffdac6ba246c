package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/geo"
)

func TestPairTilesExtent(t *testing.T) {
	o := Options{Seed: 7, NGDBlocks: 10, EGPBlocks: 25, Width: 100, Height: 50}
	ngd, egp, err := Pair(o)
	require.NoError(t, err)
	assert.Len(t, ngd, 10)
	assert.Len(t, egp, 25)

	for _, layer := range [][]float64{areas(ngd), areas(egp)} {
		total := 0.0
		for _, a := range layer {
			total += a
		}
		assert.InDelta(t, 5000.0, total, 1e-6)
	}
}

func TestPairIsDeterministic(t *testing.T) {
	a, _, err := Pair(DefaultOptions)
	require.NoError(t, err)
	b, _, err := Pair(DefaultOptions)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPairRejectsBadOptions(t *testing.T) {
	_, _, err := Pair(Options{NGDBlocks: 0, EGPBlocks: 1, Width: 1, Height: 1})
	assert.Error(t, err)
	_, _, err = Pair(Options{NGDBlocks: 1, EGPBlocks: 1, Width: -1, Height: 1})
	assert.Error(t, err)
}

func TestPairGridEGP(t *testing.T) {
	_, egp, err := Pair(Options{Seed: 1, NGDBlocks: 4, EGPBlocks: 12, Width: 40, Height: 30, GridEGP: true})
	require.NoError(t, err)
	// 12 cells over a 4:3 extent come out as 4 columns by 3 rows.
	require.Len(t, egp, 12)
	assert.InDelta(t, 100.0, geo.Area(egp[0].Geometry), 1e-9)
}

func TestGrid(t *testing.T) {
	g := Grid("G", 3, 2, 0, 0, 30, 20)
	require.Len(t, g, 6)
	assert.Equal(t, "G00001", g[0].ID)
	assert.Equal(t, "G00006", g[5].ID)
	assert.InDelta(t, 100.0, geo.Area(g[4].Geometry), 1e-9)
}

func areas(inputs []block.Input) []float64 {
	out := make([]float64, len(inputs))
	for i, in := range inputs {
		out[i] = geo.Area(in.Geometry)
	}
	return out
}
