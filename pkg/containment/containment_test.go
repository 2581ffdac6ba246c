package containment

import (
	"context"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/errors"
	"github.com/meshblock/conflator/pkg/geo"
	"github.com/meshblock/conflator/pkg/overlay"
)

func rect(id string, minX, minY, maxX, maxY float64) block.Input {
	return block.Input{ID: id, Geometry: geo.Rect(minX, minY, maxX, maxY)}
}

func classify(t *testing.T, ngd, egp []block.Input, th Threshold) []Result {
	t.Helper()
	return classifyWith(t, ngd, egp, th, geo.DefaultTolerance)
}

func classifyWith(t *testing.T, ngd, egp []block.Input, th Threshold, tol geo.Tolerance) []Result {
	t.Helper()
	n, err := block.NewPartition(block.NGD, "", ngd, tol)
	require.NoError(t, err)
	e, err := block.NewPartition(block.EGP, "", egp, tol)
	require.NoError(t, err)
	s, err := block.NewStore(n, e)
	require.NoError(t, err)
	ov, err := (&overlay.Engine{Workers: 1, Tolerance: tol}).Run(context.Background(), s)
	require.NoError(t, err)
	return Classify(n, ov, th, tol)
}

func TestNewThreshold(t *testing.T) {
	tests := []struct {
		in      float64
		wantErr bool
	}{
		{0, false},
		{0.8, false},
		{1, false},
		{-0.01, true},
		{1.01, true},
	}
	for _, tt := range tests {
		th, err := NewThreshold(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, errors.ErrInvalidThreshold, "threshold %v", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, Threshold(tt.in), th)
	}
}

func TestClassifyFullContainment(t *testing.T) {
	res := classify(t,
		[]block.Input{rect("n1", 1, 1, 2, 2)},
		[]block.Input{rect("e1", 0, 0, 3, 3)},
		DefaultThreshold)
	require.Len(t, res, 1)
	assert.Equal(t, 1.0, res[0].Fraction)
	assert.Equal(t, Conflated, res[0].Status)
	assert.Equal(t, "e1", res[0].Match.ID)
	assert.False(t, res[0].Tie)
}

func TestClassifySplit(t *testing.T) {
	res := classify(t,
		[]block.Input{rect("n1", 0, 0, 10, 10)},
		[]block.Input{rect("e1", 0, 0, 5.5, 10), rect("e2", 5.5, 0, 10, 10)},
		DefaultThreshold)
	require.Len(t, res, 1)
	assert.InDelta(t, 0.55, res[0].Fraction, 1e-9)
	assert.Equal(t, "e1", res[0].Match.ID)
	assert.Equal(t, Unconflated, res[0].Status)

	res = classify(t,
		[]block.Input{rect("n1", 0, 0, 10, 10)},
		[]block.Input{rect("e1", 0, 0, 5.5, 10), rect("e2", 5.5, 0, 10, 10)},
		Threshold(0.5))
	assert.Equal(t, Conflated, res[0].Status)
}

func TestClassifyTiePicksLowerID(t *testing.T) {
	res := classify(t,
		[]block.Input{rect("n1", 0, 0, 10, 10)},
		[]block.Input{rect("eb", 0, 0, 5, 10), rect("ea", 5, 0, 10, 10)},
		DefaultThreshold)
	require.Len(t, res, 1)
	assert.Equal(t, "ea", res[0].Match.ID)
	assert.True(t, res[0].Tie)
	assert.Equal(t, []string{"eb"}, res[0].TiedWith)
	assert.InDelta(t, 0.5, res[0].Fraction, 1e-9)
}

func TestClassifyTieMeasuredFromLargest(t *testing.T) {
	// Overlaps of 300, 300.9 and 301.5 with an area tolerance of 1: only the
	// last two are within tolerance of the largest.
	tol := geo.Tolerance{Grid: 1e-7, Area: 1}
	res := classifyWith(t,
		[]block.Input{rect("n1", 0, 0, 100, 10)},
		[]block.Input{
			rect("ea", 0, 0, 30, 10),
			rect("eb", 30, 0, 60.09, 10),
			rect("ec", 60.09, 0, 90.24, 10),
		},
		DefaultThreshold, tol)
	require.Len(t, res, 1)
	require.NotNil(t, res[0].Match)
	assert.Equal(t, "eb", res[0].Match.ID)
	assert.True(t, res[0].Tie)
	assert.Equal(t, []string{"ec"}, res[0].TiedWith)
	assert.InDelta(t, 0.3009, res[0].Fraction, 1e-9)
}

func TestClassifyOrphan(t *testing.T) {
	res := classify(t,
		[]block.Input{rect("n1", 100, 100, 101, 101)},
		[]block.Input{rect("e1", 0, 0, 1, 1)},
		DefaultThreshold)
	require.Len(t, res, 1)
	assert.Equal(t, Unconflated, res[0].Status)
	assert.Zero(t, res[0].Fraction)
	assert.Nil(t, res[0].Match)
}

func TestClassifyGeometryError(t *testing.T) {
	flat := block.Input{ID: "flat", Geometry: geom.Polygon{{geo.Pt(0, 0), geo.Pt(1, 0), geo.Pt(2, 0)}}}
	res := classify(t,
		[]block.Input{flat, rect("n1", 0, 0, 1, 1)},
		[]block.Input{rect("e1", 0, 0, 1, 1)},
		DefaultThreshold)
	require.Len(t, res, 2)
	assert.Equal(t, "flat", res[0].Block.ID)
	assert.Equal(t, GeometryError, res[0].Status)
	require.NotNil(t, res[0].Issue)
	assert.Equal(t, errors.StageNormalize, res[0].Issue.Stage)
	assert.Equal(t, Conflated, res[1].Status)
}

func TestFraction(t *testing.T) {
	assert.Equal(t, 1.0, fraction(100-1e-9, 100, 1e-6))
	assert.InDelta(t, 0.25, fraction(25, 100, 1e-6), 1e-12)
	assert.Equal(t, 1.0, fraction(101, 100, 1e-6))
}
