package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/containment"
	"github.com/meshblock/conflator/pkg/geo"
	"github.com/meshblock/conflator/pkg/pipeline"
	"github.com/meshblock/conflator/pkg/report"
)

func rect(id string, minX, minY, maxX, maxY float64) block.Input {
	return block.Input{ID: id, Geometry: geo.Rect(minX, minY, maxX, maxY)}
}

func outcome(t *testing.T) *pipeline.Outcome {
	t.Helper()
	out, err := pipeline.Run(context.Background(),
		pipeline.Layer{CRS: "EPSG:3348", Blocks: []block.Input{
			rect("n1", 0, 0, 10, 10),
			rect("n2", 20, 0, 21, 1),
		}},
		pipeline.Layer{CRS: "EPSG:3348", Blocks: []block.Input{
			rect("e1", 0, 0, 5.5, 10),
			rect("e2", 5.5, 0, 10, 10),
		}},
		pipeline.Options{Threshold: containment.DefaultThreshold})
	require.NoError(t, err)
	return out
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, YAML, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)

	assert.Equal(t, CSV, FormatFor("out/report.csv", JSON))
	assert.Equal(t, JSON, FormatFor("report.txt", JSON))
}

func TestWriteReportJSONAndYAML(t *testing.T) {
	r := outcome(t).Report

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, JSON, r))
	assert.Contains(t, buf.String(), `"matched_egp": "e1"`)
	assert.Contains(t, buf.String(), `"matched_egp": null`)

	buf.Reset()
	require.NoError(t, WriteReport(&buf, YAML, r))
	var decoded report.Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded.Blocks, 2)
	rec, ok := decoded.Block("n1")
	require.True(t, ok)
	assert.InDelta(t, 0.55, rec.Fraction, 1e-9)

	assert.Error(t, WriteReport(&buf, GeoJSON, r))
}

func TestWriteReportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, CSV, outcome(t).Report))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, "n1", rows[1][0])
	assert.Equal(t, "unconflated", rows[1][3])
	assert.Equal(t, "e1", rows[1][4])
	assert.Equal(t, "", rows[2][4], "orphan has no match")
	assert.Equal(t, "orphan", rows[2][6])
}

func TestWriteGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, outcome(t)))
	assert.Contains(t, buf.String(), `"crs":{"type":"name","properties":{"name":"EPSG:3348"}}`)

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)

	f := fc.Features[0]
	assert.Equal(t, "n1", f.Properties["id"])
	assert.Equal(t, "one-to-many", f.Properties["cardinality"])
	poly, ok := f.Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.True(t, poly[0].Closed())
	assert.Nil(t, fc.Features[1].Properties["matched_egp"])
}

func TestToOrbMultiPolygon(t *testing.T) {
	p := append(geo.Rect(0, 0, 1, 1), geo.Rect(5, 5, 6, 6)...)
	mp, ok := ToOrb(p).(orb.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, mp, 2)
}

func TestWriteLayerToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "ngd.geojson")
	l := pipeline.Layer{CRS: "EPSG:3348", Blocks: []block.Input{rect("N00001", 0, 0, 1, 1)}}
	require.NoError(t, ToFile(path, func(w io.Writer) error { return WriteLayer(w, l, "BB_UID") }))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "N00001", fc.Features[0].Properties["BB_UID"])
}
