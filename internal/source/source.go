// Package source reads NGD and EGP layers from GeoJSON files and
// shapefiles into pipeline layers.
package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/geo"
	"github.com/meshblock/conflator/pkg/pipeline"
	"github.com/meshblock/conflator/pkg/project"
)

// Load reads the layer at l.Path. The format follows the file extension.
// A CRS declared on l must agree with the one carried by the file. Layers in
// a geographic CRS are projected to l.ReprojectTo when it is set.
func Load(l project.Layer) (pipeline.Layer, error) {
	var (
		out pipeline.Layer
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(l.Path)); ext {
	case ".geojson", ".json":
		out, err = loadGeoJSON(l)
	case ".shp":
		out, err = loadShapefile(l)
	default:
		return pipeline.Layer{}, fmt.Errorf("%s layer %s: unsupported format %q", l.Kind, l.Path, ext)
	}
	if err != nil {
		return pipeline.Layer{}, fmt.Errorf("%s layer %s: %w", l.Kind, l.Path, err)
	}

	// Loaders hand back the definition as written; keep it for proj, which
	// needs the full WKT or proj4 text.
	raw := out.CRS
	if out.CRS, err = CanonicalCRS(raw); err != nil {
		return pipeline.Layer{}, fmt.Errorf("%s layer %s: %w", l.Kind, l.Path, err)
	}
	declared, err := CanonicalCRS(l.CRS)
	if err != nil {
		return pipeline.Layer{}, fmt.Errorf("%s layer %s: declared CRS: %w", l.Kind, l.Path, err)
	}
	switch {
	case declared == "":
	case out.CRS == "":
		out.CRS, raw = declared, l.CRS
	case out.CRS != declared:
		return pipeline.Layer{}, fmt.Errorf("%s layer %s: file CRS %s does not match declared %s", l.Kind, l.Path, out.CRS, declared)
	}

	if l.ReprojectTo != "" {
		if out, err = reproject(out, raw, l.ReprojectTo); err != nil {
			return pipeline.Layer{}, fmt.Errorf("%s layer %s: %w", l.Kind, l.Path, err)
		}
	}
	return out, nil
}

// reproject moves a geographic layer into the projected CRS target. Layers
// that are already projected, or whose CRS proj cannot resolve, are returned
// unchanged.
func reproject(l pipeline.Layer, raw, target string) (pipeline.Layer, error) {
	src, err := geo.SpatialReference(l.CRS)
	if err != nil {
		if src, err = geo.SpatialReference(raw); err != nil {
			return l, nil
		}
	}
	if !geo.IsGeographic(src) {
		return l, nil
	}

	dst, err := geo.SpatialReference(target)
	if err != nil {
		return pipeline.Layer{}, fmt.Errorf("reprojection target %s: %w", target, err)
	}
	if geo.IsGeographic(dst) {
		return pipeline.Layer{}, fmt.Errorf("reprojection target %s is not a projected CRS", target)
	}
	trans, err := src.NewTransform(dst)
	if err != nil {
		return pipeline.Layer{}, fmt.Errorf("reprojecting %s to %s: %w", l.CRS, target, err)
	}
	canonical, err := CanonicalCRS(target)
	if err != nil {
		return pipeline.Layer{}, err
	}

	out := pipeline.Layer{CRS: canonical, Blocks: make([]block.Input, len(l.Blocks))}
	for i, b := range l.Blocks {
		out.Blocks[i] = b
		if b.Geometry == nil {
			continue
		}
		if out.Blocks[i].Geometry, err = geo.Reproject(b.Geometry, trans); err != nil {
			return pipeline.Layer{}, fmt.Errorf("reprojecting block %s: %w", b.ID, err)
		}
	}
	return out, nil
}

// LoadPair loads both layers of a project source.
func LoadPair(ngd, egp project.Layer) (pipeline.Layer, pipeline.Layer, error) {
	n, err := Load(ngd)
	if err != nil {
		return pipeline.Layer{}, pipeline.Layer{}, err
	}
	e, err := Load(egp)
	if err != nil {
		return pipeline.Layer{}, pipeline.Layer{}, err
	}
	return n, e, nil
}

type legacyCRS struct {
	CRS *struct {
		Type       string `json:"type"`
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

func loadGeoJSON(l project.Layer) (pipeline.Layer, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return pipeline.Layer{}, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return pipeline.Layer{}, fmt.Errorf("decoding GeoJSON: %w", err)
	}

	var out pipeline.Layer
	var meta legacyCRS
	if err := json.Unmarshal(data, &meta); err == nil && meta.CRS != nil {
		out.CRS = meta.CRS.Properties.Name
	}

	out.Blocks = make([]block.Input, 0, len(fc.Features))
	for i, f := range fc.Features {
		id := featureID(f, l.IDField)
		if f.Geometry == nil {
			// Keep the block so it surfaces as a geometry error downstream.
			out.Blocks = append(out.Blocks, block.Input{ID: id})
			continue
		}
		g, err := fromOrb(f.Geometry)
		if err != nil {
			return pipeline.Layer{}, fmt.Errorf("feature %d (%s): %w", i, id, err)
		}
		out.Blocks = append(out.Blocks, block.Input{ID: id, Geometry: g})
	}
	return out, nil
}

func featureID(f *geojson.Feature, field string) string {
	if field != "" {
		if v, ok := f.Properties[field]; ok {
			return stringify(v)
		}
		return ""
	}
	return stringify(f.ID)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// fromOrb converts a polygonal orb geometry into one block geometry.
// MultiPolygon members are flattened into a single ring set.
func fromOrb(g orb.Geometry) (geom.Polygon, error) {
	switch t := g.(type) {
	case orb.Polygon:
		return ringsOf(t), nil
	case orb.MultiPolygon:
		var out geom.Polygon
		for _, p := range t {
			out = append(out, ringsOf(p)...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("geometry type %s is not polygonal", g.GeoJSONType())
	}
}

func ringsOf(p orb.Polygon) geom.Polygon {
	out := make(geom.Polygon, 0, len(p))
	for _, r := range p {
		path := make(geom.Path, len(r))
		for i, pt := range r {
			path[i] = geom.Point{X: pt[0], Y: pt[1]}
		}
		out = append(out, path)
	}
	return out
}

func loadShapefile(l project.Layer) (pipeline.Layer, error) {
	var out pipeline.Layer
	prj := strings.TrimSuffix(l.Path, filepath.Ext(l.Path)) + ".prj"
	if data, err := os.ReadFile(prj); err == nil {
		out.CRS = string(data)
	} else if !os.IsNotExist(err) {
		return pipeline.Layer{}, err
	}

	if l.IDField == "" {
		return pipeline.Layer{}, fmt.Errorf("shapefile layers need an id field")
	}
	dec, err := shp.NewDecoder(l.Path)
	if err != nil {
		return pipeline.Layer{}, fmt.Errorf("opening shapefile: %w", err)
	}
	defer dec.Close()

	for {
		g, fields, more := dec.DecodeRowFields(l.IDField)
		if !more {
			break
		}
		id := strings.Trim(fields[l.IDField], " \x00")
		switch t := g.(type) {
		case geom.Polygon:
			out.Blocks = append(out.Blocks, block.Input{ID: id, Geometry: t})
		case geom.MultiPolygon:
			var p geom.Polygon
			for _, m := range t {
				p = append(p, m...)
			}
			out.Blocks = append(out.Blocks, block.Input{ID: id, Geometry: p})
		case nil:
			out.Blocks = append(out.Blocks, block.Input{ID: id})
		default:
			return pipeline.Layer{}, fmt.Errorf("block %s: shape %T is not polygonal", id, g)
		}
	}
	if err := dec.Error(); err != nil {
		return pipeline.Layer{}, fmt.Errorf("decoding shapefile: %w", err)
	}
	return out, nil
}
