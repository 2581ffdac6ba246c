package export

import (
	"encoding/json"
	"io"

	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/meshblock/conflator/pkg/geo"
	"github.com/meshblock/conflator/pkg/pipeline"
)

type crsMember struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

type collection struct {
	Type     string             `json:"type"`
	CRS      *crsMember         `json:"crs,omitempty"`
	Features []*geojson.Feature `json:"features"`
}

func newCollection(crs string) *collection {
	c := &collection{Type: "FeatureCollection", Features: []*geojson.Feature{}}
	if crs != "" {
		c.CRS = &crsMember{Type: "name", Properties: map[string]string{"name": crs}}
	}
	return c
}

func (c *collection) write(w io.Writer) error {
	enc := json.NewEncoder(w)
	return enc.Encode(c)
}

// WriteGeoJSON writes every NGD block of o as a feature carrying its report
// record as properties. Blocks with a geometry error keep whatever geometry
// was read.
func WriteGeoJSON(w io.Writer, o *pipeline.Outcome) error {
	c := newCollection(o.Store.NGD.CRS())
	for _, rec := range o.Report.Blocks {
		b, ok := o.Store.NGD.Block(rec.ID)
		if !ok {
			continue
		}
		f := geojson.NewFeature(ToOrb(b.Geometry))
		f.ID = rec.ID
		f.Properties["id"] = rec.ID
		f.Properties["area"] = rec.Area
		f.Properties["fraction"] = rec.Fraction
		f.Properties["status"] = string(rec.Status)
		f.Properties["matched_egp"] = rec.MatchedEGP
		f.Properties["matched_area"] = rec.MatchedArea
		f.Properties["cardinality"] = string(rec.Cardinality)
		f.Properties["group_id"] = rec.GroupID
		if rec.Tie {
			f.Properties["tied_with"] = rec.TiedWith
		}
		if rec.Issue != "" {
			f.Properties["issue"] = rec.Issue
		}
		c.Features = append(c.Features, f)
	}
	return c.write(w)
}

// WriteLayer writes a plain layer with the block id as the only property.
func WriteLayer(w io.Writer, l pipeline.Layer, idField string) error {
	if idField == "" {
		idField = "id"
	}
	c := newCollection(l.CRS)
	for _, in := range l.Blocks {
		f := geojson.NewFeature(ToOrb(in.Geometry))
		f.Properties[idField] = in.ID
		c.Features = append(c.Features, f)
	}
	return c.write(w)
}

// ToOrb converts a block geometry to a closed-ring orb Polygon, or a
// MultiPolygon when it has more than one shell.
func ToOrb(p geom.Polygon) orb.Geometry {
	if len(p) == 0 {
		return orb.Polygon{}
	}
	parts := geo.Parts(p)
	if len(parts) == 1 {
		return polygon(parts[0])
	}
	mp := make(orb.MultiPolygon, 0, len(parts))
	for _, part := range parts {
		mp = append(mp, polygon(part))
	}
	return mp
}

func polygon(p geom.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, len(p))
	for _, r := range p {
		ring := make(orb.Ring, 0, len(r)+1)
		for _, pt := range r {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		if len(ring) > 0 && !ring.Closed() {
			ring = append(ring, ring[0])
		}
		out = append(out, ring)
	}
	return out
}

