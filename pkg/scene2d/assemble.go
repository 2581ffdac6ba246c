package scene2d

import (
	"github.com/ctessum/geom"

	"github.com/meshblock/conflator/pkg/containment"
	"github.com/meshblock/conflator/pkg/pipeline"
)

// StatusFill maps containment statuses to fill colors.
var StatusFill = map[containment.Status]string{
	containment.Conflated:     "#2e7d32",
	containment.Unconflated:   "#f9a825",
	containment.GeometryError: "#c62828",
}

// Assemble2D converts a finished run into a 2D scene suitable for SVG
// rendering. NGD blocks carry their report record; EGP blocks are outlines.
func Assemble2D(o *pipeline.Outcome) *Scene2D {
	s := &Scene2D{
		Metadata: Metadata{
			CRS:       o.Store.NGD.CRS(),
			Threshold: float64(o.Threshold),
			NGDBlocks: o.Store.NGD.Len(),
			EGPBlocks: o.Store.EGP.Len(),
		},
		NGD:    make([]Block2D, 0, o.Store.NGD.Len()),
		EGP:    make([]Outline2D, 0, o.Store.EGP.Len()),
		Legend: make(map[string]string, len(StatusFill)),
		Groups: make(map[int]GroupExtent),
	}
	for st, fill := range StatusFill {
		s.Legend[string(st)] = fill
	}

	var all *geom.Bounds
	extend := func(groupID int, tag string, b *geom.Bounds) {
		if b == nil {
			return
		}
		if all == nil {
			all = geom.NewBounds()
		}
		all.Extend(b)
		g, ok := s.Groups[groupID]
		if !ok {
			g = GroupExtent{Tag: tag, Bounds: boundsToCoords(b)}
		} else {
			g.Bounds = merge(g.Bounds, b)
		}
		s.Groups[groupID] = g
	}

	for _, rec := range o.Report.Blocks {
		b, ok := o.Store.NGD.Block(rec.ID)
		if !ok {
			continue
		}
		b2 := Block2D{
			ID:          rec.ID,
			Rings:       polygonToCoords(b.Geometry),
			Status:      string(rec.Status),
			Cardinality: string(rec.Cardinality),
			GroupID:     rec.GroupID,
			Fraction:    rec.Fraction,
			Fill:        StatusFill[rec.Status],
		}
		if rec.MatchedEGP != nil {
			b2.MatchedEGP = *rec.MatchedEGP
		}
		if b.Bounds != nil {
			b2.Center = [2]float64{(b.Bounds.Min.X + b.Bounds.Max.X) / 2, (b.Bounds.Min.Y + b.Bounds.Max.Y) / 2}
		}
		extend(rec.GroupID, b2.Cardinality, b.Bounds)
		s.NGD = append(s.NGD, b2)
	}

	for _, b := range o.Store.EGP.Blocks() {
		out := Outline2D{ID: b.ID, Rings: polygonToCoords(b.Geometry)}
		if g, ok := o.Analysis.EGPGroup(b.ID); ok {
			out.GroupID = g.ID
			extend(g.ID, string(g.Tag), b.Bounds)
		}
		s.EGP = append(s.EGP, out)
	}

	if all != nil {
		s.Metadata.Bounds = boundsToCoords(all)
	}
	return s
}

func polygonToCoords(p geom.Polygon) [][][2]float64 {
	rings := make([][][2]float64, 0, len(p))
	for _, r := range p {
		coords := make([][2]float64, len(r))
		for i, pt := range r {
			coords[i] = [2]float64{pt.X, pt.Y}
		}
		rings = append(rings, coords)
	}
	return rings
}

func boundsToCoords(b *geom.Bounds) [2][2]float64 {
	return [2][2]float64{{b.Min.X, b.Min.Y}, {b.Max.X, b.Max.Y}}
}

func merge(c [2][2]float64, b *geom.Bounds) [2][2]float64 {
	return [2][2]float64{
		{min(c[0][0], b.Min.X), min(c[0][1], b.Min.Y)},
		{max(c[1][0], b.Max.X), max(c[1][1], b.Max.Y)},
	}
}
