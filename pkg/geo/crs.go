package geo

import (
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// DefaultProjection is the Statistics Canada Lambert conformal conic CRS
// that geographic layers are projected to before any measurement.
const DefaultProjection = "EPSG:3348"

const statCanLambert = "+proj=lcc +lat_0=63.390675 +lon_0=-91.8666666666667 +lat_1=49 +lat_2=77 +x_0=6200000 +y_0=3000000 +ellps=GRS80 +units=m +no_defs"

// projDefs covers authority codes the proj package has no definition for.
var projDefs = map[string]string{
	"EPSG:4617": "+proj=longlat +ellps=GRS80 +no_defs",
	"EPSG:4140": "+proj=longlat +ellps=GRS80 +no_defs",
	"EPSG:3347": statCanLambert,
	"EPSG:3348": statCanLambert,
}

// SpatialReference resolves an authority code, proj4 string or WKT
// definition.
func SpatialReference(crs string) (*proj.SR, error) {
	if def, ok := projDefs[strings.ToUpper(strings.TrimSpace(crs))]; ok {
		crs = def
	}
	return proj.Parse(crs)
}

// IsGeographic reports whether sr measures in degrees of longitude and
// latitude.
func IsGeographic(sr *proj.SR) bool {
	return sr != nil && sr.Name == "longlat"
}

// Geographic reports whether crs resolves to a longitude/latitude system.
// Identifiers that cannot be resolved are treated as projected.
func Geographic(crs string) bool {
	sr, err := SpatialReference(crs)
	return err == nil && IsGeographic(sr)
}

// Reproject moves every vertex of p through t. A nil t returns p unchanged.
func Reproject(p geom.Polygon, t proj.Transformer) (geom.Polygon, error) {
	g, err := p.Transform(t)
	if err != nil {
		return nil, err
	}
	return g.(geom.Polygon), nil
}
