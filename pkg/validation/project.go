package validation

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/meshblock/conflator/pkg/geo"
	"github.com/meshblock/conflator/pkg/project"
)

// KnownSources lists the province and territory codes sources are usually
// named after.
var KnownSources = map[string]bool{
	"ab": true, "bc": true, "mb": true, "nb": true, "nl": true, "ns": true, "nt": true,
	"nu": true, "on": true, "pe": true, "qc": true, "sk": true, "yt": true,
}

var layerExtensions = map[string]bool{".geojson": true, ".json": true, ".shp": true}

// ValidateProject checks a parsed project file before any layer is loaded.
func ValidateProject(p *project.Project) *Report {
	r := NewReport()

	validateThreshold(p, r)
	validateTolerance(p, r)
	validateWorkers(p, r)
	validateReprojection(p, r)
	validateSources(p, r)

	return r
}

// ValidateSource additionally checks that name is one of the project's
// sources.
func ValidateSource(p *project.Project, name string) *Report {
	r := ValidateProject(p)
	if _, ok := p.Sources[name]; !ok {
		r.AddError(Result{
			Level:       LevelProject,
			Message:     fmt.Sprintf("source %q is not defined in the project", name),
			Path:        "sources",
			ActualValue: name,
			Expected:    strings.Join(p.SourceNames(), ", "),
		})
	}
	return r
}

func validateThreshold(p *project.Project, r *Report) {
	if p.Threshold == nil {
		return
	}
	t := *p.Threshold
	if math.IsNaN(t) || t < 0 || t > 1 {
		r.AddError(Result{
			Level:       LevelProject,
			Message:     fmt.Sprintf("threshold %v is outside [0,1]", t),
			Path:        "threshold",
			ActualValue: t,
			Expected:    "0-1",
		})
	}
}

func validateReprojection(p *project.Project, r *Report) {
	if p.ReprojectTo == "" {
		return
	}
	sr, err := geo.SpatialReference(p.ReprojectTo)
	switch {
	case err != nil:
		r.AddError(Result{
			Level:       LevelProject,
			Message:     fmt.Sprintf("reproject_to %q cannot be resolved: %v", p.ReprojectTo, err),
			Path:        "reproject_to",
			ActualValue: p.ReprojectTo,
			Suggestions: []string{"Use EPSG:3347, EPSG:3348 or a full proj4 definition"},
		})
	case geo.IsGeographic(sr):
		r.AddError(Result{
			Code:        CodeGeographicCRS,
			Level:       LevelProject,
			Message:     fmt.Sprintf("reproject_to %q is geographic", p.ReprojectTo),
			Path:        "reproject_to",
			ActualValue: p.ReprojectTo,
			Expected:    "a projected CRS in metres",
		})
	}
}

func validateTolerance(p *project.Project, r *Report) {
	if p.Tolerance == nil {
		return
	}
	if err := p.Tolerance.Validate(); err != nil {
		r.AddError(Result{
			Level:   LevelProject,
			Message: err.Error(),
			Path:    "tolerance",
		})
		return
	}
	if p.Tolerance.Area == 0 {
		r.AddWarning(Result{
			Level:       LevelProject,
			Message:     "area tolerance is 0; floating-point slivers will be counted as overlap",
			Path:        "tolerance.area",
			Suggestions: []string{"Use a small positive value such as 0.000001"},
		})
	}
}

func validateWorkers(p *project.Project, r *Report) {
	if p.Workers < 0 {
		r.AddError(Result{
			Level:       LevelProject,
			Message:     "workers must not be negative",
			Path:        "workers",
			ActualValue: p.Workers,
			Expected:    ">= 0 (0 uses one worker per CPU)",
		})
	}
}

func validateSources(p *project.Project, r *Report) {
	if len(p.Sources) == 0 {
		r.AddError(Result{
			Level:    LevelProject,
			Message:  "sources must contain at least one NGD/EGP pair",
			Path:     "sources",
			Expected: "at least 1 source",
		})
		return
	}

	for _, name := range p.SourceNames() {
		src := p.Sources[name]
		if !KnownSources[name] {
			r.AddInfo(Result{
				Level:   LevelProject,
				Message: fmt.Sprintf("source %q is not a province or territory code", name),
				Path:    fmt.Sprintf("sources.%s", name),
			})
		}
		for _, layer := range []struct{ key, path string }{{"ngd", src.NGD}, {"egp", src.EGP}} {
			path := fmt.Sprintf("sources.%s.%s", name, layer.key)
			if layer.path == "" {
				r.AddError(Result{
					Level:   LevelProject,
					Message: fmt.Sprintf("source %s: %s layer path is required", name, layer.key),
					Path:    path,
				})
				continue
			}
			ext := strings.ToLower(filepath.Ext(layer.path))
			if !layerExtensions[ext] {
				r.AddError(Result{
					Level:       LevelProject,
					Message:     fmt.Sprintf("source %s: unsupported layer format %q", name, ext),
					Path:        path,
					ActualValue: layer.path,
					Expected:    ".geojson, .json or .shp",
				})
			}
		}
		if src.NGD != "" && src.NGD == src.EGP {
			r.AddWarning(Result{
				Level:   LevelProject,
				Message: fmt.Sprintf("source %s: NGD and EGP point at the same file", name),
				Path:    fmt.Sprintf("sources.%s", name),
			})
		}
	}
}
