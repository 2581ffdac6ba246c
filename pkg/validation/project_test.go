package validation

import (
	"testing"

	"github.com/meshblock/conflator/pkg/geo"
	"github.com/meshblock/conflator/pkg/project"
)

func validProject() *project.Project {
	threshold := 0.8
	return &project.Project{
		Version:   "1",
		Threshold: &threshold,
		Tolerance: &geo.Tolerance{Grid: 1e-7, Area: 1e-6},
		Sources: map[string]project.Source{
			"ns": {NGD: "ns/ngd.geojson", EGP: "ns/egp.shp"},
		},
	}
}

func TestValidateProjectValid(t *testing.T) {
	r := ValidateProject(validProject())
	if !r.Valid {
		t.Errorf("expected valid, got errors: %v", r.Errors)
	}
}

func TestValidateProjectThreshold(t *testing.T) {
	p := validProject()
	bad := 1.5
	p.Threshold = &bad
	r := ValidateProject(p)
	if r.Valid {
		t.Error("threshold 1.5 should be invalid")
	}
	if r.Errors[0].Path != "threshold" {
		t.Errorf("unexpected path: %s", r.Errors[0].Path)
	}
}

func TestValidateProjectTolerance(t *testing.T) {
	p := validProject()
	p.Tolerance = &geo.Tolerance{Grid: -1}
	if r := ValidateProject(p); r.Valid {
		t.Error("negative grid should be invalid")
	}

	p.Tolerance = &geo.Tolerance{Grid: 1e-7}
	r := ValidateProject(p)
	if !r.Valid {
		t.Errorf("zero area tolerance should only warn, got %v", r.Errors)
	}
	if len(r.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(r.Warnings))
	}
}

func TestValidateProjectReprojectTo(t *testing.T) {
	p := validProject()
	p.ReprojectTo = "EPSG:3347"
	if r := ValidateProject(p); !r.Valid {
		t.Errorf("EPSG:3347 should be accepted, got %v", r.Errors)
	}

	p.ReprojectTo = "EPSG:4326"
	r := ValidateProject(p)
	if r.CountCode(CodeGeographicCRS) != 1 {
		t.Errorf("expected E302 for a geographic target, got %v", r.Errors)
	}

	p.ReprojectTo = "EPSG:999999"
	if r := ValidateProject(p); r.Valid {
		t.Error("unresolvable target should be invalid")
	}
}

func TestValidateProjectSources(t *testing.T) {
	p := validProject()
	p.Sources = nil
	if r := ValidateProject(p); r.Valid {
		t.Error("project without sources should be invalid")
	}

	p = validProject()
	p.Sources["zz"] = project.Source{NGD: "zz/ngd.gpkg"}
	r := ValidateProject(p)
	if r.Valid {
		t.Error("missing EGP path and unsupported format should be invalid")
	}
	if len(r.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d: %v", len(r.Errors), r.Errors)
	}
	if len(r.Info) != 1 {
		t.Errorf("expected unknown source code noted, got %d info", len(r.Info))
	}
}

func TestValidateSource(t *testing.T) {
	p := validProject()
	if r := ValidateSource(p, "ns"); !r.Valid {
		t.Errorf("ns should be valid, got %v", r.Errors)
	}
	if r := ValidateSource(p, "qc"); r.Valid {
		t.Error("undefined source should be invalid")
	}
}
