// Package project loads conflate.yaml, the file that names the NGD/EGP
// layer pairs of a conflation project and its run defaults.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/containment"
	"github.com/meshblock/conflator/pkg/geo"
)

// FileName is the project file looked up by LoadProject.
const FileName = "conflate.yaml"

// Load reads a project from a YAML file.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing project YAML: %w", err)
	}
	p.Dir = filepath.Dir(path)

	return &p, nil
}

// LoadProject loads a project from a project directory.
// It looks for conflate.yaml in the given directory.
func LoadProject(projectDir string) (*Project, error) {
	return Load(filepath.Join(projectDir, FileName))
}

// SourceNames returns the configured source names in sorted order.
func (p *Project) SourceNames() []string {
	names := make([]string, 0, len(p.Sources))
	for name := range p.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ThresholdOr returns the project threshold, or def when none is set.
func (p *Project) ThresholdOr(def containment.Threshold) containment.Threshold {
	if p.Threshold == nil {
		return def
	}
	return containment.Threshold(*p.Threshold)
}

// ToleranceOr returns the project tolerance, or def when none is set.
func (p *Project) ToleranceOr(def geo.Tolerance) geo.Tolerance {
	if p.Tolerance == nil {
		return def
	}
	return *p.Tolerance
}

// Layers resolves the NGD and EGP layers of a named source. Paths are made
// absolute against the project directory and id fields fall back to the
// project-wide ones.
func (p *Project) Layers(name string) (ngd, egp Layer, err error) {
	src, ok := p.Sources[name]
	if !ok {
		return Layer{}, Layer{}, fmt.Errorf("unknown source %q (available: %v)", name, p.SourceNames())
	}
	crs := firstNonEmpty(src.CRS, p.CRS)
	target := firstNonEmpty(p.ReprojectTo, geo.DefaultProjection)
	ngd = Layer{
		Kind:        block.NGD,
		Path:        p.resolve(src.NGD),
		IDField:     firstNonEmpty(src.IDFields.NGD, p.IDFields.NGD),
		CRS:         crs,
		ReprojectTo: target,
	}
	egp = Layer{
		Kind:        block.EGP,
		Path:        p.resolve(src.EGP),
		IDField:     firstNonEmpty(src.IDFields.EGP, p.IDFields.EGP),
		CRS:         crs,
		ReprojectTo: target,
	}
	return ngd, egp, nil
}

func (p *Project) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Dir, path)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
