package project

import (
	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/geo"
)

// Project is the top-level conflation project file.
type Project struct {
	Version   string            `yaml:"version" json:"version"`
	Name      string            `yaml:"name" json:"name"`
	CRS       string            `yaml:"crs" json:"crs"`
	Threshold *float64          `yaml:"threshold" json:"threshold,omitempty"`
	Workers   int               `yaml:"workers" json:"workers"`
	Tolerance *geo.Tolerance    `yaml:"tolerance" json:"tolerance,omitempty"`
	IDFields  IDFields          `yaml:"id_fields" json:"id_fields"`
	Sources   map[string]Source `yaml:"sources" json:"sources"`

	// ReprojectTo is the projected CRS that geographic layers are moved to
	// on load. Defaults to geo.DefaultProjection.
	ReprojectTo string `yaml:"reproject_to" json:"reproject_to,omitempty"`

	// Dir is the directory the project file was loaded from. Relative layer
	// paths resolve against it.
	Dir string `yaml:"-" json:"-"`
}

// IDFields names the attribute holding the block identifier in each layer.
type IDFields struct {
	NGD string `yaml:"ngd" json:"ngd"`
	EGP string `yaml:"egp" json:"egp"`
}

// Source is one named pair of layers, typically a province or territory.
type Source struct {
	NGD      string   `yaml:"ngd" json:"ngd"`
	EGP      string   `yaml:"egp" json:"egp"`
	CRS      string   `yaml:"crs" json:"crs,omitempty"`
	IDFields IDFields `yaml:"id_fields" json:"id_fields,omitempty"`
}

// Layer is a resolved input layer ready for loading.
type Layer struct {
	Kind        block.Kind
	Path        string
	IDField     string
	CRS         string // empty means read it from the file
	ReprojectTo string // target for geographic layers, empty leaves them as read
}
