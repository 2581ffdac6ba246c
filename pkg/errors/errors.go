// Package errors provides the typed errors raised while loading and
// conflating block partitions. Fatal conditions (invalid partitions, CRS
// mismatches) abort a run; geometry errors are isolated to a single block
// and surface as flagged report rows.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// New is the standard library errors.New.
var New = errors.New

// Sentinel errors matched by the typed errors below via errors.Is.
var (
	// ErrInvalidPartition indicates a partition is not a valid planar meshblock layer.
	ErrInvalidPartition = errors.New("invalid partition")

	// ErrCoordinateSystemMismatch indicates the two partitions use different CRSs.
	ErrCoordinateSystemMismatch = errors.New("coordinate system mismatch")

	// ErrGeographicCRS indicates the partitions are in degrees rather than a
	// projected unit.
	ErrGeographicCRS = errors.New("geographic coordinate system")

	// ErrGeometry indicates a block geometry could not be normalized or overlaid.
	ErrGeometry = errors.New("geometry error")

	// ErrInvalidThreshold indicates a threshold outside [0,1].
	ErrInvalidThreshold = errors.New("invalid threshold")
)

// OverlapPair names two blocks of one partition whose interiors overlap.
type OverlapPair struct {
	A    string  `json:"a" yaml:"a"`
	B    string  `json:"b" yaml:"b"`
	Area float64 `json:"area" yaml:"area"`
}

// InvalidPartitionError reports why a partition was rejected at load time.
type InvalidPartitionError struct {
	Partition  string
	Overlaps   []OverlapPair
	Duplicates []string
	EmptyIDs   int
	Message    string
}

// Error implements the error interface
func (e *InvalidPartitionError) Error() string {
	var parts []string
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if len(e.Duplicates) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate ids: %s", strings.Join(e.Duplicates, ", ")))
	}
	if e.EmptyIDs > 0 {
		parts = append(parts, fmt.Sprintf("%d blocks with empty ids", e.EmptyIDs))
	}
	if len(e.Overlaps) > 0 {
		pairs := make([]string, 0, len(e.Overlaps))
		for _, o := range e.Overlaps {
			pairs = append(pairs, fmt.Sprintf("%s/%s", o.A, o.B))
		}
		parts = append(parts, fmt.Sprintf("overlapping blocks: %s", strings.Join(pairs, ", ")))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("invalid partition %s", e.Partition)
	}
	return fmt.Sprintf("invalid partition %s: %s", e.Partition, strings.Join(parts, "; "))
}

// Is implements errors.Is support
func (e *InvalidPartitionError) Is(target error) bool {
	return target == ErrInvalidPartition
}

// BlockIDs returns every offending block id, sorted and de-duplicated.
func (e *InvalidPartitionError) BlockIDs() []string {
	seen := make(map[string]bool)
	for _, id := range e.Duplicates {
		seen[id] = true
	}
	for _, o := range e.Overlaps {
		seen[o.A] = true
		seen[o.B] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CoordinateSystemMismatchError is raised before any overlay work when the
// NGD and EGP partitions are not in the same CRS.
type CoordinateSystemMismatchError struct {
	NGD string
	EGP string
}

// Error implements the error interface
func (e *CoordinateSystemMismatchError) Error() string {
	return fmt.Sprintf("coordinate system mismatch: NGD is %q, EGP is %q", e.NGD, e.EGP)
}

// Is implements errors.Is support
func (e *CoordinateSystemMismatchError) Is(target error) bool {
	return target == ErrCoordinateSystemMismatch
}

// GeographicCRSError is raised before any overlay work when the partitions
// use a longitude/latitude CRS. Areas and tolerances need projected units.
type GeographicCRSError struct {
	CRS string
}

// Error implements the error interface
func (e *GeographicCRSError) Error() string {
	return fmt.Sprintf("geographic coordinate system %q: reproject both layers to a projected CRS first", e.CRS)
}

// Is implements errors.Is support
func (e *GeographicCRSError) Is(target error) bool {
	return target == ErrGeographicCRS
}

// Stages at which a geometry error can be detected.
const (
	StageNormalize = "normalize"
	StageOverlay   = "overlay"
)

// GeometryError flags one block whose geometry could not be used.
type GeometryError struct {
	Partition string
	BlockID   string
	Stage     string
	Reason    string
	Err       error
}

// Error implements the error interface
func (e *GeometryError) Error() string {
	msg := fmt.Sprintf("%s block %s: %s failed: %s", e.Partition, e.BlockID, e.Stage, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements errors.Unwrap
func (e *GeometryError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *GeometryError) Is(target error) bool {
	return target == ErrGeometry
}

// NewGeometryError creates a new GeometryError
func NewGeometryError(partition, blockID, stage, reason string, err error) *GeometryError {
	return &GeometryError{
		Partition: partition,
		BlockID:   blockID,
		Stage:     stage,
		Reason:    reason,
		Err:       err,
	}
}

// IsInvalidPartition reports whether err is or wraps an InvalidPartitionError.
func IsInvalidPartition(err error) bool {
	return errors.Is(err, ErrInvalidPartition)
}

// IsCoordinateSystemMismatch reports whether err is or wraps a CRS mismatch.
func IsCoordinateSystemMismatch(err error) bool {
	return errors.Is(err, ErrCoordinateSystemMismatch)
}

// IsGeographicCRS reports whether err is or wraps a geographic CRS rejection.
func IsGeographicCRS(err error) bool {
	return errors.Is(err, ErrGeographicCRS)
}

// IsGeometry reports whether err is or wraps a GeometryError.
func IsGeometry(err error) bool {
	return errors.Is(err, ErrGeometry)
}

// As is the standard library errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is the standard library errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
