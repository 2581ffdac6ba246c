package validation

import (
	"fmt"

	"github.com/meshblock/conflator/pkg/block"
	"github.com/meshblock/conflator/pkg/errors"
)

// ValidatePartition reports the blocks of a loaded partition whose geometry
// could not be normalized. These do not invalidate the report: the blocks are
// flagged in the output rather than aborting the run.
func ValidatePartition(p *block.Partition) *Report {
	r := NewReport()
	for _, issue := range p.Issues() {
		r.AddWarning(geometryResult(issue))
	}
	r.AddInfo(Result{
		Level:       LevelPartition,
		Message:     fmt.Sprintf("%s: %d blocks loaded", p.Kind(), p.Len()),
		Path:        string(p.Kind()),
		ActualValue: p.Len(),
	})
	return r
}

// ValidateFailures reports blocks flagged while overlaying.
func ValidateFailures(failures []*errors.GeometryError) *Report {
	r := NewReport()
	for _, f := range failures {
		r.AddWarning(geometryResult(f))
	}
	return r
}

func geometryResult(e *errors.GeometryError) Result {
	code := CodeInvalidGeometry
	if e.Reason == "zero-area geometry" {
		code = CodeZeroArea
	}
	return Result{
		Code:     code,
		Level:    LevelGeometry,
		Message:  e.Error(),
		Path:     e.Partition,
		BlockIDs: []string{e.BlockID},
	}
}

// FromError converts a fatal load error into a report. Errors that are not
// partition or CRS failures are returned as a single uncoded error.
func FromError(err error) *Report {
	r := NewReport()
	if err == nil {
		return r
	}

	var ipe *errors.InvalidPartitionError
	var crs *errors.CoordinateSystemMismatchError
	var geographic *errors.GeographicCRSError
	switch {
	case errors.As(err, &ipe):
		if ipe.Message != "" {
			r.AddError(Result{Level: LevelPartition, Message: ipe.Message, Path: ipe.Partition})
		}
		if len(ipe.Duplicates) > 0 {
			r.AddError(Result{
				Code:     CodeDuplicateID,
				Level:    LevelPartition,
				Message:  fmt.Sprintf("%s: %d duplicate block ids", ipe.Partition, len(ipe.Duplicates)),
				Path:     ipe.Partition,
				BlockIDs: ipe.Duplicates,
			})
		}
		if ipe.EmptyIDs > 0 {
			r.AddError(Result{
				Code:        CodeEmptyID,
				Level:       LevelPartition,
				Message:     fmt.Sprintf("%s: %d blocks have an empty id", ipe.Partition, ipe.EmptyIDs),
				Path:        ipe.Partition,
				ActualValue: ipe.EmptyIDs,
				Suggestions: []string{"Check the id field configured for this layer"},
			})
		}
		for _, o := range ipe.Overlaps {
			r.AddError(Result{
				Code:        CodeOverlap,
				Level:       LevelPartition,
				Message:     fmt.Sprintf("%s: blocks %s and %s overlap", ipe.Partition, o.A, o.B),
				Path:        ipe.Partition,
				BlockIDs:    []string{o.A, o.B},
				ActualValue: o.Area,
				Expected:    "interior-disjoint blocks",
			})
		}
	case errors.As(err, &crs):
		r.AddError(Result{
			Code:        CodeCRSMismatch,
			Level:       LevelPartition,
			Message:     crs.Error(),
			ActualValue: crs.EGP,
			Expected:    crs.NGD,
			Suggestions: []string{"Reproject the EGP layer or set crs on the source"},
		})
	case errors.As(err, &geographic):
		r.AddError(Result{
			Code:        CodeGeographicCRS,
			Level:       LevelPartition,
			Message:     geographic.Error(),
			ActualValue: geographic.CRS,
			Expected:    "a projected CRS in metres",
			Suggestions: []string{"Set reproject_to in conflate.yaml or load the layers through the CLI"},
		})
	default:
		r.AddError(Result{Level: LevelPartition, Message: err.Error()})
	}
	return r
}
