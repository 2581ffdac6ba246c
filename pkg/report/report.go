// Package report turns containment results and cardinality groups into
// per-block records and summary counts.
package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/meshblock/conflator/pkg/cardinality"
	"github.com/meshblock/conflator/pkg/containment"
	"github.com/meshblock/conflator/pkg/errors"
)

// Record is the report row of one NGD block.
type Record struct {
	ID          string             `json:"id" yaml:"id"`
	Area        float64            `json:"area" yaml:"area"`
	Fraction    float64            `json:"fraction" yaml:"fraction"`
	Status      containment.Status `json:"status" yaml:"status"`
	MatchedEGP  *string            `json:"matched_egp" yaml:"matched_egp"`
	MatchedArea float64            `json:"matched_area" yaml:"matched_area"`
	Cardinality cardinality.Tag    `json:"cardinality" yaml:"cardinality"`
	GroupID     int                `json:"group_id" yaml:"group_id"`
	Tie         bool               `json:"tie,omitempty" yaml:"tie,omitempty"`
	TiedWith    []string           `json:"tied_with,omitempty" yaml:"tied_with,omitempty"`
	Issue       string             `json:"issue,omitempty" yaml:"issue,omitempty"`
}

// Distribution describes the containment fractions of blocks that were
// classified.
type Distribution struct {
	Count     int     `json:"count" yaml:"count"`
	Mean      float64 `json:"mean" yaml:"mean"`
	Median    float64 `json:"median" yaml:"median"`
	P10       float64 `json:"p10" yaml:"p10"`
	P90       float64 `json:"p90" yaml:"p90"`
	Histogram [10]int `json:"histogram" yaml:"histogram"` // deciles, 1.0 falls in the last bin
}

// BlockIssue names an EGP block left out of the overlay and why.
type BlockIssue struct {
	ID     string `json:"id" yaml:"id"`
	Reason string `json:"reason" yaml:"reason"`
}

// Summary aggregates one report. GeometryErrors counts NGD records; flagged
// EGP blocks are listed in EGPGeometryErrors and never count as orphans.
type Summary struct {
	Threshold         float64                    `json:"threshold" yaml:"threshold"`
	NGDBlocks         int                        `json:"ngd_blocks" yaml:"ngd_blocks"`
	EGPBlocks         int                        `json:"egp_blocks" yaml:"egp_blocks"`
	ByStatus          map[containment.Status]int `json:"by_status" yaml:"by_status"`
	ByCardinality     map[cardinality.Tag]int    `json:"by_cardinality" yaml:"by_cardinality"`
	Groups            map[cardinality.Tag]int    `json:"groups" yaml:"groups"`
	EGPOrphans        []string                   `json:"egp_orphans" yaml:"egp_orphans"`
	EGPGeometryErrors []BlockIssue               `json:"egp_geometry_errors" yaml:"egp_geometry_errors"`
	Ties              int                        `json:"ties" yaml:"ties"`
	GeometryErrors    int                        `json:"geometry_errors" yaml:"geometry_errors"`
	NGDArea           float64                    `json:"ngd_area" yaml:"ngd_area"`
	MatchedArea       float64                    `json:"matched_area" yaml:"matched_area"`
	Fractions         Distribution               `json:"fractions" yaml:"fractions"`
}

// Report is the complete output of one run. It carries no timestamps so the
// same input always serializes to the same bytes.
type Report struct {
	Summary Summary             `json:"summary" yaml:"summary"`
	Blocks  []Record            `json:"blocks" yaml:"blocks"`
	Groups  []cardinality.Group `json:"groups" yaml:"groups"`

	byID map[string]int
}

// Build assembles a report. Records follow the order of results. egpIssues
// are the EGP blocks that failed normalization.
func Build(results []containment.Result, a *cardinality.Analysis, egpIssues []*errors.GeometryError, t containment.Threshold) *Report {
	r := &Report{
		Blocks: make([]Record, 0, len(results)),
		Groups: a.Groups,
		byID:   make(map[string]int, len(results)),
	}
	for _, res := range results {
		rec := Record{
			ID:       res.Block.ID,
			Area:     res.Block.Area,
			Fraction: res.Fraction,
			Status:   res.Status,
			Tie:      res.Tie,
			TiedWith: res.TiedWith,
		}
		if res.Match != nil {
			id := res.Match.ID
			rec.MatchedEGP = &id
			rec.MatchedArea = res.MatchArea
		}
		if res.Issue != nil {
			rec.Issue = res.Issue.Error()
		}
		if g, ok := a.NGDGroup(rec.ID); ok {
			rec.Cardinality = g.Tag
			rec.GroupID = g.ID
		}
		r.byID[rec.ID] = len(r.Blocks)
		r.Blocks = append(r.Blocks, rec)
	}
	r.Summary = summarize(r.Blocks, a, egpIssues, t)
	return r
}

// Block looks up the record of an NGD block.
func (r *Report) Block(id string) (Record, bool) {
	if r.byID == nil {
		r.index()
	}
	i, ok := r.byID[id]
	if !ok {
		return Record{}, false
	}
	return r.Blocks[i], true
}

// index rebuilds the id lookup for reports that were decoded rather than
// built.
func (r *Report) index() {
	r.byID = make(map[string]int, len(r.Blocks))
	for i, b := range r.Blocks {
		r.byID[b.ID] = i
	}
}

func summarize(records []Record, a *cardinality.Analysis, egpIssues []*errors.GeometryError, t containment.Threshold) Summary {
	s := Summary{
		Threshold:         float64(t),
		NGDBlocks:         len(records),
		ByStatus:          make(map[containment.Status]int, len(containment.Statuses)),
		ByCardinality:     make(map[cardinality.Tag]int, len(cardinality.Tags)),
		Groups:            a.Counts(),
		EGPOrphans:        []string{},
		EGPGeometryErrors: make([]BlockIssue, 0, len(egpIssues)),
	}
	flagged := make(map[string]bool, len(egpIssues))
	for _, issue := range egpIssues {
		flagged[issue.BlockID] = true
		s.EGPGeometryErrors = append(s.EGPGeometryErrors, BlockIssue{ID: issue.BlockID, Reason: issue.Error()})
	}
	for _, id := range a.EGPOrphans() {
		if !flagged[id] {
			s.EGPOrphans = append(s.EGPOrphans, id)
		}
	}
	for _, st := range containment.Statuses {
		s.ByStatus[st] = 0
	}
	for _, tag := range cardinality.Tags {
		s.ByCardinality[tag] = 0
	}
	for _, g := range a.Groups {
		s.EGPBlocks += len(g.EGP)
	}

	fractions := make([]float64, 0, len(records))
	areas := make([]float64, 0, len(records))
	matched := make([]float64, 0, len(records))
	for _, rec := range records {
		areas = append(areas, rec.Area)
		matched = append(matched, rec.MatchedArea)
		s.ByStatus[rec.Status]++
		s.ByCardinality[rec.Cardinality]++
		if rec.Tie {
			s.Ties++
		}
		if rec.Status == containment.GeometryError {
			s.GeometryErrors++
			continue
		}
		fractions = append(fractions, rec.Fraction)
	}
	s.NGDArea = floats.Sum(areas)
	s.MatchedArea = floats.Sum(matched)
	s.Fractions = distribution(fractions)
	return s
}

func distribution(x []float64) Distribution {
	d := Distribution{Count: len(x)}
	if len(x) == 0 {
		return d
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	d.Mean = stat.Mean(sorted, nil)
	d.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	d.P10 = stat.Quantile(0.1, stat.Empirical, sorted, nil)
	d.P90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	for _, f := range sorted {
		bin := int(math.Floor(f*10 + 1e-9))
		if bin > 9 {
			bin = 9
		}
		if bin < 0 {
			bin = 0
		}
		d.Histogram[bin]++
	}
	return d
}
