// Package export writes conflation reports and layers to files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meshblock/conflator/pkg/report"
)

// Format is an output encoding.
type Format string

const (
	JSON    Format = "json"
	YAML    Format = "yaml"
	CSV     Format = "csv"
	GeoJSON Format = "geojson"
)

// Formats lists the supported formats.
var Formats = []Format{JSON, YAML, CSV, GeoJSON}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, YAML, CSV, GeoJSON:
		return f, nil
	case "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown output format %q (supported: %v)", s, Formats)
}

// FormatFor picks a format from a file extension, falling back to def.
func FormatFor(path string, def Format) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return def
}

// WriteReport encodes r as JSON, YAML or CSV. GeoJSON needs block
// geometry and goes through WriteGeoJSON.
func WriteReport(w io.Writer, f Format, r *report.Report) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case CSV:
		return writeCSV(w, r)
	}
	return fmt.Errorf("format %s is not a report format", f)
}

// CSVHeader is the column order of CSV reports.
var CSVHeader = []string{
	"id", "area", "fraction", "status", "matched_egp", "matched_area",
	"cardinality", "group_id", "tie", "tied_with", "issue",
}

func writeCSV(w io.Writer, r *report.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, b := range r.Blocks {
		matched := ""
		if b.MatchedEGP != nil {
			matched = *b.MatchedEGP
		}
		row := []string{
			b.ID,
			formatFloat(b.Area),
			formatFloat(b.Fraction),
			string(b.Status),
			matched,
			formatFloat(b.MatchedArea),
			string(b.Cardinality),
			strconv.Itoa(b.GroupID),
			strconv.FormatBool(b.Tie),
			strings.Join(b.TiedWith, ";"),
			b.Issue,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ToFile creates path and hands it to write.
func ToFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
