package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meshblock/conflator/pkg/cardinality"
	"github.com/meshblock/conflator/pkg/containment"
	"github.com/meshblock/conflator/pkg/report"
	"github.com/meshblock/conflator/pkg/validation"
)

func printValidationReport(w io.Writer, r *validation.Report) {
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "ERRORS (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			printResult(w, e)
		}
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "WARNINGS (%d):\n", len(r.Warnings))
		for _, e := range r.Warnings {
			printResult(w, e)
		}
		fmt.Fprintln(w)
	}

	if len(r.Info) > 0 {
		fmt.Fprintf(w, "INFO (%d):\n", len(r.Info))
		for _, i := range r.Info {
			fmt.Fprintf(w, "  [%s] %s\n", i.Level, i.Message)
		}
		fmt.Fprintln(w)
	}

	if r.Valid {
		fmt.Fprintf(w, "Result: VALID (%s)\n", r.Summary)
	} else {
		fmt.Fprintf(w, "Result: INVALID (%s)\n", r.Summary)
	}
}

func printResult(w io.Writer, res validation.Result) {
	if res.Code != "" {
		fmt.Fprintf(w, "  %s [%s] %s\n", res.Code, res.Level, res.Message)
	} else {
		fmt.Fprintf(w, "  [%s] %s\n", res.Level, res.Message)
	}
	if res.Path != "" && res.ActualValue != nil {
		fmt.Fprintf(w, "    -> %s = %v\n", res.Path, res.ActualValue)
	}
	if res.Expected != "" {
		fmt.Fprintf(w, "    expected: %s\n", res.Expected)
	}
	if n := len(res.BlockIDs); n > 0 {
		ids := res.BlockIDs
		if n > 10 {
			ids = ids[:10]
		}
		fmt.Fprintf(w, "    blocks: %v", ids)
		if n > 10 {
			fmt.Fprintf(w, " and %d more", n-10)
		}
		fmt.Fprintln(w)
	}
	for _, s := range res.Suggestions {
		fmt.Fprintf(w, "    * %s\n", s)
	}
}

func printSummary(w io.Writer, r *report.Report) error {
	s := r.Summary
	p := message.NewPrinter(language.English)
	title := cases.Title(language.English)

	p.Fprintf(w, "Conflation at threshold %.2f: %d NGD blocks, %d EGP blocks\n\n", s.Threshold, s.NGDBlocks, s.EGPBlocks)

	rows := [][]string{}
	for _, st := range containment.Statuses {
		rows = append(rows, []string{"status", label(title, string(st)), p.Sprintf("%d", s.ByStatus[st]), percent(p, s.ByStatus[st], s.NGDBlocks)})
	}
	for _, tag := range cardinality.Tags {
		rows = append(rows, []string{"cardinality", label(title, string(tag)), p.Sprintf("%d", s.ByCardinality[tag]), percent(p, s.ByCardinality[tag], s.NGDBlocks)})
	}
	if err := renderTable(w, []string{"Kind", "Class", "NGD Blocks", "Share"}, rows); err != nil {
		return err
	}

	fmt.Fprintln(w)
	rows = rows[:0]
	for _, tag := range cardinality.Tags {
		rows = append(rows, []string{label(title, string(tag)), p.Sprintf("%d", s.Groups[tag])})
	}
	if err := renderTable(w, []string{"Cardinality", "Groups"}, rows); err != nil {
		return err
	}

	fmt.Fprintln(w)
	d := s.Fractions
	p.Fprintf(w, "Fractions: mean %.3f, median %.3f, p10 %.3f, p90 %.3f over %d blocks\n", d.Mean, d.Median, d.P10, d.P90, d.Count)
	p.Fprintf(w, "Area: %.1f NGD, %.1f matched\n", s.NGDArea, s.MatchedArea)
	if s.Ties > 0 {
		p.Fprintf(w, "Ties: %d blocks matched equally to more than one EGP block\n", s.Ties)
	}
	if len(s.EGPOrphans) > 0 {
		p.Fprintf(w, "EGP orphans: %d\n", len(s.EGPOrphans))
	}
	if len(s.EGPGeometryErrors) > 0 {
		p.Fprintf(w, "EGP geometry errors: %d\n", len(s.EGPGeometryErrors))
	}
	return nil
}

func label(c cases.Caser, s string) string {
	return c.String(strings.ReplaceAll(s, "_", " "))
}

func percent(p *message.Printer, n, total int) string {
	if total == 0 {
		return "-"
	}
	return p.Sprintf("%.1f%%", 100*float64(n)/float64(total))
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	cfg := tablewriter.Config{}
	cfg.Row.Alignment = tw.CellAlignment{PerColumn: []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignRight}}
	table := tablewriter.NewTable(w, tablewriter.WithConfig(cfg))

	h := make([]any, len(header))
	for i, c := range header {
		h[i] = c
	}
	table.Header(h...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		if err := table.Append(cells...); err != nil {
			return err
		}
	}
	return table.Render()
}
