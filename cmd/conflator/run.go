package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/meshblock/conflator/internal/export"
	"github.com/meshblock/conflator/internal/logging"
	"github.com/meshblock/conflator/internal/metrics"
	"github.com/meshblock/conflator/internal/server"
	"github.com/meshblock/conflator/internal/source"
	"github.com/meshblock/conflator/internal/synth"
	"github.com/meshblock/conflator/pkg/geo"
	"github.com/meshblock/conflator/pkg/pipeline"
	"github.com/meshblock/conflator/pkg/project"
	"github.com/meshblock/conflator/pkg/validation"
)

// loadAndValidate loads the project and checks it and the named source.
// An empty name selects the only source of single-source projects.
func loadAndValidate(projectDir, name string) (*project.Project, string, *validation.Report, error) {
	p, err := project.LoadProject(projectDir)
	if err != nil {
		return nil, "", nil, fmt.Errorf("loading project: %w", err)
	}
	if name == "" {
		names := p.SourceNames()
		if len(names) != 1 {
			return nil, "", nil, fmt.Errorf("project has %d sources, name one of %v", len(names), names)
		}
		name = names[0]
	}
	return p, name, validation.ValidateSource(p, name), nil
}

// options resolves run options from flags, environment and the project.
func (a *app) options(p *project.Project, obs pipeline.Observer) (pipeline.Options, error) {
	t, err := a.cfg.Threshold(p)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Threshold: t,
		Workers:   a.cfg.Workers(p),
		Tolerance: p.ToleranceOr(geo.DefaultTolerance),
		Logger:    a.logger,
		Observer:  obs,
	}, nil
}

// conflate runs the pipeline on one source. On a load failure the returned
// report explains it.
func (a *app) conflate(ctx context.Context, projectDir, name string, rec *metrics.Recorder) (*pipeline.Outcome, *validation.Report, error) {
	p, name, report, err := loadAndValidate(projectDir, name)
	if err != nil {
		return nil, nil, err
	}
	if !report.Valid {
		return nil, report, fmt.Errorf("project has validation errors")
	}
	opts, err := a.options(p, rec)
	if err != nil {
		return nil, report, err
	}

	ngdLayer, egpLayer, err := p.Layers(name)
	if err != nil {
		return nil, report, err
	}
	ngd, egp, err := source.LoadPair(ngdLayer, egpLayer)
	if err != nil {
		return nil, report, err
	}

	a.logger.Info().
		Str("project", p.Name).
		Str("source", name).
		Float64("threshold", float64(opts.Threshold)).
		Msg("conflation starting")
	out, err := pipeline.Run(ctx, ngd, egp, opts)
	if err != nil {
		report.Merge(validation.FromError(err))
		return nil, report, err
	}
	report.Merge(out.Validation)
	return out, report, nil
}

func (a *app) runConflate(ctx context.Context, projectDir, name string) error {
	defer logging.Timer(a.logger, "run")()

	rec := metrics.New()
	out, report, err := a.conflate(ctx, projectDir, name, rec)
	if err != nil {
		if report != nil {
			printValidationReport(os.Stderr, report)
		}
		return err
	}

	if err := a.writeOutput(out); err != nil {
		return err
	}
	if a.cfg.MetricsFile != "" {
		if err := rec.WriteTextfile(a.cfg.MetricsFile); err != nil {
			return err
		}
		a.logger.Info().Str("path", a.cfg.MetricsFile).Msg("metrics written")
	}
	return nil
}

func (a *app) writeOutput(out *pipeline.Outcome) error {
	write := func(w io.Writer) error {
		if a.cfg.Format == "table" {
			return printSummary(w, out.Report)
		}
		f, err := export.ParseFormat(a.cfg.Format)
		if err != nil {
			return err
		}
		if f == export.GeoJSON {
			return export.WriteGeoJSON(w, out)
		}
		return export.WriteReport(w, f, out.Report)
	}

	if a.cfg.Output == "-" || a.cfg.Output == "" {
		return write(os.Stdout)
	}
	if err := export.ToFile(a.cfg.Output, write); err != nil {
		return err
	}
	a.logger.Info().Str("path", a.cfg.Output).Str("format", a.cfg.Format).Msg("report written")
	return nil
}

func (a *app) runValidate(projectDir, name string) error {
	p, name, report, err := loadAndValidate(projectDir, name)
	if err != nil {
		return err
	}
	if report.Valid {
		ngdLayer, egpLayer, err := p.Layers(name)
		if err != nil {
			return err
		}
		ngd, egp, err := source.LoadPair(ngdLayer, egpLayer)
		if err != nil {
			return err
		}
		store, err := pipeline.LoadStore(ngd, egp, pipeline.Options{
			Tolerance: p.ToleranceOr(geo.DefaultTolerance),
			Logger:    a.logger,
		})
		if err != nil {
			report.Merge(validation.FromError(err))
		} else {
			report.Merge(validation.ValidatePartition(store.NGD))
			report.Merge(validation.ValidatePartition(store.EGP))
		}
	}

	printValidationReport(os.Stdout, report)
	if !report.Valid {
		return fmt.Errorf("validation failed")
	}
	return nil
}

func (a *app) runServe(ctx context.Context, projectDir, name string) error {
	rec := metrics.New()
	out, report, err := a.conflate(ctx, projectDir, name, rec)
	if err != nil {
		if report != nil {
			printValidationReport(os.Stderr, report)
		}
		return err
	}
	return server.New(a.cfg.Addr, out, rec, a.logger).Start(ctx)
}

// synthSource is the source name of generated projects.
const synthSource = "synth"

func (a *app) runSynth(outDir string, o synth.Options) error {
	ngd, egp, err := synth.Pair(o)
	if err != nil {
		return err
	}
	const crs = "EPSG:3348"
	files := []struct {
		name  string
		layer pipeline.Layer
	}{
		{"ngd.geojson", pipeline.Layer{CRS: crs, Blocks: ngd}},
		{"egp.geojson", pipeline.Layer{CRS: crs, Blocks: egp}},
	}
	for _, f := range files {
		l := f.layer
		path := filepath.Join(outDir, f.name)
		if err := export.ToFile(path, func(w io.Writer) error { return export.WriteLayer(w, l, "BB_UID") }); err != nil {
			return err
		}
		a.logger.Info().Str("path", path).Int("blocks", len(l.Blocks)).Msg("layer written")
	}

	threshold := 0.8
	p := project.Project{
		Version:   "1",
		Name:      fmt.Sprintf("synth-%d", o.Seed),
		CRS:       crs,
		Threshold: &threshold,
		IDFields:  project.IDFields{NGD: "BB_UID", EGP: "BB_UID"},
		Sources: map[string]project.Source{
			synthSource: {NGD: "ngd.geojson", EGP: "egp.geojson"},
		},
	}
	data, err := yaml.Marshal(&p)
	if err != nil {
		return fmt.Errorf("encoding project: %w", err)
	}
	path := filepath.Join(outDir, project.FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing project: %w", err)
	}
	a.logger.Info().Str("path", path).Msg("project written")
	return nil
}
