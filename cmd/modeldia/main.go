package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/spf13/pflag"

	"github.com/ritzau/modeldia/pkg/analysis"
	"github.com/ritzau/modeldia/pkg/config"
	"github.com/ritzau/modeldia/pkg/diagram"
	"github.com/ritzau/modeldia/pkg/finder"
	"github.com/ritzau/modeldia/pkg/graph"
	"github.com/ritzau/modeldia/pkg/inspect"
	"github.com/ritzau/modeldia/pkg/logging"
	"github.com/ritzau/modeldia/pkg/manifest"
	"github.com/ritzau/modeldia/pkg/model"
	"github.com/ritzau/modeldia/pkg/output"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := config.NewFlagSet("modeldia")
	f.SetOutput(stderr)
	f.Usage = func() {
		fmt.Fprintf(stderr, "Usage: modeldia [flags] [app ...]\n\nDraws the models of the given apps as a Dia diagram.\n\n")
		f.PrintDefaults()
	}
	if err := f.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(f)
	if err != nil {
		return err
	}
	logging.Setup(stderr, logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt), cfg.LogFormat)
	ctx = logging.NewRun(ctx)

	reg, err := loadRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	// Select models
	apps, err := analysis.TargetApps(reg, cfg.Apps, cfg.AllApplications)
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		logging.WarnContext(ctx, "no applications selected, pass app labels or --all-applications")
	}
	excludeModels, err := finder.ParseFileOrList(cfg.ExcludeModels)
	if err != nil {
		return fmt.Errorf("exclude models: %w", err)
	}
	analysis.CheckExcluded(reg, excludeModels)

	models := analysis.ModelList(apps, excludeModels)
	models = analysis.IncludeRelated(reg, models, cfg.IncludeRelated, excludeModels)
	logging.DebugContext(ctx, "models selected", "apps", len(apps), "models", len(models))
	for _, m := range models {
		logging.TraceContext(ctx, "model selected", "model", m.Label())
	}

	if cfg.Pretend {
		return output.PrintModelList(stdout, analysis.ModelLabels(models))
	}

	// Build records
	excludeColumns, err := finder.ParseFileOrList(cfg.ExcludeColumns)
	if err != nil {
		return fmt.Errorf("exclude columns: %w", err)
	}
	tables, relations := analysis.Build(models, analysis.Options{
		VerboseNames:   cfg.VerboseNames,
		ExcludeColumns: excludeColumns,
		SortFields:     !cfg.DisableSortFields,
		Inheritance:    cfg.Inheritance,
	})

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	logging.DebugContext(ctx, "preparing diagram", "tables", len(tables), "relations", len(relations), "seed", seed)
	rnd := diagram.NewRand(seed)
	doc := diagram.Prepare(tables, relations, rnd, diagram.NewPalette(rnd))

	// Write
	if cfg.Output == "" {
		return diagram.Write(stdout, doc, cfg.Bezier)
	}
	name, err := output.WriteFile(cfg.Output, doc, cfg.Bezier)
	if err != nil {
		return err
	}
	output.PrintSummary(stderr, summarize(name, doc, reg, models))
	return nil
}

func loadRegistry(ctx context.Context, cfg *config.Config) (*model.Registry, error) {
	source, err := cfg.Source()
	if err != nil {
		return nil, err
	}
	opts := inspect.Options{
		Schemas:            cfg.SchemaList(),
		CollapseJoinTables: cfg.CollapseJoinTables,
	}

	var reg *model.Registry
	switch source {
	case config.SourceManifest:
		reg, err = manifest.Load(cfg.Models)
	case config.SourceDatabase:
		reg, err = inspect.Database(ctx, cfg.Database, opts)
	case config.SourceSchemaFile:
		reg, err = inspect.SchemaFile(cfg.SchemaFile, cfg.Dialect, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("loading models from %s: %w", source, err)
	}
	logging.InfoContext(ctx, "models loaded", "source", source, "apps", len(reg.Apps), "models", len(reg.Models()))
	return reg, nil
}

// summarize reports what was drawn, including the reference cycles among drawn models
func summarize(name string, doc *diagram.Document, reg *model.Registry, models []*model.Model) output.Summary {
	s := output.Summary{
		Output:    name,
		Tables:    len(doc.Tables),
		Relations: len(doc.Relations),
	}
	for _, r := range doc.Skipped {
		s.Skipped = append(s.Skipped, r.Start.Entity+" -> "+r.End.Entity)
	}

	drawn := make(map[string]bool, len(models))
	for _, m := range models {
		drawn[m.Label()] = true
	}
	for _, cycle := range graph.BuildModelGraph(reg).Cycles() {
		all := true
		for _, label := range cycle {
			all = all && drawn[label]
		}
		if all {
			s.Cycles = append(s.Cycles, cycle)
		}
	}
	return s
}
