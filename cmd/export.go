package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scrapify/internal/repositories"
	"github.com/desertthunder/scrapify/internal/shared"
	"github.com/desertthunder/scrapify/internal/tasks"
	"github.com/urfave/cli/v3"
)

// users returns the --users values followed by any positional arguments.
func users(cmd *cli.Command) []string {
	ids := []string{}
	for _, id := range append(cmd.StringSlice("users"), cmd.Args().Slice()...) {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Export writes the requested tables for every user, one user at a time. The first failing export
// stops the run; files already written for earlier users are left as they are.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	ids := users(cmd)
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one user is required (--users)", shared.ErrMissingArgument)
	}

	outputDir := cmd.String("output")
	if outputDir == "" {
		outputDir = r.config.Export.OutputDir
	}
	if err := shared.EnsureDir(outputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	features, tracks := cmd.Bool("features"), cmd.Bool("tracks")
	if !features && !tracks {
		r.logger.Info("nothing to export, pass --tracks and/or --features")
		return nil
	}

	catalog, err := r.authenticatedCatalog(ctx)
	if err != nil {
		return err
	}
	defer r.saveToken()

	opts := tasks.EngineOpts{
		Catalog:   catalog,
		OutputDir: outputDir,
		Opener:    r.opener,
		Logger:    r.logger,
	}

	db, err := r.openLedger()
	if err != nil {
		r.logger.Warn("export history disabled", "error", err)
	} else if db != nil {
		defer db.Close()
		opts.Recorder = repositories.NewExportRepository(db)
	}

	engine := tasks.NewExportEngine(opts)

	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if err := r.writeLine(r.palette.ProgressLine(update)); err != nil {
				r.logger.Warn("failed to write progress", "error", err)
			}
		}
	}()
	defer func() {
		close(progress)
		wg.Wait()
	}()

	for _, id := range ids {
		logger := shared.WithLogger(r.logger, "user", id)

		if features {
			if err := r.exportOne(ctx, logger, id, tasks.KindFeatures, engine.ExportFeatures, progress); err != nil {
				return err
			}
		}
		if tracks {
			if err := r.exportOne(ctx, logger, id, tasks.KindTracks, engine.ExportTracks, progress); err != nil {
				return err
			}
		}
	}

	return nil
}

type exportFunc func(ctx context.Context, progress chan<- tasks.ProgressUpdate, userID string) (*tasks.ExportResult, error)

func (r *Runner) exportOne(
	ctx context.Context,
	logger *log.Logger,
	userID string,
	kind tasks.Kind,
	run exportFunc,
	progress chan<- tasks.ProgressUpdate,
) error {
	logger.Info("export started", "kind", kind)

	result, err := run(ctx, progress, userID)
	if err != nil {
		return fmt.Errorf("%s export for %s failed: %w", kind, userID, err)
	}

	logger.Info("export finished",
		"prefix", result.Prefix,
		"kind", result.Kind,
		"rows", result.Rows,
		"path", result.Path,
	)
	return nil
}
