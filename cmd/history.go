package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/scrapify/internal/repositories"
	"github.com/desertthunder/scrapify/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints recorded exports, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if r.config.Database.Path == "" {
		return fmt.Errorf("%w: database.path is empty, export history is disabled", shared.ErrInvalidConfig)
	}

	db, err := r.openLedger()
	if err != nil {
		return err
	}
	defer db.Close()

	exports, err := repositories.NewExportRepository(db).List(map[string]any{
		"user_id": cmd.String("user"),
		"status":  cmd.String("status"),
		"limit":   cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if len(exports) == 0 {
		return r.writeLine(r.palette.Help("No exports recorded yet."))
	}

	return r.writeLine(r.palette.HistoryTable(exports))
}
