package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/scrapify/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the embedded template when missing and initializes the export ledger.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); os.IsNotExist(err) {
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}
		r.logger.Info("config file created", "path", r.configPath)
		if err := r.writePlain("✓ Config written to %s, add your Spotify client_id and client_secret\n", r.configPath); err != nil {
			return err
		}

		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return err
		}
		r.config = config
	}

	if r.config.Database.Path == "" {
		r.logger.Info("database path is empty, export history disabled")
		return nil
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	db, err := r.openLedger()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}
