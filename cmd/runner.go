package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scrapify/internal/formatter"
	"github.com/desertthunder/scrapify/internal/services"
	"github.com/desertthunder/scrapify/internal/shared"
	"github.com/desertthunder/scrapify/internal/tasks"
	"github.com/desertthunder/scrapify/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    *services.SpotifyService
	catalog    tasks.Catalog
	opener     formatter.Opener
	logger     *log.Logger
	output     io.Writer
	palette    *ui.Palette
	options    []services.Option
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config // loaded from --config when nil
	ConfigPath string
	Catalog    tasks.Catalog    // built from the stored Spotify credentials when nil
	Opener     formatter.Opener // defaults to CSV files
	Logger     *log.Logger
	Output     io.Writer
	Options    []services.Option // extra options for the Spotify client
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Opener == nil {
		opts.Opener = formatter.OpenCSV
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		opener:     opts.Opener,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    ui.Styles,
		options:    opts.Options,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){authCommand, setupCommand, historyCommand} {
		commands = append(commands, fn(r))
	}
	return commands
}

// Init runs before every command: it applies --verbose and loads the config named by --config
// unless one was injected.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if path := cmd.String("config"); path != "" && r.configPath == "" {
		r.configPath = path
	}

	if r.config != nil {
		return ctx, nil
	}

	config, err := shared.LoadConfigOrDefault(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config
	r.logger.Debug("configuration loaded", "path", r.configPath)

	return ctx, nil
}

// spotifyService builds the Spotify client from the configured credentials.
func (r *Runner) spotifyService() (*services.SpotifyService, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	opts := append([]services.Option{services.WithRequestsPerSecond(r.config.Export.RequestsPerSecond)}, r.options...)
	svc, err := services.NewSpotifyService(creds.Map(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}

	r.spotify = svc
	return svc, nil
}

// authenticatedCatalog returns the injected catalog or a Spotify client using the stored tokens.
func (r *Runner) authenticatedCatalog(ctx context.Context) (tasks.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	svc, err := r.spotifyService()
	if err != nil {
		return nil, err
	}

	if err := svc.Authenticate(ctx, r.config.Credentials.Spotify.Session()); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return nil, fmt.Errorf("%w (run 'scrapify auth' first)", err)
		}
		return nil, err
	}

	r.catalog = svc
	return svc, nil
}

// saveToken persists the client's current token when it was refreshed during the run.
func (r *Runner) saveToken() {
	if r.spotify == nil || r.configPath == "" {
		return
	}

	token, err := r.spotify.Token()
	if err != nil {
		r.logger.Warn("failed to read current token", "error", err)
		return
	}

	stored := r.config.Credentials.Spotify
	if token.AccessToken == stored.AccessToken && token.Expiry.Equal(stored.TokenExpiry) {
		return
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		r.logger.Warn("failed to update token", "error", err)
		return
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to save refreshed token", "error", err)
		return
	}
	r.logger.Debug("refreshed token saved", "path", r.configPath)
}

// openLedger opens the export ledger. An empty database path disables it.
func (r *Runner) openLedger() (*sql.DB, error) {
	path := r.config.Database.Path
	if path == "" {
		return nil, nil
	}
	return shared.OpenLedger(path)
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeLine(line string) error {
	return r.writePlain("%s\n", line)
}
