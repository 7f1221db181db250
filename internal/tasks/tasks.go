// package tasks implements the export pipeline.
//
// The core abstraction is [ExportEngine], which walks a user's playlists and playlist items through
// the catalog, normalizes them and streams rows into one table per user and export kind.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scrapify/internal/formatter"
	"github.com/desertthunder/scrapify/internal/models"
	"github.com/desertthunder/scrapify/internal/pager"
	"github.com/desertthunder/scrapify/internal/services"
	"github.com/desertthunder/scrapify/internal/shared"
)

// Catalog is the remote collection API the engine reads from. Paginated methods take the cursor
// returned in the previous page's Next field, or nil for the first page.
type Catalog interface {
	User(ctx context.Context, userID string) (*services.SpotifyUser, error)
	UserPlaylists(ctx context.Context, userID string, cursor *string) (*services.Paging[services.SpotifyPlaylist], error)
	PlaylistItems(ctx context.Context, playlistID string, cursor *string) (*services.Paging[services.SpotifyPlaylistItem], error)
	AudioFeatures(ctx context.Context, trackIDs []string) ([]*services.SpotifyAudioFeatures, error)
}

// ExportRecorder is an optional ledger of export runs. Recorder failures are logged and never
// abort an export.
type ExportRecorder interface {
	Start(user, prefix string, kind Kind, path string) (string, error)
	Finish(id string, result *ExportResult, exportErr error) error
}

// Kind names an export variant.
type Kind string

const (
	KindTracks   Kind = "tracks"
	KindFeatures Kind = "features"
)

// Label is the human form used in progress messages.
func (k Kind) Label() string {
	if k == KindFeatures {
		return "audio features"
	}
	return string(k)
}

// Columns returns the fixed header for the kind.
func (k Kind) Columns() []string {
	if k == KindFeatures {
		return models.FeatureColumns
	}
	return models.TrackColumns
}

// ExportResult summarizes one user's export.
type ExportResult struct {
	User      string
	Prefix    string
	Kind      Kind
	Path      string
	Playlists int
	Rows      int
}

// ExportEngine drives exports. It issues one catalog request at a time and owns each output table
// for the duration of a single user's export.
type ExportEngine struct {
	catalog   Catalog
	outputDir string
	open      formatter.Opener
	recorder  ExportRecorder
	logger    *log.Logger
}

// EngineOpts contains configuration for [NewExportEngine].
type EngineOpts struct {
	Catalog   Catalog
	OutputDir string           // defaults to ./data
	Opener    formatter.Opener // defaults to [formatter.OpenCSV]
	Recorder  ExportRecorder   // optional
	Logger    *log.Logger
}

// NewExportEngine creates a new ExportEngine with the provided options.
func NewExportEngine(opts EngineOpts) *ExportEngine {
	if opts.OutputDir == "" {
		opts.OutputDir = "./data"
	}
	if opts.Opener == nil {
		opts.Opener = formatter.OpenCSV
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &ExportEngine{
		catalog:   opts.Catalog,
		outputDir: opts.OutputDir,
		open:      opts.Opener,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *ExportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// PrefixFor derives the file prefix for user: the display name with spaces replaced by
// underscores, or userID when the display name is null or empty.
func PrefixFor(user *services.SpotifyUser, userID string) string {
	if user == nil || user.DisplayName == nil || *user.DisplayName == "" {
		return userID
	}
	return strings.ReplaceAll(*user.DisplayName, " ", "_")
}

// Prefix looks up userID and returns its file prefix.
func (e *ExportEngine) Prefix(ctx context.Context, userID string) (string, error) {
	user, err := e.catalog.User(ctx, userID)
	if err != nil {
		return "", err
	}
	return PrefixFor(user, userID), nil
}

// Path returns the output file for prefix and kind.
func (e *ExportEngine) Path(prefix string, kind Kind) string {
	return filepath.Join(e.outputDir, fmt.Sprintf("%s_%s.csv", prefix, kind))
}

// Playlists lazily walks userID's playlists, one normalized [models.Playlist] at a time.
func (e *ExportEngine) Playlists(ctx context.Context, userID string) iter.Seq2[models.Playlist, error] {
	fetch := func(ctx context.Context, cursor *string) (pager.Page[services.SpotifyPlaylist], error) {
		return toPage(e.catalog.UserPlaylists(ctx, userID, cursor))
	}
	return pager.Map(pager.Items(ctx, fetch), func(raw services.SpotifyPlaylist) (models.Playlist, error) {
		return models.NewPlaylist(raw), nil
	})
}

// ItemBatches lazily walks a playlist's items one page at a time. Items without a track (removed or
// unavailable) are dropped before the batch is yielded, and pages left empty yield nothing.
func (e *ExportEngine) ItemBatches(ctx context.Context, playlistID string) iter.Seq2[[]services.SpotifyPlaylistItem, error] {
	fetch := func(ctx context.Context, cursor *string) (pager.Page[services.SpotifyPlaylistItem], error) {
		return toPage(e.catalog.PlaylistItems(ctx, playlistID, cursor))
	}
	return pager.Batches(ctx, fetch, hasTrack)
}

func hasTrack(item services.SpotifyPlaylistItem) bool {
	return item.Track != nil
}

func toPage[T any](p *services.Paging[T], err error) (pager.Page[T], error) {
	if err != nil {
		return pager.Page[T]{}, err
	}
	return pager.Page[T]{Items: p.Items, Next: p.Next}, nil
}

// batchWriter writes the rows derived from one item batch of playlist.
type batchWriter func(ctx context.Context, w formatter.TableWriter, playlist models.Playlist, batch []services.SpotifyPlaylistItem) error

// export runs one user's export: resolve prefix, open output, write every batch of every playlist,
// close output. The output is closed on every path.
func (e *ExportEngine) export(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	userID string,
	kind Kind,
	write batchWriter,
) (result *ExportResult, err error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrNotAuthenticated)
	}

	prefix, err := e.Prefix(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve prefix for %s: %w", userID, err)
	}

	result = &ExportResult{User: userID, Prefix: prefix, Kind: kind, Path: e.Path(prefix, kind)}
	logger := shared.WithLogger(e.logger, "user", userID, "kind", kind)

	ledgerID := e.recordStart(logger, result)
	defer func() { e.recordFinish(logger, ledgerID, result, err) }()

	w, err := e.open(result.Path, kind.Columns())
	if err != nil {
		return result, err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		result.Rows = w.Rows()
	}()

	e.sendProgress(progress, exportStartedUpdate(userID, prefix, kind, result.Path))

	for playlist, err := range e.Playlists(ctx, userID) {
		if err != nil {
			return result, fmt.Errorf("failed to list playlists of %s: %w", userID, err)
		}

		for batch, err := range e.ItemBatches(ctx, playlist.ID) {
			if err != nil {
				return result, fmt.Errorf("failed to list items of playlist %s: %w", playlist.ID, err)
			}
			if err := write(ctx, w, playlist, batch); err != nil {
				return result, err
			}
		}

		result.Playlists++
		result.Rows = w.Rows()
		logger.Debug("playlist exported", "playlist", playlist.ID, "name", playlist.String(), "rows", result.Rows)
		e.sendProgress(progress, playlistExportedUpdate(result, playlist.String()))
	}

	result.Rows = w.Rows()
	e.sendProgress(progress, exportFinishedUpdate(result))
	return result, nil
}

func (e *ExportEngine) recordStart(logger *log.Logger, r *ExportResult) string {
	if e.recorder == nil {
		return ""
	}
	id, err := e.recorder.Start(r.User, r.Prefix, r.Kind, r.Path)
	if err != nil {
		logger.Warn("failed to record export start", "error", err)
		return ""
	}
	return id
}

func (e *ExportEngine) recordFinish(logger *log.Logger, id string, r *ExportResult, exportErr error) {
	if e.recorder == nil || id == "" {
		return
	}
	if err := e.recorder.Finish(id, r, exportErr); err != nil {
		logger.Warn("failed to record export result", "error", err)
	}
}
