package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/scrapify/internal/shared"
	"github.com/desertthunder/scrapify/internal/tasks"
)

// Status is the lifecycle state of an export run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Export is a persisted export run.
type Export struct {
	ID         string
	UserID     string
	Prefix     string
	Kind       tasks.Kind
	Path       string
	Status     Status
	Rows       int
	Playlists  int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Duration is the wall time of a finished run, or zero while it is running.
func (e *Export) Duration() time.Duration {
	if e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// ExportRepository stores export runs.
type ExportRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewExportRepository creates a new ExportRepository with the given database connection
func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db, now: time.Now}
}

const exportColumns = `id, user_id, prefix, kind, path, status, row_count, playlist_count, error, started_at, finished_at`

// Start inserts a running export and returns its generated ID.
func (r *ExportRepository) Start(user, prefix string, kind tasks.Kind, path string) (string, error) {
	if user == "" {
		return "", fmt.Errorf("%w: user id is required", shared.ErrMissingArgument)
	}
	if kind != tasks.KindTracks && kind != tasks.KindFeatures {
		return "", fmt.Errorf("%w: unknown export kind %q", shared.ErrInvalidArgument, kind)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO exports (id, user_id, prefix, kind, path, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, id, user, prefix, string(kind), path, string(StatusRunning), r.now().UTC()); err != nil {
		return "", fmt.Errorf("failed to insert export: %w", err)
	}

	return id, nil
}

// Finish marks the export completed, or failed when exportErr is non-nil, storing the row and playlist counts
// from result.
func (r *ExportRepository) Finish(id string, result *tasks.ExportResult, exportErr error) error {
	status := StatusCompleted
	var message any
	if exportErr != nil {
		status = StatusFailed
		message = exportErr.Error()
	}

	var rows, playlists int
	if result != nil {
		rows, playlists = result.Rows, result.Playlists
	}

	query := `
		UPDATE exports
		SET status = ?, row_count = ?, playlist_count = ?, error = ?, finished_at = ?
		WHERE id = ? AND status = ?
	`

	res, err := r.db.Exec(query, string(status), rows, playlists, message, r.now().UTC(), id, string(StatusRunning))
	if err != nil {
		return fmt.Errorf("failed to update export: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: no running export %s", shared.ErrNotFound, id)
	}

	return nil
}

// Get retrieves an export by ID
func (r *ExportRepository) Get(id string) (*Export, error) {
	query := `SELECT ` + exportColumns + ` FROM exports WHERE id = ?`

	export, err := scanExport(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: export %s", shared.ErrNotFound, id)
	}
	return export, err
}

// List retrieves exports matching the given criteria, newest first.
//
// Supported criteria: "user_id" (string), "kind" (string), "status" (string) and "limit" (int).
func (r *ExportRepository) List(criteria map[string]any) ([]*Export, error) {
	query := `SELECT ` + exportColumns + ` FROM exports WHERE 1 = 1`
	args := []any{}

	for _, key := range []string{"user_id", "kind", "status"} {
		if value, ok := criteria[key].(string); ok && value != "" {
			query += " AND " + key + " = ?"
			args = append(args, value)
		}
	}

	query += " ORDER BY started_at DESC, rowid DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	var exports []*Export
	for rows.Next() {
		export, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		exports = append(exports, export)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return exports, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExport(row scanner) (*Export, error) {
	var (
		export     Export
		kind       string
		status     string
		message    sql.NullString
		finishedAt sql.NullTime
	)

	err := row.Scan(
		&export.ID, &export.UserID, &export.Prefix, &kind, &export.Path, &status,
		&export.Rows, &export.Playlists, &message, &export.StartedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan export: %w", err)
	}

	export.Kind = tasks.Kind(kind)
	export.Status = Status(status)
	export.Error = message.String
	if finishedAt.Valid {
		export.FinishedAt = &finishedAt.Time
	}

	return &export, nil
}

var _ tasks.ExportRecorder = (*ExportRepository)(nil)
