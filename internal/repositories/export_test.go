package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/scrapify/internal/shared"
	"github.com/desertthunder/scrapify/internal/tasks"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenLedger(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// newTestRepository returns a repository whose clock advances one second per call.
func newTestRepository(t *testing.T) *ExportRepository {
	t.Helper()

	repo := NewExportRepository(setupTestDB(t))
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func TestExportRepository(t *testing.T) {
	t.Run("Start", func(t *testing.T) {
		repo := newTestRepository(t)

		id, err := repo.Start("u1", "Jane_Doe", tasks.KindTracks, "data/Jane_Doe_tracks.csv")
		if err != nil {
			t.Fatalf("failed to start export: %v", err)
		}
		if id == "" {
			t.Fatal("export ID should be set")
		}

		export, err := repo.Get(id)
		if err != nil {
			t.Fatalf("failed to get export: %v", err)
		}

		if export.Status != StatusRunning {
			t.Errorf("expected status %s, got %s", StatusRunning, export.Status)
		}
		if export.UserID != "u1" || export.Prefix != "Jane_Doe" || export.Kind != tasks.KindTracks {
			t.Errorf("unexpected export %+v", export)
		}
		if export.FinishedAt != nil {
			t.Error("running export should have no finish time")
		}
		if export.Duration() != 0 {
			t.Errorf("expected zero duration, got %s", export.Duration())
		}
	})

	t.Run("Finish", func(t *testing.T) {
		repo := newTestRepository(t)

		id, err := repo.Start("u1", "u1", tasks.KindFeatures, "data/u1_features.csv")
		if err != nil {
			t.Fatalf("failed to start export: %v", err)
		}

		result := &tasks.ExportResult{User: "u1", Kind: tasks.KindFeatures, Rows: 42, Playlists: 3}
		if err := repo.Finish(id, result, nil); err != nil {
			t.Fatalf("failed to finish export: %v", err)
		}

		export, err := repo.Get(id)
		if err != nil {
			t.Fatalf("failed to get export: %v", err)
		}

		if export.Status != StatusCompleted {
			t.Errorf("expected status %s, got %s", StatusCompleted, export.Status)
		}
		if export.Rows != 42 || export.Playlists != 3 {
			t.Errorf("expected 42 rows in 3 playlists, got %d in %d", export.Rows, export.Playlists)
		}
		if export.Error != "" {
			t.Errorf("expected no error, got %q", export.Error)
		}
		if export.Duration() != time.Second {
			t.Errorf("expected duration 1s, got %s", export.Duration())
		}
	})

	t.Run("FinishWithError", func(t *testing.T) {
		repo := newTestRepository(t)

		id, err := repo.Start("u1", "u1", tasks.KindTracks, "data/u1_tracks.csv")
		if err != nil {
			t.Fatalf("failed to start export: %v", err)
		}

		if err := repo.Finish(id, nil, errors.New("status 500")); err != nil {
			t.Fatalf("failed to finish export: %v", err)
		}

		export, err := repo.Get(id)
		if err != nil {
			t.Fatalf("failed to get export: %v", err)
		}
		if export.Status != StatusFailed {
			t.Errorf("expected status %s, got %s", StatusFailed, export.Status)
		}
		if export.Error != "status 500" {
			t.Errorf("expected error message, got %q", export.Error)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := newTestRepository(t)

		first, _ := repo.Start("u1", "u1", tasks.KindFeatures, "a")
		second, _ := repo.Start("u1", "u1", tasks.KindTracks, "b")
		third, _ := repo.Start("u2", "u2", tasks.KindTracks, "c")
		if err := repo.Finish(first, &tasks.ExportResult{}, nil); err != nil {
			t.Fatalf("failed to finish export: %v", err)
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     []string
		}{
			{"all newest first", nil, []string{third, second, first}},
			{"by user", map[string]any{"user_id": "u1"}, []string{second, first}},
			{"by kind", map[string]any{"kind": "tracks"}, []string{third, second}},
			{"by status", map[string]any{"status": "completed"}, []string{first}},
			{"with limit", map[string]any{"limit": 1}, []string{third}},
			{"no match", map[string]any{"user_id": "u3"}, nil},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				exports, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list exports: %v", err)
				}
				if len(exports) != len(tt.want) {
					t.Fatalf("expected %d exports, got %d", len(tt.want), len(exports))
				}
				for i, id := range tt.want {
					if exports[i].ID != id {
						t.Errorf("export %d: expected %s, got %s", i, id, exports[i].ID)
					}
				}
			})
		}
	})
}

func TestExportRepositoryErrors(t *testing.T) {
	t.Run("Start", func(t *testing.T) {
		repo := newTestRepository(t)

		if _, err := repo.Start("", "p", tasks.KindTracks, "x"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if _, err := repo.Start("u1", "p", tasks.Kind("albums"), "x"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := newTestRepository(t)

		if _, err := repo.Get("nonexistent-id"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Finish", func(t *testing.T) {
		repo := newTestRepository(t)

		if err := repo.Finish("nonexistent-id", nil, nil); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		id, _ := repo.Start("u1", "u1", tasks.KindTracks, "x")
		if err := repo.Finish(id, nil, nil); err != nil {
			t.Fatalf("failed to finish export: %v", err)
		}
		if err := repo.Finish(id, nil, nil); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("finishing twice: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ClosedDatabase", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewExportRepository(db)
		db.Close()

		if _, err := repo.Start("u1", "u1", tasks.KindTracks, "x"); err == nil {
			t.Error("expected error on closed database")
		}
		if _, err := repo.List(nil); err == nil {
			t.Error("expected error on closed database")
		}
	})
}
