package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during an export.
//
// Used to send per-user updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Export phase
	User    string // Target user id
	Prefix  string // Output file prefix
	Kind    Kind   // Export kind
	Step    int    // Playlists finished so far
	Rows    int    // Rows written so far
	Path    string // Output file
	Message string // Human-readable message for display
}

// Phase enumerates export phases.
type Phase int

const (
	ExportStarted Phase = iota
	PlaylistExported
	ExportFinished
)

func (p Phase) String() string {
	switch p {
	case ExportStarted:
		return "export_started"
	case PlaylistExported:
		return "playlist_exported"
	case ExportFinished:
		return "export_finished"
	default:
		return ""
	}
}

func exportStartedUpdate(user, prefix string, kind Kind, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportStarted,
		User:    user,
		Prefix:  prefix,
		Kind:    kind,
		Path:    path,
		Message: fmt.Sprintf("Getting %s for %s...", kind.Label(), prefix),
	}
}

func playlistExportedUpdate(r *ExportResult, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PlaylistExported,
		User:    r.User,
		Prefix:  r.Prefix,
		Kind:    r.Kind,
		Step:    r.Playlists,
		Rows:    r.Rows,
		Path:    r.Path,
		Message: fmt.Sprintf("Exported playlist %q", name),
	}
}

func exportFinishedUpdate(r *ExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportFinished,
		User:    r.User,
		Prefix:  r.Prefix,
		Kind:    r.Kind,
		Step:    r.Playlists,
		Rows:    r.Rows,
		Path:    r.Path,
		Message: fmt.Sprintf("Done with %s for %s", r.Kind.Label(), r.Prefix),
	}
}
