package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/scrapify/internal/repositories"
	"github.com/desertthunder/scrapify/internal/tasks"
)

const timeLayout = "2006-01-02 15:04:05"

// ProgressLine renders one progress update as a single status line.
func (p *Palette) ProgressLine(u tasks.ProgressUpdate) string {
	switch u.Phase {
	case tasks.ExportStarted:
		return p.Title("→ ") + u.Message
	case tasks.PlaylistExported:
		return p.Help(fmt.Sprintf("  %s (%d rows so far)", u.Message, u.Rows))
	case tasks.ExportFinished:
		return p.OK("✓ ") + fmt.Sprintf("%s: %d rows from %d playlists → %s", u.Message, u.Rows, u.Step, u.Path)
	default:
		return u.Message
	}
}

// ResultLine summarizes a finished export.
func (p *Palette) ResultLine(r *tasks.ExportResult) string {
	return p.OK("✓ ") + fmt.Sprintf("%s %s: %d rows from %d playlists → %s", r.Prefix, r.Kind, r.Rows, r.Playlists, r.Path)
}

// HistoryTable renders ledger entries as a bordered table, newest first as given.
func (p *Palette) HistoryTable(exports []*repositories.Export) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.help).
		Headers("STARTED", "USER", "KIND", "STATUS", "ROWS", "PLAYLISTS", "DURATION", "PATH").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.title
			}
			return lipgloss.NewStyle()
		})

	for _, e := range exports {
		t.Row(
			e.StartedAt.Local().Format(timeLayout),
			e.UserID,
			string(e.Kind),
			p.status(e.Status),
			strconv.Itoa(e.Rows),
			strconv.Itoa(e.Playlists),
			formatDuration(e.Duration()),
			e.Path,
		)
	}

	return t.Render()
}

func (p *Palette) status(s repositories.Status) string {
	switch s {
	case repositories.StatusCompleted:
		return p.OK(string(s))
	case repositories.StatusFailed:
		return p.Err(string(s))
	default:
		return p.Warn(string(s))
	}
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
