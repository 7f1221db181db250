// Package ui renders terminal output with lipgloss: status lines for export progress and a table
// for the export history.
package ui
