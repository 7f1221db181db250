// Package repositories implements SQLite persistence for the export ledger.
//
// The ledger keeps one row per user export run: who was exported, which kind, where the file went,
// and how it ended. Rows are never deleted; a run that crashes mid-way stays in the running status.
//
// Key Implementations:
//   - [ExportRepository] : Export run history with status tracking; satisfies tasks.ExportRecorder
package repositories
