// Package models normalizes raw catalog records into flat export rows.
//
// Each normalizer builds an immutable value from one raw record:
//   - [Playlist] : playlist metadata; [Playlist.Len] is the track count, 0 when empty
//   - [Track] : one playlist item joined with the enclosing playlist id
//   - [AudioFeature] : the exported subset of a track's audio features
//
// Rows implement [Row]; [Row.Record] keys values by column name, and [TrackColumns] and
// [FeatureColumns] fix the output order. Absent values are empty strings.
package models
