package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/scrapify/internal/formatter"
	"github.com/desertthunder/scrapify/internal/models"
	"github.com/desertthunder/scrapify/internal/services"
)

// ExportTracks writes one row per track of every playlist owned or followed by userID to
// <prefix>_tracks.csv. Rows follow playlist order, then item order within each playlist.
func (e *ExportEngine) ExportTracks(ctx context.Context, progress chan<- ProgressUpdate, userID string) (*ExportResult, error) {
	return e.export(ctx, progress, userID, KindTracks, writeTracks)
}

// ExportFeatures writes the audio features of every track of every playlist of userID to
// <prefix>_features.csv. Lookups are issued once per item batch, split into chunks the catalog
// accepts, and tracks the catalog has no features for are skipped.
func (e *ExportEngine) ExportFeatures(ctx context.Context, progress chan<- ProgressUpdate, userID string) (*ExportResult, error) {
	return e.export(ctx, progress, userID, KindFeatures, e.writeFeatures)
}

func writeTracks(_ context.Context, w formatter.TableWriter, playlist models.Playlist, batch []services.SpotifyPlaylistItem) error {
	for _, item := range batch {
		track, err := models.NewTrack(item, playlist.ID)
		if err != nil {
			return fmt.Errorf("playlist %s: %w", playlist.ID, err)
		}
		if err := writeRow(w, track); err != nil {
			return err
		}
	}
	return nil
}

func (e *ExportEngine) writeFeatures(ctx context.Context, w formatter.TableWriter, playlist models.Playlist, batch []services.SpotifyPlaylistItem) error {
	ids := TrackIDs(batch)
	for chunk := range slices.Chunk(ids, services.MaxAudioFeatureIDs) {
		raw, err := e.catalog.AudioFeatures(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to get audio features for playlist %s: %w", playlist.ID, err)
		}
		for _, feature := range models.NewAudioFeatures(raw) {
			if err := writeRow(w, feature); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRow(w formatter.TableWriter, row models.Row) error {
	return w.WriteRow(row.Record())
}

// TrackIDs collects the ids of the tracks in batch, in order. Local files and other tracks
// without an id are left out.
func TrackIDs(batch []services.SpotifyPlaylistItem) []string {
	ids := make([]string, 0, len(batch))
	for _, item := range batch {
		if item.Track == nil || item.Track.ID == nil || *item.Track.ID == "" {
			continue
		}
		ids = append(ids, *item.Track.ID)
	}
	return ids
}
