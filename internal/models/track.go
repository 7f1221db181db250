package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/scrapify/internal/services"
	"github.com/desertthunder/scrapify/internal/shared"
)

const (
	addedAtLayout   = "2006-01-02T15:04:05Z"
	addedAtDisplay  = "02-01-2006 15-04-05"
	artistSeparator = ","
)

// TrackColumns is the header of the tracks export, in output order.
var TrackColumns = []string{
	"id", "name", "album_id", "album_name",
	"album_type", "release_date", "artists",
	"popularity", "is_episode", "is_explicit",
	"type", "preview_url", "playlist_id",
	"added_at", "added_by",
}

// Track is one row of the tracks export: a playlist item joined with its enclosing playlist id.
type Track struct {
	ID          *string
	Name        string
	AlbumID     *string
	AlbumName   string
	AlbumType   *string
	ReleaseDate *string
	Artists     *string
	Popularity  int
	DurationMS  float64
	IsEpisode   bool
	IsExplicit  bool
	Type        string
	PreviewURL  *string
	PlaylistID  string
	AddedAt     *string
	AddedBy     *string
}

// NewTrack normalizes a playlist item. The item must carry a track; playlistID is injected by the caller.
func NewTrack(item services.SpotifyPlaylistItem, playlistID string) (Track, error) {
	raw := item.Track
	if raw == nil {
		return Track{}, fmt.Errorf("%w: playlist item has no track", shared.ErrInvalidRecord)
	}

	addedAt, err := FormatAddedAt(item.AddedAt)
	if err != nil {
		return Track{}, err
	}

	track := Track{
		ID:          raw.ID,
		Name:        raw.Name,
		AlbumID:     raw.Album.ID,
		AlbumName:   raw.Album.Name,
		AlbumType:   raw.Album.AlbumType,
		ReleaseDate: raw.Album.ReleaseDate,
		Artists:     JoinArtists(raw.Artists),
		Popularity:  raw.Popularity,
		DurationMS:  raw.DurationMS,
		IsEpisode:   raw.Episode != nil && *raw.Episode,
		IsExplicit:  raw.Explicit != nil && *raw.Explicit,
		Type:        raw.Type,
		PreviewURL:  raw.PreviewURL,
		PlaylistID:  playlistID,
		AddedAt:     addedAt,
	}
	if item.AddedBy != nil {
		track.AddedBy = &item.AddedBy.ID
	}

	return track, nil
}

// JoinArtists sorts artist names and joins them with commas. Duplicates are kept.
// An empty artist list yields nil.
func JoinArtists(artists []services.SpotifyArtist) *string {
	if len(artists) == 0 {
		return nil
	}

	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	sort.Strings(names)

	joined := strings.Join(names, artistSeparator)
	return &joined
}

// FormatAddedAt rewrites an ISO-8601 UTC timestamp (2021-05-03T10:15:00Z) as 03-05-2021 10-15-00.
// Nil or empty input yields nil.
func FormatAddedAt(raw *string) (*string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}

	t, err := time.Parse(addedAtLayout, *raw)
	if err != nil {
		return nil, fmt.Errorf("%w: added_at %q: %v", shared.ErrInvalidRecord, *raw, err)
	}

	formatted := t.Format(addedAtDisplay)
	return &formatted, nil
}

func (t Track) String() string {
	return t.Name
}

// Record returns the row keyed by [TrackColumns].
func (t Track) Record() Record {
	return Record{
		"id":           optional(t.ID),
		"name":         t.Name,
		"album_id":     optional(t.AlbumID),
		"album_name":   t.AlbumName,
		"album_type":   optional(t.AlbumType),
		"release_date": optional(t.ReleaseDate),
		"artists":      optional(t.Artists),
		"popularity":   strconv.Itoa(t.Popularity),
		"is_episode":   strconv.FormatBool(t.IsEpisode),
		"is_explicit":  strconv.FormatBool(t.IsExplicit),
		"type":         t.Type,
		"preview_url":  optional(t.PreviewURL),
		"playlist_id":  t.PlaylistID,
		"added_at":     optional(t.AddedAt),
		"added_by":     optional(t.AddedBy),
	}
}
