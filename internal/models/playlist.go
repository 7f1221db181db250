package models

import (
	"github.com/desertthunder/scrapify/internal/services"
)

// Playlist is the normalized form of a playlist listing entry.
type Playlist struct {
	ID            string
	Name          string
	Description   *string
	Collaborative bool
	Public        bool
	Owner         services.Owner
	Images        []string
	TrackCount    int
}

// NewPlaylist projects a raw playlist record. Only the track count is pulled from the nested
// tracks reference; a null public flag is treated as private.
func NewPlaylist(raw services.SpotifyPlaylist) Playlist {
	images := make([]string, 0, len(raw.Images))
	for _, img := range raw.Images {
		images = append(images, img.URL)
	}

	return Playlist{
		ID:            raw.ID,
		Name:          raw.Name,
		Description:   raw.Description,
		Collaborative: raw.Collaborative,
		Public:        raw.Public != nil && *raw.Public,
		Owner:         raw.Owner,
		Images:        images,
		TrackCount:    raw.Tracks.Total,
	}
}

func (p Playlist) String() string {
	return p.Name
}

// Len returns the number of tracks the service reports for the playlist. An empty playlist is 0.
func (p Playlist) Len() int {
	return p.TrackCount
}
