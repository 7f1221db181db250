package models

import (
	"strconv"

	"github.com/desertthunder/scrapify/internal/services"
)

// FeatureColumns is the header of the audio features export, in output order. Service-internal
// fields (type, uri, track_href, analysis_url, time_signature, duration_ms) are left out.
var FeatureColumns = []string{
	"id", "danceability", "energy",
	"key", "loudness", "mode", "speechiness",
	"acousticness", "instrumentalness", "liveness",
	"valence", "tempo",
}

// AudioFeature is one row of the audio features export.
type AudioFeature struct {
	ID               string
	Danceability     float64
	Energy           float64
	Key              int
	Loudness         float64
	Mode             int
	Speechiness      float64
	Acousticness     float64
	Instrumentalness float64
	Liveness         float64
	Valence          float64
	Tempo            float64
}

// NewAudioFeature trims a raw audio features record to the exported columns.
func NewAudioFeature(raw services.SpotifyAudioFeatures) AudioFeature {
	return AudioFeature{
		ID:               raw.ID,
		Danceability:     raw.Danceability,
		Energy:           raw.Energy,
		Key:              raw.Key,
		Loudness:         raw.Loudness,
		Mode:             raw.Mode,
		Speechiness:      raw.Speechiness,
		Acousticness:     raw.Acousticness,
		Instrumentalness: raw.Instrumentalness,
		Liveness:         raw.Liveness,
		Valence:          raw.Valence,
		Tempo:            raw.Tempo,
	}
}

// NewAudioFeatures converts a batch response, dropping null entries and keeping response order.
func NewAudioFeatures(raw []*services.SpotifyAudioFeatures) []AudioFeature {
	features := make([]AudioFeature, 0, len(raw))
	for _, f := range raw {
		if f == nil {
			continue
		}
		features = append(features, NewAudioFeature(*f))
	}
	return features
}

// Record returns the row keyed by [FeatureColumns].
func (f AudioFeature) Record() Record {
	return Record{
		"id":               f.ID,
		"danceability":     formatFloat(f.Danceability),
		"energy":           formatFloat(f.Energy),
		"key":              strconv.Itoa(f.Key),
		"loudness":         formatFloat(f.Loudness),
		"mode":             strconv.Itoa(f.Mode),
		"speechiness":      formatFloat(f.Speechiness),
		"acousticness":     formatFloat(f.Acousticness),
		"instrumentalness": formatFloat(f.Instrumentalness),
		"liveness":         formatFloat(f.Liveness),
		"valence":          formatFloat(f.Valence),
		"tempo":            formatFloat(f.Tempo),
	}
}
