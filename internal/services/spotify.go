// Spotify Web API implementation of the catalog client.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/scrapify/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// PlaylistItemsLimit is the page size requested for playlist items, which is also the
	// largest batch the audio features endpoint accepts.
	PlaylistItemsLimit = 100
	// PlaylistsLimit is the largest page size the playlists endpoint accepts.
	PlaylistsLimit = 50
	// MaxAudioFeatureIDs is the per-call id limit of the audio features endpoint.
	MaxAudioFeatureIDs = 100
)

// Paging is a single page of a cursor-paginated collection. Next holds the absolute URL of the
// following page and is nil on the last page.
type Paging[T any] struct {
	Href     string  `json:"href"`
	Items    []T     `json:"items"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Total    int     `json:"total"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// SpotifyUser represents a public Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName *string        `json:"display_name"`
	URI         string         `json:"uri"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height *int   `json:"height"`
	Width  *int   `json:"width"`
}

// Owner is the (public) user reference embedded in playlists and playlist items.
type Owner struct {
	ID          string  `json:"id"`
	DisplayName *string `json:"display_name"`
	URI         string  `json:"uri"`
}

type playlistTracksRef struct {
	Href  string `json:"href"`
	Total int    `json:"total"`
}

// SpotifyPlaylist represents a simplified playlist object as returned by the playlists listing.
type SpotifyPlaylist struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   *string           `json:"description"`
	Collaborative bool              `json:"collaborative"`
	Public        *bool             `json:"public"`
	Owner         Owner             `json:"owner"`
	Images        []SpotifyImage    `json:"images"`
	Tracks        playlistTracksRef `json:"tracks"`
	URI           string            `json:"uri"`
}

// SpotifyArtist represents a simplified artist.
type SpotifyArtist struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

// SpotifyAlbum represents a simplified album. Local files carry no album id.
type SpotifyAlbum struct {
	ID          *string `json:"id"`
	Name        string  `json:"name"`
	AlbumType   *string `json:"album_type"`
	ReleaseDate *string `json:"release_date"`
}

// SpotifyTrack represents a full track (or episode) object inside a playlist item.
type SpotifyTrack struct {
	ID         *string         `json:"id"`
	Name       string          `json:"name"`
	Album      SpotifyAlbum    `json:"album"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS float64         `json:"duration_ms"`
	Episode    *bool           `json:"episode"`
	Explicit   *bool           `json:"explicit"`
	IsLocal    bool            `json:"is_local"`
	Popularity int             `json:"popularity"`
	PreviewURL *string         `json:"preview_url"`
	Type       string          `json:"type"`
	URI        string          `json:"uri"`
}

// SpotifyPlaylistItem is a playlist entry. Track is nil for deleted or unavailable tracks.
type SpotifyPlaylistItem struct {
	AddedAt *string       `json:"added_at"`
	AddedBy *Owner        `json:"added_by"`
	IsLocal bool          `json:"is_local"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyAudioFeatures holds the audio features of one track, including the service-internal fields.
type SpotifyAudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              int     `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	DurationMS       int     `json:"duration_ms"`
	TimeSignature    int     `json:"time_signature"`
	Type             string  `json:"type"`
	URI              string  `json:"uri"`
	TrackHref        string  `json:"track_href"`
	AnalysisURL      string  `json:"analysis_url"`
}

// APIError is returned for non-2xx responses. It wraps [shared.ErrAPIRequest].
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.Status)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return shared.ErrAPIRequest
}

// SpotifyService is the catalog client for the Spotify Web API.
//
// Uses [oauth2] for authentication; the token source refreshes expired access tokens.
// Requests are issued one at a time and optionally paced by a [rate.Limiter].
type SpotifyService struct {
	config     *oauth2.Config
	source     oauth2.TokenSource
	base       *http.Client
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// Option configures a [SpotifyService].
type Option func(*SpotifyService)

// WithBaseURL points the service at a different API root. Used by tests.
func WithBaseURL(base string) Option {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient sets the client used before authentication and as the base transport for the
// oauth2 client afterwards.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SpotifyService) {
		s.base = c
		s.httpClient = c
	}
}

// WithRequestsPerSecond paces requests. Values <= 0 disable pacing.
func WithRequestsPerSecond(rps float64) Option {
	return func(s *SpotifyService) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...Option) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:8080/callback"
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes: []string{
				"playlist-read-private",
				"playlist-read-collaborative",
			},
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		base:       http.DefaultClient,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// OAuthConfig exposes the underlying [oauth2.Config] for the authorization callback handler.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Authenticate prepares an authenticated session.
//
// Accepts either a stored token ("access_token" and/or "refresh_token", optional RFC 3339 "expiry")
// or an "auth_code" to exchange.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.base)

	if authCode := credentials["auth_code"]; authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		return s.UseToken(ctx, token)
	}

	access, refresh := credentials["access_token"], credentials["refresh_token"]
	if access == "" && refresh == "" {
		return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrNotAuthenticated)
	}

	token := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
	if raw := credentials["expiry"]; raw != "" {
		if err := token.Expiry.UnmarshalText([]byte(raw)); err != nil {
			return fmt.Errorf("%w: bad expiry %q", shared.ErrInvalidCredentials, raw)
		}
	}

	return s.UseToken(ctx, token)
}

// UseToken installs token and switches to an auto-refreshing HTTP client.
func (s *SpotifyService) UseToken(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", shared.ErrNotAuthenticated)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.base)
	s.source = s.config.TokenSource(ctx, token)
	s.httpClient = oauth2.NewClient(ctx, s.source)
	return nil
}

// Token returns the current token, refreshing it first when it has expired.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	if s.source == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.source.Token()
}

// resolve turns an endpoint or an absolute cursor URL into a request URL. Cursors must stay on the
// configured API host.
func (s *SpotifyService) resolve(endpoint string) (string, error) {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return s.baseURL + endpoint, nil
	}
	if !strings.HasPrefix(endpoint, s.baseURL+"/") {
		return "", fmt.Errorf("%w: %s", shared.ErrInvalidCursor, endpoint)
	}
	return endpoint, nil
}

// doRequest performs an authenticated GET request against the Spotify API and decodes the JSON body.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.source == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL, err := s.resolve(endpoint)
	if err != nil {
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("request pacing: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}

// User retrieves a user's public profile.
func (s *SpotifyService) User(ctx context.Context, userID string) (*SpotifyUser, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	var user SpotifyUser
	if err := s.doRequest(ctx, "/users/"+url.PathEscape(userID), &user); err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return &user, nil
}

// UserPlaylists retrieves one page of a user's public playlists. A nil cursor requests the first page.
func (s *SpotifyService) UserPlaylists(ctx context.Context, userID string, cursor *string) (*Paging[SpotifyPlaylist], error) {
	endpoint := fmt.Sprintf("/users/%s/playlists?limit=%d", url.PathEscape(userID), PlaylistsLimit)
	return fetchPage[SpotifyPlaylist](ctx, s, endpoint, cursor)
}

// PlaylistItems retrieves one page (up to [PlaylistItemsLimit] entries) of a playlist's items.
// A nil cursor requests the first page.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID string, cursor *string) (*Paging[SpotifyPlaylistItem], error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d", url.PathEscape(playlistID), PlaylistItemsLimit)
	return fetchPage[SpotifyPlaylistItem](ctx, s, endpoint, cursor)
}

// AudioFeatures retrieves audio features for up to [MaxAudioFeatureIDs] tracks.
//
// The response is positional: entry i belongs to trackIDs[i] and is nil when the service has no
// features for that track.
func (s *SpotifyService) AudioFeatures(ctx context.Context, trackIDs []string) ([]*SpotifyAudioFeatures, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: no track ids", shared.ErrMissingArgument)
	}
	if len(trackIDs) > MaxAudioFeatureIDs {
		return nil, fmt.Errorf("%w: %d > %d", shared.ErrTooManyIDs, len(trackIDs), MaxAudioFeatureIDs)
	}

	endpoint := "/audio-features?ids=" + url.QueryEscape(strings.Join(trackIDs, ","))

	var response struct {
		AudioFeatures []*SpotifyAudioFeatures `json:"audio_features"`
	}
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, fmt.Errorf("failed to get audio features: %w", err)
	}

	return response.AudioFeatures, nil
}

func fetchPage[T any](ctx context.Context, s *SpotifyService, first string, cursor *string) (*Paging[T], error) {
	endpoint := first
	if cursor != nil {
		endpoint = *cursor
	}

	var page Paging[T]
	if err := s.doRequest(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// IsStatus reports whether err is an [APIError] with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
