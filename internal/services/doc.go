// Package services implements the catalog client used by the exporter.
//
// # Spotify Implementation
//
// [SpotifyService] wraps the Spotify Web API. It uses OAuth2 for authentication; the
// [oauth2.TokenSource] refreshes expired access tokens from the stored refresh token.
//
// # Pagination
//
// Collection endpoints return a [Paging] page whose Next field is the absolute URL of the following
// page. Callers pass that value back as the cursor of the next call; a nil cursor requests the first
// page. Cursors pointing outside the API base URL are rejected with [shared.ErrInvalidCursor].
//
// # Nullable Fields
//
// Raw records keep nullable JSON fields as pointers (display names, track ids of local files,
// removed tracks, missing audio features) so the normalizers can tell "absent" from "empty".
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrAPIRequest] : transport failure or non-2xx status (see [APIError])
//   - [shared.ErrTooManyIDs] : audio feature batch above [MaxAudioFeatureIDs]
//   - [shared.ErrInvalidCursor] : next-page URL outside the API
//
// Requests are never retried.
package services
