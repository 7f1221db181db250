// Package server provides the local HTTP plumbing for the OAuth authorization code flow.
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] implements it
// on [http.ServeMux] with method-qualified patterns, and [Logging] writes one debug line per request.
//
// [OAuthHandler] serves the redirect URL configured for the client: it validates the state parameter,
// exchanges the authorization code for a token and sends the result through a channel. It only
// processes one callback. [AwaitToken] runs the server until that result arrives and shuts it down.
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and
// adds routes, so a handler owns its route definitions.
package server
