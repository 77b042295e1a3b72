// Package server runs the local HTTP callback server used by the Google Drive OAuth flow.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback.
// It validates the state parameter (CSRF protection), exchanges the authorization code for a token,
// and sends the result through a channel. It only processes one callback to prevent replay attacks.
//
// # Loopback Flow
//
// [Loopback] starts a temporary server on localhost at the configured redirect port, opens the consent page,
// waits for the single callback (or the context deadline) and shuts the server down.
//
// # Router Infrastructure
//
// [Router] registers [Handler] implementations, each of which lists its own routes, and wraps them in [Middleware]
// such as [Logging] and [Recover].
package server
