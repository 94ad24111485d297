// Package server provides the local HTTP listener that captures an OAuth2 authorization redirect.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [RequestLogger] logs each request without its query string, since the query carries the authorization code.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Callback Handler
//
// [CallbackHandler] turns the redirect into a [models.AuthorizationResult]:
//   - a non-empty code parameter yields a code result and a 200 page
//   - anything else yields an error result (the error parameter, or "Unknown error") and a 400 page
//
// The first request wins. Later requests get a 400 and never replace the result.
// The result is delivered on a channel of capacity one which is closed after the send,
// so the waiting side needs no lock.
//
// # Listener
//
// [Listen] binds the loopback address named by the redirect URI before returning, then serves in a goroutine.
// Callers select on [Listener.Result], [Listener.Errors] and their own timeout, and always call [Listener.Close].
package server
