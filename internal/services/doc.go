// Package services defines the [Exchanger] interface for OAuth2 authorization code providers and implements it for Spotify.
//
// # Spotify Implementation
//
// [SpotifyAuth] builds the authorize URL with [oauth2.Config.AuthCodeURL] and performs the code exchange itself:
// one POST with a Basic credential (see [BasicCredential]) and a form body of grant_type, code and redirect_uri.
// There is no retry. The HTTP client carries an explicit timeout.
//
// # Error Handling
//
// Exchange failures are reported as [*ExchangeError], which unwraps to a sentinel from the shared package:
//   - [shared.ErrExchangeFailed] : transport failure or non-2xx status; status and body kept when available
//   - [shared.ErrNoRefreshToken] : 2xx response without a refresh_token; raw body kept for diagnosis
package services
