// package services defines interface Exchanger for OAuth2 authorization code providers
//
// Spotify accounts service
package services

import (
	"context"

	"github.com/desertthunder/refreshgen/internal/models"
)

// Exchanger defines the two provider calls of the authorization code flow.
type Exchanger interface {
	// AuthURL returns the URL the user visits to grant access.
	// redirectURI must be the exact value passed to Exchange later.
	AuthURL(redirectURI, state string) string

	// Exchange trades an authorization code for a token pair.
	// It makes exactly one request and never retries.
	Exchange(ctx context.Context, code, redirectURI string) (*models.TokenResponse, error)

	// Name returns the name of the provider (e.g., "Spotify")
	Name() string
}
