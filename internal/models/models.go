package models

import (
	"time"

	"golang.org/x/oauth2"
)

// UnknownError is the reason recorded when a callback carries neither a code nor an error.
const UnknownError = "Unknown error"

// AuthorizationResult is either a granted authorization code or the reason the authorization failed.
type AuthorizationResult struct {
	Code   string
	Reason string
}

// CodeResult returns a granted [AuthorizationResult].
func CodeResult(code string) AuthorizationResult {
	return AuthorizationResult{Code: code}
}

// ErrorResult returns a failed [AuthorizationResult].
func ErrorResult(reason string) AuthorizationResult {
	if reason == "" {
		reason = UnknownError
	}
	return AuthorizationResult{Reason: reason}
}

// Granted reports whether the result carries an authorization code.
func (a AuthorizationResult) Granted() bool {
	return a.Code != ""
}

// TokenResponse is the JSON body returned by the token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token"`

	Raw []byte `json:"-"`
}

// Token converts the response into an [oauth2.Token], with the expiry computed relative to now.
func (t *TokenResponse) Token(now time.Time) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
	}
	if t.ExpiresIn > 0 {
		token.Expiry = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	if t.Scope != "" {
		token = token.WithExtra(map[string]any{"scope": t.Scope})
	}
	return token
}
