// Spotify accounts service implementation of [Exchanger]
//
// Flow described at https://developer.spotify.com/documentation/web-api/tutorials/code-flow
package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/refreshgen/internal/models"
	"github.com/desertthunder/refreshgen/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	defaultRequestTimeout = 30 * time.Second
	maxResponseBytes      = 1 << 20
)

// SpotifyAuth implements [Exchanger] against the Spotify accounts service.
type SpotifyAuth struct {
	clientID     string
	clientSecret string
	endpoint     oauth2.Endpoint
	scopes       []string
	httpClient   *http.Client
	logger       *log.Logger
}

// SpotifyAuthOpts contains configuration options for creating a [SpotifyAuth].
type SpotifyAuthOpts struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	AuthURL      string        // defaults to the Spotify authorize endpoint
	TokenURL     string        // defaults to the Spotify token endpoint
	Timeout      time.Duration // request timeout applied when HTTPClient is nil
	HTTPClient   *http.Client
	Logger       *log.Logger
}

// NewSpotifyAuth creates a [SpotifyAuth] from opts.
func NewSpotifyAuth(opts SpotifyAuthOpts) (*SpotifyAuth, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client id and client secret are required", shared.ErrMissingCredentials)
	}
	if opts.AuthURL == "" {
		opts.AuthURL = spotifyAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &SpotifyAuth{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		endpoint: oauth2.Endpoint{
			AuthURL:   opts.AuthURL,
			TokenURL:  opts.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		scopes:     opts.Scopes,
		httpClient: opts.HTTPClient,
		logger:     shared.WithLogger(opts.Logger, "component", "exchange"),
	}, nil
}

func (s *SpotifyAuth) Name() string {
	return "Spotify"
}

func (s *SpotifyAuth) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       s.scopes,
		Endpoint:     s.endpoint,
	}
}

// AuthURL returns the authorize URL with client_id, response_type=code, redirect_uri, scope and, when set, state.
func (s *SpotifyAuth) AuthURL(redirectURI, state string) string {
	return s.oauthConfig(redirectURI).AuthCodeURL(state)
}

// BasicCredential returns the value that follows "Basic " in the token request's Authorization header.
func BasicCredential(clientID, clientSecret string) string {
	return base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
}

// Exchange posts the authorization code to the token endpoint.
//
// A 2xx response without a non-empty refresh_token is an [ExchangeError] of kind [shared.ErrNoRefreshToken].
// Transport failures and non-2xx responses are of kind [shared.ErrExchangeFailed].
// Both carry the response body when one was read.
func (s *SpotifyAuth) Exchange(ctx context.Context, code, redirectURI string) (*models.TokenResponse, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, transportError(0, nil, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Basic "+BasicCredential(s.clientID, s.clientSecret))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	s.logger.Debug("requesting token", "url", s.endpoint.TokenURL, "code_len", len(code))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, transportError(0, nil, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(resp.StatusCode, body, fmt.Errorf("failed to read response: %w", err))
	}

	s.logger.Debug("token response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, transportError(resp.StatusCode, body, nil)
	}

	var token models.TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, missingFieldError(resp.StatusCode, body, fmt.Errorf("failed to decode response: %w", err))
	}
	if token.RefreshToken == "" {
		return nil, missingFieldError(resp.StatusCode, body, nil)
	}

	token.Raw = body
	return &token, nil
}
