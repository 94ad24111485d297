package shared

import (
	_ "embed"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Client credentials are not part of the file; see [LoadCredentials].
type Config struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Auth    AuthConfig    `toml:"auth"`
}

// SpotifyConfig contains the Spotify accounts endpoints and the redirect the app is registered with.
type SpotifyConfig struct {
	RedirectURI string   `toml:"redirect_uri"`
	Scopes      []string `toml:"scopes"`
	AuthURL     string   `toml:"auth_url"`
	TokenURL    string   `toml:"token_url"`
}

// AuthConfig contains timing settings for the authorization flow.
type AuthConfig struct {
	TimeoutSeconds        int  `toml:"timeout_seconds"`
	RequestTimeoutSeconds int  `toml:"request_timeout_seconds"`
	OpenBrowser           bool `toml:"open_browser"`
}

// LoadConfig reads a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if _, err := toml.Decode(string(data), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the redirect URI can be served by a local listener and that timeouts are usable.
func (c *Config) Validate() error {
	if _, err := c.Spotify.Redirect(); err != nil {
		return err
	}
	if len(c.Spotify.Scopes) == 0 {
		return fmt.Errorf("%w: spotify.scopes must not be empty", ErrInvalidConfig)
	}
	if c.Spotify.AuthURL == "" || c.Spotify.TokenURL == "" {
		return fmt.Errorf("%w: spotify.auth_url and spotify.token_url are required", ErrInvalidConfig)
	}
	if c.Auth.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: auth.timeout_seconds must be positive", ErrInvalidConfig)
	}
	if c.Auth.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: auth.request_timeout_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}

// Redirect parses the redirect URI. The path is left as written, so the URI round-trips unchanged.
//
// Only plain http on a loopback host with an explicit port is accepted, since the callback listener binds that address.
func (s SpotifyConfig) Redirect() (*url.URL, error) {
	u, err := url.Parse(s.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect_uri: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("%w: redirect_uri must use http, got %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Port() == "" {
		return nil, fmt.Errorf("%w: redirect_uri must include a port", ErrInvalidConfig)
	}

	host := u.Hostname()
	if host != "localhost" {
		if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
			return nil, fmt.Errorf("%w: redirect_uri host %q is not a loopback address", ErrInvalidConfig, host)
		}
	}
	return u, nil
}

// Timeout is how long to wait for the browser redirect.
func (a AuthConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// RequestTimeout bounds the token exchange request.
func (a AuthConfig) RequestTimeout() time.Duration {
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}
