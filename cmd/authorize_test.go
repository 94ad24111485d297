package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/refreshgen/internal/shared"
	tu "github.com/desertthunder/refreshgen/internal/testing"
)

type harness struct {
	runner   *Runner
	endpoint *tu.TokenEndpoint
	output   *bytes.Buffer
	status   *bytes.Buffer
	logs     *bytes.Buffer
	opened   atomic.Int32
	config   *shared.Config
	envFile  string
}

// newHarness wires a runner to a stub token endpoint and a browser that follows the redirect with query.
//
// query receives the state from the authorization URL. A nil query means the browser never redirects.
func newHarness(t *testing.T, endpoint *tu.TokenEndpoint, query func(state string) string) *harness {
	t.Helper()
	t.Setenv("CLIENT_ID", "abc")
	t.Setenv("CLIENT_SECRET", "xyz")

	tokenServer := httptest.NewServer(endpoint)
	t.Cleanup(tokenServer.Close)

	config := shared.DefaultConfig()
	config.Spotify.RedirectURI = "http://127.0.0.1:0/callback"
	config.Spotify.TokenURL = tokenServer.URL
	config.Auth.TimeoutSeconds = 5

	h := &harness{
		endpoint: endpoint,
		output:   &bytes.Buffer{},
		status:   &bytes.Buffer{},
		logs:     &bytes.Buffer{},
		config:   config,
		envFile:  filepath.Join(t.TempDir(), ".env"),
	}

	h.runner = NewRunner(RunnerOpts{
		Config: config,
		Logger: shared.NewLogger(h.logs),
		Output: h.output,
		Status: h.status,
		OpenBrowser: func(authURL string) error {
			h.opened.Add(1)
			if query == nil {
				return nil
			}

			u, err := url.Parse(authURL)
			if err != nil {
				t.Errorf("invalid auth url %q: %v", authURL, err)
				return nil
			}
			q := u.Query()
			target := q.Get("redirect_uri") + "?" + query(q.Get("state"))

			go func() {
				resp, err := http.Get(target)
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		},
	})
	return h
}

func (h *harness) run(args ...string) error {
	argv := append([]string{"refreshgen", "--env-file", h.envFile}, args...)
	return h.runner.app().Run(context.Background(), argv)
}

func TestAuthorize(t *testing.T) {
	t.Run("end to end", func(t *testing.T) {
		endpoint := &tu.TokenEndpoint{Body: `{"access_token":"AT","token_type":"Bearer","expires_in":3600,"refresh_token":"RTOK456"}`}
		h := newHarness(t, endpoint, func(string) string { return "code=CODE123" })

		if err := h.run(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.Contains(h.output.String(), "RTOK456") {
			t.Errorf("expected refresh token in output, got %q", h.output.String())
		}
		if strings.Contains(h.logs.String(), "ERRO") || strings.Contains(h.logs.String(), "WARN") {
			t.Errorf("expected no error or warning logs, got %q", h.logs.String())
		}
		if endpoint.Hits() != 1 {
			t.Errorf("expected exactly one token request, got %d", endpoint.Hits())
		}
		if h.opened.Load() != 1 {
			t.Errorf("expected browser to be opened once, got %d", h.opened.Load())
		}
	})

	t.Run("authorize subcommand with state and json output", func(t *testing.T) {
		endpoint := &tu.TokenEndpoint{Body: `{"access_token":"AT","token_type":"Bearer","expires_in":3600,"refresh_token":"RTOK456","scope":"user-top-read"}`}
		h := newHarness(t, endpoint, func(state string) string {
			return url.Values{"code": {"CODE123"}, "state": {state}}.Encode()
		})

		if err := h.run("--json", "authorize"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var got map[string]any
		if err := json.Unmarshal(h.output.Bytes(), &got); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", h.output.String(), err)
		}
		if got["refresh_token"] != "RTOK456" {
			t.Errorf("expected refresh_token RTOK456, got %v", got["refresh_token"])
		}
		if got["scope"] != "user-top-read" {
			t.Errorf("expected scope, got %v", got["scope"])
		}
		expiry, _ := got["expiry"].(string)
		at, err := time.Parse(time.RFC3339Nano, expiry)
		if err != nil {
			t.Fatalf("expected RFC 3339 expiry, got %v", got["expiry"])
		}
		if left := time.Until(at); left <= 50*time.Minute || left > time.Hour {
			t.Errorf("expected expiry about an hour out, got %v", at)
		}
		if got["token_type"] != "Bearer" {
			t.Errorf("expected token_type Bearer, got %v", got["token_type"])
		}
	})

	t.Run("spinner on an interactive status writer", func(t *testing.T) {
		endpoint := &tu.TokenEndpoint{Body: `{"refresh_token":"RTOK456"}`}
		h := newHarness(t, endpoint, func(string) string { return "code=CODE123" })
		h.runner.interactive = true

		if err := h.run(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "RTOK456") {
			t.Errorf("expected refresh token in output, got %q", h.output.String())
		}
		if strings.Contains(h.status.String(), "→ Waiting for authorization") {
			t.Errorf("expected spinner instead of the plain waiting line, got %q", h.status.String())
		}
		if !strings.Contains(h.status.String(), "Authorization code received") {
			t.Errorf("expected status after the spinner, got %q", h.status.String())
		}
	})

	t.Run("spinner stops on timeout", func(t *testing.T) {
		endpoint := &tu.TokenEndpoint{}
		h := newHarness(t, endpoint, nil)
		h.runner.interactive = true

		if err := h.run("--timeout", "100ms"); !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(h.status.String(), "Waiting for authorization") {
			t.Errorf("expected spinner output, got %q", h.status.String())
		}
	})

	t.Run("timeout never exchanges", func(t *testing.T) {
		endpoint := &tu.TokenEndpoint{Body: `{"refresh_token":"RTOK456"}`}
		h := newHarness(t, endpoint, nil)

		err := h.run("--timeout", "50ms")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if exitCode(err) != exitTimeout {
			t.Errorf("expected exit code %d, got %d", exitTimeout, exitCode(err))
		}
		if endpoint.Hits() != 0 {
			t.Errorf("expected no token request, got %d", endpoint.Hits())
		}
		if h.output.Len() != 0 {
			t.Errorf("expected no output, got %q", h.output.String())
		}
	})

	t.Run("denied never exchanges", func(t *testing.T) {
		endpoint := &tu.TokenEndpoint{Body: `{"refresh_token":"RTOK456"}`}
		h := newHarness(t, endpoint, func(string) string { return "error=access_denied" })

		err := h.run()
		if !errors.Is(err, shared.ErrAuthDenied) {
			t.Fatalf("expected ErrAuthDenied, got %v", err)
		}
		if !strings.Contains(err.Error(), "access_denied") {
			t.Errorf("expected provider error in message, got %v", err)
		}
		if exitCode(err) != exitDenied {
			t.Errorf("expected exit code %d, got %d", exitDenied, exitCode(err))
		}
		if endpoint.Hits() != 0 {
			t.Errorf("expected no token request, got %d", endpoint.Hits())
		}
	})

	t.Run("redirect with neither code nor error", func(t *testing.T) {
		h := newHarness(t, &tu.TokenEndpoint{}, func(string) string { return "foo=bar" })

		err := h.run()
		if !errors.Is(err, shared.ErrAuthDenied) || !strings.Contains(err.Error(), "Unknown error") {
			t.Errorf("expected denied with Unknown error, got %v", err)
		}
	})

	t.Run("state mismatch never exchanges", func(t *testing.T) {
		endpoint := &tu.TokenEndpoint{Body: `{"refresh_token":"RTOK456"}`}
		h := newHarness(t, endpoint, func(string) string { return "code=CODE123&state=forged" })

		err := h.run()
		if !errors.Is(err, shared.ErrAuthDenied) || !strings.Contains(err.Error(), "state mismatch") {
			t.Errorf("expected state mismatch, got %v", err)
		}
		if endpoint.Hits() != 0 {
			t.Errorf("expected no token request, got %d", endpoint.Hits())
		}
	})

	t.Run("missing refresh token", func(t *testing.T) {
		endpoint := &tu.TokenEndpoint{Body: `{"access_token":"t"}`}
		h := newHarness(t, endpoint, func(string) string { return "code=CODE123" })

		err := h.run()
		if !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Fatalf("expected ErrNoRefreshToken, got %v", err)
		}
		if !strings.Contains(err.Error(), `{"access_token":"t"}`) {
			t.Errorf("expected raw response in error, got %v", err)
		}
		if exitCode(err) != exitNoRefresh {
			t.Errorf("expected exit code %d, got %d", exitNoRefresh, exitCode(err))
		}
	})

	t.Run("token request rejected", func(t *testing.T) {
		endpoint := &tu.TokenEndpoint{Status: http.StatusBadRequest, Body: `{"error":"invalid_grant"}`}
		h := newHarness(t, endpoint, func(string) string { return "code=CODE123" })

		err := h.run()
		if !errors.Is(err, shared.ErrExchangeFailed) {
			t.Fatalf("expected ErrExchangeFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "invalid_grant") {
			t.Errorf("expected response body in error, got %v", err)
		}
		if exitCode(err) != exitExchange {
			t.Errorf("expected exit code %d, got %d", exitExchange, exitCode(err))
		}
	})

	t.Run("missing credentials fail before any network activity", func(t *testing.T) {
		endpoint := &tu.TokenEndpoint{Body: `{"refresh_token":"RTOK456"}`}
		h := newHarness(t, endpoint, func(string) string { return "code=CODE123" })
		t.Setenv("CLIENT_SECRET", "")

		err := h.run()
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Fatalf("expected ErrMissingCredentials, got %v", err)
		}
		if exitCode(err) != exitConfig {
			t.Errorf("expected exit code %d, got %d", exitConfig, exitCode(err))
		}
		if h.opened.Load() != 0 {
			t.Error("expected browser not to be opened")
		}
		if endpoint.Hits() != 0 {
			t.Errorf("expected no token request, got %d", endpoint.Hits())
		}
	})

	t.Run("bind failure is reported before the browser opens", func(t *testing.T) {
		taken, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to take port: %v", err)
		}
		defer taken.Close()

		h := newHarness(t, &tu.TokenEndpoint{}, func(string) string { return "code=CODE123" })
		h.config.Spotify.RedirectURI = "http://" + taken.Addr().String() + "/callback"

		err = h.run()
		if !errors.Is(err, shared.ErrBind) {
			t.Fatalf("expected ErrBind, got %v", err)
		}
		if exitCode(err) != exitBind {
			t.Errorf("expected exit code %d, got %d", exitBind, exitCode(err))
		}
		if h.opened.Load() != 0 {
			t.Error("expected browser not to be opened")
		}
	})

	t.Run("browser failure falls back to printing the url", func(t *testing.T) {
		h := newHarness(t, &tu.TokenEndpoint{}, nil)
		h.runner.openBrowser = func(string) error { return errors.New("no display") }

		err := h.run("--timeout", "50ms")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(h.status.String(), "Could not open a browser") {
			t.Errorf("expected browser failure notice, got %q", h.status.String())
		}
		if !strings.Contains(h.status.String(), "client_id=abc") {
			t.Errorf("expected authorization url in status output, got %q", h.status.String())
		}
	})

	t.Run("no-browser prints the url without opening", func(t *testing.T) {
		h := newHarness(t, &tu.TokenEndpoint{}, nil)

		err := h.run("--no-browser", "--timeout", "50ms")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if h.opened.Load() != 0 {
			t.Error("expected browser not to be opened")
		}
		if !strings.Contains(h.status.String(), "response_type=code") {
			t.Errorf("expected authorization url in status output, got %q", h.status.String())
		}
	})

	t.Run("canceled context ends the wait", func(t *testing.T) {
		h := newHarness(t, &tu.TokenEndpoint{}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		h.runner.openBrowser = func(string) error {
			cancel()
			return nil
		}

		err := h.runner.app().Run(ctx, []string{"refreshgen", "--env-file", h.envFile})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestExchangeCommand(t *testing.T) {
	t.Run("exchanges a code for the configured redirect", func(t *testing.T) {
		var gotRedirect string
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			gotRedirect = r.PostForm.Get("redirect_uri")
			w.Write([]byte(`{"refresh_token":"RTOK456"}`))
		}))
		defer tokenServer.Close()

		h := newHarness(t, &tu.TokenEndpoint{}, nil)
		h.config.Spotify.RedirectURI = "http://127.0.0.1:8888/callback"
		h.config.Spotify.TokenURL = tokenServer.URL

		if err := h.run("exchange", "--code", "CODE123"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotRedirect != "http://127.0.0.1:8888/callback" {
			t.Errorf("expected configured redirect uri, got %q", gotRedirect)
		}
		if !strings.Contains(h.output.String(), "RTOK456") {
			t.Errorf("expected refresh token in output, got %q", h.output.String())
		}
	})

	t.Run("redirect-uri flag overrides config", func(t *testing.T) {
		var gotRedirect string
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			gotRedirect = r.PostForm.Get("redirect_uri")
			w.Write([]byte(`{"refresh_token":"RTOK456"}`))
		}))
		defer tokenServer.Close()

		h := newHarness(t, &tu.TokenEndpoint{}, nil)
		h.config.Spotify.TokenURL = tokenServer.URL

		if err := h.run("exchange", "--code", "CODE123", "--redirect-uri", "http://localhost:8888/callback"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotRedirect != "http://localhost:8888/callback" {
			t.Errorf("expected flag redirect uri, got %q", gotRedirect)
		}
	})

	t.Run("missing code", func(t *testing.T) {
		h := newHarness(t, &tu.TokenEndpoint{}, nil)
		if err := h.run("exchange"); err == nil {
			t.Error("expected error without --code")
		}
	})
}

func TestURLCommand(t *testing.T) {
	h := newHarness(t, &tu.TokenEndpoint{}, nil)
	h.config.Spotify.RedirectURI = "http://127.0.0.1:8888/callback"

	if err := h.run("url"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	u, err := url.Parse(strings.TrimSpace(h.output.String()))
	if err != nil {
		t.Fatalf("expected a url, got %q", h.output.String())
	}
	q := u.Query()
	if q.Get("client_id") != "abc" || q.Get("response_type") != "code" {
		t.Errorf("unexpected query %v", q)
	}
	if q.Get("redirect_uri") != "http://127.0.0.1:8888/callback" {
		t.Errorf("unexpected redirect_uri %q", q.Get("redirect_uri"))
	}
	if !strings.Contains(q.Get("scope"), "user-top-read") {
		t.Errorf("expected scopes, got %q", q.Get("scope"))
	}
}

func TestConfigInitWriteFailure(t *testing.T) {
	tt := []struct {
		name   string
		output io.Writer
	}{
		{name: "first line", output: &tu.FWriter{}},
		{name: "second line", output: func() io.Writer { lw := tu.NewLimitedWriter(1, 0, &bytes.Buffer{}); return &lw }()},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			runner := NewRunner(RunnerOpts{Output: tc.output, Logger: shared.NewLogger(&bytes.Buffer{})})

			err := runner.app().Run(context.Background(), []string{"refreshgen", "--config", path, "config", "init"})
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Output: output, Logger: shared.NewLogger(&bytes.Buffer{})})

	if err := runner.app().Run(context.Background(), []string{"refreshgen", "--config", path, "config", "init"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file, got %v", err)
	}
	if _, err := shared.LoadConfig(path); err != nil {
		t.Errorf("expected written config to load, got %v", err)
	}

	err := runner.app().Run(context.Background(), []string{"refreshgen", "--config", path, "config", "init"})
	if !errors.Is(err, shared.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig on overwrite, got %v", err)
	}
}

func TestRedirectURIConsistency(t *testing.T) {
	tt := []struct {
		name     string
		redirect string
	}{
		{name: "with path", redirect: "http://127.0.0.1:%d/callback"},
		{name: "without path", redirect: "http://127.0.0.1:%d"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			free, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				t.Fatalf("failed to find a port: %v", err)
			}
			redirect := fmt.Sprintf(tc.redirect, free.Addr().(*net.TCPAddr).Port)
			free.Close()

			var sent []string
			var mu sync.Mutex
			tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				r.ParseForm()
				mu.Lock()
				sent = append(sent, r.PostForm.Get("redirect_uri"))
				mu.Unlock()
				w.Write([]byte(`{"refresh_token":"RTOK456"}`))
			}))
			defer tokenServer.Close()

			var authorizeURL string
			h := newHarness(t, &tu.TokenEndpoint{}, func(state string) string {
				return url.Values{"code": {"CODE123"}, "state": {state}}.Encode()
			})
			h.config.Spotify.RedirectURI = redirect
			h.config.Spotify.TokenURL = tokenServer.URL
			open := h.runner.openBrowser
			h.runner.openBrowser = func(u string) error {
				authorizeURL = u
				return open(u)
			}

			if err := h.run(); err != nil {
				t.Fatalf("authorize: %v", err)
			}
			if err := h.run("exchange", "--code", "CODE123"); err != nil {
				t.Fatalf("exchange: %v", err)
			}
			h.output.Reset()
			if err := h.run("url"); err != nil {
				t.Fatalf("url: %v", err)
			}

			printed, err := url.Parse(strings.TrimSpace(h.output.String()))
			if err != nil {
				t.Fatalf("expected a url, got %q", h.output.String())
			}
			opened, err := url.Parse(authorizeURL)
			if err != nil {
				t.Fatalf("expected a url, got %q", authorizeURL)
			}

			got := append([]string{opened.Query().Get("redirect_uri"), printed.Query().Get("redirect_uri")}, sent...)
			if len(got) != 4 {
				t.Fatalf("expected 4 redirect uris, got %v", got)
			}
			for _, uri := range got {
				if uri != redirect {
					t.Errorf("expected every request to send %q, got %v", redirect, got)
					break
				}
			}
		})
	}
}
