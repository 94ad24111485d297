package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/refreshgen/internal/models"
	"github.com/desertthunder/refreshgen/internal/server"
	"github.com/desertthunder/refreshgen/internal/services"
	"github.com/desertthunder/refreshgen/internal/shared"
	"github.com/desertthunder/refreshgen/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const shutdownTimeout = 5 * time.Second

// flowState names the steps of an authorization run, for logging.
type flowState string

const (
	stateIdle       flowState = "idle"
	stateAwaiting   flowState = "awaiting_authorization"
	stateExchanging flowState = "exchanging"
	stateDone       flowState = "done"
)

// flowParams holds what one authorization run needs.
type flowParams struct {
	exchanger   services.Exchanger
	redirect    *url.URL
	timeout     time.Duration
	openBrowser bool
}

// Authorize performs the OAuth2 authorization code flow for Spotify.
//
// Starts a local HTTP listener, opens the browser for user authorization, and exchanges the code for a refresh token.
func (r *Runner) Authorize(ctx context.Context, cmd *cli.Command) error {
	srv, config, err := r.exchanger(cmd)
	if err != nil {
		return err
	}

	redirect, err := config.Spotify.Redirect()
	if err != nil {
		return err
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = config.Auth.Timeout()
	}

	token, err := r.authorize(ctx, flowParams{
		exchanger:   srv,
		redirect:    redirect,
		timeout:     timeout,
		openBrowser: config.Auth.OpenBrowser && !cmd.Bool("no-browser"),
	})
	if err != nil {
		return err
	}

	return r.printToken(token, cmd.Bool("json"))
}

// AuthURL prints the authorization URL for the configured client and redirect URI.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	srv, config, err := r.exchanger(cmd)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", srv.AuthURL(config.Spotify.RedirectURI, ""))
}

// Exchange trades a code obtained outside this program for a refresh token.
func (r *Runner) Exchange(ctx context.Context, cmd *cli.Command) error {
	code := cmd.String("code")
	if code == "" {
		return fmt.Errorf("%w: --code flag is required", shared.ErrMissingArgument)
	}

	srv, config, err := r.exchanger(cmd)
	if err != nil {
		return err
	}

	redirectURI := cmd.String("redirect-uri")
	if redirectURI == "" {
		redirectURI = config.Spotify.RedirectURI
	}

	r.logger.Info("exchanging authorization code", "provider", srv.Name())
	token, err := srv.Exchange(ctx, code, redirectURI)
	if err != nil {
		return err
	}

	return r.printToken(token, cmd.Bool("json"))
}

// authorize runs idle → awaiting_authorization → exchanging → done.
//
// Every failure is terminal. The listener is closed before returning on all paths.
func (r *Runner) authorize(ctx context.Context, p flowParams) (*models.TokenResponse, error) {
	logger := shared.WithLogger(r.logger, "component", "authorize")
	logger.Debug("flow state", "state", stateIdle)

	state := shared.GenerateState()
	listener, err := server.Listen(p.redirect, state, shared.WithLogger(r.logger, "component", "listener"))
	if err != nil {
		return nil, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := listener.Close(shutdownCtx); err != nil {
			logger.Warn("error shutting down listener", "error", err)
		}
	}()

	redirectURI := listener.RedirectURI()
	authURL := p.exchanger.AuthURL(redirectURI, state)

	logger.Debug("flow state", "state", stateAwaiting, "redirect_uri", redirectURI)
	r.launchBrowser(authURL, p.openBrowser)

	result, err := r.await(ctx, listener, p.timeout)
	if err != nil {
		return nil, err
	}
	if !result.Granted() {
		return nil, fmt.Errorf("%w: %s", shared.ErrAuthDenied, result.Reason)
	}

	logger.Debug("flow state", "state", stateExchanging)
	r.writeStatus("%s Exchanging for refresh token...\n", r.palette().OK("✓ Authorization code received."))

	token, err := p.exchanger.Exchange(ctx, result.Code, redirectURI)
	if err != nil {
		return nil, err
	}

	logger.Debug("flow state", "state", stateDone)
	return token, nil
}

// launchBrowser opens authURL, falling back to printing it when the browser cannot be started.
func (r *Runner) launchBrowser(authURL string, open bool) {
	p := r.palette()
	if !open {
		r.writeStatus("%s", p.ManualURLHint(authURL))
		return
	}

	r.writeStatus("→ Opening your browser to authorize the application...\n")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writeStatus("%s\n%s", p.Err("✗ Could not open a browser."), p.ManualURLHint(authURL))
		return
	}
	r.writeStatus("%s\n%s\n", p.Help("If it doesn't open, please go to this URL:"), authURL)
}

// await blocks until the listener reports a callback, fails, the timeout elapses or ctx is done.
func (r *Runner) await(ctx context.Context, listener *server.Listener, timeout time.Duration) (models.AuthorizationResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if r.interactive {
		stop := ui.StartWait(r.status, ui.NewWaitModel(r.palette(), "Waiting for authorization", time.Now().Add(timeout)))
		defer func() {
			if err := stop(); err != nil {
				r.logger.Debug("wait spinner stopped with error", "error", err)
			}
		}()
	} else {
		r.writeStatus("→ Waiting for authorization (%v timeout)...\n", timeout)
	}

	select {
	case result := <-listener.Result():
		return result, nil
	case err := <-listener.Errors():
		return models.AuthorizationResult{}, fmt.Errorf("callback listener failed: %w", err)
	case <-timer.C:
		return models.AuthorizationResult{}, fmt.Errorf("%w: no authorization received after %v", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return models.AuthorizationResult{}, fmt.Errorf("authorization canceled: %w", ctx.Err())
	}
}

// printToken writes the refresh token banner, or the token as JSON with its expiry resolved.
func (r *Runner) printToken(token *models.TokenResponse, asJSON bool) error {
	if asJSON {
		return r.writeJSON(struct {
			*oauth2.Token
			Scope string `json:"scope,omitempty"`
		}{token.Token(time.Now()), token.Scope}, true)
	}
	return ui.WriteBanner(r.output, token.RefreshToken)
}
