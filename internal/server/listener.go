package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/refreshgen/internal/models"
	"github.com/desertthunder/refreshgen/internal/shared"
)

// Listener is the short-lived local HTTP server that receives the authorization redirect.
type Listener struct {
	server   *http.Server
	ln       net.Listener
	callback *CallbackHandler
	redirect *url.URL
	errs     chan error
	logger   *log.Logger
}

// Listen binds the host and port of redirect and starts serving the callback in the background.
//
// The bind happens before Listen returns, so a port already in use is reported as [shared.ErrBind] here.
// A redirect with port 0 binds an ephemeral port, and [Listener.RedirectURI] reports the bound address.
func Listen(redirect *url.URL, state string, logger *log.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrBind, redirect.Host, err)
	}

	effective := *redirect
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok && redirect.Port() == "0" {
		effective.Host = net.JoinHostPort(redirect.Hostname(), strconv.Itoa(tcp.Port))
	}

	route := effective.Path
	if route == "" {
		route = "/"
	}

	callback := NewCallbackHandler(route, state)
	var router Router = NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handler(callback)

	l := &Listener{
		server: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln:       ln,
		callback: callback,
		redirect: &effective,
		errs:     make(chan error, 1),
		logger:   logger,
	}

	go l.serve()

	return l, nil
}

func (l *Listener) serve() {
	l.logger.Debug("callback listener started", "addr", l.ln.Addr().String())
	if err := l.server.Serve(l.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.errs <- err
	}
}

// RedirectURI is the redirect URI this listener answers, with the bound port filled in.
func (l *Listener) RedirectURI() string {
	return l.redirect.String()
}

// Addr returns the bound network address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Result returns the one-shot channel carrying the first callback's outcome.
func (l *Listener) Result() <-chan models.AuthorizationResult {
	return l.callback.Result()
}

// Errors returns a channel that receives a serve failure, if any.
func (l *Listener) Errors() <-chan error {
	return l.errs
}

// Close stops accepting connections and waits for in-flight requests up to the context deadline.
func (l *Listener) Close(ctx context.Context) error {
	if err := l.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down callback listener: %w", err)
	}
	l.logger.Debug("callback listener stopped")
	return nil
}
