package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/refreshgen/internal/services"
	"github.com/desertthunder/refreshgen/internal/shared"
	"github.com/desertthunder/refreshgen/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	status      io.Writer
	openBrowser func(string) error
	interactive bool
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config // overrides the --config file when set
	HTTPClient  *http.Client   // used for the token request; built from the config timeout when nil
	Logger      *log.Logger
	Output      io.Writer // results
	Status      io.Writer // progress and hints
	OpenBrowser func(string) error
	Interactive bool // show the wait spinner even when Status is not a terminal
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Status == nil {
		opts.Status = os.Stderr
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		status:      opts.Status,
		openBrowser: opts.OpenBrowser,
		interactive: opts.Interactive || isTerminal(opts.Status),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		authorizeCommand, urlCommand, exchangeCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig returns the injected config, the file at path, or the defaults when path does not exist.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	if r.config != nil {
		return r.config, r.config.Validate()
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return shared.DefaultConfig(), nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidConfig, path, err)
	}
	r.logger.Debug("loaded config", "path", path)
	return config, nil
}

// exchanger loads credentials and config and builds the Spotify exchanger.
//
// Everything here happens before any network activity.
func (r *Runner) exchanger(cmd *cli.Command) (*services.SpotifyAuth, *shared.Config, error) {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}

	creds, err := shared.LoadCredentials(cmd.String("env-file"))
	if err != nil {
		return nil, nil, err
	}

	srv, err := services.NewSpotifyAuth(services.SpotifyAuthOpts{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Scopes:       config.Spotify.Scopes,
		AuthURL:      config.Spotify.AuthURL,
		TokenURL:     config.Spotify.TokenURL,
		Timeout:      config.Auth.RequestTimeout(),
		HTTPClient:   r.httpClient,
		Logger:       r.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return srv, config, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// writeStatus writes progress text that should not mix with results on stdout.
func (r *Runner) writeStatus(format string, args ...any) {
	fmt.Fprintf(r.status, format, args...)
}

func (r *Runner) palette() *ui.Palette {
	return ui.NewPalette(r.status)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
