package shared

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Credentials holds the client id and secret of the Spotify app.
type Credentials struct {
	ClientID     string `env:"CLIENT_ID,notEmpty"`
	ClientSecret string `env:"CLIENT_SECRET,notEmpty"`
}

// LoadCredentials reads [Credentials] from the environment.
//
// If envFile is set and exists it is loaded first. Variables already present in the process environment take precedence over the file.
func LoadCredentials(envFile string) (*Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, envFile, err)
		}
	}

	var creds Credentials
	if err := env.Parse(&creds); err != nil {
		return nil, fmt.Errorf("%w: CLIENT_ID and CLIENT_SECRET must be set: %v", ErrMissingCredentials, err)
	}
	return &creds, nil
}
