package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/refreshgen/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the embedded default configuration to the --config path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	r.logger.Info("config file created", "path", path)
	if err := r.writePlain("✓ Configuration written to %s\n", path); err != nil {
		return err
	}
	return r.writePlain("Set CLIENT_ID and CLIENT_SECRET in your environment or a .env file, then run 'refreshgen'.\n")
}
