package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/refreshgen/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := runner.app().Run(ctx, os.Args); err != nil {
		code := exitCode(err)
		logger.Error("refreshgen failed", "error", err, "exit_code", code)
		stop()
		os.Exit(code)
	}
}
