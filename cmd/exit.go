package main

import (
	"errors"

	"github.com/desertthunder/refreshgen/internal/shared"
)

// Process exit codes, one per failure kind.
const (
	exitOK        = 0
	exitFailure   = 1
	exitConfig    = 2
	exitBind      = 3
	exitDenied    = 4
	exitTimeout   = 5
	exitExchange  = 6
	exitNoRefresh = 7
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, shared.ErrMissingCredentials), errors.Is(err, shared.ErrInvalidConfig):
		return exitConfig
	case errors.Is(err, shared.ErrBind):
		return exitBind
	case errors.Is(err, shared.ErrAuthDenied):
		return exitDenied
	case errors.Is(err, shared.ErrTimeout):
		return exitTimeout
	case errors.Is(err, shared.ErrNoRefreshToken):
		return exitNoRefresh
	case errors.Is(err, shared.ErrExchangeFailed):
		return exitExchange
	default:
		return exitFailure
	}
}
