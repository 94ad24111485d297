package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")

	// Callback listener errors
	ErrBind = fmt.Errorf("callback listener bind failed")

	// Authorization errors
	ErrAuthDenied = fmt.Errorf("authorization denied")
	ErrTimeout    = fmt.Errorf("operation timed out")

	// Token exchange errors
	ErrExchangeFailed = fmt.Errorf("token request failed")
	ErrNoRefreshToken = fmt.Errorf("refresh_token not found in response")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
