package services

import (
	"fmt"
	"strings"

	"github.com/desertthunder/refreshgen/internal/shared"
)

// ExchangeError describes a failed token exchange.
//
// Kind is [shared.ErrExchangeFailed] for transport and non-2xx failures, or [shared.ErrNoRefreshToken] when the endpoint answered without a refresh token.
// StatusCode is zero when no response was received.
type ExchangeError struct {
	Kind       error
	StatusCode int
	Body       string
	Err        error
}

func (e *ExchangeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ", body: %s", e.Body)
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause to [errors.Is] and [errors.As].
func (e *ExchangeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func transportError(status int, body []byte, err error) *ExchangeError {
	return &ExchangeError{Kind: shared.ErrExchangeFailed, StatusCode: status, Body: string(body), Err: err}
}

func missingFieldError(status int, body []byte, err error) *ExchangeError {
	return &ExchangeError{Kind: shared.ErrNoRefreshToken, StatusCode: status, Body: string(body), Err: err}
}
