package server

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"sync"

	"github.com/desertthunder/refreshgen/internal/models"
)

const stateMismatch = "state mismatch"

// CallbackHandler receives the OAuth2 authorization redirect.
//
// The first request decides the [models.AuthorizationResult]; any request after it is rejected and changes nothing.
// It implements [Handler] for registration with a [Router].
type CallbackHandler struct {
	path       string
	state      string
	resultChan chan models.AuthorizationResult
	once       sync.Once

	mu          sync.Mutex
	callbackHit bool
}

// NewCallbackHandler creates a handler serving path.
//
// When state is non-empty, a callback carrying a different state is recorded as an error.
// A callback without a state parameter is accepted.
func NewCallbackHandler(path, state string) *CallbackHandler {
	return &CallbackHandler{
		path:       path,
		state:      state,
		resultChan: make(chan models.AuthorizationResult, 1),
	}
}

// Method returns the HTTP method the callback accepts.
func (h *CallbackHandler) Method() string {
	return http.MethodGet
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the redirect: 200 with a success page when it carries a code, 400 with a failure page otherwise.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	result := ParseCallback(r.URL.RawQuery, h.state)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if result.Granted() {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, successPage)
	} else {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, failurePage, html.EscapeString(result.Reason))
	}

	h.Send(result)
}

// ParseCallback maps a redirect query string to a [models.AuthorizationResult].
//
// A malformed query is treated as one with no parameters.
// A state mismatch takes precedence over a code: the result is an error even when code is present.
func ParseCallback(rawQuery, expectedState string) models.AuthorizationResult {
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		query = url.Values{}
	}

	if got := query.Get("state"); expectedState != "" && got != "" && got != expectedState {
		return models.ErrorResult(stateMismatch)
	}

	if code := query.Get("code"); code != "" {
		return models.CodeResult(code)
	}

	return models.ErrorResult(query.Get("error"))
}

// Send delivers the result through the channel (only once).
func (h *CallbackHandler) Send(result models.AuthorizationResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel that receives the callback's outcome.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan models.AuthorizationResult {
	return h.resultChan
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Authorization Successful!</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`

const failurePage = `<!DOCTYPE html>
<html>
<head>
    <title>Authorization Failed</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #E22134; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Authorization Failed</h1>
        <p>Error: %s. Please try again.</p>
    </div>
</body>
</html>
`
