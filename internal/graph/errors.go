// Package graph provides a Microsoft Graph client for listing SharePoint
// drives and folder children, plus the identity-platform token exchanges
// (on-behalf-of and refresh) that produce the Graph-scoped token.
package graph

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, graph.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("graph: bad request")
	ErrUnauthorized = errors.New("graph: unauthorized")
	ErrForbidden    = errors.New("graph: forbidden")
	ErrNotFound     = errors.New("graph: not found")
	ErrThrottled    = errors.New("graph: throttled")
	ErrServerError  = errors.New("graph: server error")
	ErrUnexpected   = errors.New("graph: unexpected status")
)

// GraphError is returned for every non-2xx Graph response. It carries the
// failing URL and the status text for diagnostics, plus a sentinel for
// errors.Is(). Requests are never retried.
type GraphError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string // e.g. "404 Not Found"
	RequestID  string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *GraphError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("graph: failed to fetch %s: %s (request-id: %s)", e.URL, e.Status, e.RequestID)
	}

	return fmt.Sprintf("graph: failed to fetch %s: %s", e.URL, e.Status)
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-2xx HTTP status code to a sentinel error.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return ErrUnexpected
	}
}

// ErrNoAccessToken is wrapped by AuthExchangeError when the identity endpoint
// answered but the response did not carry an access token.
var ErrNoAccessToken = errors.New("graph: token response missing access_token")

// Token exchange steps, reported in AuthExchangeError.Step.
const (
	StepOnBehalfOf = "on_behalf_of"
	StepRefresh    = "refresh"
)

// AuthExchangeError reports a token exchange that did not yield an access
// token. Step identifies which leg of the chain failed.
type AuthExchangeError struct {
	Step string
	Err  error
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("graph: %s token exchange failed: %v", e.Step, e.Err)
}

func (e *AuthExchangeError) Unwrap() error {
	return e.Err
}
