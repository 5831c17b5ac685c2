package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/chapterworks/spwalk/internal/graph"
	"github.com/chapterworks/spwalk/internal/walk"
)

// Reasons recorded in run history for failures that carry no status.
const (
	reasonMissingToken   = "missing_token"
	reasonNoTargetFolder = "no_target_folder"
	reasonTimeout        = "timeout"
	reasonCanceled       = "canceled"
	reasonInternal       = "internal"
)

// failureReason reduces err to a short classification safe to persist.
// Error text is never used: Graph errors carry request URLs with drive and
// item ids, and exchange errors may echo identity endpoint bodies.
func failureReason(err error) string {
	var (
		authErr  *graph.AuthExchangeError
		graphErr *graph.GraphError
	)

	switch {
	case errors.Is(err, ErrMissingToken):
		return reasonMissingToken
	case errors.As(err, &authErr):
		return authReason(authErr)
	case errors.As(err, &graphErr):
		return fmt.Sprintf("graph_%d", graphErr.StatusCode)
	case errors.Is(err, walk.ErrNoTargetFolder):
		return reasonNoTargetFolder
	case errors.Is(err, context.DeadlineExceeded):
		return reasonTimeout
	case errors.Is(err, context.Canceled):
		return reasonCanceled
	default:
		return reasonInternal
	}
}

func authReason(e *graph.AuthExchangeError) string {
	reason := "auth_" + e.Step

	var retrieveErr *oauth2.RetrieveError
	if errors.As(e, &retrieveErr) && retrieveErr.Response != nil {
		reason += fmt.Sprintf("_%d", retrieveErr.Response.StatusCode)
	}

	return reason
}
