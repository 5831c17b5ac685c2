package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chapterworks/spwalk/internal/history"
	"github.com/chapterworks/spwalk/internal/service"
	"github.com/chapterworks/spwalk/internal/walk"
)

type accessTokenRequest struct {
	AccessToken string `json:"accessToken"`
}

type accessTokenResponse struct {
	Message string           `json:"message"`
	RunID   string           `json:"runId"`
	Forest  []*walk.Node     `json:"forest"`
	Files   []walk.FileEntry `json:"files"`
}

func (s *Server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	logger := loggerFrom(r.Context(), s.logger)

	r.Body = http.MaxBytesReader(w, r.Body, s.holder.Config().Server.MaxBodyBytes())

	var req accessTokenRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, msgBodyTooLarge, http.StatusRequestEntityTooLarge)
			return
		}

		// An unreadable body carries no token.
		logger.Debug("request body not decodable", slog.String("error", err.Error()))
	}

	res, err := s.runner.RunWithOptions(r.Context(), req.AccessToken, service.RunOptions{Source: history.SourceHTTP})
	if err != nil {
		status, body := statusFor(err)
		logger.Warn("access token flow failed",
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		http.Error(w, body, status)

		return
	}

	writeJSON(w, logger, http.StatusOK, accessTokenResponse{
		Message: msgComplete,
		RunID:   res.RunID,
		Forest:  res.Forest,
		Files:   res.Files,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, loggerFrom(r.Context(), s.logger), http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing response failed", slog.String("error", err.Error()))
	}
}
