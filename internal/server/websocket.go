package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/chapterworks/spwalk/internal/history"
	"github.com/chapterworks/spwalk/internal/service"
	"github.com/chapterworks/spwalk/internal/walk"
)

// Frame types sent on /ws.
const (
	frameFolder = "folder"
	frameResult = "result"
	frameError  = "error"
)

type folderFrame struct {
	Type   string            `json:"type"`
	Folder *walk.FolderEvent `json:"folder"`
}

type resultFrame struct {
	Type string `json:"type"`
	accessTokenResponse
}

type errorFrame struct {
	Type   string `json:"type"`
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// handleWebSocket runs the same operation as POST /accessToken. The client
// sends {"accessToken": "..."} as its first message and receives one
// "folder" frame per discovered drive or folder, then a final "result" or
// "error" frame, after which the server closes the connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	logger := loggerFrom(r.Context(), s.logger)
	cfg := s.holder.Config()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originHosts(cfg.Server.AllowedOrigins),
	})
	if err != nil {
		logger.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	conn.SetReadLimit(cfg.Server.MaxBodyBytes())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var req accessTokenRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		logger.Debug("websocket request not readable", slog.String("error", err.Error()))

		if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
			return
		}
	}

	// Nothing else is read; this processes the client's close frame and
	// cancels the walk when the client goes away.
	ctx = conn.CloseRead(ctx)

	onFolder := func(ev walk.FolderEvent) {
		if ctx.Err() != nil {
			return
		}

		if err := wsjson.Write(ctx, conn, folderFrame{Type: frameFolder, Folder: &ev}); err != nil {
			logger.Debug("websocket client gone, canceling walk", slog.String("error", err.Error()))
			cancel()
		}
	}

	res, err := s.runner.RunWithOptions(ctx, req.AccessToken, service.RunOptions{
		Source:   history.SourceWebSocket,
		OnFolder: onFolder,
	})

	var final any

	if err != nil {
		status, body := statusFor(err)
		logger.Warn("websocket flow failed",
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)

		final = errorFrame{Type: frameError, Status: status, Error: body}
	} else {
		final = resultFrame{Type: frameResult, accessTokenResponse: accessTokenResponse{
			Message: msgComplete,
			RunID:   res.RunID,
			Forest:  res.Forest,
			Files:   res.Files,
		}}
	}

	if ctx.Err() != nil {
		return
	}

	if err := wsjson.Write(ctx, conn, final); err != nil {
		logger.Debug("writing final websocket frame failed", slog.String("error", err.Error()))
		return
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

// originHosts converts allowed origins ("http://localhost:5173") to the
// host patterns the websocket handshake checks.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))

	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}

		hosts = append(hosts, u.Host)
	}

	return hosts
}
