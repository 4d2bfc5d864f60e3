package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/etkin-ai/webchat/internal/agent/model"
	errx "github.com/etkin-ai/webchat/internal/core/error"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

type wsFrame struct {
	Type      string              `json:"type"`
	Response  string              `json:"response,omitempty"`
	Error     string              `json:"error,omitempty"`
	SessionID string              `json:"session_id"`
	Metadata  *model.TurnMetadata `json:"metadata,omitempty"`
}

// WebSocket handles GET /ws. Each text frame is a turn, either raw text or
// a {"message", "session_id"} object.
func (s *Server) WebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = newSessionID()
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	log := logx.Session(sessionID)
	log.Info().Msg("WebSocket connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("WebSocket read failed")
			} else {
				log.Info().Msg("WebSocket disconnected")
			}
			return
		}

		message, payloadSession := parseFrame(raw)
		if payloadSession != "" {
			sessionID = payloadSession
		}

		if message == "" {
			if err := conn.WriteJSON(wsFrame{Type: "error", Error: emptyMessageError, SessionID: sessionID}); err != nil {
				return
			}
			continue
		}

		res, err := s.assistant.RunTurn(r.Context(), sessionID, message)
		if err != nil {
			frame := wsFrame{Type: "error", Error: serverError, SessionID: sessionID}
			if errors.Is(err, errx.ErrEmptyMessage) {
				frame.Error = emptyMessageError
			} else {
				log.Error().Err(err).Msg("WebSocket turn failed")
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(wsFrame{
			Type:      "response",
			Response:  res.Response,
			SessionID: sessionID,
			Metadata:  &res.Metadata,
		}); err != nil {
			log.Warn().Err(err).Msg("WebSocket write failed")
			return
		}
	}
}

// parseFrame accepts a JSON object carrying message and session_id, or
// treats the whole frame as the message text.
func parseFrame(raw []byte) (message, sessionID string) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return strings.TrimSpace(string(raw)), ""
	}
	if v, ok := obj["message"]; ok && v != nil {
		message = strings.TrimSpace(stringify(v))
	}
	if v, ok := obj["session_id"]; ok && v != nil {
		sessionID = strings.TrimSpace(stringify(v))
	}
	return message, sessionID
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func newSessionID() string {
	return "session-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
