// Package http exposes the assistant over REST and WebSocket.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/etkin-ai/webchat/internal/agent/model"
	errx "github.com/etkin-ai/webchat/internal/core/error"
	logx "github.com/etkin-ai/webchat/pkg/logger"
)

const (
	emptyMessageError = "Mesaj alanı boş olamaz"
	serverError       = "Sunucu hatası"
)

// TurnRunner answers one chat turn.
type TurnRunner interface {
	RunTurn(ctx context.Context, sessionID, message string) (*model.TurnResult, error)
}

type Options struct {
	AppName        string
	AllowedOrigins []string
}

// Server serves the chat endpoints.
type Server struct {
	assistant TurnRunner
	opts      Options
	upgrader  websocket.Upgrader
}

// NewHandler creates the HTTP handler with all routes mounted.
func NewHandler(assistant TurnRunner, opts Options) http.Handler {
	if opts.AppName == "" {
		opts.AppName = "WebChat AI Assistant"
	}
	s := &Server{assistant: assistant, opts: opts}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.originAllowed,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/api/health", s.Health)
	r.Post("/api/chat", s.Chat)
	r.Get("/ws", s.WebSocket)
	return r
}

type chatRequest struct {
	Message   *string `json:"message"`
	SessionID *string `json:"session_id"`
}

type chatResponse struct {
	Response  string             `json:"response"`
	SessionID string             `json:"session_id"`
	Metadata  model.TurnMetadata `json:"metadata"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Health handles GET /api/health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": s.opts.AppName})
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: errx.ValidationErrorMessage, Detail: "invalid JSON body"})
		return
	}
	if body.SessionID == nil || strings.TrimSpace(*body.SessionID) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: errx.ValidationErrorMessage, Detail: "session_id is required"})
		return
	}
	if body.Message == nil || strings.TrimSpace(*body.Message) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: errx.ValidationErrorMessage, Detail: "Mesaj alanı boş bırakılamaz"})
		return
	}

	res, err := s.assistant.RunTurn(r.Context(), *body.SessionID, *body.Message)
	if err != nil {
		status := errx.StatusOf(err)
		if status >= http.StatusInternalServerError {
			logx.Error().Err(err).Str("session_id", *body.SessionID).Msg("Chat turn failed")
		}
		writeJSON(w, status, errorResponse{Error: publicMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  res.Response,
		SessionID: *body.SessionID,
		Metadata:  res.Metadata,
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.originListed(origin) {
			if slices.Contains(s.opts.AllowedOrigins, "*") {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originListed(origin string) bool {
	for _, o := range s.opts.AllowedOrigins {
		if o == "*" || strings.EqualFold(strings.TrimSpace(o), origin) {
			return true
		}
	}
	return false
}

func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.originListed(origin)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logx.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// publicMessage hides internal error details from clients.
func publicMessage(err error) string {
	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return errx.SystemErrorMessage
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("Response encode failed")
	}
}
