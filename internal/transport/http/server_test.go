package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etkin-ai/webchat/internal/agent/knowledge"
	"github.com/etkin-ai/webchat/internal/agent/model"
	"github.com/etkin-ai/webchat/internal/agent/repo"
	"github.com/etkin-ai/webchat/internal/agent/service"
	"github.com/etkin-ai/webchat/internal/core"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	a, err := service.Build(context.Background(), service.Config{
		Environment:      core.Testing,
		ConversationRepo: repo.NewMemoryConversationRepository(),
		KnowledgeStore:   knowledge.NewStore(knowledge.Defaults()),
	})
	require.NoError(t, err)
	return NewHandler(a, Options{AppName: "Test App", AllowedOrigins: []string{"*"}})
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"Test App"}`, w.Body.String())
}

func TestChat(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"12345 sipariş durumum ne?","session_id":"s1"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Response  string         `json:"response"`
		SessionID string         `json:"session_id"`
		Metadata  map[string]any `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Response, "12345")
	assert.Equal(t, "s1", body.SessionID)
	assert.Equal(t, "tool", body.Metadata["intent"])
	assert.Equal(t, "check_order_status", body.Metadata["tool_name"])
	assert.Equal(t, []any{}, body.Metadata["kb_hits"])
}

func TestChat_NullMetadataFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"Merhaba","session_id":"s1"}`))
	w := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	md := body["metadata"]
	assert.Contains(t, md, "tool_name")
	assert.Nil(t, md["tool_name"])
	assert.Nil(t, md["tool_result"])
	assert.Equal(t, "general", md["intent"])
}

func TestChat_Validation(t *testing.T) {
	h := newTestHandler(t)
	for _, payload := range []string{
		`{"session_id":"s1"}`,
		`{"message":"","session_id":"s1"}`,
		`{"message":"   ","session_id":"s1"}`,
		`{"message":"merhaba"}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(payload))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, payload)
	}
}

type failingAssistant struct{}

func (failingAssistant) RunTurn(context.Context, string, string) (*model.TurnResult, error) {
	return nil, errors.New("secret internal detail")
}

func TestChat_InternalErrorHidesDetail(t *testing.T) {
	h := NewHandler(failingAssistant{}, Options{AllowedOrigins: []string{"*"}})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"x","session_id":"s1"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestCORS(t *testing.T) {
	h := NewHandler(failingAssistant{}, Options{AllowedOrigins: []string{"https://shop.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://shop.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocket(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(t))
	defer srv.Close()
	conn := dialWS(t, srv, "?session_id=ws-1")

	var frame map[string]any

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("iade politikası nedir?")))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "response", frame["type"])
	assert.Equal(t, "ws-1", frame["session_id"])
	assert.Contains(t, frame["response"], "14 gün")

	frame = nil
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"ankara ücreti","session_id":"ws-2"}`)))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "ws-2", frame["session_id"])
	assert.Equal(t, "Ankara için tahmini kargo ücreti: 30 TL", frame["response"])

	frame = nil
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"message":"  "}`)))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame["type"])
	assert.Equal(t, emptyMessageError, frame["error"])
	assert.Equal(t, "ws-2", frame["session_id"])
}

func TestWebSocket_GeneratesSessionID(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(t))
	defer srv.Close()
	conn := dialWS(t, srv, "")

	var frame map[string]any
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("Merhaba")))
	require.NoError(t, conn.ReadJSON(&frame))

	sid, _ := frame["session_id"].(string)
	assert.True(t, strings.HasPrefix(sid, "session-"))
	assert.Len(t, sid, len("session-")+32)
}

func TestWebSocket_ConcurrentClients(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(t))
	defer srv.Close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if !assert.NoError(t, err) {
				return
			}
			defer conn.Close()
			var frame map[string]any
			assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("kargo")))
			assert.NoError(t, conn.ReadJSON(&frame))
			assert.Equal(t, "response", frame["type"])
		}()
	}
	wg.Wait()
}

func TestParseFrame(t *testing.T) {
	msg, sid := parseFrame([]byte(" merhaba "))
	assert.Equal(t, "merhaba", msg)
	assert.Empty(t, sid)

	msg, sid = parseFrame([]byte(`{"message":"selam","session_id":"abc"}`))
	assert.Equal(t, "selam", msg)
	assert.Equal(t, "abc", sid)

	msg, _ = parseFrame([]byte(`{"session_id":"abc"}`))
	assert.Empty(t, msg)

	msg, _ = parseFrame([]byte(`{"message":12345}`))
	assert.Equal(t, "12345", msg)
}
