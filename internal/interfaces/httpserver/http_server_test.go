package httpserver_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/support-chat/internal/config"
	"github.com/janhq/support-chat/internal/domain/admission"
	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/domain/chatstream"
	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/domain/generation"
	"github.com/janhq/support-chat/internal/infrastructure/cache"
	"github.com/janhq/support-chat/internal/infrastructure/ratelimit"
	repo "github.com/janhq/support-chat/internal/infrastructure/repository/conversation"
	"github.com/janhq/support-chat/internal/interfaces/httpserver"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/handlers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fragmentStream struct {
	fragments []string
	err       error
}

func (s *fragmentStream) Recv() (string, error) {
	if len(s.fragments) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	next := s.fragments[0]
	s.fragments = s.fragments[1:]
	return next, nil
}

func (s *fragmentStream) Close() error { return nil }

// fakeGenerator replies with fixed fragments, or fails with err after them.
type fakeGenerator struct {
	fragments []string
	err       error
	calls     atomic.Int32
}

func (g *fakeGenerator) GenerateStream(context.Context, []conversation.Message, string) (generation.Stream, error) {
	g.calls.Add(1)
	return &fragmentStream{fragments: append([]string(nil), g.fragments...), err: g.err}, nil
}

func (g *fakeGenerator) Generate(ctx context.Context, history []conversation.Message, userText string) (string, error) {
	stream, err := g.GenerateStream(ctx, history, userText)
	if err != nil {
		return "", err
	}
	text, err := generation.Collect(stream)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

type testServer struct {
	server *httpserver.HTTPServer
	store  *repo.InMemoryRepository
}

type serverOption func(*serverOptions)

type serverOptions struct {
	limits httpserver.Admission
	checks []handlers.ReadinessCheck
}

func withLimits(limits httpserver.Admission) serverOption {
	return func(o *serverOptions) { o.limits = limits }
}

func withChecks(checks ...handlers.ReadinessCheck) serverOption {
	return func(o *serverOptions) { o.checks = checks }
}

func newTestServer(t *testing.T, generator generation.Generator, opts ...serverOption) *testServer {
	t.Helper()

	var options serverOptions
	for _, opt := range opts {
		opt(&options)
	}

	cfg := &config.Config{
		ServiceName:      "support-chat-test",
		Environment:      "test",
		HTTPPort:         0,
		MaxMessageLength: 50,
		CORSOrigin:       "http://localhost:5173",
		ShutdownTimeout:  time.Second,
	}

	log := zerolog.Nop()
	store := repo.NewInMemoryRepository()
	history := conversation.NewHistory(store, nil, time.Hour, log)
	service := chat.NewService(store, history, generator, chat.Config{MaxMessageLength: cfg.MaxMessageLength}, nil, log)

	limiter := options.limits.Limiter
	protocol := chatstream.NewProtocol(service, generator, limiter, options.limits.Chat, nil, log)

	provider := handlers.NewDefaultProvider(handlers.NewSettings(cfg), service, protocol, chatstream.NopObserver(), options.checks, log)
	return &testServer{
		server: httpserver.New(cfg, log, provider, nil, options.limits),
		store:  store,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestSendMessageThenHistory(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{fragments: []string{"Hi! ", "How can I help?"}})

	rec := srv.do(t, http.MethodPost, "/v1/chat/message", `{"message":"Hello"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Hi! How can I help?", body["reply"])
	sessionID, _ := body["sessionId"].(string)
	require.True(t, conversation.IsValidID(sessionID))
	_, err := time.Parse(conversation.TimestampLayout, body["timestamp"].(string))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = srv.do(t, http.MethodPost, "/v1/chat/message", `{"message":"Thanks","sessionId":"`+sessionID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sessionID, decode(t, rec)["sessionId"])

	rec = srv.do(t, http.MethodGet, "/v1/chat/history/"+sessionID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var history struct {
		SessionID string `json:"sessionId"`
		Messages  []struct {
			ID        string `json:"id"`
			Sender    string `json:"sender"`
			Text      string `json:"text"`
			Timestamp string `json:"timestamp"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, sessionID, history.SessionID)
	require.Len(t, history.Messages, 4)
	assert.Equal(t, "user", history.Messages[0].Sender)
	assert.Equal(t, "Hello", history.Messages[0].Text)
	assert.Equal(t, "ai", history.Messages[1].Sender)
	assert.Equal(t, "Thanks", history.Messages[2].Text)
}

func TestSendMessageValidation(t *testing.T) {
	gen := &fakeGenerator{fragments: []string{"unused"}}
	srv := newTestServer(t, gen)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing message", `{}`, "Message cannot be empty"},
		{"blank message", `{"message":"   "}`, "Message cannot be empty"},
		{"too long", `{"message":"` + strings.Repeat("x", 51) + `"}`, "Message too long (max 50 characters)"},
		{"malformed session", `{"message":"hi","sessionId":"abc"}`, "Invalid session ID format"},
		{"not json", `message=hi`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/v1/chat/message", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.want, body["error"])
			assert.Equal(t, "validation_error", body["type"])
		})
	}
	assert.Zero(t, gen.calls.Load())
}

func TestSendMessageUnknownSessionStartsNewConversation(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{fragments: []string{"ok"}})
	unknown := conversation.NewID()

	rec := srv.do(t, http.MethodPost, "/v1/chat/message", `{"message":"hi","sessionId":"`+unknown+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, unknown, decode(t, rec)["sessionId"])
}

func TestSendMessageGenerationFailure(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{err: generation.NewError(generation.KindTimeout, context.DeadlineExceeded)})

	rec := srv.do(t, http.MethodPost, "/v1/chat/message", `{"message":"Hello"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Sorry, I'm taking longer than expected. Please try again.", body["error"])
	assert.Equal(t, "llm_error", body["type"])
}

func TestHistoryErrors(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})

	rec := srv.do(t, http.MethodGet, "/v1/chat/history/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid session ID format", decode(t, rec)["error"])

	rec = srv.do(t, http.MethodGet, "/v1/chat/history/"+conversation.NewID(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Conversation not found", decode(t, rec)["error"])
}

func TestChatHealthAndCoreRoutes(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})

	rec := srv.do(t, http.MethodGet, "/v1/chat/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = srv.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "support-chat-test", decode(t, rec)["service"])

	rec = srv.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadiness(t *testing.T) {
	down := func(context.Context) error { return errors.New("down") }
	up := func(context.Context) error { return nil }

	t.Run("optional dependency down is degraded", func(t *testing.T) {
		srv := newTestServer(t, &fakeGenerator{}, withChecks(
			handlers.ReadinessCheck{Name: "database", Required: true, Check: up},
			handlers.ReadinessCheck{Name: "cache", Check: down},
		))
		rec := srv.do(t, http.MethodGet, "/readyz", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "unavailable", body["checks"].(map[string]any)["cache"])
	})

	t.Run("database down is unavailable", func(t *testing.T) {
		srv := newTestServer(t, &fakeGenerator{}, withChecks(
			handlers.ReadinessCheck{Name: "database", Required: true, Check: down},
			handlers.ReadinessCheck{Name: "llm", Check: up},
		))
		rec := srv.do(t, http.MethodGet, "/readyz", "")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unavailable", decode(t, rec)["status"])
	})
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})

	req := httptest.NewRequest(http.MethodOptions, "/v1/chat/message", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	srv.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/v1/chat/message", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	srv.server.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestChatRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := cache.NewRedisCache(mr.Addr(), 200*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	gen := &fakeGenerator{fragments: []string{"ok"}}
	srv := newTestServer(t, gen, withLimits(httpserver.Admission{
		Limiter: ratelimit.NewRedisLimiter(client, zerolog.Nop()),
		Chat:    admission.Rule{Name: "chat", Limit: 2, Window: time.Minute, Message: admission.ChatRule.Message},
		Global:  admission.GlobalRule,
	}))

	for i := 0; i < 2; i++ {
		rec := srv.do(t, http.MethodPost, "/v1/chat/message", `{"message":"hi"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := srv.do(t, http.MethodPost, "/v1/chat/message", `{"message":"hi"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Too many requests. Please wait a moment before trying again.", body["error"])
	assert.Equal(t, "rate_limit", body["type"])
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.EqualValues(t, 2, gen.calls.Load())

	// A different session has its own window.
	rec = srv.do(t, http.MethodPost, "/v1/chat/message", `{"message":"hi","sessionId":"`+conversation.NewID()+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Every request counts against the global window.
	assert.True(t, mr.Exists(admission.Key(admission.GlobalRule, "192.0.2.1")))
}

type sseEvent struct {
	name string
	data string
}

func readSSE(t *testing.T, body []byte) []sseEvent {
	t.Helper()
	var (
		events  []sseEvent
		current sseEvent
	)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if current.name != "" {
				events = append(events, current)
			}
			current = sseEvent{}
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestStreamOverSSE(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{fragments: []string{"Hel", "lo"}})

	rec := srv.do(t, http.MethodPost, "/v1/chat/stream", `{"message":"Hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := readSSE(t, rec.Body.Bytes())
	var names []string
	for _, event := range events {
		names = append(names, event.name)
	}
	assert.Equal(t, []string{"messageReceived", "typingStart", "streamChunk", "streamChunk", "streamComplete", "typingStop"}, names)
	assert.Equal(t, "{}", events[1].data)

	var complete chatstream.StreamComplete
	require.NoError(t, json.Unmarshal([]byte(events[4].data), &complete))
	assert.Equal(t, "Hello", complete.AIMessage.Text)
	assert.Equal(t, "ai", complete.AIMessage.Sender)

	var chunk chatstream.StreamChunk
	require.NoError(t, json.Unmarshal([]byte(events[2].data), &chunk))
	assert.Equal(t, complete.AIMessage.ID, chunk.MessageID)

	messages, err := srv.store.ListMessages(context.Background(), complete.SessionID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
}

func TestStreamOverSSERejectsBeforeOpening(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{fragments: []string{"x"}})

	rec := srv.do(t, http.MethodPost, "/v1/chat/stream", `{"message":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "Message cannot be empty", decode(t, rec)["error"])
}

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, srv *testServer) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.server.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/chat/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, last string) []wsFrame {
	t.Helper()
	var frames []wsFrame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var frame wsFrame
		require.NoError(t, conn.ReadJSON(&frame))
		frames = append(frames, frame)
		if frame.Event == last {
			return frames
		}
	}
}

func TestStreamOverWebSocket(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{fragments: []string{"Hi", " there"}})
	conn := dialWS(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": "sendMessage",
		"data":  map[string]any{"message": "Hello"},
	}))

	frames := readUntil(t, conn, chatstream.EventTypingStop)
	var names []string
	for _, frame := range frames {
		names = append(names, frame.Event)
	}
	assert.Equal(t, []string{"messageReceived", "typingStart", "streamChunk", "streamChunk", "streamComplete", "typingStop"}, names)

	var received chatstream.MessageReceived
	require.NoError(t, json.Unmarshal(frames[0].Data, &received))
	assert.Equal(t, "Hello", received.UserMessage.Text)
	assert.Equal(t, "user", received.UserMessage.Sender)

	// The same connection continues the conversation.
	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": "sendMessage",
		"data":  map[string]any{"message": "More", "sessionId": received.SessionID},
	}))
	frames = readUntil(t, conn, chatstream.EventTypingStop)
	var complete chatstream.StreamComplete
	require.NoError(t, json.Unmarshal(frames[len(frames)-2].Data, &complete))
	assert.Equal(t, received.SessionID, complete.SessionID)

	messages, err := srv.store.ListMessages(context.Background(), received.SessionID)
	require.NoError(t, err)
	assert.Len(t, messages, 4)
}

func TestWebSocketRejectsUnknownEvents(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	conn := dialWS(t, srv)

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "deleteEverything"}))
	frames := readUntil(t, conn, chatstream.EventError)
	require.Len(t, frames, 1)

	var payload chatstream.ErrorPayload
	require.NoError(t, json.Unmarshal(frames[0].Data, &payload))
	assert.Equal(t, "Unsupported event", payload.Message)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	frames = readUntil(t, conn, chatstream.EventError)
	require.NoError(t, json.Unmarshal(frames[0].Data, &payload))
	assert.Equal(t, "Invalid message format", payload.Message)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	ts := httptest.NewServer(srv.server.Handler())
	defer ts.Close()

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/chat/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
