package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/domain/chatstream"
	"github.com/janhq/support-chat/internal/infrastructure/metrics"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/middlewares"
	"github.com/janhq/support-chat/internal/interfaces/httpserver/requests"
	"github.com/janhq/support-chat/internal/utils/idgen"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 64 << 10
	invalidMessage = "Invalid message format"
)

var errEmitterClosed = errors.New("emitter closed")

// StreamHandler serves the streaming protocol over WebSocket and SSE.
type StreamHandler struct {
	protocol    *chatstream.Protocol
	sseProtocol *chatstream.Protocol
	upgrader    websocket.Upgrader
	pingPeriod  time.Duration
	pongWait    time.Duration
	log         zerolog.Logger
}

// NewStreamHandler creates a new stream handler. WebSocket origins are checked against the
// CORS allow list.
func NewStreamHandler(protocol *chatstream.Protocol, settings Settings, log zerolog.Logger) *StreamHandler {
	origins := settings.AllowedOrigins
	return &StreamHandler{
		protocol: protocol,
		// The SSE route is admitted by the chat rate-limit middleware before the stream opens.
		sseProtocol: protocol.WithoutAdmission(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middlewares.OriginAllowed(origins, origin)
			},
		},
		pingPeriod: pingPeriod,
		pongWait:   pongWait,
		log:        log.With().Str("component", "stream-handler").Logger(),
	}
}

// inboundFrame is a client WebSocket frame.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServeWebSocket upgrades the connection and runs the protocol until the client leaves.
func (h *StreamHandler) ServeWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	connID := idgen.NewConnectionID(idgen.PrefixWebSocket)
	log := h.log.With().Str("connection_id", connID).Logger()
	release := metrics.StreamConnectionOpened(chat.ChannelWebSocket)
	defer release()

	emitter := newWSEmitter(conn)
	session := h.protocol.NewSession(connID, c.ClientIP(), chat.ChannelWebSocket, emitter)
	log.Info().Str("client_ip", c.ClientIP()).Msg("websocket connected")

	done := make(chan struct{})
	go h.keepalive(emitter, done)

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	ctx := c.Request.Context()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket read failed")
			}
			break
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			_ = emitter.Emit(chatstream.ErrorEvent(invalidMessage))
			continue
		}

		switch frame.Event {
		case chatstream.EventSendMessage:
			var req chatstream.SendMessage
			if len(frame.Data) > 0 {
				if err := json.Unmarshal(frame.Data, &req); err != nil {
					_ = emitter.Emit(chatstream.ErrorEvent(invalidMessage))
					continue
				}
			}
			session.Submit(ctx, req)
		default:
			session.Unsupported(frame.Event)
		}
	}

	close(done)
	emitter.close()
	if session.Busy() {
		log.Info().Msg("websocket closed during a turn, reply continues in background")
	}
	log.Info().Msg("websocket disconnected")
}

func (h *StreamHandler) keepalive(emitter *wsEmitter, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := emitter.ping(); err != nil {
				emitter.close()
				return
			}
		}
	}
}

// ServeSSE runs one turn and writes its events as Server-Sent Events. req must already be
// bound and validated.
func (h *StreamHandler) ServeSSE(c *gin.Context, req requests.SendMessageRequest) {
	flusher, ok := middlewares.PrepareSSE(c)
	if !ok {
		h.log.Error().Msg("response writer does not support flushing")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	connID := idgen.NewConnectionID(idgen.PrefixSSE)
	release := metrics.StreamConnectionOpened(chat.ChannelSSE)
	defer release()

	c.Status(http.StatusOK)
	flusher.Flush()

	emitter := newSSEEmitter(c.Request.Context(), c.Writer, flusher)
	session := h.sseProtocol.NewSession(connID, c.ClientIP(), chat.ChannelSSE, emitter)
	session.Run(c.Request.Context(), chatstream.SendMessage{
		Message:   req.Message,
		SessionID: req.SessionID,
	})
}

// wsEmitter serializes writes to one WebSocket connection.
type wsEmitter struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
	once    sync.Once
}

func newWSEmitter(conn *websocket.Conn) *wsEmitter {
	return &wsEmitter{conn: conn}
}

func (e *wsEmitter) Emit(event chatstream.Event) error {
	if e.closed.Load() {
		return errEmitterClosed
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	_ = e.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := e.conn.WriteJSON(event); err != nil {
		e.closed.Store(true)
		return err
	}
	return nil
}

func (e *wsEmitter) Closed() bool {
	return e.closed.Load()
}

func (e *wsEmitter) ping() error {
	return e.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (e *wsEmitter) close() {
	e.once.Do(func() {
		e.closed.Store(true)
		e.writeMu.Lock()
		defer e.writeMu.Unlock()
		_ = e.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = e.conn.Close()
	})
}

// sseEmitter writes events to a flushed text/event-stream response.
type sseEmitter struct {
	ctx     context.Context
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
	closed  atomic.Bool
}

func newSSEEmitter(ctx context.Context, w http.ResponseWriter, flusher http.Flusher) *sseEmitter {
	return &sseEmitter{ctx: ctx, w: w, flusher: flusher}
}

func (e *sseEmitter) Emit(event chatstream.Event) error {
	if e.Closed() {
		return errEmitterClosed
	}

	data := []byte("{}")
	if event.Data != nil {
		encoded, err := json.Marshal(event.Data)
		if err != nil {
			return err
		}
		data = encoded
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event.Name, data); err != nil {
		e.closed.Store(true)
		return err
	}
	e.flusher.Flush()
	return nil
}

func (e *sseEmitter) Closed() bool {
	return e.closed.Load() || e.ctx.Err() != nil
}
