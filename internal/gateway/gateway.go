// Package gateway is the real-time transport: one WebSocket per browser
// tab, multiplexing named JSON events in both directions. Each socket owns
// exactly one session; outbound events are delivered only to that socket.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/gluk-w/aiterm/internal/logutil"
	"github.com/gluk-w/aiterm/internal/session"
)

const maxMessageSize = 1024 * 1024

// envelope is the wire frame for both directions: a named event plus its
// JSON payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Handler struct {
	manager *session.Manager
}

func New(manager *session.Manager) *Handler {
	return &Handler{manager: manager}
}

// ServeWS upgrades the request and pumps inbound events into the session
// until the socket closes. The session — including any live SSH handle —
// is destroyed before this handler returns.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[gateway] accept failed: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	conn.SetReadLimit(maxMessageSize)

	em := &wsEmitter{conn: conn, ctx: ctx}
	sess := h.manager.Create(em)
	defer h.manager.Remove(sess)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Printf("[gateway] session %s closed: %v", sess.ID, err)
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			log.Printf("[gateway] session %s: dropping malformed frame: %s",
				sess.ID, logutil.Truncate(logutil.SanitizeForLog(string(data)), 120))
			continue
		}

		h.manager.Dispatch(sess, session.Event{Name: env.Event, Data: env.Data})
	}
}

// wsEmitter serializes writes to one socket. The session worker and the
// welcome emit may write concurrently, so writes take a mutex.
type wsEmitter struct {
	conn *websocket.Conn
	ctx  context.Context
	mu   sync.Mutex
}

func (e *wsEmitter) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.Write(e.ctx, websocket.MessageText, frame)
}
