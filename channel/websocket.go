package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codingjr/jrchat"
	"github.com/gorilla/websocket"
)

// WebSocket is a Channel carrying one JSON text frame per message.
type WebSocket struct {
	conn *websocket.Conn
	out  *outbox
}

// NewWebSocket wraps an established connection. The WebSocket owns conn.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	ws := &WebSocket{conn: conn}
	ws.out = newOutbox("websocket", func(env jrchat.Envelope) error {
		return conn.WriteJSON(env)
	})
	return ws
}

func (ws *WebSocket) Send(env jrchat.Envelope) {
	ws.out.send(env)
}

func (ws *WebSocket) Recv() (jrchat.Envelope, error) {
	for {
		msgType, raw, err := ws.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return jrchat.Envelope{}, ErrClosed
			}
			return jrchat.Envelope{}, fmt.Errorf("%w: %v", ErrClosed, err)
		}
		if msgType != websocket.TextMessage {
			slog.Warn("ignoring non-text frame", "type", msgType)
			continue
		}
		slog.Debug("recv", "data", string(raw))

		var env jrchat.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			slog.Warn("invalid message", "error", err)
			continue
		}
		if accept(env) {
			return env, nil
		}
	}
}

// Close flushes pending sends, says goodbye and closes the connection.
func (ws *WebSocket) Close() error {
	ws.out.flush()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = ws.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return ws.conn.Close()
}
