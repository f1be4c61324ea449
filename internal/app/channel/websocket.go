package channel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed to wait for a Pong (or any frame) from the backend.
	pongWait = 60 * time.Second

	// frequency at which the client sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the backend.
	maxMessageSize = 64 << 10

	// timeout of the opening handshake.
	handshakeTimeout = 10 * time.Second
)

// WebSocketTransport dials the backend over a WebSocket.
type WebSocketTransport struct {
	dialer   *websocket.Dialer
	pongWait time.Duration
}

// NewWebSocketTransport returns a transport using gorilla/websocket with the default dialer settings.
func NewWebSocketTransport() *WebSocketTransport {
	return &WebSocketTransport{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		pongWait: pongWait,
	}
}

// Name implements Transport.
func (t *WebSocketTransport) Name() string { return "websocket" }

// Dial implements Transport.
func (t *WebSocketTransport) Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error) {
	conn, resp, err := t.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	conn.SetReadLimit(maxMessageSize)

	if err := conn.SetReadDeadline(time.Now().Add(t.pongWait)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	wait := t.pongWait
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})

	return &wsConn{conn: conn, pongWait: wait}, nil
}

type wsConn struct {
	conn     *websocket.Conn
	pongWait time.Duration
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	// any frame proves the backend is alive
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *wsConn) WriteMessage(frame []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *wsConn) WritePing() error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Close sends a normal closure frame when possible and closes the socket.
func (c *wsConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}

// isExpectedClose reports whether err is an orderly shutdown of the socket.
func isExpectedClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
