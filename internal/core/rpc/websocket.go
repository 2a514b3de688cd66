package rpc

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var _ Transport = (*WebSocketTransport)(nil)

// WebSocketTransport dials the server's websocket RPC endpoint.
type WebSocketTransport struct {
	dialer *websocket.Dialer
}

func NewWebSocketTransport(handshakeTimeout time.Duration) *WebSocketTransport {
	return &WebSocketTransport{
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

func (t *WebSocketTransport) Name() string { return "websocket" }

func (t *WebSocketTransport) Dial(ctx context.Context, addr string) (Conn, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/rpc"}
	conn, _, err := t.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, newError(CodeConnectivity, fmt.Sprintf("dial %s", u.String()), fmt.Errorf("%w: %w", ErrDialFailed, err))
	}
	return newWebSocketConn(conn), nil
}

var _ Conn = (*webSocketConn)(nil)

// webSocketConn wraps a websocket connection with thread-safe writes and
// deadline mapping from contexts.
type webSocketConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

func newWebSocketConn(conn *websocket.Conn) *webSocketConn {
	return &webSocketConn{conn: conn}
}

func (c *webSocketConn) Read(ctx context.Context) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if c.closed.Load() {
			return nil, ErrConnectionClosed
		}
		return nil, newError(CodeConnectivity, "websocket read", err)
	}
	return data, nil
}

func (c *webSocketConn) Write(ctx context.Context, data []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return newError(CodeConnectivity, "websocket write", err)
	}
	return nil
}

func (c *webSocketConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}
