package rpc

import (
	"context"
	"fmt"
	"time"
)

// Conn is a bidirectional, message-oriented link to the server. Read and
// Write honour context deadlines. Implementations must allow concurrent
// writers; reads come from a single goroutine.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// Transport dials a Conn. The client works the same over any of them.
type Transport interface {
	Name() string
	Dial(ctx context.Context, addr string) (Conn, error)
}

// TransportFor builds a transport by name ("websocket" or "quic").
func TransportFor(name string, handshakeTimeout time.Duration) (Transport, error) {
	switch name {
	case "websocket":
		return NewWebSocketTransport(handshakeTimeout), nil
	case "quic":
		return NewQUICTransport(nil), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", name)
	}
}
