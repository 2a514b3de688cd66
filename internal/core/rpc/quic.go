package rpc

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"
)

const quicALPN = "simlink-rpc"

// maxQUICFrame caps a single length-prefixed frame read off the stream.
const maxQUICFrame = 16 << 20

var _ Transport = (*QUICTransport)(nil)

// QUICTransport dials the server over a single bidirectional QUIC stream.
// Frames are length-prefixed with a big-endian uint32.
type QUICTransport struct {
	tlsConfig  *tls.Config
	quicConfig *quic.Config
}

func NewQUICTransport(tlsConfig *tls.Config) *QUICTransport {
	if tlsConfig == nil {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}
	tlsConfig = tlsConfig.Clone()
	tlsConfig.NextProtos = []string{quicALPN}
	return &QUICTransport{
		tlsConfig: tlsConfig,
		quicConfig: &quic.Config{
			KeepAlivePeriod: 15 * time.Second,
		},
	}
}

func (t *QUICTransport) Name() string { return "quic" }

func (t *QUICTransport) Dial(ctx context.Context, addr string) (Conn, error) {
	conn, err := quic.DialAddr(ctx, addr, t.tlsConfig, t.quicConfig)
	if err != nil {
		return nil, newError(CodeConnectivity, fmt.Sprintf("dial quic %s", addr), fmt.Errorf("%w: %w", ErrDialFailed, err))
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "open stream failed")
		return nil, newError(CodeConnectivity, "open quic stream", err)
	}
	return newQUICConn(conn, stream), nil
}

var _ Conn = (*quicConn)(nil)

type quicConn struct {
	conn    *quic.Conn
	stream  *quic.Stream
	writeMu sync.Mutex
	closed  atomic.Bool
}

func newQUICConn(conn *quic.Conn, stream *quic.Stream) *quicConn {
	return &quicConn{conn: conn, stream: stream}
}

func (c *quicConn) Read(ctx context.Context) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.stream.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	var length uint32
	if err := binary.Read(c.stream, binary.BigEndian, &length); err != nil {
		if c.closed.Load() {
			return nil, ErrConnectionClosed
		}
		return nil, newError(CodeConnectivity, "quic read length", err)
	}
	if length > maxQUICFrame {
		return nil, newError(CodeProtocol, fmt.Sprintf("frame of %d bytes exceeds limit", length), ErrInvalidFrame)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(c.stream, data); err != nil {
		return nil, newError(CodeConnectivity, "quic read frame", err)
	}
	return data, nil
}

func (c *quicConn) Write(ctx context.Context, data []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.stream.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := binary.Write(c.stream, binary.BigEndian, uint32(len(data))); err != nil {
		return newError(CodeConnectivity, "quic write length", err)
	}
	if _, err := c.stream.Write(data); err != nil {
		return newError(CodeConnectivity, "quic write frame", err)
	}
	return nil
}

func (c *quicConn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = c.stream.Close()
	return c.conn.CloseWithError(0, "client closed")
}
