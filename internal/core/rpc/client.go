package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/simlink/simlink/internal/core/observability/log"
	"github.com/simlink/simlink/internal/core/tf"
)

// Request methods understood by the server.
const (
	methodPing         = "ping"
	methodServerTime   = "server_time"
	methodGetStepping  = "get_stepping"
	methodSetStepping  = "set_stepping"
	methodStep         = "step"
	methodCreateEntity = "create_entity"
	methodDestroy      = "destroy_entity"
	methodGetPose      = "get_pose"
	methodSetPose      = "set_pose"
	methodSetOption    = "set_option"
	methodListen       = "listen"
	methodUnlisten     = "unlisten"
)

// eventBuffer bounds the sensor dispatch queue between the read pump and
// the callback goroutine. The mailbox above drops stale samples anyway, so
// a small buffer is enough.
const eventBuffer = 64

var _ SimServer = (*Client)(nil)

// Client speaks the frame protocol over a Conn and implements SimServer.
// One goroutine pumps reads, a second dispatches sensor events so a slow
// decode never stalls the read loop.
type Client struct {
	conn  Conn
	codec Codec

	nextID  atomic.Uint64
	timeout atomic.Int64 // nanoseconds

	pendingMu sync.Mutex
	pending   map[uint64]chan *Frame

	callbackMu sync.RWMutex
	callbacks  map[EntityID]SensorCallback

	tickMu      sync.Mutex
	tickWaiters []chan TickInfo

	events chan *Frame

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	closed atomic.Bool

	logger log.Log
}

// NewClient wraps an established Conn and starts the pump goroutines.
func NewClient(conn Conn, timeout time.Duration, logger log.Log) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	c := &Client{
		conn:      conn,
		pending:   make(map[uint64]chan *Frame),
		callbacks: make(map[EntityID]SensorCallback),
		events:    make(chan *Frame, eventBuffer),
		ctx:       ctx,
		cancel:    cancel,
		group:     group,
		logger:    logger.With(log.String("component", "rpc-client")),
	}
	c.timeout.Store(int64(timeout))

	group.Go(c.readLoop)
	group.Go(c.dispatchLoop)

	return c
}

// Dial is a convenience that dials the transport and wraps the result.
func Dial(ctx context.Context, transport Transport, addr string, timeout time.Duration, logger log.Log) (*Client, error) {
	conn, err := transport.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to simulation server",
		log.String("transport", transport.Name()),
		log.String("addr", addr))
	return NewClient(conn, timeout, logger), nil
}

func (c *Client) SetTimeout(d time.Duration) {
	c.timeout.Store(int64(d))
}

func (c *Client) Timeout() time.Duration {
	return time.Duration(c.timeout.Load())
}

// call sends one request and decodes the response body into out (when out
// is non-nil). The per-request deadline is the shorter of ctx and the
// configured timeout.
func (c *Client) call(ctx context.Context, method string, in, out any) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	id := c.nextID.Add(1)
	req, err := NewRequest(id, method, in)
	if err != nil {
		return err
	}
	data, err := c.codec.Encode(req)
	if err != nil {
		return err
	}

	ch := make(chan *Frame, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	if err = c.conn.Write(callCtx, data); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case res := <-ch:
		if res.Error != "" {
			return newError(CodeServer, fmt.Sprintf("%s: %s", method, res.Error), ErrServerFault)
		}
		if out == nil || len(res.Body) == 0 {
			return nil
		}
		if err = json.Unmarshal(res.Body, out); err != nil {
			return newError(CodeProtocol, fmt.Sprintf("decode %s response", method), err)
		}
		return nil
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return newError(CodeTimeout, fmt.Sprintf("%s after %s", method, c.Timeout()), ErrRequestTimeout)
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

func (c *Client) readLoop() error {
	for {
		data, err := c.conn.Read(c.ctx)
		if err != nil {
			if c.closed.Load() || c.ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("Read pump stopped", log.Error(err))
			c.cancel()
			return err
		}

		frame, err := c.codec.Decode(data)
		if err != nil {
			c.logger.Warn("Dropping malformed frame", log.Error(err))
			continue
		}

		switch frame.Type {
		case FrameResponse:
			c.pendingMu.Lock()
			ch, ok := c.pending[frame.ID]
			c.pendingMu.Unlock()
			if !ok {
				c.logger.Debug("Response for unknown request", log.Uint64("id", frame.ID))
				continue
			}
			ch <- frame
		case FrameEvent:
			select {
			case c.events <- frame:
			default:
				// Consumer cannot keep up; the latest-sample mailbox makes
				// dropped intermediates observable only as staleness.
				c.logger.Debug("Event queue full, dropping event", log.String("method", frame.Method))
			}
		default:
			c.logger.Debug("Ignoring unexpected frame", log.String("type", string(frame.Type)))
		}
	}
}

func (c *Client) dispatchLoop() error {
	for {
		select {
		case frame := <-c.events:
			c.handleEvent(frame)
		case <-c.ctx.Done():
			return nil
		}
	}
}

func (c *Client) handleEvent(frame *Frame) {
	switch frame.Method {
	case EventSensorData:
		var raw SensorRaw
		if err := json.Unmarshal(frame.Body, &raw); err != nil {
			c.logger.Warn("Malformed sensor event", log.Error(err))
			return
		}
		c.callbackMu.RLock()
		fn := c.callbacks[raw.Entity]
		c.callbackMu.RUnlock()
		if fn == nil {
			c.logger.Debug("Sensor event without listener", log.Uint64("entity", uint64(raw.Entity)))
			return
		}
		fn(raw)
	case EventTick:
		var info TickInfo
		if err := json.Unmarshal(frame.Body, &info); err != nil {
			c.logger.Warn("Malformed tick event", log.Error(err))
			return
		}
		c.tickMu.Lock()
		waiters := c.tickWaiters
		c.tickWaiters = nil
		c.tickMu.Unlock()
		for _, w := range waiters {
			w <- info
		}
	default:
		c.logger.Debug("Unknown event method", log.String("method", frame.Method))
	}
}

// --- SimServer implementation ---

func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, methodPing, nil, nil)
}

func (c *Client) ServerTime(ctx context.Context) (SimTime, error) {
	var t SimTime
	err := c.call(ctx, methodServerTime, nil, &t)
	return t, err
}

func (c *Client) Stepping(ctx context.Context) (StepConfig, error) {
	var cfg StepConfig
	err := c.call(ctx, methodGetStepping, nil, &cfg)
	return cfg, err
}

func (c *Client) SetStepping(ctx context.Context, cfg StepConfig) error {
	return c.call(ctx, methodSetStepping, cfg, nil)
}

func (c *Client) Step(ctx context.Context) (uint64, error) {
	var out struct {
		Tick uint64 `json:"tick"`
	}
	err := c.call(ctx, methodStep, nil, &out)
	return out.Tick, err
}

// WaitForTick blocks until the server broadcasts its next completed step.
func (c *Client) WaitForTick(ctx context.Context) (TickInfo, error) {
	if c.closed.Load() {
		return TickInfo{}, ErrConnectionClosed
	}

	ch := make(chan TickInfo, 1)
	c.tickMu.Lock()
	c.tickWaiters = append(c.tickWaiters, ch)
	c.tickMu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, c.Timeout())
	defer cancel()

	select {
	case info := <-ch:
		return info, nil
	case <-waitCtx.Done():
		c.dropTickWaiter(ch)
		if ctx.Err() != nil {
			return TickInfo{}, ctx.Err()
		}
		return TickInfo{}, newError(CodeTimeout, "wait for tick", ErrRequestTimeout)
	case <-c.ctx.Done():
		c.dropTickWaiter(ch)
		return TickInfo{}, ErrConnectionClosed
	}
}

func (c *Client) dropTickWaiter(ch chan TickInfo) {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()
	for i, w := range c.tickWaiters {
		if w == ch {
			c.tickWaiters = append(c.tickWaiters[:i], c.tickWaiters[i+1:]...)
			return
		}
	}
}

func (c *Client) CreateEntity(ctx context.Context, req CreateRequest) (CreateResult, error) {
	var res CreateResult
	err := c.call(ctx, methodCreateEntity, req, &res)
	return res, err
}

func (c *Client) DestroyEntity(ctx context.Context, id EntityID) error {
	in := struct {
		ID EntityID `json:"id"`
	}{id}
	return c.call(ctx, methodDestroy, in, nil)
}

func (c *Client) EntityPose(ctx context.Context, id EntityID) (tf.Pose, error) {
	in := struct {
		ID EntityID `json:"id"`
	}{id}
	var pose tf.Pose
	err := c.call(ctx, methodGetPose, in, &pose)
	return pose, err
}

func (c *Client) SetEntityPose(ctx context.Context, id EntityID, pose tf.Pose) error {
	in := struct {
		ID   EntityID `json:"id"`
		Pose tf.Pose  `json:"pose"`
	}{id, pose}
	return c.call(ctx, methodSetPose, in, nil)
}

func (c *Client) SetEntityOption(ctx context.Context, id EntityID, option string, value any) error {
	in := struct {
		ID     EntityID `json:"id"`
		Option string   `json:"option"`
		Value  any      `json:"value"`
	}{id, option, value}
	return c.call(ctx, methodSetOption, in, nil)
}

func (c *Client) RegisterCallback(ctx context.Context, id EntityID, fn SensorCallback) error {
	c.callbackMu.Lock()
	if _, dup := c.callbacks[id]; dup {
		c.callbackMu.Unlock()
		return fmt.Errorf("entity %d: %w", id, ErrCallbackRegistered)
	}
	c.callbacks[id] = fn
	c.callbackMu.Unlock()

	in := struct {
		ID EntityID `json:"id"`
	}{id}
	if err := c.call(ctx, methodListen, in, nil); err != nil {
		c.callbackMu.Lock()
		delete(c.callbacks, id)
		c.callbackMu.Unlock()
		return err
	}
	return nil
}

func (c *Client) UnregisterCallback(ctx context.Context, id EntityID) error {
	c.callbackMu.Lock()
	_, ok := c.callbacks[id]
	delete(c.callbacks, id)
	c.callbackMu.Unlock()
	if !ok {
		return fmt.Errorf("entity %d: %w", id, ErrCallbackNotRegistered)
	}

	in := struct {
		ID EntityID `json:"id"`
	}{id}
	return c.call(ctx, methodUnlisten, in, nil)
}

func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()
	err := c.conn.Close()
	_ = c.group.Wait()
	c.logger.Info("Client closed")
	return err
}
