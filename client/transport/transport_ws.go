package transport

// Original work from https://github.com/hasura/go-graphql-client/blob/0806e5ec7/subscription.go

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

type OperationMessageType string

const (
	// GQL_CONNECTION_INIT the Client sends this message after plain websocket connection to start the communication with the server
	GQL_CONNECTION_INIT OperationMessageType = "connection_init"
	// GQL_CONNECTION_ERROR The server may responses with this message to the GQL_CONNECTION_INIT from client, indicates the server rejected the connection.
	GQL_CONNECTION_ERROR OperationMessageType = "connection_error"
	// GQL_START Client sends this message to execute GraphQL operation
	GQL_START OperationMessageType = "start"
	// GQL_STOP Client sends this message in order to stop a running GraphQL operation execution (for example: unsubscribe)
	GQL_STOP OperationMessageType = "stop"
	// GQL_ERROR Server sends this message upon a failing operation, before the GraphQL execution, usually due to GraphQL validation errors (resolver errors are part of GQL_DATA message, and will be added as errors array)
	GQL_ERROR OperationMessageType = "error"
	// GQL_DATA The server sends this message to transfter the GraphQL execution result from the server to the client, this message is a response for GQL_START message.
	GQL_DATA OperationMessageType = "data"
	// GQL_COMPLETE Server sends this message to indicate that a GraphQL operation is done, and no more data will arrive for the specific operation.
	GQL_COMPLETE OperationMessageType = "complete"
	// GQL_CONNECTION_KEEP_ALIVE Server message that should be sent right after each GQL_CONNECTION_ACK processed and then periodically to keep the client connection alive.
	GQL_CONNECTION_KEEP_ALIVE OperationMessageType = "ka"
	// GQL_CONNECTION_ACK The server may responses with this message to the GQL_CONNECTION_INIT from client, indicates the server accepted the connection. May optionally include a payload.
	GQL_CONNECTION_ACK OperationMessageType = "connection_ack"
	// GQL_CONNECTION_TERMINATE the Client sends this message to terminate the connection.
	GQL_CONNECTION_TERMINATE OperationMessageType = "connection_terminate"
)

// ErrWsClosed fails operations still pending when the transport stops
var ErrWsClosed = errors.New("websocket transport closed")

type WebsocketConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
	// SetReadLimit sets the maximum size in bytes for a message read from the peer. If a
	// message exceeds the limit, the connection sends a close message to the peer
	// and returns ErrReadLimit to the application.
	SetReadLimit(limit int64)
}

type OperationMessage struct {
	ID      string               `json:"id,omitempty"`
	Type    OperationMessageType `json:"type"`
	Payload json.RawMessage      `json:"payload,omitempty"`
}

func (msg OperationMessage) String() string {
	return fmt.Sprintf("%v %v %s", msg.ID, msg.Type, msg.Payload)
}

type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnected    Status = "connected"
	StatusReady        Status = "ready"
	StatusClosed       Status = "closed"
)

type wsOperation struct {
	Request
	res     *ChanResponse
	started bool
}

type WebsocketConnProvider func(ctx context.Context, URL string) (WebsocketConn, error)

// Ws transports GQL queries over websocket
// Start() must be called to initiate the websocket connection
// Close() must be called to dispose of the connection
type Ws struct {
	URL string

	// ConnectionParams will be sent during the connection init
	ConnectionParams interface{}
	// WebsocketConnProvider defaults to DefaultWebsocketConnProvider(time.Minute)
	WebsocketConnProvider WebsocketConnProvider
	// Timeout for retrying connecting, default to 5 minutes
	RetryTimeout time.Duration
	// Log defaults to a no-op logger
	Log *zap.Logger

	i     uint64
	conn  WebsocketConn
	connm sync.RWMutex

	ops  map[string]*wsOperation
	opsm sync.Mutex

	status   Status
	statusCh chan struct{}
	statusm  sync.Mutex

	cancel   context.CancelFunc
	initOnce sync.Once
}

func (t *Ws) initStruct() {
	t.initOnce.Do(func() {
		t.ops = map[string]*wsOperation{}
		t.status = StatusDisconnected
		t.statusCh = make(chan struct{})

		if t.RetryTimeout == 0 {
			t.RetryTimeout = 5 * time.Minute
		}

		if t.WebsocketConnProvider == nil {
			t.WebsocketConnProvider = DefaultWebsocketConnProvider(time.Minute)
		}

		if t.Log == nil {
			t.Log = zap.NewNop()
		}
	})
}

// Start runs the connection in the background, reconnecting after failures.
// Connection errors are reported on the returned channel when someone is
// listening; it is closed once the transport stops.
func (t *Ws) Start(ctx context.Context) <-chan error {
	t.initStruct()

	ctx, cancel := context.WithCancel(ctx)
	t.statusm.Lock()
	t.cancel = cancel
	t.statusm.Unlock()

	ch := make(chan error)

	go func() {
		defer close(ch)
		defer t.failAll(ErrWsClosed)

		for {
			err := t.Run(ctx)
			if err == nil || ctx.Err() != nil {
				return
			}

			select {
			case ch <- err:
			default:
			}

			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// Run connects and serves a single connection until it drops.
// It returns nil when the connection was closed on purpose.
func (t *Ws) Run(ctx context.Context) error {
	t.initStruct()

	t.Log.Debug("ws run", zap.String("url", t.URL))

	conn, err := t.connect(ctx)
	if err != nil {
		return err
	}

	t.setConn(conn)
	t.setStatus(StatusConnected)

	defer func() {
		t.setConn(nil)
		_ = conn.Close()

		t.opsm.Lock()
		for _, op := range t.ops {
			op.started = false
		}
		t.opsm.Unlock()

		if t.Status() != StatusClosed {
			t.setStatus(StatusDisconnected)
		}
	}()

	if err := t.sendConnectionInit(); err != nil {
		return err
	}

	for {
		var message OperationMessage
		if err := conn.ReadJSON(&message); err != nil {
			if ctx.Err() != nil || t.Status() == StatusClosed {
				return nil
			}

			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}

			t.Log.Debug("ws read failed", zap.Error(err))

			return err
		}

		t.logMessage("ws receive", message)

		if err := t.handle(message); err != nil {
			return err
		}
	}
}

func (t *Ws) handle(message OperationMessage) error {
	switch message.Type {
	case GQL_DATA, GQL_ERROR:
		t.opsm.Lock()
		op, ok := t.ops[message.ID]
		t.opsm.Unlock()
		if !ok {
			return nil
		}

		out := decodePayload(message.Payload)
		op.res.Send(out)

		if message.Type == GQL_ERROR {
			t.remove(message.ID)
			op.res.CloseCh()
		}
	case GQL_COMPLETE:
		if op := t.remove(message.ID); op != nil {
			op.res.CloseCh()
		}
	case GQL_CONNECTION_ERROR:
		return fmt.Errorf("connection rejected: %s", message.Payload)
	case GQL_CONNECTION_ACK:
		t.setStatus(StatusReady)

		t.opsm.Lock()
		ids := make([]string, 0, len(t.ops))
		for id := range t.ops {
			ids = append(ids, id)
		}
		t.opsm.Unlock()

		for _, id := range ids {
			if err := t.startOperation(id); err != nil {
				return err
			}
		}
	case GQL_CONNECTION_KEEP_ALIVE:
	default:
		t.Log.Debug("ws unknown message", zap.String("type", string(message.Type)))
	}

	return nil
}

func decodePayload(payload json.RawMessage) OperationResponse {
	var out OperationResponse
	if err := json.Unmarshal(payload, &out); err == nil && (out.Data != nil || len(out.Errors) > 0) {
		return out
	}

	var errs gqlerror.List
	if err := json.Unmarshal(payload, &errs); err == nil && len(errs) > 0 {
		return OperationResponse{Errors: errs}
	}

	var gerr gqlerror.Error
	if err := json.Unmarshal(payload, &gerr); err == nil && gerr.Message != "" {
		return OperationResponse{Errors: gqlerror.List{&gerr}}
	}

	return OperationResponse{Errors: gqlerror.List{gqlerror.Errorf("invalid payload: %s", payload)}}
}

func (t *Ws) connect(ctx context.Context) (WebsocketConn, error) {
	start := time.Now()

	for {
		conn, err := t.WebsocketConnProvider(ctx, t.URL)
		if err == nil {
			return conn, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if time.Since(start) > t.RetryTimeout {
			t.Log.Warn("ws retry timeout exceeded", zap.Duration("timeout", t.RetryTimeout), zap.Error(err))
			return nil, err
		}

		t.Log.Debug("ws connect failed, retrying", zap.Error(err))

		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (t *Ws) Status() Status {
	t.initStruct()

	t.statusm.Lock()
	defer t.statusm.Unlock()

	return t.status
}

func (t *Ws) setStatus(s Status) {
	t.statusm.Lock()
	defer t.statusm.Unlock()

	if t.status == s {
		return
	}

	t.Log.Debug("ws status", zap.String("status", string(s)))

	t.status = s
	close(t.statusCh)
	t.statusCh = make(chan struct{})
}

// WaitFor blocks until the transport reaches status, or timeout elapses
func (t *Ws) WaitFor(status Status, timeout time.Duration) bool {
	t.initStruct()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		t.statusm.Lock()
		s, ch := t.status, t.statusCh
		t.statusm.Unlock()

		if s == status {
			return true
		}

		select {
		case <-ch:
		case <-deadline.C:
			return false
		}
	}
}

func (t *Ws) Close() error {
	t.initStruct()

	t.Log.Debug("ws close")

	t.setStatus(StatusClosed)
	t.failAll(ErrWsClosed)

	var err error
	if c := t.getConn(); c != nil {
		_ = t.write(OperationMessage{Type: GQL_CONNECTION_TERMINATE})
		err = c.Close()
	}

	t.statusm.Lock()
	cancel := t.cancel
	t.statusm.Unlock()
	if cancel != nil {
		cancel()
	}

	return err
}

func (t *Ws) failAll(err error) {
	t.opsm.Lock()
	ops := t.ops
	t.ops = map[string]*wsOperation{}
	t.opsm.Unlock()

	for _, op := range ops {
		op.res.finish(err, false)
	}
}

func (t *Ws) startOperation(id string) error {
	t.opsm.Lock()
	op, ok := t.ops[id]
	if !ok || op.started {
		t.opsm.Unlock()
		return nil
	}
	op.started = true
	t.opsm.Unlock()

	payload, err := json.Marshal(NewOperationRequestFromRequest(op.Request))
	if err != nil {
		return err
	}

	err = t.write(OperationMessage{
		ID:      id,
		Type:    GQL_START,
		Payload: payload,
	})
	if err != nil {
		t.opsm.Lock()
		op.started = false
		t.opsm.Unlock()
	}

	return err
}

func (t *Ws) remove(id string) *wsOperation {
	t.opsm.Lock()
	defer t.opsm.Unlock()

	op, ok := t.ops[id]
	if !ok {
		return nil
	}
	delete(t.ops, id)

	return op
}

func (t *Ws) stopOperation(id string) error {
	op := t.remove(id)
	if op == nil || !op.started || t.getConn() == nil {
		return nil
	}

	return t.write(OperationMessage{
		ID:   id,
		Type: GQL_STOP,
	})
}

func (t *Ws) Request(req Request) Response {
	t.initStruct()

	if t.Status() == StatusClosed {
		return NewErrorResponse(ErrWsClosed)
	}

	if req.Context == nil {
		req.Context = context.Background()
	}

	id := strconv.FormatUint(atomic.AddUint64(&t.i, 1), 10)

	op := &wsOperation{Request: req}
	op.res = NewChanResponse(func() error {
		return t.stopOperation(id)
	})

	t.opsm.Lock()
	t.ops[id] = op
	t.opsm.Unlock()

	if t.Status() == StatusReady {
		if err := t.startOperation(id); err != nil {
			t.remove(id)
			return NewErrorResponse(err)
		}
	}

	go func() {
		select {
		case <-req.Context.Done():
			op.res.Close()
		case <-op.res.Done():
		}
	}()

	return op.res
}

func (t *Ws) sendConnectionInit() error {
	var bParams []byte = nil
	if t.ConnectionParams != nil {
		var err error
		bParams, err = json.Marshal(t.ConnectionParams)
		if err != nil {
			return err
		}
	}

	return t.write(OperationMessage{
		Type:    GQL_CONNECTION_INIT,
		Payload: bParams,
	})
}

func (t *Ws) write(msg OperationMessage) error {
	conn := t.getConn()
	if conn == nil {
		return fmt.Errorf("websocket not connected")
	}

	t.logMessage("ws send", msg)

	return conn.WriteJSON(msg)
}

func (t *Ws) logMessage(what string, msg OperationMessage) {
	if ce := t.Log.Check(zap.DebugLevel, what); ce != nil {
		ce.Write(
			zap.String("id", msg.ID),
			zap.String("type", string(msg.Type)),
			zap.ByteString("payload", msg.Payload),
		)
	}
}

func (t *Ws) setConn(conn WebsocketConn) {
	t.connm.Lock()
	defer t.connm.Unlock()
	t.conn = conn
}

func (t *Ws) getConn() WebsocketConn {
	t.connm.RLock()
	defer t.connm.RUnlock()
	return t.conn
}
