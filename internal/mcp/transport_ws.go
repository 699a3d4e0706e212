package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsMaxPayloadBytes = 1 << 20
	wsWriteWait       = 10 * time.Second
	wsPongWait        = 45 * time.Second
	wsPingInterval    = 15 * time.Second
)

// WebSocketTransport speaks MCP over a single persistent WebSocket — the
// shape a streaming tool server takes when it pushes notifications (a
// market-data feed, a payment-status watcher) faster than SSE polling over
// the HTTP transport would surface them. One connection carries calls,
// server-initiated requests, and notifications multiplexed by JSON-RPC id.
type WebSocketTransport struct {
	config *ServerConfig
	logger *slog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	pending   map[int64]chan *JSONRPCResponse
	pendingMu sync.Mutex
	events    chan *JSONRPCNotification
	requests  chan *JSONRPCRequest
	nextID    atomic.Int64

	connected atomic.Bool
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewWebSocketTransport creates a new WebSocket transport.
func NewWebSocketTransport(cfg *ServerConfig) *WebSocketTransport {
	return &WebSocketTransport{
		config:   cfg,
		logger:   slog.Default().With("mcp_server", cfg.ID, "transport", "websocket"),
		pending:  make(map[int64]chan *JSONRPCResponse),
		events:   make(chan *JSONRPCNotification, 100),
		requests: make(chan *JSONRPCRequest, 100),
		stopChan: make(chan struct{}),
	}
}

// Connect dials the server and starts the read and keepalive loops.
func (t *WebSocketTransport) Connect(ctx context.Context) error {
	if t.config.URL == "" {
		return fmt.Errorf("URL is required for websocket transport")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: t.config.Timeout,
		ReadBufferSize:   8192,
		WriteBufferSize:  8192,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 30 * time.Second
	}

	header := http.Header{}
	for k, v := range t.config.Headers {
		header.Set(k, v)
	}

	conn, _, err := dialer.DialContext(ctx, t.config.URL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.config.URL, err)
	}
	conn.SetReadLimit(wsMaxPayloadBytes)

	t.conn = conn
	t.connected.Store(true)
	t.logger.Info("websocket transport connected", "url", t.config.URL)

	t.wg.Add(2)
	go t.readLoop()
	go t.pingLoop()

	return nil
}

// Close closes the connection and stops the background loops.
func (t *WebSocketTransport) Close() error {
	t.connected.Store(false)
	close(t.stopChan)

	if t.conn != nil {
		t.writeMu.Lock()
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
		t.writeMu.Unlock()
		t.conn.Close()
	}

	t.wg.Wait()
	return nil
}

// writeJSON serialises v onto the connection under the write lock; gorilla
// connections allow at most one concurrent writer.
func (t *WebSocketTransport) writeJSON(v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return t.conn.WriteJSON(v)
}

// Call sends a request and waits for the matching response.
func (t *WebSocketTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if !t.connected.Load() {
		return nil, fmt.Errorf("not connected")
	}

	id := t.nextID.Add(1)
	req := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
	}
	if params != nil {
		paramsJSON, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		req.Params = paramsJSON
	}

	respChan := make(chan *JSONRPCResponse, 1)
	t.pendingMu.Lock()
	t.pending[id] = respChan
	t.pendingMu.Unlock()

	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, id)
		t.pendingMu.Unlock()
	}()

	if err := t.writeJSON(req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	timeout := t.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	select {
	case resp := <-respChan:
		if resp.Error != nil {
			return nil, fmt.Errorf("MCP error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, fmt.Errorf("request timeout after %v", timeout)
	case <-t.stopChan:
		return nil, fmt.Errorf("transport closed")
	}
}

// Notify sends a notification (no response expected).
func (t *WebSocketTransport) Notify(ctx context.Context, method string, params any) error {
	if !t.connected.Load() {
		return fmt.Errorf("not connected")
	}

	notif := JSONRPCNotification{
		JSONRPC: "2.0",
		Method:  method,
	}
	if params != nil {
		paramsJSON, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		notif.Params = paramsJSON
	}

	if err := t.writeJSON(notif); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

// Events returns the notification channel.
func (t *WebSocketTransport) Events() <-chan *JSONRPCNotification {
	return t.events
}

// Requests returns the channel of server-initiated requests.
func (t *WebSocketTransport) Requests() <-chan *JSONRPCRequest {
	return t.requests
}

// Respond sends a response to a server-initiated request.
func (t *WebSocketTransport) Respond(ctx context.Context, id any, result any, rpcErr *JSONRPCError) error {
	if !t.connected.Load() {
		return fmt.Errorf("not connected")
	}

	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   rpcErr,
	}
	if rpcErr == nil && result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		resp.Result = data
	}

	if err := t.writeJSON(resp); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// Connected returns whether the transport is connected.
func (t *WebSocketTransport) Connected() bool {
	return t.connected.Load()
}

// readLoop reads frames until the connection drops or Close is called.
func (t *WebSocketTransport) readLoop() {
	defer t.wg.Done()
	defer t.connected.Store(false)

	_ = t.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	t.conn.SetPongHandler(func(string) error {
		return t.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		select {
		case <-t.stopChan:
			return
		default:
		}

		_, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.stopChan:
			default:
				t.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		t.processFrame(data)
	}
}

// processFrame dispatches a single JSON-RPC message the same way the stdio
// transport does: ID without method is a response, ID with method is a
// server-initiated request, method alone is a notification.
func (t *WebSocketTransport) processFrame(data []byte) {
	var envelope struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      any             `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
		Result  json.RawMessage `json:"result,omitempty"`
		Error   *JSONRPCError   `json:"error,omitempty"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.logger.Debug("unparseable websocket message", "error", err)
		return
	}

	if envelope.ID != nil && envelope.Method == "" {
		var id int64
		switch v := envelope.ID.(type) {
		case float64:
			id = int64(v)
		case int64:
			id = v
		case int:
			id = int64(v)
		default:
			t.logger.Warn("unexpected response ID type", "id", envelope.ID)
			return
		}

		resp := &JSONRPCResponse{JSONRPC: envelope.JSONRPC, ID: envelope.ID, Result: envelope.Result, Error: envelope.Error}
		t.pendingMu.Lock()
		if ch, ok := t.pending[id]; ok {
			select {
			case ch <- resp:
			default:
			}
			delete(t.pending, id)
		}
		t.pendingMu.Unlock()
		return
	}

	if envelope.ID != nil && envelope.Method != "" {
		req := &JSONRPCRequest{JSONRPC: envelope.JSONRPC, ID: envelope.ID, Method: envelope.Method, Params: envelope.Params}
		select {
		case t.requests <- req:
		default:
			t.logger.Warn("request channel full, dropping")
		}
		return
	}

	if envelope.Method != "" {
		notif := &JSONRPCNotification{JSONRPC: envelope.JSONRPC, Method: envelope.Method, Params: envelope.Params}
		select {
		case t.events <- notif:
		default:
			t.logger.Warn("notification channel full, dropping")
		}
	}
}

// pingLoop keeps the connection alive so an idle tool server doesn't drop
// it between tool calls.
func (t *WebSocketTransport) pingLoop() {
	defer t.wg.Done()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopChan:
			return
		case <-ticker.C:
			t.writeMu.Lock()
			err := t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			t.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
