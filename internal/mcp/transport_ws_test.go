package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestNewTransportWebSocket(t *testing.T) {
	cfg := &ServerConfig{
		ID:        "test",
		Transport: TransportWebSocket,
		URL:       "wss://example.com/mcp",
	}

	transport := NewTransport(cfg)
	if transport == nil {
		t.Fatal("expected non-nil transport")
	}

	_, ok := transport.(*WebSocketTransport)
	if !ok {
		t.Error("expected WebSocketTransport")
	}
}

func TestWebSocketTransportConnectNoURL(t *testing.T) {
	transport := NewWebSocketTransport(&ServerConfig{ID: "test"})

	err := transport.Connect(context.Background())
	if err == nil {
		t.Fatal("expected error for missing URL")
	}
}

func TestWebSocketTransportCallNotConnected(t *testing.T) {
	transport := NewWebSocketTransport(&ServerConfig{ID: "test", URL: "ws://example.com"})

	_, err := transport.Call(context.Background(), "tools/list", nil)
	if err == nil {
		t.Fatal("expected error when not connected")
	}
}

func TestWebSocketTransportNotifyNotConnected(t *testing.T) {
	transport := NewWebSocketTransport(&ServerConfig{ID: "test", URL: "ws://example.com"})

	if err := transport.Notify(context.Background(), "notifications/initialized", nil); err == nil {
		t.Fatal("expected error when not connected")
	}
}

func TestWebSocketTransportRespondNotConnected(t *testing.T) {
	transport := NewWebSocketTransport(&ServerConfig{ID: "test", URL: "ws://example.com"})

	if err := transport.Respond(context.Background(), 1, nil, nil); err == nil {
		t.Fatal("expected error when not connected")
	}
}

func TestServerConfigValidateWebSocket(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"ws scheme", "ws://localhost:8080/mcp", false},
		{"wss scheme", "wss://tools.example.com/mcp", false},
		{"http scheme rejected", "http://localhost:8080/mcp", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ServerConfig{ID: "test", Transport: TransportWebSocket, URL: tt.url}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// wsTestServer upgrades a single connection and runs handler over it.
func wsTestServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws://" + strings.TrimPrefix(srv.URL, "http://")
}

func TestWebSocketTransportCall(t *testing.T) {
	srv := wsTestServer(t, func(conn *websocket.Conn) {
		for {
			var req JSONRPCRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			resp := JSONRPCResponse{
				JSONRPC: "2.0",
				ID:      req.ID,
				Result:  json.RawMessage(`{"tools":[]}`),
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	transport := NewWebSocketTransport(&ServerConfig{ID: "test", URL: wsURL(srv), Timeout: 5 * time.Second})
	if err := transport.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer transport.Close()

	if !transport.Connected() {
		t.Fatal("expected connected after Connect")
	}

	result, err := transport.Call(context.Background(), "tools/list", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if string(result) != `{"tools":[]}` {
		t.Errorf("unexpected result: %s", result)
	}
}

func TestWebSocketTransportCallError(t *testing.T) {
	srv := wsTestServer(t, func(conn *websocket.Conn) {
		var req JSONRPCRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		resp := JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &JSONRPCError{Code: ErrCodeMethodNotFound, Message: "no such method"},
		}
		_ = conn.WriteJSON(resp)
	})
	defer srv.Close()

	transport := NewWebSocketTransport(&ServerConfig{ID: "test", URL: wsURL(srv), Timeout: 5 * time.Second})
	if err := transport.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer transport.Close()

	_, err := transport.Call(context.Background(), "bogus/method", nil)
	if err == nil {
		t.Fatal("expected RPC error")
	}
	if !strings.Contains(err.Error(), "no such method") {
		t.Errorf("expected server message in error, got %v", err)
	}
}

func TestWebSocketTransportNotificationDelivery(t *testing.T) {
	srv := wsTestServer(t, func(conn *websocket.Conn) {
		notif := JSONRPCNotification{
			JSONRPC: "2.0",
			Method:  "notifications/tools/list_changed",
		}
		if err := conn.WriteJSON(notif); err != nil {
			return
		}
		// Keep the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	transport := NewWebSocketTransport(&ServerConfig{ID: "test", URL: wsURL(srv), Timeout: 5 * time.Second})
	if err := transport.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer transport.Close()

	select {
	case notif := <-transport.Events():
		if notif.Method != "notifications/tools/list_changed" {
			t.Errorf("unexpected method %q", notif.Method)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestWebSocketTransportServerRequest(t *testing.T) {
	gotResponse := make(chan JSONRPCResponse, 1)
	srv := wsTestServer(t, func(conn *websocket.Conn) {
		req := JSONRPCRequest{
			JSONRPC: "2.0",
			ID:      "srv-1",
			Method:  "sampling/createMessage",
		}
		if err := conn.WriteJSON(req); err != nil {
			return
		}
		var resp JSONRPCResponse
		if err := conn.ReadJSON(&resp); err != nil {
			return
		}
		gotResponse <- resp
	})
	defer srv.Close()

	transport := NewWebSocketTransport(&ServerConfig{ID: "test", URL: wsURL(srv), Timeout: 5 * time.Second})
	if err := transport.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer transport.Close()

	var req *JSONRPCRequest
	select {
	case req = <-transport.Requests():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for server request")
	}
	if req.Method != "sampling/createMessage" {
		t.Errorf("unexpected method %q", req.Method)
	}

	if err := transport.Respond(context.Background(), req.ID, map[string]string{"status": "declined"}, nil); err != nil {
		t.Fatalf("respond: %v", err)
	}

	select {
	case resp := <-gotResponse:
		if resp.ID != "srv-1" {
			t.Errorf("response ID = %v, want srv-1", resp.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for response on server side")
	}
}

func TestWebSocketTransportCloseStopsCall(t *testing.T) {
	srv := wsTestServer(t, func(conn *websocket.Conn) {
		// Never answer; just hold the connection open.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	transport := NewWebSocketTransport(&ServerConfig{ID: "test", URL: wsURL(srv), Timeout: 30 * time.Second})
	if err := transport.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() {
		time.Sleep(50 * time.Millisecond)
		transport.Close()
	}()

	if _, err := transport.Call(ctx, "tools/list", nil); err == nil {
		t.Fatal("expected error after Close")
	}
	if transport.Connected() {
		t.Error("expected disconnected after Close")
	}
}
