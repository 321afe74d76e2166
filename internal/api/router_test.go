// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/geoclover/internal/ingest"
	"github.com/tomtom215/geoclover/internal/models"
	"github.com/tomtom215/geoclover/internal/websocket"
)

func TestCORS_PreflightAllowsCredentials(t *testing.T) {
	h := newTestRouter(HandlerConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/api/pins", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Allow-Credentials = %q", got)
	}
}

func TestCORS_UnknownOriginNotAllowed(t *testing.T) {
	h := newTestRouter(HandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want none", got)
	}
}

func TestRateLimit(t *testing.T) {
	mw := DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = []string{testOrigin}
	mw.RateLimitRequests = 2
	mw.RateLimitWindow = time.Minute
	h := NewRouter(NewHandler(HandlerConfig{}), mw).SetupChi()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, h, http.MethodGet, "/api/health/live", "").Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// The root route sits outside /api and is never limited.
	if rec := do(t, h, http.MethodGet, "/", ""); rec.Code != http.StatusOK {
		t.Errorf("root status = %d", rec.Code)
	}
}

func TestRateLimit_DisabledIsNoop(t *testing.T) {
	mw := &ChiMiddlewareConfig{RateLimitRequests: 1, RateLimitWindow: time.Minute, RateLimitDisabled: true}
	h := NewRouter(NewHandler(HandlerConfig{}), mw).SetupChi()

	for i := 0; i < 5; i++ {
		if rec := do(t, h, http.MethodGet, "/api/health/live", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(HandlerConfig{})
	do(t, h, http.MethodGet, "/api/health/live", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "geoclover_") {
		t.Error("expected geoclover metrics in exposition")
	}
}

func TestWebSocket_HubUnavailable(t *testing.T) {
	rec := do(t, newTestRouter(HandlerConfig{}), http.MethodGet, "/ws", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "exact match", allowed: []string{testOrigin}, origin: testOrigin, want: true},
		{name: "other origin", allowed: []string{testOrigin}, origin: "http://evil.test", want: false},
		{name: "missing origin", allowed: []string{testOrigin}, origin: "", want: false},
		{name: "wildcard", allowed: []string{"*"}, origin: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(HandlerConfig{AllowedOrigins: tt.allowed})
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkWebSocketOrigin(req); got != tt.want {
				t.Errorf("checkWebSocketOrigin = %v, want %v", got, tt.want)
			}
		})
	}
}

// recordingDispatcher captures pins handed to background replication.
type recordingDispatcher struct {
	mu   sync.Mutex
	pins []models.Pin
	done chan struct{}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ string, pin models.Pin) {
	d.mu.Lock()
	d.pins = append(d.pins, pin)
	d.mu.Unlock()
	d.done <- struct{}{}
}

type unusedReplicator struct{}

func (unusedReplicator) Replicate(context.Context, string, models.Pin) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startHub(t *testing.T) *websocket.Hub {
	t.Helper()
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func dial(t *testing.T, url string, origin string) (*gorillaws.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := gorillaws.DefaultDialer.Dial(url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func waitForClients(t *testing.T, hub *websocket.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("ClientCount = %d, want %d", hub.ClientCount(), want)
}

func readWire(t *testing.T, conn *gorillaws.Conn) wireMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg wireMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		t.Fatalf("decode %s: %v", frame, err)
	}
	return msg
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	hub := startHub(t)
	srv := httptest.NewServer(newTestRouter(HandlerConfig{Hub: hub}))
	t.Cleanup(srv.Close)

	_, resp, err := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", "http://evil.test")
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v", resp)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d", hub.ClientCount())
	}
}

func TestWebSocket_NewPinBroadcastToAllClients(t *testing.T) {
	hub := startHub(t)
	dispatcher := &recordingDispatcher{done: make(chan struct{}, 1)}
	gateway := ingest.NewGateway(hub, nil, unusedReplicator{}, dispatcher)

	baseCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(newTestRouter(HandlerConfig{
		Hub:         hub,
		Pins:        gateway,
		Inbound:     gateway,
		BaseContext: baseCtx,
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	submitter, _, err := dial(t, url, testOrigin)
	if err != nil {
		t.Fatalf("dial submitter: %v", err)
	}
	viewer, _, err := dial(t, url, testOrigin)
	if err != nil {
		t.Fatalf("dial viewer: %v", err)
	}
	waitForClients(t, hub, 2)

	frame := `{"type":"new-pin","data":{"lat":40.7,"lng":-74,"username":"ann","imageUrl":"http://img","extra":true}}`
	if err := submitter.WriteMessage(gorillaws.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}

	for name, conn := range map[string]*gorillaws.Conn{"submitter": submitter, "viewer": viewer} {
		msg := readWire(t, conn)
		if msg.Type != websocket.EventAddPin {
			t.Errorf("%s: type = %q", name, msg.Type)
		}
		var data map[string]interface{}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			t.Fatalf("%s: decode data: %v", name, err)
		}
		if data["lat"] != 40.7 || data["username"] != "ann" || data["extra"] != true {
			t.Errorf("%s: data = %v", name, data)
		}
	}

	select {
	case <-dispatcher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("pin was not handed to replication")
	}
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	pin := dispatcher.pins[0]
	if string(pin.Latitude) != "40.7" || string(pin.Longitude) != "-74" {
		t.Errorf("dispatched pin = %+v", pin)
	}
}

func TestCreatePin_BroadcastReachesSocketClients(t *testing.T) {
	hub := startHub(t)
	gateway := ingest.NewGateway(hub, nil, unusedReplicator{}, &recordingDispatcher{done: make(chan struct{}, 1)})

	srv := httptest.NewServer(newTestRouter(HandlerConfig{Hub: hub, Pins: gateway, Inbound: gateway}))
	t.Cleanup(srv.Close)

	viewer, _, err := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", testOrigin)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitForClients(t, hub, 1)

	resp, err := http.Post(srv.URL+"/api/pins", "application/json", strings.NewReader(`{"latitude":1.5,"longitude":2.5,"username":"bo"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	msg := readWire(t, viewer)
	var payload models.PinPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != websocket.EventAddPin || string(payload.Lat) != "1.5" || string(payload.Username) != `"bo"` {
		t.Errorf("message = %s %s", msg.Type, msg.Data)
	}
}
