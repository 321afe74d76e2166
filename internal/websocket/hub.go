// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package websocket

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/metrics"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Event names on the realtime channel.
const (
	EventNewPin = "new-pin"
	EventAddPin = "add-pin"
	EventPing   = "ping"
	EventPong   = "pong"
)

// ErrHubStopped is returned to callers whose request was pending when the
// dispatch loop exited.
var ErrHubStopped = errors.New("websocket hub stopped")

// Message is the envelope written to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// broadcastRequest is one fan-out. delivered receives the number of clients
// the frame was queued for once dispatch has finished.
type broadcastRequest struct {
	event     string
	frame     []byte
	delivered chan int
}

// Hub is the realtime fan-out registry.
//
// A single dispatch loop (RunWithContext) owns every mutation of the client
// set and every broadcast, so registration, removal and fan-out are
// serialized. A broadcast reaches exactly the clients registered when the loop
// picks it up, and each client sees broadcasts in the order they were
// dispatched.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan broadcastRequest
	register   chan *Client
	unregister chan *Client

	// mu guards clients for readers outside the loop (ClientCount).
	mu sync.RWMutex

	// stopped is closed when the current run of the loop exits and replaced
	// before the next run, so a supervised restart gets a fresh one.
	stoppedMu sync.Mutex
	stopped   chan struct{}
}

// NewHub creates a Hub. Call RunWithContext to start dispatching.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan broadcastRequest, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}
}

func (h *Hub) stoppedChan() chan struct{} {
	h.stoppedMu.Lock()
	defer h.stoppedMu.Unlock()
	return h.stopped
}

// RunWithContext runs the dispatch loop until ctx is canceled. On exit every
// connected client is closed. It may be called again after it returns.
//
// Lifecycle events are drained before broadcasts so that a broadcast always
// sees the registry as of the latest connect or disconnect already queued.
func (h *Hub) RunWithContext(ctx context.Context) error {
	stopped := h.stoppedChan()
	defer func() {
		h.stoppedMu.Lock()
		close(stopped)
		h.stopped = make(chan struct{})
		h.stoppedMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.register:
			h.addClient(client)
			continue
		case client := <-h.unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case req := <-h.broadcast:
			delivered := h.fanOut(req)
			req.delivered <- delivered
		}
	}
}

// Register adds client to the fan-out set. It returns once the dispatch loop
// has accepted the client.
func (h *Hub) Register(ctx context.Context, client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stoppedChan():
		return ErrHubStopped
	}
}

// Remove drops client from the fan-out set. Removing a client twice, or one
// that was never registered, is a no-op.
func (h *Hub) Remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-client.gone:
		// Already dropped by a broadcast or by shutdown.
	case <-h.stoppedChan():
	}
}

// Broadcast delivers payload as event to every registered client, including
// the sender of the event if it is registered. It blocks until the dispatch
// loop has queued the frame for every target and returns how many clients it
// was queued for. A client whose buffer is full is dropped without affecting
// the others; such failures are never returned to the caller.
func (h *Hub) Broadcast(ctx context.Context, event string, payload interface{}) (int, error) {
	frame, err := json.Marshal(Message{Type: event, Data: payload})
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", event, err)
	}

	req := broadcastRequest{event: event, frame: frame, delivered: make(chan int, 1)}
	stopped := h.stoppedChan()

	select {
	case h.broadcast <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-stopped:
		return 0, ErrHubStopped
	}

	select {
	case n := <-req.delivered:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-stopped:
		return 0, ErrHubStopped
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSClients.Set(float64(total))
	logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		client.close()
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.WSClients.Set(float64(total))
		logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// sortedClients must be called with mu held.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// fanOut queues the frame on every client in ID order and drops clients that
// cannot keep up.
func (h *Hub) fanOut(req broadcastRequest) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	var dropped []*Client
	delivered := 0
	for _, client := range h.sortedClients() {
		select {
		case client.send <- req.frame:
			delivered++
		default:
			dropped = append(dropped, client)
		}
	}

	for _, client := range dropped {
		client.close()
		delete(h.clients, client)
		logging.Warn().Uint64("client_id", client.id).Str("event", req.event).Msg("client send buffer full, dropping client")
	}

	metrics.RecordBroadcast(req.event, len(dropped))
	if len(dropped) > 0 {
		metrics.WSClients.Set(float64(len(h.clients)))
	}
	logging.Debug().Str("event", req.event).Int("clients", delivered).Msg("broadcast dispatched")
	return delivered
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	closed := 0
	for _, client := range h.sortedClients() {
		client.close()
		delete(h.clients, client)
		closed++
	}
	h.mu.Unlock()

	metrics.WSClients.Set(0)
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
