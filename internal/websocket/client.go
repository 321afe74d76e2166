// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/geoclover/internal/logging"
	"github.com/tomtom215/geoclover/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// clientIDCounter hands out monotonically increasing IDs so the hub can fan
// out in a stable order.
var clientIDCounter atomic.Uint64

// InboundHandler receives pins submitted over the realtime channel.
// HandleNewPin runs on the client's read goroutine; messages from one client
// are handled one at a time, in arrival order.
type InboundHandler interface {
	HandleNewPin(ctx context.Context, source *Client, payload json.RawMessage)
}

// ClientOptions configures a connection.
type ClientOptions struct {
	Handler InboundHandler

	// MessagesPerSecond limits inbound new-pin messages. Zero disables the limit.
	MessagesPerSecond float64
	Burst             int
}

// inboundMessage is the envelope read from clients. Data is kept raw so a
// new-pin payload can be echoed exactly as received.
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client is one realtime connection registered with the hub.
type Client struct {
	id      uint64
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	control chan []byte
	gone    chan struct{}
	once    sync.Once

	handler InboundHandler
	limiter *rate.Limiter
}

// NewClient wraps conn. Register it with the hub, then call Start.
func NewClient(hub *Hub, conn *websocket.Conn, opts ClientOptions) *Client {
	c := &Client{
		id:      clientIDCounter.Add(1),
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		control: make(chan []byte, 1),
		gone:    make(chan struct{}),
		handler: opts.Handler,
	}
	if opts.MessagesPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), burst)
	}
	return c
}

// ID is the opaque connection identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// close is called by the hub, with the client already removed from its set.
func (c *Client) close() {
	c.once.Do(func() {
		close(c.send)
		close(c.gone)
	})
}

// Start launches the read and write pumps. Handlers run with a context
// derived from parent that is canceled when the connection closes.
func (c *Client) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	go c.writePump()
	go c.readPump(ctx, cancel)
}

func (c *Client) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer func() {
		cancel()
		c.hub.Remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		c.handleFrame(ctx, data)
	}
}

// handleFrame routes one inbound frame. Malformed frames and unknown types
// are ignored.
func (c *Client) handleFrame(ctx context.Context, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logging.Debug().Err(err).Uint64("client_id", c.id).Msg("ignoring malformed websocket frame")
		return
	}

	switch msg.Type {
	case EventPing:
		pong, _ := json.Marshal(Message{Type: EventPong})
		select {
		case c.control <- pong:
		default:
		}

	case EventNewPin:
		if c.limiter != nil && !c.limiter.Allow() {
			metrics.WSMessagesRateLimited.Inc()
			logging.Warn().Uint64("client_id", c.id).Msg("new-pin rate limit exceeded, message dropped")
			return
		}
		if c.handler != nil {
			c.handler.HandleNewPin(ctx, c, msg.Data)
		}

	default:
		logging.Debug().Str("type", msg.Type).Uint64("client_id", c.id).Msg("ignoring unknown websocket message type")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("websocket write failed")
				return
			}

		case frame := <-c.control:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
