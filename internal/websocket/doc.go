// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

/*
Package websocket implements the realtime hub that fans pins out to every
connected viewer.

Components:

  - Hub: the connection registry and broadcaster, driven by one dispatch loop
  - Client: one gorilla/websocket connection with a read pump and a write pump
  - Relay: optional NATS bridge that shares broadcasts between bridge instances

Protocol:

Every frame is a JSON envelope {"type": ..., "data": ...}.

	client -> server   {"type":"new-pin","data":{"lat":10,"lng":20,"username":"a","imageUrl":"u"}}
	server -> clients  {"type":"add-pin","data":{"lat":10,"lng":20,"username":"a","imageUrl":"u"}}
	client -> server   {"type":"ping"}
	server -> client   {"type":"pong","data":null}

new-pin frames are handed to an InboundHandler on the sender's read
goroutine. The handler decides what to broadcast; the hub never interprets
payloads.

Delivery:

Broadcast is best-effort and unacknowledged. The frame is encoded once and
queued on each client's buffered send channel. A client whose buffer is full
is disconnected; the broadcast continues for everyone else and the caller is
not told. Clients that connect after a broadcast was dispatched never see it.

Timeouts:

  - writeWait: 10s per frame
  - pongWait: 60s without a pong closes the connection
  - pingPeriod: 54s
  - maxMessageSize: 64 KB inbound
*/
package websocket
