/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"scenewriter/internal/editor"
	applog "scenewriter/internal/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// MessageState carries an editor.State payload.
const MessageState = "state"

// Message is one frame pushed to clients.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub fans editor state out to connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader

	clients    map[uuid.UUID]*client
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	quit       chan struct{}
	stopOnce   sync.Once

	log *slog.Logger
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	hub  *Hub
	send chan []byte
	// initial is read by Run at registration so no broadcast can slip in between.
	initial func() editor.State
}

// NewHub returns a hub accepting the given origins. With no origins only same-host
// upgrades pass.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:    make(map[uuid.UUID]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 64),
		quit:       make(chan struct{}),
		log:        applog.WithComponent("ws"),
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, origin) || slices.Contains(allowedOrigins, "*")
		}
	}
	return h
}

// Run processes registrations and broadcasts until Stop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c.id] = c
			if c.initial != nil {
				if data, err := json.Marshal(Message{Type: MessageState, Payload: c.initial()}); err == nil {
					c.send <- data
				}
			}
			h.log.Debug("client connected", slog.String("client", c.id.String()), slog.Int("clients", len(h.clients)))
		case c := <-h.unregister:
			h.drop(c)
		case data := <-h.broadcast:
			for _, c := range h.clients {
				select {
				case c.send <- data:
				default:
					h.log.Warn("client too slow, dropping", slog.String("client", c.id.String()))
					h.drop(c)
				}
			}
		case <-h.quit:
			for _, c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	h.log.Debug("client disconnected", slog.String("client", c.id.String()))
}

// Stop disconnects all clients and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Broadcast queues msg for every client. It is a no-op after Stop.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal message", slog.Any("err", err))
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.quit:
	}
}

// Handler upgrades the request and sends the current state before any broadcast.
func (h *Hub) Handler(state func() editor.State) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			h.log.Warn("upgrade failed", slog.Any("err", err))
			return
		}
		c := &client{id: uuid.New(), conn: conn, hub: h, send: make(chan []byte, sendBuffer), initial: state}
		select {
		case h.register <- c:
		case <-h.quit:
			_ = conn.Close()
			return
		}
		go c.writePump()
		go c.readPump()
	}
}

// readPump only keeps the connection alive. Clients send commands over HTTP.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("read", slog.String("client", c.id.String()), slog.Any("err", err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
