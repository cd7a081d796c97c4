// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gnss_skyplot/internal/orientation"
	"github.com/relabs-tech/gnss_skyplot/internal/skyplot"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // sky plot is served on the local network
	},
}

// WSMessage is sent by browsers. A phone can push its own compass heading
// with action "orientation".
type WSMessage struct {
	Action         string  `json:"action"` // orientation
	OrientationDeg float64 `json:"orientation_deg,omitempty"`
	TiltDeg        float64 `json:"tilt_deg,omitempty"`
}

// WSResponse is pushed to browsers.
type WSResponse struct {
	Type    string         `json:"type"` // hello, frame, error
	Client  string         `json:"client,omitempty"`
	Frame   *skyplot.Frame `json:"frame,omitempty"`
	Message string         `json:"message,omitempty"`
}

type wsClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// wsHub fans frames out to connected browsers. A slow client loses frames
// instead of stalling the refresh loop.
type wsHub struct {
	view *skyplot.View

	mu      sync.Mutex
	clients map[uuid.UUID]*wsClient
}

func newWSHub(view *skyplot.View) *wsHub {
	return &wsHub{view: view, clients: make(map[uuid.UUID]*wsClient)}
}

func (h *wsHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *wsHub) broadcast(f skyplot.Frame) {
	payload, err := json.Marshal(WSResponse{Type: "frame", Frame: &f})
	if err != nil {
		log.Printf("web: frame marshal error: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

func (h *wsHub) add(conn *websocket.Conn) *wsClient {
	c := &wsClient{id: uuid.New(), conn: conn, send: make(chan []byte, 4)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	return c
}

func (h *wsHub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
}

// ServeHTTP upgrades the connection, sends a hello with the client id and
// the current frame, then pumps frames until the browser goes away.
func (h *wsHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	c := h.add(conn)
	log.Printf("web: websocket client %s connected", c.id)

	go h.writeLoop(c)

	h.hello(c)
	h.readLoop(c)
	h.remove(c)
	log.Printf("web: websocket client %s disconnected", c.id)
}

// hello queues the greeting without blocking. A client whose writer has
// already died is left to readLoop to reap.
func (h *wsHub) hello(c *wsClient) bool {
	msg := WSResponse{Type: "hello", Client: c.id.String()}
	if f, ok := h.view.Frame(); ok {
		msg.Frame = &f
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("web: hello marshal error: %v", err)
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		log.Printf("web: websocket client %s send buffer full, hello dropped", c.id)
		return false
	}
}

func (h *wsHub) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("web: websocket write error (%s): %v", c.id, err)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *wsHub) readLoop(c *wsClient) {
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("web: websocket error (%s): %v", c.id, err)
			}
			return
		}

		switch msg.Action {
		case "orientation":
			h.view.SetOrientation(orientation.Orientation{
				OrientationDeg: orientation.NormalizeDeg(msg.OrientationDeg),
				TiltDeg:        msg.TiltDeg,
			})
		default:
			payload, _ := json.Marshal(WSResponse{Type: "error", Message: "unknown action: " + msg.Action})
			select {
			case c.send <- payload:
			default:
			}
		}
	}
}
