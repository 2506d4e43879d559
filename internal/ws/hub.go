// Package ws implements the WebSocket broadcaster (spec §4.7, component I):
// a per-client hub that fans out cache-invalidation events to connected
// frontends. Adapted from the teacher's internal/api/websocket.go — the
// task-state tracking map is replaced with a client-id/heartbeat model and
// the message catalog is generalized to the curator's event set.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// Event kinds the server sends (§4.7).
const (
	EventWelcome         = "welcome"
	EventPong            = "pong"
	EventMoviesChanged   = "movies:changed"
	EventLibraryChanged  = "library:changed"
	EventScanStatus      = "scan:status"
	EventJobStarted      = "job:started"
	EventJobCompleted    = "job:completed"
	EventJobFailed       = "job:failed"
	EventPlayerStatus    = "player:status"
	EventTrailerProgress = "trailer:progress"
	EventTrailerDone     = "trailer:completed"
	EventTrailerFailed   = "trailer:failed"
	EventResyncData      = "resync:data"
	EventAck             = "ack"
	EventConflict        = "conflict"
	EventError           = "error"
)

// Client-to-server message kinds (§4.7).
const (
	InboundPing              = "ping"
	InboundResync            = "resync"
	InboundUpdateMovie       = "updateMovie"
	InboundDeleteImage       = "deleteImage"
	InboundUpdatePlayer      = "updatePlayer"
	InboundStartLibraryScan  = "startLibraryScan"
	InboundCancelLibraryScan = "cancelLibraryScan"
)

// heartbeatWindow is how long a client may stay idle before the hub closes
// its connection (§4.7: "idle sessions beyond a heartbeat window are closed").
const heartbeatWindow = 90 * time.Second

// Message is the envelope both directions use.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one connected WebSocket session.
type Client struct {
	ID        string
	conn      *websocket.Conn
	send      chan []byte
	lastSeen  time.Time
	mu        sync.Mutex
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

func (c *Client) idleSince() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastSeen)
}

// MutationHandler processes a narrow set of idempotent client-originated
// mutations (§4.7). Implementations live in the handlers package and are
// wired in by the caller that constructs the Hub.
type MutationHandler func(ctx context.Context, client *Client, event string, data json.RawMessage) (ack any, err error)

// Hub fans out broadcast events to every connected client and dispatches
// inbound mutations to a MutationHandler.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	mutation MutationHandler
}

// NewHub constructs a Hub. mutation may be nil, in which case inbound
// mutation messages are answered with EventError.
func NewHub(mutation MutationHandler) *Hub {
	return &Hub{
		clients:  make(map[*Client]bool),
		mutation: mutation,
	}
}

// Broadcast sends event/data to every connected client, best-effort
// (§4.7: "at-most-once... clients must treat events as cache invalidators").
func (h *Hub) Broadcast(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("ws: marshal broadcast payload for %s: %v", event, err)
		return
	}
	msg, err := json.Marshal(Message{Event: event, Data: payload})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// slow client; drop rather than block the broadcaster.
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades r into a WebSocket session and runs it until the
// connection closes or goes idle past heartbeatWindow.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		log.Printf("ws: accept error: %v", err)
		return
	}

	client := &Client{
		ID:       uuid.NewString(),
		conn:     conn,
		send:     make(chan []byte, 64),
		lastSeen: time.Now(),
	}
	h.addClient(client)
	log.Printf("ws: client %s connected (%d total)", client.ID, h.ClientCount())

	ctx := r.Context()
	h.sendWelcome(client)

	done := make(chan struct{})
	go h.writeLoop(ctx, client, done)
	h.readLoop(ctx, client)

	h.removeClient(client)
	<-done
	log.Printf("ws: client %s disconnected", client.ID)
}

func (h *Hub) sendWelcome(c *Client) {
	payload, _ := json.Marshal(map[string]string{"clientId": c.ID})
	msg, _ := json.Marshal(Message{Event: EventWelcome, Data: payload})
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *Client, done chan struct{}) {
	defer close(done)
	defer c.conn.Close(websocket.StatusNormalClosure, "")
	for msg := range c.send {
		if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
			return
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, c *Client) {
	for {
		if c.idleSince() > heartbeatWindow {
			return
		}
		readCtx, cancel := context.WithTimeout(ctx, heartbeatWindow)
		_, raw, err := c.conn.Read(readCtx)
		cancel()
		if err != nil {
			return
		}
		c.touch()
		h.handleInbound(ctx, c, raw)
	}
}

func (h *Hub) handleInbound(ctx context.Context, c *Client, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.reply(c, EventError, map[string]string{"message": "malformed message"})
		return
	}

	switch msg.Event {
	case InboundPing:
		h.reply(c, EventPong, nil)
		return
	case InboundResync:
		var scope struct {
			Scope string `json:"scope"`
		}
		_ = json.Unmarshal(msg.Data, &scope)
		h.reply(c, EventResyncData, map[string]string{"scope": scope.Scope})
		return
	}

	if h.mutation == nil {
		h.reply(c, EventError, map[string]string{"message": "unsupported event: " + msg.Event})
		return
	}
	ack, err := h.mutation(ctx, c, msg.Event, msg.Data)
	if err != nil {
		h.reply(c, EventError, map[string]string{"message": err.Error()})
		return
	}
	h.reply(c, EventAck, ack)
}

func (h *Hub) reply(c *Client, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	msg, err := json.Marshal(Message{Event: event, Data: payload})
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
