package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xelth-com/geoattend/internal/attendance"
	"github.com/xelth-com/geoattend/internal/models"
	"github.com/xelth-com/geoattend/internal/store"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4 * 1024

	sendBuffer = 64
)

// Subscription scopes a client can ask for
const (
	ScopeToday     = "today"
	ScopeAll       = "all"
	ScopeWorksites = "worksites"
)

// Message types
const (
	TypeSubscribe   = "SUBSCRIBE"
	TypeUnsubscribe = "UNSUBSCRIBE"
	TypeAck         = "ACK"
	TypeError       = "ERROR"
	TypeSnapshot    = "SNAPSHOT"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for mobile app access
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Request is what a client sends
type Request struct {
	Type  string `json:"type"`
	Scope string `json:"scope"`
	MsgID string `json:"msgId,omitempty"`
}

// Envelope is what the server sends
type Envelope struct {
	Type   string      `json:"type"`
	Scope  string      `json:"scope,omitempty"`
	MsgID  string      `json:"msgId,omitempty"`
	Change *ChangeInfo `json:"change,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ChangeInfo names the worksite change that triggered a snapshot
type ChangeInfo struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub  *Hub
	user *models.User

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	mu     sync.Mutex
	subs   map[string]func()
	closed bool
}

// readPump pumps requests from the websocket connection to the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS error: %v", err)
			}
			break
		}

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			c.sendJSON(Envelope{Type: TypeError, Error: "invalid message"})
			continue
		}
		c.handle(req)
	}
}

// writePump pumps messages from the client to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(req Request) {
	switch req.Type {
	case TypeSubscribe:
		if err := c.subscribe(req.Scope); err != "" {
			c.sendJSON(Envelope{Type: TypeError, Scope: req.Scope, MsgID: req.MsgID, Error: err})
			return
		}
		c.sendJSON(Envelope{Type: TypeAck, Scope: req.Scope, MsgID: req.MsgID})
	case TypeUnsubscribe:
		c.unsubscribe(req.Scope)
		c.sendJSON(Envelope{Type: TypeAck, Scope: req.Scope, MsgID: req.MsgID})
	default:
		c.sendJSON(Envelope{Type: TypeError, MsgID: req.MsgID, Error: "unknown message type"})
	}
}

// subscribe starts a scope; an empty return means success. Subscribing to
// an active scope again is a no-op.
func (c *Client) subscribe(scope string) string {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "connection closed"
	}
	if _, ok := c.subs[scope]; ok {
		c.mu.Unlock()
		return ""
	}
	c.mu.Unlock()

	var (
		unsubscribe func()
		err         error
	)
	switch scope {
	case ScopeToday:
		unsubscribe, err = c.hub.records.SubscribeToday(c.user.ID, func(s attendance.TodaySnapshot) {
			c.sendJSON(Envelope{Type: TypeSnapshot, Scope: ScopeToday, Data: s})
		})
	case ScopeAll:
		if c.user.Role != models.RoleManager && c.user.Role != models.RoleAdmin {
			return "forbidden"
		}
		unsubscribe, err = c.hub.records.SubscribeAll(func(records []attendance.Record) {
			c.sendJSON(Envelope{Type: TypeSnapshot, Scope: ScopeAll, Data: records})
		})
	case ScopeWorksites:
		// subscribe before the first read so no change falls in between
		unsubscribe = c.hub.worksites.Subscribe(func(ch store.Change) {
			c.sendWorksites(&ChangeInfo{Kind: ch.Kind.String(), ID: ch.ID})
		})
		c.sendWorksites(nil)
	default:
		return "unknown scope"
	}
	if err != nil {
		log.Printf("❌ Realtime: subscribe %s for %s: %v", scope, c.user.Email, err)
		return "subscription failed"
	}

	c.mu.Lock()
	_, dup := c.subs[scope]
	if c.closed || dup {
		c.mu.Unlock()
		unsubscribe()
		return ""
	}
	c.subs[scope] = unsubscribe
	c.mu.Unlock()
	return ""
}

func (c *Client) unsubscribe(scope string) {
	c.mu.Lock()
	unsubscribe, ok := c.subs[scope]
	delete(c.subs, scope)
	c.mu.Unlock()
	if ok {
		unsubscribe()
	}
}

func (c *Client) sendWorksites(change *ChangeInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	sites, err := c.hub.worksites.List(ctx)
	if err != nil {
		log.Printf("❌ Realtime: list worksites: %v", err)
		return
	}
	c.sendJSON(Envelope{Type: TypeSnapshot, Scope: ScopeWorksites, Change: change, Data: sites})
}

// sendJSON queues a message. A client that cannot keep up is disconnected
// so it can reconnect and resubscribe from a fresh snapshot.
func (c *Client) sendJSON(v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- msg:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		log.Printf("⚠️ Realtime: send buffer full for %s, dropping connection", c.user.Email)
		go c.hub.remove(c)
	}
}

// shutdown cancels every subscription and closes the send channel
func (c *Client) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subs
	c.subs = nil
	close(c.send)
	c.mu.Unlock()

	for _, unsubscribe := range subs {
		unsubscribe()
	}
}

// ServeWs upgrades an authenticated request and registers the client
func ServeWs(hub *Hub, user *models.User, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	client := &Client{
		hub:  hub,
		user: user,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		subs: make(map[string]func()),
	}
	if !hub.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
