package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dockmon/internal/utils"
)

const writeTimeout = 10 * time.Second

// Client is one live WebSocket connection owned by the hub. Writes are
// serialized per connection because gorilla conns allow one concurrent
// writer.
type Client struct {
	conn        *websocket.Conn
	userID      int64
	connectedAt time.Time
	writeMu     sync.Mutex
}

// UserID returns the account this connection authenticated as.
func (c *Client) UserID() int64 { return c.userID }

// ConnectedAt returns when the hub adopted this connection.
func (c *Client) ConnectedAt() time.Time { return c.connectedAt }

// Send marshals v and writes it to this connection only.
func (c *Client) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *Client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub multiplexes live subscriber connections per user. A user may hold
// any number of simultaneous connections; the hub owns them exclusively
// and closes them on removal.
type Hub struct {
	mu    sync.RWMutex
	users map[int64]map[*Client]struct{}
	log   *utils.Logger
}

func NewHub(logger *utils.Logger) *Hub {
	return &Hub{
		users: make(map[int64]map[*Client]struct{}),
		log:   logger,
	}
}

// Register adopts a connection under the given user and returns its
// handle.
func (h *Hub) Register(conn *websocket.Conn, userID int64) *Client {
	c := &Client{conn: conn, userID: userID, connectedAt: time.Now().UTC()}
	h.mu.Lock()
	set, ok := h.users[userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.users[userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	h.log.Writef("WebSocket client connected (user %d)", userID)
	return c
}

// Unregister removes and closes a connection. Safe to call more than
// once and for connections the hub already dropped.
func (h *Hub) Unregister(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	removed := h.removeLocked(c)
	h.mu.Unlock()
	if removed {
		h.log.Writef("WebSocket client disconnected (user %d)", c.userID)
	}
}

func (h *Hub) removeLocked(c *Client) bool {
	set, ok := h.users[c.userID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.users, c.userID)
	}
	c.conn.Close()
	return true
}

// SendPersonal serializes msg once and delivers it to every connection
// the user holds. Delivery runs over a snapshot of the connection set;
// failed connections are queued and removed only after the fan-out pass.
// A user with zero connections is a no-op.
func (h *Hub) SendPersonal(userID int64, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Writef("WebSocket marshal error: %v", err)
		return
	}
	h.mu.RLock()
	set := h.users[userID]
	snapshot := make([]*Client, 0, len(set))
	for c := range set {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	h.deliver(snapshot, data)
}

// Broadcast delivers msg to every connection of every user, with the
// same snapshot and deferred-removal semantics as SendPersonal.
func (h *Hub) Broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Writef("WebSocket marshal error: %v", err)
		return
	}
	h.mu.RLock()
	var snapshot []*Client
	for _, set := range h.users {
		for c := range set {
			snapshot = append(snapshot, c)
		}
	}
	h.mu.RUnlock()

	h.deliver(snapshot, data)
}

func (h *Hub) deliver(snapshot []*Client, data []byte) {
	var failed []*Client
	for _, c := range snapshot {
		if err := c.write(data); err != nil {
			h.log.Writef("WebSocket write error (user %d): %v", c.userID, err)
			failed = append(failed, c)
		}
	}
	if len(failed) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range failed {
		h.removeLocked(c)
	}
	h.mu.Unlock()
}

// ConnectionCount reports how many connections a user currently holds.
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Shutdown closes every connection and empties the registry.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.users {
		for c := range set {
			c.conn.Close()
		}
	}
	h.users = make(map[int64]map[*Client]struct{})
}
