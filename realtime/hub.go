package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Event is one broadcast as delivered to a connection: an event name and the
// full entity payload, already marshalled.
type Event struct {
	Name    string
	Payload []byte
}

const connBufferSize = 32

// Conn is one client connection's subscription handle. Events arrive on a
// buffered channel; the channel is closed when the connection is disconnected.
type Conn struct {
	id     string
	events chan Event
	closed bool // guarded by the owning hub's mu
}

func (c *Conn) ID() string { return c.id }

// Events is the stream the transport drains and writes to the client.
func (c *Conn) Events() <-chan Event { return c.events }

type room struct {
	mu      sync.Mutex
	members map[*Conn]struct{}
}

// Hub is the room broadcast gateway: ephemeral labelled rooms mapping to the
// set of currently connected clients. Membership is process-local state with
// no durability; it rebuilds from nothing on restart as clients reconnect.
//
// Join, Leave and Broadcast on the same room are mutually exclusive, so a
// broadcast always sees a consistent membership snapshot. Operations on
// different rooms do not contend beyond the registry read lock.
type Hub struct {
	logger *log.Logger

	mu         sync.RWMutex
	rooms      map[string]*room
	membership map[*Conn]map[string]struct{}
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		panic("realtime.NewHub: logger is nil")
	}
	return &Hub{
		logger:     logger,
		rooms:      make(map[string]*room),
		membership: make(map[*Conn]map[string]struct{}),
	}
}

// NewConnection registers a fresh connection with the hub. The caller must
// eventually call Disconnect to release it.
func (h *Hub) NewConnection() *Conn {
	c := &Conn{id: uuid.NewString(), events: make(chan Event, connBufferSize)}
	h.mu.Lock()
	h.membership[c] = make(map[string]struct{})
	h.mu.Unlock()
	return c
}

// Join adds the connection to the named room, creating the room on first use.
// Joining a room twice is a no-op.
func (h *Hub) Join(c *Conn, roomName string) {
	h.mu.Lock()
	if c.closed {
		h.mu.Unlock()
		return
	}
	r, ok := h.rooms[roomName]
	if !ok {
		r = &room{members: make(map[*Conn]struct{})}
		h.rooms[roomName] = r
	}
	if joined, tracked := h.membership[c]; tracked {
		joined[roomName] = struct{}{}
	}
	h.mu.Unlock()

	r.mu.Lock()
	r.members[c] = struct{}{}
	r.mu.Unlock()
}

// Leave removes the connection from the named room. Leaving a room the
// connection never joined, or a room that does not exist, is a no-op.
func (h *Hub) Leave(c *Conn, roomName string) {
	h.mu.Lock()
	r := h.rooms[roomName]
	if joined, tracked := h.membership[c]; tracked {
		delete(joined, roomName)
	}
	h.mu.Unlock()

	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.members, c)
	r.mu.Unlock()
}

// Disconnect removes the connection from every room it joined and closes its
// event channel. Safe to call once per connection.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	if c.closed {
		h.mu.Unlock()
		return
	}
	c.closed = true
	joined := h.membership[c]
	delete(h.membership, c)
	rooms := make([]*room, 0, len(joined))
	for name := range joined {
		if r, ok := h.rooms[name]; ok {
			rooms = append(rooms, r)
		}
	}
	h.mu.Unlock()

	for _, r := range rooms {
		r.mu.Lock()
		delete(r.members, c)
		r.mu.Unlock()
	}
	close(c.events)
}

// Broadcast marshals the payload once and delivers it to every connection
// currently joined to the room. Delivery is best effort at time of call: a
// room with no members is a silent no-op, and a connection whose buffer is
// full has the event dropped rather than blocking the broadcast.
func (h *Hub) Broadcast(roomName, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Errorf("broadcast marshal %s: %v", event, err)
		return
	}

	h.mu.RLock()
	r := h.rooms[roomName]
	h.mu.RUnlock()
	if r == nil {
		return
	}

	ev := Event{Name: event, Payload: data}
	dropped := 0
	r.mu.Lock()
	for c := range r.members {
		select {
		case c.events <- ev:
		default:
			dropped++
		}
	}
	r.mu.Unlock()

	if dropped > 0 {
		h.logger.WithFields(log.Fields{
			"room":    roomName,
			"event":   event,
			"dropped": dropped,
		}).Warn("slow consumers dropped broadcast")
	}
}
