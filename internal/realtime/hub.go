// Package realtime is the UI-facing transport: a websocket hub with
// per-asset rooms and a global feed.
package realtime

import "sync"

// Message is a named event envelope sent to clients
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Session is one connected client. The hub only needs to address and feed
// it; the websocket plumbing lives in session.go and tests substitute fakes.
type Session interface {
	// ID uniquely identifies the connection
	ID() string
	// Send queues a message for delivery; it must not block the caller
	Send(msg Message)
}

// Hub tracks connected sessions and their room membership. A session may
// join any number of asset rooms; broadcasts fan out to a room or to every
// connection.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]Session
	rooms    map[string]map[string]Session
	joined   map[string]map[string]struct{} // session ID -> room set
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]Session),
		rooms:    make(map[string]map[string]Session),
		joined:   make(map[string]map[string]struct{}),
	}
}

// Register adds a connection to the hub
func (h *Hub) Register(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s.ID()] = s
	h.joined[s.ID()] = make(map[string]struct{})
}

// Unregister removes a connection and its room memberships
func (h *Hub) Unregister(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.joined[s.ID()] {
		delete(h.rooms[room], s.ID())
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.joined, s.ID())
	delete(h.sessions, s.ID())
}

// Join adds the session to an asset's room
func (h *Hub) Join(s Session, assetID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s.ID()]; !ok {
		return
	}
	if h.rooms[assetID] == nil {
		h.rooms[assetID] = make(map[string]Session)
	}
	h.rooms[assetID][s.ID()] = s
	h.joined[s.ID()][assetID] = struct{}{}
}

// Leave removes the session from an asset's room
func (h *Hub) Leave(s Session, assetID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.rooms[assetID], s.ID())
	if len(h.rooms[assetID]) == 0 {
		delete(h.rooms, assetID)
	}
	if set, ok := h.joined[s.ID()]; ok {
		delete(set, assetID)
	}
}

// ToRoom sends a message to every session in an asset's room
func (h *Hub) ToRoom(assetID string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.rooms[assetID] {
		s.Send(msg)
	}
}

// ToAll sends a message to every connected session
func (h *Hub) ToAll(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.sessions {
		s.Send(msg)
	}
}

// RoomSize reports the number of sessions in an asset's room
func (h *Hub) RoomSize(assetID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[assetID])
}

// Size reports the number of connected sessions
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
