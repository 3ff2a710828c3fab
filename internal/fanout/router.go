// Package fanout delivers realtime events to live connections. Rooms are
// in-memory only and rebuilt empty on restart; they are a push cache, never
// a source of truth.
package fanout

import (
	"encoding/json"
	"log"
	"sync"

	"paidreply/backend/internal/models"
)

// Namespace separates the two independent room tables.
type Namespace string

const (
	// NamespaceChat rooms are keyed by conversation ID.
	NamespaceChat Namespace = "chat"
	// NamespaceDashboard rooms are keyed by creator ID.
	NamespaceDashboard Namespace = "dashboard"
)

// Router owns room membership for both namespaces. It is created at process
// start and torn down at shutdown; there is no ambient global instance.
type Router struct {
	mu    sync.Mutex
	rooms map[Namespace]map[string]map[Conn]struct{}
}

func NewRouter() *Router {
	return &Router{
		rooms: map[Namespace]map[string]map[Conn]struct{}{
			NamespaceChat:      make(map[string]map[Conn]struct{}),
			NamespaceDashboard: make(map[string]map[Conn]struct{}),
		},
	}
}

// Join adds the connection to the room, creating the room lazily, and sends
// a welcome acknowledgment to that connection only.
func (r *Router) Join(ns Namespace, key string, conn Conn) {
	r.mu.Lock()
	room, ok := r.rooms[ns][key]
	if !ok {
		room = make(map[Conn]struct{})
		r.rooms[ns][key] = room
	}
	room[conn] = struct{}{}
	r.mu.Unlock()

	welcome := models.Event{Type: "welcome"}
	switch ns {
	case NamespaceChat:
		welcome.ConversationID = key
	case NamespaceDashboard:
		welcome.CreatorID = key
	}
	payload, err := json.Marshal(welcome)
	if err != nil {
		return
	}
	conn.Enqueue(payload)
}

// Leave removes the connection from the room. An emptied room is deleted
// from the table immediately so dead keys never accumulate.
func (r *Router) Leave(ns Namespace, key string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[ns][key]
	if !ok {
		return
	}
	delete(room, conn)
	if len(room) == 0 {
		delete(r.rooms[ns], key)
	}
}

// Broadcast serializes the event once and pushes it to every member of the
// room whose transport is open. An absent room is a silent no-op: nobody is
// watching. Closed connections are skipped, not removed;
// their own close notification handles removal, so Broadcast never races
// with Leave. Holding the lock across delivery keeps same-room events in
// submission order (Enqueue never blocks, so the hold is short).
func (r *Router) Broadcast(ns Namespace, key string, event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("fanout: could not serialize %s event: %v", event.Type, err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[ns][key]
	if !ok {
		return
	}
	for conn := range room {
		if !conn.IsOpen() {
			continue
		}
		if !conn.Enqueue(payload) {
			log.Printf("fanout: dropped %s event for slow connection %s", event.Type, conn.ID())
		}
	}
}

// HasRoom reports whether the room currently exists (i.e. has members).
func (r *Router) HasRoom(ns Namespace, key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[ns][key]
	return ok
}

// RoomSize returns the number of connections in the room, 0 when absent.
func (r *Router) RoomSize(ns Namespace, key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[ns][key])
}
