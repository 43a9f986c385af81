package ws

import (
	"sync"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
)

// Event is the payload pushed to subscribers of a topic.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

const (
	EventConnected             = "connected"
	EventAssignmentCreated     = "assignment_created"
	EventAssignmentBulkCreated = "assignment_bulk_created"
	EventSubmissionUpdated     = "submission_updated"
	EventGradeUpdated          = "grade_updated"
	EventPrivateMessageCreated = "private_message_created"
	EventThreadUpdated         = "thread_updated"
)

// Conn is a live push-capable connection. Push must be safe for concurrent
// use; a failed Push marks the connection dead.
type Conn interface {
	Push(ev Event) error
	Close() error
}

// Hub is a per-topic registry of live connections. The process owns one hub
// instance per channel (assignments, thread lists, private chats); topic ids
// are lesson ids or chat ids depending on the instance.
type Hub struct {
	mu     sync.RWMutex
	log    *logger.Logger
	topics map[int64]map[Conn]bool
}

func NewHub(name string, log *logger.Logger) *Hub {
	return &Hub{
		log:    log.With("hub", name),
		topics: make(map[int64]map[Conn]bool),
	}
}

func (h *Hub) Connect(topic int64, c Conn) {
	if c == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.topics[topic]
	if !ok {
		conns = make(map[Conn]bool)
		h.topics[topic] = conns
	}
	conns[c] = true
	h.log.Debug("Connection registered", "topic", topic, "connections", len(conns))
}

func (h *Hub) Disconnect(topic int64, c Conn) {
	if c == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.topics, topic)
	}
	h.log.Debug("Connection removed", "topic", topic)
}

// Broadcast pushes ev to every connection on topic, best effort. The
// connection set is snapshotted under the read lock so a failing push can
// never corrupt the registry mid-iteration; dead connections are pruned
// afterward.
func (h *Hub) Broadcast(topic int64, ev Event) {
	h.mu.RLock()
	conns, ok := h.topics[topic]
	if !ok || len(conns) == 0 {
		h.mu.RUnlock()
		return
	}
	snapshot := make([]Conn, 0, len(conns))
	for c := range conns {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	var dead []Conn
	for _, c := range snapshot {
		if err := c.Push(ev); err != nil {
			h.log.Debug("Push failed, pruning connection", "topic", topic, "event", ev.Event, "error", err)
			dead = append(dead, c)
		}
	}
	for _, c := range dead {
		h.Disconnect(topic, c)
		_ = c.Close()
	}
}

// ConnCount reports the number of live connections on topic.
func (h *Hub) ConnCount(topic int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// HasTopic reports whether topic currently has a registry entry.
func (h *Hub) HasTopic(topic int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.topics[topic]
	return ok
}
