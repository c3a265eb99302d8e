package proxy

import (
	"sync"
)

// Hub holds the sessions of this proxy which listen to one topic.
type Hub struct {
	topic    string
	sessions map[string]*Session

	mutex sync.RWMutex
}

func NewHub(topic string) *Hub {
	return &Hub{
		topic:    topic,
		sessions: make(map[string]*Session),
	}
}

func (h *Hub) Register(session *Session) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.sessions[session.id] = session
}

func (h *Hub) Unregister(session *Session) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	delete(h.sessions, session.id)
}

func (h *Hub) IsEmpty() bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.sessions) == 0
}

func (h *Hub) collect(into map[string]*Session) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for id, s := range h.sessions {
		into[id] = s
	}
}
