package proxy

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/questx-lab/chat/internal/common"
	"github.com/questx-lab/chat/internal/domain/notification/event"
)

const sessionBufferSize = 1 << 8

// Session is one client connected to this proxy.
type Session struct {
	C chan *event.EventRequest

	id     string
	userID string
	router *Router

	// topics counts the listeners of each joined topic.
	topics map[string]int
	mutex  sync.Mutex

	done chan struct{}
	once sync.Once
}

func NewSession(router *Router, userID string) *Session {
	return &Session{
		C:      make(chan *event.EventRequest, sessionBufferSize),
		id:     uuid.NewString(),
		userID: userID,
		router: router,
		topics: make(map[string]int),
		done:   make(chan struct{}),
	}
}

func (s *Session) Join(ctx context.Context, topic string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	select {
	case <-s.done:
		return
	default:
	}

	s.topics[topic]++
	if s.topics[topic] == 1 {
		s.router.Join(ctx, topic, s)
	}
}

func (s *Session) Leave(topic string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	n, ok := s.topics[topic]
	if !ok {
		return
	}

	if n > 1 {
		s.topics[topic] = n - 1
		return
	}

	delete(s.topics, topic)
	s.router.Leave(topic, s)
}

// Send never blocks. A session which cannot keep up is closed.
func (s *Session) Send(ev *event.EventRequest) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.C <- ev:
		return true
	default:
		common.PromCounters[common.SlowSessionClosedTotal].WithLabelValues("proxy").Inc()
		s.Close()
		return false
	}
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close leaves every hub. The session receives nothing afterwards.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)

		s.mutex.Lock()
		defer s.mutex.Unlock()
		for topic := range s.topics {
			s.router.Leave(topic, s)
		}
		s.topics = make(map[string]int)
	})
}
