package engine

import (
	"sync"

	"github.com/google/uuid"
	"github.com/questx-lab/chat/internal/common"
	"github.com/questx-lab/chat/internal/domain/notification/event"
)

const proxySessionBufferSize = 1 << 10

// ProxySession is the engine side of a connected proxy.
type ProxySession struct {
	C chan *event.EventRequest

	id     string
	topics map[string]struct{}
	done   chan struct{}
	once   sync.Once
}

func NewProxySession() *ProxySession {
	return &ProxySession{
		C:      make(chan *event.EventRequest, proxySessionBufferSize),
		id:     uuid.NewString(),
		topics: make(map[string]struct{}),
		done:   make(chan struct{}),
	}
}

// Send never blocks. A proxy which cannot keep up is closed, it resyncs its
// clients after reconnecting.
func (s *ProxySession) Send(ev *event.EventRequest) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.C <- ev:
		return true
	default:
		common.PromCounters[common.SlowSessionClosedTotal].WithLabelValues("engine").Inc()
		s.Close()
		return false
	}
}

func (s *ProxySession) Done() <-chan struct{} {
	return s.done
}

func (s *ProxySession) Close() {
	s.once.Do(func() { close(s.done) })
}
