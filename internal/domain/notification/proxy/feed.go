package proxy

import (
	"context"
	"errors"
	"sync"

	"github.com/questx-lab/chat/internal/domain/notification/event"
	"github.com/questx-lab/chat/internal/domain/unread"
)

const subscriptionBufferSize = 1 << 8

// sessionFeed lets the unread aggregator of a session follow the hubs the
// session listens to.
type sessionFeed struct {
	session *Session

	mutex   sync.Mutex
	current *subscription
}

func newSessionFeed(session *Session) *sessionFeed {
	return &sessionFeed{session: session}
}

func (f *sessionFeed) Subscribe(ctx context.Context, scope unread.Scope) (unread.Subscription, error) {
	if scope.UserID != f.session.userID {
		return nil, errors.New("cannot subscribe for another user")
	}

	select {
	case <-f.session.Done():
		return nil, errors.New("session is closed")
	default:
	}

	sub := &subscription{
		ctx:     ctx,
		session: f.session,
		c:       make(chan unread.Notification, subscriptionBufferSize),
		topics:  make(map[string]struct{}),
	}

	for _, key := range scope.Keys {
		if err := sub.Watch(key); err != nil {
			sub.Dispose()
			return nil, err
		}
	}

	f.mutex.Lock()
	f.current = sub
	f.mutex.Unlock()

	return sub, nil
}

func (f *sessionFeed) deliver(n unread.Notification) {
	f.mutex.Lock()
	sub := f.current
	f.mutex.Unlock()

	if sub != nil {
		sub.deliver(n)
	}
}

// subscription joins the hub of every watched channel. Direct conversations
// come through the hub of the user, which the session always listens to.
type subscription struct {
	ctx     context.Context
	session *Session
	c       chan unread.Notification

	mutex    sync.Mutex
	topics   map[string]struct{}
	closed   bool
	disposed bool
}

func (s *subscription) Notifications() <-chan unread.Notification {
	return s.c
}

func (s *subscription) Watch(key unread.Key) error {
	if key.Kind != unread.Channel {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.disposed {
		return unread.ErrClosed
	}

	topic := event.ChannelTopic(key.ID)
	if _, ok := s.topics[topic]; !ok {
		s.topics[topic] = struct{}{}
		s.session.Join(s.ctx, topic)
	}

	return nil
}

func (s *subscription) Unwatch(key unread.Key) {
	if key.Kind != unread.Channel {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	topic := event.ChannelTopic(key.ID)
	if _, ok := s.topics[topic]; ok {
		delete(s.topics, topic)
		s.session.Leave(topic)
	}
}

func (s *subscription) Dispose() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.disposed {
		return
	}

	s.disposed = true
	if !s.closed {
		s.closed = true
		close(s.c)
	}

	for topic := range s.topics {
		s.session.Leave(topic)
	}
	s.topics = make(map[string]struct{})
}

// deliver never blocks. When the aggregator falls behind, the subscription
// breaks and the aggregator rebuilds its state.
func (s *subscription) deliver(n unread.Notification) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return
	}

	select {
	case s.c <- n:
	default:
		s.closed = true
		close(s.c)
	}
}
