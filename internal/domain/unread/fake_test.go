package unread

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeMessage struct {
	key       Key
	id        string
	authorID  string
	createdAt time.Time
}

// fakeStore is an in-memory ConversationSource and ReadStateAccessor.
type fakeStore struct {
	mutex       sync.Mutex
	keys        []Key
	messages    []fakeMessage
	markers     map[Key]time.Time
	listErr     error
	countErr    map[Key]error
	persistErr  error
	listCalls   int
	persistHook chan struct{}
}

func newFakeStore(keys ...Key) *fakeStore {
	return &fakeStore{
		keys:     keys,
		markers:  make(map[Key]time.Time),
		countErr: make(map[Key]error),
	}
}

func (s *fakeStore) addMessage(m fakeMessage) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.messages = append(s.messages, m)
}

func (s *fakeStore) setKeys(keys ...Key) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.keys = keys
}

func (s *fakeStore) setListErr(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.listErr = err
}

func (s *fakeStore) setPersistErr(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.persistErr = err
}

func (s *fakeStore) marker(key Key) (time.Time, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	t, ok := s.markers[key]
	return t, ok
}

func (s *fakeStore) ListConversations(ctx context.Context, userID string) ([]Key, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}

	return append([]Key(nil), s.keys...), nil
}

func (s *fakeStore) CountSince(
	ctx context.Context, userID string, key Key, since *time.Time, window int,
) (Count, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.countErr[key]; err != nil {
		return Count{}, err
	}

	var counted []fakeMessage
	for _, m := range s.messages {
		if m.key != key || m.authorID == userID {
			continue
		}

		if since == nil || m.createdAt.After(*since) {
			counted = append(counted, m)
		}
	}

	sort.Slice(counted, func(i, j int) bool {
		return counted[i].createdAt.After(counted[j].createdAt)
	})

	result := Count{Count: len(counted)}
	for i := 0; i < len(counted) && i < window; i++ {
		result.RecentIDs = append(result.RecentIDs, counted[i].id)
	}

	if len(counted) > len(result.RecentIDs) && len(result.RecentIDs) > 0 {
		horizon := counted[len(result.RecentIDs)-1].createdAt
		result.Horizon = &horizon
	}

	return result, nil
}

func (s *fakeStore) GetLastRead(ctx context.Context, userID string, key Key) (*time.Time, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	t, ok := s.markers[key]
	if !ok {
		return nil, nil
	}

	return &t, nil
}

func (s *fakeStore) SetLastRead(ctx context.Context, userID string, key Key, at time.Time) error {
	if s.persistHook != nil {
		<-s.persistHook
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.persistErr != nil {
		return s.persistErr
	}

	if old, ok := s.markers[key]; !ok || at.After(old) {
		s.markers[key] = at
	}

	return nil
}

type fakeSubscription struct {
	c        chan Notification
	mutex    sync.Mutex
	watched  map[Key]bool
	disposed bool
}

func (s *fakeSubscription) Notifications() <-chan Notification {
	return s.c
}

func (s *fakeSubscription) Watch(key Key) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.disposed {
		return errors.New("disposed")
	}

	s.watched[key] = true
	return nil
}

func (s *fakeSubscription) Unwatch(key Key) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.watched, key)
}

func (s *fakeSubscription) Dispose() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.disposed = true
}

// send returns once the aggregator received n. The channel is unbuffered, so
// every notification sent before n is fully applied.
func (s *fakeSubscription) send(t *testing.T, n Notification) {
	t.Helper()
	select {
	case s.c <- n:
	case <-time.After(time.Second):
		t.Fatalf("notification %v is not consumed", n.Type)
	}
}

// flush waits until every notification sent before is applied.
func (s *fakeSubscription) flush(t *testing.T) {
	s.send(t, Notification{Type: MemberJoined, UserID: "nobody"})
}

func (s *fakeSubscription) isWatched(key Key) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.watched[key]
}

func (s *fakeSubscription) isDisposed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.disposed
}

type fakeFeed struct {
	mutex sync.Mutex
	subs  []*fakeSubscription
	err   error
}

func (f *fakeFeed) Subscribe(ctx context.Context, scope Scope) (Subscription, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	sub := &fakeSubscription{c: make(chan Notification), watched: make(map[Key]bool)}
	for _, key := range scope.Keys {
		sub.watched[key] = true
	}

	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeFeed) count() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.subs)
}

func (f *fakeFeed) last() *fakeSubscription {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.subs[len(f.subs)-1]
}

type fakeClock struct {
	mutex sync.Mutex
	now   time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = t
}
