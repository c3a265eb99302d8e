package unread

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const me = "me"

var (
	general = ChannelKey("general")
	random  = ChannelKey("random")
	alice   = DirectKey("alice")
)

func ms(n int) time.Time {
	return time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Millisecond)
}

func startAggregator(t *testing.T, store *fakeStore, feed *fakeFeed, clock *fakeClock) *Aggregator {
	t.Helper()

	a := New(me, store, store, feed, Options{ResyncDelay: 10 * time.Millisecond, Now: clock.Now})
	a.Start(context.Background())
	t.Cleanup(a.Close)

	require.Eventually(t, func() bool {
		return !a.Snapshot().Loading
	}, time.Second, time.Millisecond)

	return a
}

func count(t *testing.T, a *Aggregator, key Key) int {
	t.Helper()

	entry, ok := a.UnreadFor(key)
	require.True(t, ok, "%s is not tracked", key)
	return entry.Count
}

func newMessage(key Key, id string, at time.Time) Notification {
	return Notification{Type: MessageCreated, Key: key, MessageID: id, AuthorID: "bob", CreatedAt: at}
}

func TestAggregator_InitialCounts(t *testing.T) {
	store := newFakeStore(general, random, alice)
	store.addMessage(fakeMessage{key: general, id: "1", authorID: "bob", createdAt: ms(1)})
	store.addMessage(fakeMessage{key: general, id: "2", authorID: "bob", createdAt: ms(2)})
	store.addMessage(fakeMessage{key: general, id: "3", authorID: me, createdAt: ms(3)})
	store.addMessage(fakeMessage{key: general, id: "4", authorID: "carol", createdAt: ms(4)})
	store.addMessage(fakeMessage{key: random, id: "5", authorID: "bob", createdAt: ms(5)})
	store.addMessage(fakeMessage{key: alice, id: "6", authorID: "alice", createdAt: ms(6)})
	store.addMessage(fakeMessage{key: alice, id: "7", authorID: "alice", createdAt: ms(7)})
	store.markers[general] = ms(1)

	a := startAggregator(t, store, &fakeFeed{}, &fakeClock{now: ms(100)})

	require.Equal(t, 2, count(t, a, general))
	require.Equal(t, 1, count(t, a, random))
	require.Equal(t, 2, count(t, a, alice))

	require.Equal(t, 5, a.TotalUnread())
	require.Equal(t, 3, a.TotalUnread(Channel))
	require.Equal(t, 2, a.TotalUnread(Direct))
	require.Equal(t, 5, a.TotalUnread(Channel, Direct))

	state := a.Snapshot()
	require.False(t, state.Loading)
	require.NoError(t, state.Err)
	require.Len(t, state.Entries, 3)
	require.Equal(t, general, state.Entries[0].Key)
	require.Equal(t, random, state.Entries[1].Key)
	require.Equal(t, alice, state.Entries[2].Key)
	require.True(t, ms(1).Equal(*state.Entries[0].LastReadAt))
	require.Nil(t, state.Entries[1].LastReadAt)

	_, ok := a.UnreadFor(ChannelKey("unknown"))
	require.False(t, ok)
}

func TestAggregator_ReadBoundary(t *testing.T) {
	store := newFakeStore(general)
	store.markers[general] = ms(10)

	feed := &fakeFeed{}
	a := startAggregator(t, store, feed, &fakeClock{now: ms(100)})
	sub := feed.last()

	// Created exactly at the read instant: already read.
	sub.send(t, newMessage(general, "1", ms(10)))
	sub.flush(t)
	require.Equal(t, 0, count(t, a, general))

	sub.send(t, newMessage(general, "2", ms(11)))
	sub.flush(t)
	require.Equal(t, 1, count(t, a, general))
}

func TestAggregator_OwnMessagesAreIgnored(t *testing.T) {
	store := newFakeStore(general)
	feed := &fakeFeed{}
	a := startAggregator(t, store, feed, &fakeClock{now: ms(100)})
	sub := feed.last()

	n := newMessage(general, "1", ms(10))
	n.AuthorID = me
	sub.send(t, n)
	sub.flush(t)

	require.Equal(t, 0, count(t, a, general))
}

func TestAggregator_MarkReadTwice(t *testing.T) {
	store := newFakeStore(general)
	store.addMessage(fakeMessage{key: general, id: "1", authorID: "bob", createdAt: ms(1)})

	clock := &fakeClock{now: ms(100)}
	a := startAggregator(t, store, &fakeFeed{}, clock)
	require.Equal(t, 1, count(t, a, general))

	require.NoError(t, <-a.MarkChannelRead(context.Background(), "general"))
	entry, _ := a.UnreadFor(general)
	require.Equal(t, 0, entry.Count)
	require.True(t, ms(100).Equal(*entry.LastReadAt))

	clock.Set(ms(200))
	require.NoError(t, <-a.MarkChannelRead(context.Background(), "general"))
	entry, _ = a.UnreadFor(general)
	require.Equal(t, 0, entry.Count)
	require.True(t, ms(200).Equal(*entry.LastReadAt))

	// The clock went backward, the marker does not.
	clock.Set(ms(150))
	require.NoError(t, <-a.MarkChannelRead(context.Background(), "general"))
	entry, _ = a.UnreadFor(general)
	require.True(t, ms(200).Equal(*entry.LastReadAt))

	marker, ok := store.marker(general)
	require.True(t, ok)
	require.True(t, ms(200).Equal(marker))
}

func TestAggregator_DeliveryOrderDoesNotMatter(t *testing.T) {
	notifications := []Notification{
		newMessage(general, "1", ms(60)),
		newMessage(general, "2", ms(40)),
		newMessage(general, "3", ms(70)),
		newMessage(general, "4", ms(55)),
		newMessage(general, "5", ms(50)),
	}

	run := func(order []int) int {
		store := newFakeStore(general)
		store.markers[general] = ms(50)

		feed := &fakeFeed{}
		a := startAggregator(t, store, feed, &fakeClock{now: ms(100)})
		sub := feed.last()
		for _, i := range order {
			sub.send(t, notifications[i])
		}
		sub.flush(t)

		return count(t, a, general)
	}

	inOrder := run([]int{0, 1, 2, 3, 4})
	require.Equal(t, 3, inOrder)
	require.Equal(t, inOrder, run([]int{4, 2, 0, 3, 1}))
	require.Equal(t, inOrder, run([]int{3, 1, 4, 2, 0}))
}

func TestAggregator_DuplicateDelivery(t *testing.T) {
	store := newFakeStore(general)
	feed := &fakeFeed{}
	a := startAggregator(t, store, feed, &fakeClock{now: ms(100)})
	sub := feed.last()

	sub.send(t, newMessage(general, "1", ms(10)))
	sub.send(t, newMessage(general, "1", ms(10)))
	sub.flush(t)

	require.Equal(t, 1, count(t, a, general))
}

func TestAggregator_MessagesAlreadyCounted(t *testing.T) {
	store := newFakeStore(general)
	store.addMessage(fakeMessage{key: general, id: "1", authorID: "bob", createdAt: ms(10)})
	store.addMessage(fakeMessage{key: general, id: "2", authorID: "bob", createdAt: ms(20)})

	feed := &fakeFeed{}
	a := startAggregator(t, store, feed, &fakeClock{now: ms(100)})
	require.Equal(t, 2, count(t, a, general))

	// Delivered after the initial count which already included them.
	sub := feed.last()
	sub.send(t, newMessage(general, "2", ms(20)))
	sub.send(t, newMessage(general, "1", ms(10)))
	sub.flush(t)
	require.Equal(t, 2, count(t, a, general))

	// Created before the newest counted message, but saved after the count.
	store.addMessage(fakeMessage{key: general, id: "15", authorID: "bob", createdAt: ms(15)})
	sub.send(t, newMessage(general, "15", ms(15)))
	sub.flush(t)
	require.Equal(t, 3, count(t, a, general))

	sub.send(t, newMessage(general, "3", ms(21)))
	sub.flush(t)
	require.Equal(t, 4, count(t, a, general))
}

func TestAggregator_CountedBeyondDedupWindow(t *testing.T) {
	store := newFakeStore(general)
	store.addMessage(fakeMessage{key: general, id: "1", authorID: "bob", createdAt: ms(10)})
	store.addMessage(fakeMessage{key: general, id: "2", authorID: "bob", createdAt: ms(20)})
	store.addMessage(fakeMessage{key: general, id: "3", authorID: "bob", createdAt: ms(30)})

	feed := &fakeFeed{}
	clock := &fakeClock{now: ms(100)}
	a := New(me, store, store, feed, Options{DedupWindow: 2, ResyncDelay: 10 * time.Millisecond, Now: clock.Now})
	a.Start(context.Background())
	t.Cleanup(a.Close)

	require.Eventually(t, func() bool {
		return !a.Snapshot().Loading
	}, time.Second, time.Millisecond)
	require.Equal(t, 3, count(t, a, general))

	sub := feed.last()

	// Older than every remembered id.
	sub.send(t, newMessage(general, "1", ms(10)))
	// Remembered.
	sub.send(t, newMessage(general, "2", ms(20)))
	sub.flush(t)
	require.Equal(t, 3, count(t, a, general))

	store.addMessage(fakeMessage{key: general, id: "25", authorID: "bob", createdAt: ms(25)})
	sub.send(t, newMessage(general, "25", ms(25)))
	sub.flush(t)
	require.Equal(t, 4, count(t, a, general))
}

func TestAggregator_MarkReadBeforeTracked(t *testing.T) {
	store := newFakeStore()
	store.persistHook = make(chan struct{})
	defer close(store.persistHook)

	feed := &fakeFeed{}
	a := startAggregator(t, store, feed, &fakeClock{now: ms(100)})
	sub := feed.last()

	// The marker is not saved yet when the conversation shows up.
	done := a.MarkDirectRead(context.Background(), "alice")

	store.addMessage(fakeMessage{key: alice, id: "1", authorID: "alice", createdAt: ms(50)})
	n := newMessage(alice, "1", ms(50))
	n.AuthorID = "alice"
	sub.send(t, n)
	sub.flush(t)

	entry, ok := a.UnreadFor(alice)
	require.True(t, ok)
	require.Equal(t, 0, entry.Count)
	require.True(t, ms(100).Equal(*entry.LastReadAt))

	select {
	case err := <-done:
		t.Fatalf("marker saved too early: %v", err)
	default:
	}
}

func TestAggregator_NullMarkerThenMarkRead(t *testing.T) {
	store := newFakeStore(general)
	for i := 1; i <= 3; i++ {
		store.addMessage(fakeMessage{key: general, id: string(rune('0' + i)), authorID: "bob", createdAt: ms(i)})
	}

	clock := &fakeClock{now: ms(4)}
	feed := &fakeFeed{}
	a := startAggregator(t, store, feed, clock)
	require.Equal(t, 3, count(t, a, general))

	require.NoError(t, <-a.MarkRead(context.Background(), general))
	require.Equal(t, 0, count(t, a, general))

	sub := feed.last()
	sub.send(t, newMessage(general, "5", ms(5)))
	sub.flush(t)
	require.Equal(t, 1, count(t, a, general))
}

func TestAggregator_PersistFailure(t *testing.T) {
	store := newFakeStore(general)
	store.addMessage(fakeMessage{key: general, id: "1", authorID: "bob", createdAt: ms(1)})
	store.addMessage(fakeMessage{key: general, id: "2", authorID: "bob", createdAt: ms(2)})
	store.addMessage(fakeMessage{key: general, id: "3", authorID: "bob", createdAt: ms(3)})

	a := startAggregator(t, store, &fakeFeed{}, &fakeClock{now: ms(100)})
	require.Equal(t, 3, count(t, a, general))

	store.setPersistErr(errors.New("connection refused"))
	store.persistHook = make(chan struct{})

	done := a.MarkRead(context.Background(), general)

	// Applied before the store answers.
	entry, _ := a.UnreadFor(general)
	require.Equal(t, 0, entry.Count)
	require.NoError(t, entry.Err)

	close(store.persistHook)
	err := <-done
	var perr *PersistError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, general, perr.Key)

	entry, _ = a.UnreadFor(general)
	require.Equal(t, 0, entry.Count)
	require.ErrorAs(t, entry.Err, &perr)

	_, ok := store.marker(general)
	require.False(t, ok)
}

func TestAggregator_Membership(t *testing.T) {
	store := newFakeStore(general)
	store.addMessage(fakeMessage{key: random, id: "1", authorID: "bob", createdAt: ms(1)})
	store.addMessage(fakeMessage{key: random, id: "2", authorID: "bob", createdAt: ms(2)})

	feed := &fakeFeed{}
	a := startAggregator(t, store, feed, &fakeClock{now: ms(100)})
	sub := feed.last()

	// Somebody else joined.
	sub.send(t, Notification{Type: MemberJoined, Key: random, UserID: "bob"})
	sub.flush(t)
	_, ok := a.UnreadFor(random)
	require.False(t, ok)

	sub.send(t, Notification{Type: MemberJoined, Key: random, UserID: me})
	sub.flush(t)
	require.Equal(t, 2, count(t, a, random))
	require.True(t, sub.isWatched(random))

	sub.send(t, newMessage(random, "3", ms(3)))
	sub.flush(t)
	require.Equal(t, 3, count(t, a, random))
	require.Equal(t, 3, a.TotalUnread())

	sub.send(t, Notification{Type: MemberLeft, Key: random, UserID: me})
	sub.flush(t)
	_, ok = a.UnreadFor(random)
	require.False(t, ok)
	require.False(t, sub.isWatched(random))
	require.Equal(t, 0, a.TotalUnread())

	sub.send(t, Notification{Type: ConversationRemoved, Key: general})
	sub.flush(t)
	require.Empty(t, a.Snapshot().Entries)

	// Messages of conversations which are not tracked are ignored.
	sub.send(t, newMessage(random, "4", ms(4)))
	sub.flush(t)
	require.Equal(t, 0, a.TotalUnread())
}

func TestAggregator_NewDirectConversation(t *testing.T) {
	store := newFakeStore()
	feed := &fakeFeed{}
	a := startAggregator(t, store, feed, &fakeClock{now: ms(100)})
	sub := feed.last()

	store.addMessage(fakeMessage{key: alice, id: "1", authorID: "alice", createdAt: ms(1)})
	n := newMessage(alice, "1", ms(1))
	n.AuthorID = "alice"
	sub.send(t, n)
	sub.flush(t)

	require.Equal(t, 1, count(t, a, alice))
	require.Equal(t, 1, a.TotalUnread(Direct))
}

func TestAggregator_ReadFromAnotherSession(t *testing.T) {
	store := newFakeStore(general)
	store.addMessage(fakeMessage{key: general, id: "1", authorID: "bob", createdAt: ms(1)})
	store.addMessage(fakeMessage{key: general, id: "2", authorID: "bob", createdAt: ms(2)})

	feed := &fakeFeed{}
	a := startAggregator(t, store, feed, &fakeClock{now: ms(100)})
	require.Equal(t, 2, count(t, a, general))

	require.NoError(t, store.SetLastRead(context.Background(), me, general, ms(1)))
	sub := feed.last()
	sub.send(t, Notification{Type: ReadMarkerMoved, Key: general, UserID: me, ReadAt: ms(1)})
	sub.flush(t)

	entry, _ := a.UnreadFor(general)
	require.Equal(t, 1, entry.Count)
	require.True(t, ms(1).Equal(*entry.LastReadAt))
}

func TestAggregator_Resync(t *testing.T) {
	store := newFakeStore(general)
	feed := &fakeFeed{}
	a := startAggregator(t, store, feed, &fakeClock{now: ms(100)})
	first := feed.last()

	// Lost while the feed was down.
	store.addMessage(fakeMessage{key: general, id: "1", authorID: "bob", createdAt: ms(1)})
	store.setKeys(general, random)

	first.send(t, Notification{Type: Resync})
	require.Eventually(t, func() bool {
		_, ok := a.UnreadFor(random)
		return ok && feed.count() == 2
	}, time.Second, time.Millisecond)

	require.True(t, first.isDisposed())
	require.Equal(t, 1, count(t, a, general))
}

func TestAggregator_SubscriptionBroken(t *testing.T) {
	store := newFakeStore(general)
	feed := &fakeFeed{}
	a := startAggregator(t, store, feed, &fakeClock{now: ms(100)})

	store.addMessage(fakeMessage{key: general, id: "1", authorID: "bob", createdAt: ms(1)})
	close(feed.last().c)

	require.Eventually(t, func() bool {
		return feed.count() == 2 && a.Snapshot().Err == nil && a.TotalUnread() == 1
	}, time.Second, time.Millisecond)
}

func TestAggregator_FetchFailures(t *testing.T) {
	store := newFakeStore(general, random)
	store.addMessage(fakeMessage{key: general, id: "1", authorID: "bob", createdAt: ms(1)})
	store.countErr[random] = errors.New("timeout")
	store.setListErr(errors.New("connection refused"))

	feed := &fakeFeed{}
	a := New(me, store, store, feed, Options{ResyncDelay: 10 * time.Millisecond, Now: (&fakeClock{now: ms(100)}).Now})
	a.Start(context.Background())
	defer a.Close()

	require.Eventually(t, func() bool {
		var ferr *FetchError
		state := a.Snapshot()
		return state.Loading && errors.As(state.Err, &ferr) && ferr.Key == nil
	}, time.Second, time.Millisecond)

	store.setListErr(nil)
	require.Eventually(t, func() bool {
		return !a.Snapshot().Loading
	}, time.Second, time.Millisecond)

	state := a.Snapshot()
	require.NoError(t, state.Err)
	require.Equal(t, 1, count(t, a, general))

	entry, ok := a.UnreadFor(random)
	require.True(t, ok)
	var ferr *FetchError
	require.ErrorAs(t, entry.Err, &ferr)
	require.Equal(t, random, *ferr.Key)
}

func TestAggregator_Close(t *testing.T) {
	store := newFakeStore(general)
	feed := &fakeFeed{}
	a := startAggregator(t, store, feed, &fakeClock{now: ms(100)})
	sub := feed.last()

	a.Close()
	require.True(t, sub.isDisposed())

	// Safe to call again.
	a.Close()

	require.ErrorIs(t, <-a.MarkRead(context.Background(), general), ErrClosed)
	require.Equal(t, 0, count(t, a, general))

	_, ok := store.marker(general)
	require.False(t, ok)
}

func TestAggregator_Changed(t *testing.T) {
	store := newFakeStore(general)
	feed := &fakeFeed{}
	a := startAggregator(t, store, feed, &fakeClock{now: ms(100)})

	// Drain the signal of the initial load.
	select {
	case <-a.Changed():
	default:
	}

	feed.last().send(t, newMessage(general, "1", ms(1)))

	select {
	case <-a.Changed():
	case <-time.After(time.Second):
		t.Fatal("no change signal")
	}
}

func TestCollect(t *testing.T) {
	store := newFakeStore(alice, general)
	store.addMessage(fakeMessage{key: general, id: "1", authorID: "bob", createdAt: ms(1)})
	store.addMessage(fakeMessage{key: general, id: "2", authorID: "bob", createdAt: ms(2)})
	store.addMessage(fakeMessage{key: alice, id: "3", authorID: "alice", createdAt: ms(3)})
	store.markers[general] = ms(1)

	entries, err := Collect(context.Background(), me, store, store, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, general, entries[0].Key)
	require.Equal(t, 1, entries[0].Count)
	require.Equal(t, alice, entries[1].Key)
	require.Equal(t, 1, entries[1].Count)

	store.setListErr(errors.New("connection refused"))
	_, err = Collect(context.Background(), me, store, store, 2)
	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
}
