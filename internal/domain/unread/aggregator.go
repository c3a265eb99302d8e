package unread

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/questx-lab/chat/config"
	"github.com/questx-lab/chat/internal/common"
	"github.com/questx-lab/chat/pkg/xcontext"
)

type Options struct {
	// DedupWindow is the number of recent message ids remembered per
	// conversation to drop duplicated notifications.
	DedupWindow int

	// MaxConcurrentCounts bounds the count queries of a full rebuild.
	MaxConcurrentCounts int

	// ResyncDelay is the delay before rebuilding again after a failure.
	ResyncDelay time.Duration

	Now func() time.Time
}

func OptionsFromConfigs(cfg config.UnreadConfigs) Options {
	return Options{
		DedupWindow:         cfg.DedupWindow,
		MaxConcurrentCounts: cfg.MaxConcurrentCounts,
		ResyncDelay:         cfg.ResyncDelay,
	}
}

type conversation struct {
	entry Entry

	// seen holds the ids of the newest counted or delivered messages. A
	// message created before horizon is either counted or older than
	// anything seen can hold.
	seen    *recentIDs
	horizon *time.Time
}

// Aggregator tracks the unread counts of one user. It is meant to live as long
// as one client session.
type Aggregator struct {
	userID   string
	accessor ReadStateAccessor
	source   ConversationSource
	feed     Feed
	opts     Options
	fetcher  *fetcher

	mutex         sync.RWMutex
	conversations map[Key]*conversation

	// marks keeps the mark-read instants of this session, including those of
	// conversations which are not tracked yet.
	marks   map[Key]time.Time
	loading bool
	err     error
	closed  bool
	cancel  context.CancelFunc
	sub     Subscription

	changed chan struct{}
	wg      sync.WaitGroup
}

func New(
	userID string,
	accessor ReadStateAccessor,
	source ConversationSource,
	feed Feed,
	opts Options,
) *Aggregator {
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = 256
	}

	if opts.MaxConcurrentCounts <= 0 {
		opts.MaxConcurrentCounts = 8
	}

	if opts.ResyncDelay <= 0 {
		opts.ResyncDelay = 3 * time.Second
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := &Aggregator{
		userID:        userID,
		accessor:      accessor,
		source:        source,
		feed:          feed,
		opts:          opts,
		conversations: make(map[Key]*conversation),
		marks:         make(map[Key]time.Time),
		loading:       true,
		changed:       make(chan struct{}, 1),
	}

	a.fetcher = &fetcher{
		userID:        userID,
		accessor:      accessor,
		source:        source,
		window:        opts.DedupWindow,
		localLastRead: a.localLastRead,
	}

	return a
}

// Start builds the initial counts and follows notifications in background
// until Close is called or ctx is done. The aggregator is in loading state
// until the first build completes.
func (a *Aggregator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	a.mutex.Lock()
	if a.closed || a.cancel != nil {
		a.mutex.Unlock()
		cancel()
		return
	}
	a.cancel = cancel
	a.wg.Add(1)
	a.mutex.Unlock()

	go a.run(ctx)
}

// Close stops following notifications and disposes the subscription. No state
// change is applied after Close returns.
func (a *Aggregator) Close() {
	a.mutex.Lock()
	if a.closed {
		a.mutex.Unlock()
		return
	}
	a.closed = true
	cancel, sub := a.cancel, a.sub
	a.sub = nil
	a.mutex.Unlock()

	if cancel != nil {
		cancel()
	}

	if sub != nil {
		sub.Dispose()
	}

	a.wg.Wait()
}

func (a *Aggregator) run(ctx context.Context) {
	defer a.wg.Done()

	reason := "start"
	for {
		common.PromCounters[common.UnreadRebuildTotal].WithLabelValues(reason).Inc()

		sub, err := a.rebuild(ctx)
		if err == nil {
			err = a.consume(ctx, sub)
		}

		if ctx.Err() != nil || errors.Is(err, ErrClosed) {
			return
		}

		reason = "resync"
		if err != nil {
			reason = "error"
			xcontext.Logger(ctx).Warnf("Unread counts of %s are out of sync: %v", a.userID, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(a.opts.ResyncDelay):
			}
		}
	}
}

// rebuild subscribes to the feed and recounts every conversation. The
// subscription is opened before counting so no message falls between the
// count and the first notification.
func (a *Aggregator) rebuild(ctx context.Context) (Subscription, error) {
	a.replaceSubscription(nil)

	keys, err := a.source.ListConversations(ctx, a.userID)
	if err != nil {
		ferr := &FetchError{Err: err}
		a.setErr(ferr)
		return nil, ferr
	}

	sub, err := a.feed.Subscribe(ctx, Scope{UserID: a.userID, Keys: keys})
	if err != nil {
		serr := &SubscriptionError{Err: err}
		a.setErr(serr)
		return nil, serr
	}

	if !a.replaceSubscription(sub) {
		return nil, ErrClosed
	}

	results := a.fetcher.all(ctx, keys, a.opts.MaxConcurrentCounts)

	a.mutex.Lock()
	if a.closed {
		a.mutex.Unlock()
		return nil, ErrClosed
	}

	next := make(map[Key]*conversation, len(results))
	for _, r := range results {
		c, ok := a.conversations[r.key]
		if !ok {
			c = a.newConversation(r.key)
		}

		a.applyFetch(c, r)
		next[r.key] = c
	}

	a.conversations = next
	a.loading = false
	a.err = nil
	a.mutex.Unlock()

	a.notifyChanged()
	return sub, nil
}

func (a *Aggregator) consume(ctx context.Context, sub Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case n, ok := <-sub.Notifications():
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				serr := &SubscriptionError{Err: errors.New("notification stream is closed")}
				a.setErr(serr)
				return serr
			}

			if n.Type == Resync {
				return nil
			}

			a.handle(ctx, sub, n)
		}
	}
}

func (a *Aggregator) handle(ctx context.Context, sub Subscription, n Notification) {
	switch n.Type {
	case MessageCreated:
		if n.AuthorID == a.userID {
			return
		}

		a.mutex.Lock()
		c, tracked := a.conversations[n.Key]
		changed := tracked && !a.closed && a.applyMessage(c, n)
		a.mutex.Unlock()

		if changed {
			a.notifyChanged()
		}

		// First message of a new direct conversation.
		if !tracked && n.Key.Kind == Direct {
			a.track(ctx, sub, n.Key)
		}

	case MemberJoined:
		if n.UserID == a.userID {
			a.track(ctx, sub, n.Key)
		}

	case MemberLeft:
		if n.UserID == a.userID {
			a.untrack(sub, n.Key)
		}

	case ConversationRemoved:
		a.untrack(sub, n.Key)

	case ReadMarkerMoved:
		if n.UserID != a.userID {
			return
		}

		a.mutex.RLock()
		c, tracked := a.conversations[n.Key]
		moved := tracked && later(&n.ReadAt, c.entry.LastReadAt)
		a.mutex.RUnlock()

		// Read from another session of the same user.
		if moved {
			a.track(ctx, sub, n.Key)
		}
	}
}

// applyMessage reports whether the message made the count move.
func (a *Aggregator) applyMessage(c *conversation, n Notification) bool {
	if c.entry.LastReadAt != nil && !n.CreatedAt.After(*c.entry.LastReadAt) {
		return false
	}

	// Counted, but too old to be remembered by id.
	if c.horizon != nil && n.CreatedAt.Before(*c.horizon) {
		return false
	}

	if n.MessageID != "" && !c.seen.add(n.MessageID) {
		return false
	}

	c.entry.Count++
	return true
}

// track starts following a conversation and counts its unread messages.
func (a *Aggregator) track(ctx context.Context, sub Subscription, key Key) {
	if err := sub.Watch(key); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot watch %s: %v", key, err)
		a.setErr(&SubscriptionError{Err: err})
	}

	r := a.fetcher.one(ctx, key)

	a.mutex.Lock()
	if a.closed {
		a.mutex.Unlock()
		return
	}

	c, ok := a.conversations[key]
	if !ok {
		c = a.newConversation(key)
		a.conversations[key] = c
	}
	a.applyFetch(c, r)
	a.mutex.Unlock()

	a.notifyChanged()
}

func (a *Aggregator) untrack(sub Subscription, key Key) {
	a.mutex.Lock()
	_, tracked := a.conversations[key]
	delete(a.conversations, key)
	delete(a.marks, key)
	a.mutex.Unlock()

	if tracked {
		sub.Unwatch(key)
		a.notifyChanged()
	}
}

// applyFetch must be called with the mutex held.
func (a *Aggregator) applyFetch(c *conversation, r fetchResult) {
	if r.err != nil {
		c.entry.Err = r.err
		return
	}

	localLastRead := a.localLastReadLocked(c.entry.Key)

	c.entry.Count = r.count.Count
	c.entry.LastReadAt = r.lastRead
	c.horizon = r.count.Horizon
	c.seen = newRecentIDs(a.opts.DedupWindow)
	for i := len(r.count.RecentIDs) - 1; i >= 0; i-- {
		c.seen.add(r.count.RecentIDs[i])
	}

	// The conversation was marked as read while counting.
	if later(localLastRead, r.lastRead) {
		c.entry.Count = 0
		c.entry.LastReadAt = localLastRead
	}

	// A failed persistence stays visible until the next successful mark-read.
	var perr *PersistError
	if !errors.As(c.entry.Err, &perr) {
		c.entry.Err = nil
	}
}

func (a *Aggregator) newConversation(key Key) *conversation {
	return &conversation{
		entry: Entry{Key: key},
		seen:  newRecentIDs(a.opts.DedupWindow),
	}
}

func (a *Aggregator) localLastRead(key Key) *time.Time {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.localLastReadLocked(key)
}

// localLastReadLocked must be called with the mutex held.
func (a *Aggregator) localLastReadLocked(key Key) *time.Time {
	var result *time.Time
	if c, ok := a.conversations[key]; ok {
		result = c.entry.LastReadAt
	}

	if mark, ok := a.marks[key]; ok && later(&mark, result) {
		result = &mark
	}

	return result
}

// replaceSubscription disposes the current subscription and keeps sub
// instead. It returns false, and disposes sub, if the aggregator is closed.
func (a *Aggregator) replaceSubscription(sub Subscription) bool {
	a.mutex.Lock()
	old := a.sub
	closed := a.closed
	if !closed {
		a.sub = sub
	}
	a.mutex.Unlock()

	if old != nil {
		old.Dispose()
	}

	if closed && sub != nil {
		sub.Dispose()
	}

	return !closed
}

func (a *Aggregator) setErr(err error) {
	a.mutex.Lock()
	if a.closed {
		a.mutex.Unlock()
		return
	}
	a.err = err
	a.mutex.Unlock()

	a.notifyChanged()
}

func (a *Aggregator) notifyChanged() {
	select {
	case a.changed <- struct{}{}:
	default:
	}
}

// MarkRead sets the conversation as read now. The local state changes before
// MarkRead returns; the read marker is saved in background and the returned
// channel receives nil or a *PersistError once it is done.
func (a *Aggregator) MarkRead(ctx context.Context, key Key) <-chan error {
	done := make(chan error, 1)

	a.mutex.Lock()
	if a.closed {
		a.mutex.Unlock()
		done <- ErrClosed
		close(done)
		return done
	}

	at := a.opts.Now().UTC().Truncate(time.Millisecond)
	if local := a.localLastReadLocked(key); later(local, &at) {
		at = *local
	}

	a.marks[key] = at
	if c, ok := a.conversations[key]; ok {
		c.entry.Count = 0
		c.entry.LastReadAt = &at
		c.entry.Err = nil
	}
	a.wg.Add(1)
	a.mutex.Unlock()

	a.notifyChanged()

	go func() {
		defer a.wg.Done()
		defer close(done)

		err := a.accessor.SetLastRead(ctx, a.userID, key, at)
		if err == nil {
			done <- nil
			return
		}

		xcontext.Logger(ctx).Errorf("Cannot save read marker of %s for %s: %v", key, a.userID, err)
		common.PromCounters[common.UnreadPersistFailureTotal].WithLabelValues(string(key.Kind)).Inc()
		perr := &PersistError{Key: key, Err: err}

		a.mutex.Lock()
		c, ok := a.conversations[key]
		// A later mark-read owns the entry now.
		current := ok && !a.closed && c.entry.LastReadAt != nil && c.entry.LastReadAt.Equal(at)
		if current {
			c.entry.Err = perr
		}
		a.mutex.Unlock()

		if current {
			a.notifyChanged()
		}

		done <- perr
	}()

	return done
}

func (a *Aggregator) MarkChannelRead(ctx context.Context, channelID string) <-chan error {
	return a.MarkRead(ctx, ChannelKey(channelID))
}

func (a *Aggregator) MarkDirectRead(ctx context.Context, otherUserID string) <-chan error {
	return a.MarkRead(ctx, DirectKey(otherUserID))
}
