package unread

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

type fetchResult struct {
	key      Key
	lastRead *time.Time
	count    Count
	err      error
}

type fetcher struct {
	userID   string
	accessor ReadStateAccessor
	source   ConversationSource

	// window is the number of recent message ids asked along with a count.
	window int

	// localLastRead returns a read marker set by this process which the store
	// may not show yet. It can be nil.
	localLastRead func(Key) *time.Time
}

func (f *fetcher) one(ctx context.Context, key Key) fetchResult {
	result := fetchResult{key: key}

	lastRead, err := f.accessor.GetLastRead(ctx, f.userID, key)
	if err != nil {
		result.err = &FetchError{Key: &key, Err: err}
		return result
	}

	if f.localLastRead != nil {
		if local := f.localLastRead(key); later(local, lastRead) {
			lastRead = local
		}
	}

	count, err := f.source.CountSince(ctx, f.userID, key, lastRead, f.window)
	if err != nil {
		result.err = &FetchError{Key: &key, Err: err}
		return result
	}

	result.lastRead = lastRead
	result.count = count
	return result
}

func (f *fetcher) all(ctx context.Context, keys []Key, limit int) []fetchResult {
	results := make([]fetchResult, len(keys))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := range keys {
		i := i
		g.Go(func() error {
			results[i] = f.one(ctx, keys[i])
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Collect computes the unread entries of userID once, without following live
// notifications. A conversation which cannot be counted is returned with Err
// set and a zero count.
func Collect(
	ctx context.Context,
	userID string,
	accessor ReadStateAccessor,
	source ConversationSource,
	maxConcurrentCounts int,
) ([]Entry, error) {
	keys, err := source.ListConversations(ctx, userID)
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	f := &fetcher{userID: userID, accessor: accessor, source: source}
	results := f.all(ctx, keys, maxConcurrentCounts)
	entries := make([]Entry, 0, len(results))
	for _, r := range results {
		entries = append(entries, Entry{
			Key:        r.key,
			Count:      r.count.Count,
			LastReadAt: r.lastRead,
			Err:        r.err,
		})
	}

	sortEntries(entries)
	return entries, nil
}
