package readstate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/questx-lab/chat/internal/domain/unread"
	"github.com/questx-lab/chat/pkg/xcontext"
	"github.com/questx-lab/chat/pkg/xredis"
)

// neverRead is the cached value of a conversation without read marker.
const neverRead = 0

// cachedReadStateAccessor reads markers through redis. Markers are cached as
// unix milliseconds and every cache write keeps the larger value, so a slow
// reader cannot put back a marker older than the one a writer cached.
type cachedReadStateAccessor struct {
	accessor    unread.ReadStateAccessor
	redisClient xredis.Client
	ttl         time.Duration
}

func NewCachedReadStateAccessor(
	accessor unread.ReadStateAccessor,
	redisClient xredis.Client,
	ttl time.Duration,
) *cachedReadStateAccessor {
	return &cachedReadStateAccessor{
		accessor:    accessor,
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func (a *cachedReadStateAccessor) GetLastRead(
	ctx context.Context, userID string, key unread.Key,
) (*time.Time, error) {
	redisKey := markerRedisKey(userID, key)

	s, err := a.redisClient.Get(ctx, redisKey)
	if err == nil {
		if millis, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromMillis(millis), nil
		}

		xcontext.Logger(ctx).Warnf("Invalid cached read marker %s: %q", redisKey, s)
	} else if !errors.Is(err, xredis.ErrNotFound) {
		xcontext.Logger(ctx).Warnf("Cannot get read marker from redis: %v", err)
	}

	lastReadAt, err := a.accessor.GetLastRead(ctx, userID, key)
	if err != nil {
		return nil, err
	}

	a.cache(ctx, redisKey, lastReadAt)
	return lastReadAt, nil
}

// SetLastRead caches the stored marker after the write rather than at, since
// the store may already hold a later one.
func (a *cachedReadStateAccessor) SetLastRead(
	ctx context.Context, userID string, key unread.Key, at time.Time,
) error {
	if err := a.accessor.SetLastRead(ctx, userID, key, at); err != nil {
		return err
	}

	redisKey := markerRedisKey(userID, key)
	lastReadAt, err := a.accessor.GetLastRead(ctx, userID, key)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot reload read marker %s: %v", redisKey, err)
		if err := a.redisClient.Del(ctx, redisKey); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot drop cached read marker: %v", err)
		}

		return nil
	}

	a.cache(ctx, redisKey, lastReadAt)
	return nil
}

func (a *cachedReadStateAccessor) cache(ctx context.Context, redisKey string, lastReadAt *time.Time) {
	millis := int64(neverRead)
	if lastReadAt != nil {
		millis = lastReadAt.UnixMilli()
	}

	if err := a.redisClient.SetMax(ctx, redisKey, millis, a.ttl); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot cache read marker: %v", err)
	}
}

func fromMillis(millis int64) *time.Time {
	if millis == neverRead {
		return nil
	}

	t := time.UnixMilli(millis).UTC()
	return &t
}

func markerRedisKey(userID string, key unread.Key) string {
	return fmt.Sprintf("read_marker:%s:%s:%s", userID, key.Kind, key.ID)
}
