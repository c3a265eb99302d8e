// Package readstate binds the unread tracking to the relational store.
package readstate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/questx-lab/chat/internal/domain/unread"
	"github.com/questx-lab/chat/internal/entity"
	"github.com/questx-lab/chat/internal/repository"
	"gorm.io/gorm"
)

type conversationSource struct {
	chatMemberRepo  repository.ChatMemberRepository
	chatMessageRepo repository.ChatMessageRepository
}

func NewConversationSource(
	chatMemberRepo repository.ChatMemberRepository,
	chatMessageRepo repository.ChatMessageRepository,
) *conversationSource {
	return &conversationSource{
		chatMemberRepo:  chatMemberRepo,
		chatMessageRepo: chatMessageRepo,
	}
}

func (s *conversationSource) ListConversations(ctx context.Context, userID string) ([]unread.Key, error) {
	members, err := s.chatMemberRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	counterparts, err := s.chatMessageRepo.GetDirectCounterparts(ctx, userID)
	if err != nil {
		return nil, err
	}

	keys := make([]unread.Key, 0, len(members)+len(counterparts))
	for _, m := range members {
		keys = append(keys, unread.ChannelKey(strconv.FormatInt(m.ChannelID, 10)))
	}

	for _, id := range counterparts {
		keys = append(keys, unread.DirectKey(id))
	}

	return keys, nil
}

func (s *conversationSource) CountSince(
	ctx context.Context, userID string, key unread.Key, since *time.Time, window int,
) (unread.Count, error) {
	var result repository.MessageCount
	switch key.Kind {
	case unread.Channel:
		channelID, err := strconv.ParseInt(key.ID, 10, 64)
		if err != nil {
			return unread.Count{}, fmt.Errorf("invalid channel id %q: %w", key.ID, err)
		}

		result, err = s.chatMessageRepo.CountChannelSince(ctx, channelID, userID, since, window)
		if err != nil {
			return unread.Count{}, err
		}

	case unread.Direct:
		var err error
		result, err = s.chatMessageRepo.CountDirectSince(ctx, userID, key.ID, since, window)
		if err != nil {
			return unread.Count{}, err
		}

	default:
		return unread.Count{}, fmt.Errorf("unknown conversation kind %q", key.Kind)
	}

	count := unread.Count{Count: int(result.Count), Horizon: result.Horizon}
	for _, id := range result.RecentIDs {
		count.RecentIDs = append(count.RecentIDs, strconv.FormatInt(id, 10))
	}

	return count, nil
}

type readStateAccessor struct {
	readMarkerRepo repository.ReadMarkerRepository
}

func NewReadStateAccessor(readMarkerRepo repository.ReadMarkerRepository) *readStateAccessor {
	return &readStateAccessor{readMarkerRepo: readMarkerRepo}
}

func (a *readStateAccessor) GetLastRead(
	ctx context.Context, userID string, key unread.Key,
) (*time.Time, error) {
	marker, err := a.readMarkerRepo.Get(ctx, userID, key.ID, entity.ConversationKind(key.Kind))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, err
	}

	lastReadAt := marker.LastReadAt.UTC()
	return &lastReadAt, nil
}

func (a *readStateAccessor) SetLastRead(
	ctx context.Context, userID string, key unread.Key, at time.Time,
) error {
	return a.readMarkerRepo.Upsert(ctx, &entity.ReadMarker{
		UserID:           userID,
		ConversationID:   key.ID,
		ConversationKind: entity.ConversationKind(key.Kind),
		LastReadAt:       at.UTC(),
	})
}
