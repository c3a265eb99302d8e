package repository

import (
	"context"
	"time"

	"github.com/questx-lab/chat/internal/entity"
	"github.com/questx-lab/chat/pkg/xcontext"
	"gorm.io/gorm"
)

// MessageCount is the result of counting the messages of a conversation which
// are visible to a reader.
type MessageCount struct {
	Count int64

	// RecentIDs holds the ids of the newest counted messages, newest first.
	RecentIDs []int64

	// Horizon is set when Count is larger than len(RecentIDs). It is the
	// creation time of the oldest message in RecentIDs.
	Horizon *time.Time
}

type ChatMessageRepository interface {
	Create(ctx context.Context, data *entity.ChatMessage) error
	GetListByChannelID(ctx context.Context, channelID, beforeID int64, limit int) ([]entity.ChatMessage, error)
	GetListDirect(ctx context.Context, userID, otherUserID string, beforeID int64, limit int) ([]entity.ChatMessage, error)
	GetDirectCounterparts(ctx context.Context, userID string) ([]string, error)
	CountChannelSince(ctx context.Context, channelID int64, readerID string, since *time.Time, window int) (MessageCount, error)
	CountDirectSince(ctx context.Context, readerID, otherUserID string, since *time.Time, window int) (MessageCount, error)
	DeleteByChannelID(ctx context.Context, channelID int64) error
}

type chatMessageRepository struct{}

func NewChatMessageRepository() ChatMessageRepository {
	return &chatMessageRepository{}
}

func (r *chatMessageRepository) Create(ctx context.Context, data *entity.ChatMessage) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *chatMessageRepository) GetListByChannelID(
	ctx context.Context, channelID, beforeID int64, limit int,
) ([]entity.ChatMessage, error) {
	tx := xcontext.DB(ctx).Where("channel_id=?", channelID)
	if beforeID != 0 {
		tx = tx.Where("id<?", beforeID)
	}

	var result []entity.ChatMessage
	if err := tx.Order("id DESC").Limit(limit).Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *chatMessageRepository) GetListDirect(
	ctx context.Context, userID, otherUserID string, beforeID int64, limit int,
) ([]entity.ChatMessage, error) {
	tx := xcontext.DB(ctx).
		Where("(author_id=? AND recipient_id=?) OR (author_id=? AND recipient_id=?)",
			userID, otherUserID, otherUserID, userID)
	if beforeID != 0 {
		tx = tx.Where("id<?", beforeID)
	}

	var result []entity.ChatMessage
	if err := tx.Order("id DESC").Limit(limit).Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// GetDirectCounterparts returns every user who exchanged at least one direct
// message with userID.
func (r *chatMessageRepository) GetDirectCounterparts(ctx context.Context, userID string) ([]string, error) {
	var result []string
	err := xcontext.DB(ctx).Raw(
		`SELECT DISTINCT CASE WHEN author_id = ? THEN recipient_id ELSE author_id END
		FROM chat_messages
		WHERE recipient_id <> '' AND (author_id = ? OR recipient_id = ?)`,
		userID, userID, userID,
	).Scan(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *chatMessageRepository) CountChannelSince(
	ctx context.Context, channelID int64, readerID string, since *time.Time, window int,
) (MessageCount, error) {
	return r.countSince(ctx, since, window, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("channel_id=? AND author_id<>?", channelID, readerID)
	})
}

func (r *chatMessageRepository) CountDirectSince(
	ctx context.Context, readerID, otherUserID string, since *time.Time, window int,
) (MessageCount, error) {
	return r.countSince(ctx, since, window, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("author_id=? AND recipient_id=?", otherUserID, readerID)
	})
}

// countSince counts the messages created after since and lists the ids of the
// newest window of them. Both queries read the same snapshot, so every listed
// id is part of the count.
func (r *chatMessageRepository) countSince(
	ctx context.Context, since *time.Time, window int, scope func(*gorm.DB) *gorm.DB,
) (MessageCount, error) {
	var result MessageCount
	err := xcontext.WithDBTransaction(ctx, func(ctx context.Context) error {
		query := func() *gorm.DB {
			tx := scope(xcontext.DB(ctx).Model(&entity.ChatMessage{}))
			if since != nil {
				tx = tx.Where("created_at>?", *since)
			}
			return tx
		}

		if err := query().Count(&result.Count).Error; err != nil {
			return err
		}

		if window <= 0 || result.Count == 0 {
			return nil
		}

		var recent []entity.ChatMessage
		err := query().Select("id", "created_at").
			Order("created_at DESC, id DESC").Limit(window).Find(&recent).Error
		if err != nil {
			return err
		}

		for _, m := range recent {
			result.RecentIDs = append(result.RecentIDs, m.ID)
		}

		if result.Count > int64(len(recent)) && len(recent) > 0 {
			horizon := recent[len(recent)-1].CreatedAt
			result.Horizon = &horizon
		}

		return nil
	})
	if err != nil {
		return MessageCount{}, err
	}

	return result, nil
}

func (r *chatMessageRepository) DeleteByChannelID(ctx context.Context, channelID int64) error {
	return xcontext.DB(ctx).Delete(&entity.ChatMessage{}, "channel_id=?", channelID).Error
}
