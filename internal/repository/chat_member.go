package repository

import (
	"context"

	"github.com/questx-lab/chat/internal/entity"
	"github.com/questx-lab/chat/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type ChatMemberRepository interface {
	Create(ctx context.Context, data *entity.ChatMember) error
	Get(ctx context.Context, userID string, channelID int64) (*entity.ChatMember, error)
	GetByUserID(ctx context.Context, userID string) ([]entity.ChatMember, error)
	GetUserIDsByChannelID(ctx context.Context, channelID int64) ([]string, error)
	Delete(ctx context.Context, userID string, channelID int64) error
	DeleteByChannelID(ctx context.Context, channelID int64) error
}

type chatMemberRepository struct{}

func NewChatMemberRepository() ChatMemberRepository {
	return &chatMemberRepository{}
}

// Create adds the membership. Joining twice is not an error.
func (r *chatMemberRepository) Create(ctx context.Context, data *entity.ChatMember) error {
	return xcontext.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(data).Error
}

func (r *chatMemberRepository) Get(
	ctx context.Context, userID string, channelID int64,
) (*entity.ChatMember, error) {
	var result entity.ChatMember
	err := xcontext.DB(ctx).
		Take(&result, "user_id=? AND channel_id=?", userID, channelID).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *chatMemberRepository) GetByUserID(ctx context.Context, userID string) ([]entity.ChatMember, error) {
	var result []entity.ChatMember
	if err := xcontext.DB(ctx).Find(&result, "user_id=?", userID).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *chatMemberRepository) GetUserIDsByChannelID(ctx context.Context, channelID int64) ([]string, error) {
	var result []string
	err := xcontext.DB(ctx).Model(&entity.ChatMember{}).
		Where("channel_id=?", channelID).
		Pluck("user_id", &result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *chatMemberRepository) Delete(ctx context.Context, userID string, channelID int64) error {
	return xcontext.DB(ctx).
		Delete(&entity.ChatMember{}, "user_id=? AND channel_id=?", userID, channelID).Error
}

func (r *chatMemberRepository) DeleteByChannelID(ctx context.Context, channelID int64) error {
	return xcontext.DB(ctx).Delete(&entity.ChatMember{}, "channel_id=?", channelID).Error
}
