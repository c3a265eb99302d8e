package repository

import (
	"context"

	"github.com/questx-lab/chat/internal/entity"
	"github.com/questx-lab/chat/pkg/xcontext"
)

type ChatChannelRepository interface {
	Create(ctx context.Context, data *entity.ChatChannel) error
	GetByID(ctx context.Context, id int64) (*entity.ChatChannel, error)
	DeleteByID(ctx context.Context, id int64) error
}

type chatChannelRepository struct{}

func NewChatChannelRepository() ChatChannelRepository {
	return &chatChannelRepository{}
}

func (r *chatChannelRepository) Create(ctx context.Context, data *entity.ChatChannel) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *chatChannelRepository) GetByID(ctx context.Context, id int64) (*entity.ChatChannel, error) {
	var result entity.ChatChannel
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *chatChannelRepository) DeleteByID(ctx context.Context, id int64) error {
	return xcontext.DB(ctx).Delete(&entity.ChatChannel{}, "id=?", id).Error
}
