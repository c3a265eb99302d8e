package repository

import (
	"context"
	"time"

	"github.com/questx-lab/chat/internal/entity"
	"github.com/questx-lab/chat/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type ReadMarkerRepository interface {
	Get(ctx context.Context, userID, conversationID string, kind entity.ConversationKind) (*entity.ReadMarker, error)
	GetByUserID(ctx context.Context, userID string) ([]entity.ReadMarker, error)

	// Upsert moves the marker forward to data.LastReadAt. A marker which is
	// already at or after data.LastReadAt is left untouched.
	Upsert(ctx context.Context, data *entity.ReadMarker) error
	DeleteByConversation(ctx context.Context, conversationID string, kind entity.ConversationKind) error
}

type readMarkerRepository struct{}

func NewReadMarkerRepository() ReadMarkerRepository {
	return &readMarkerRepository{}
}

func (r *readMarkerRepository) Get(
	ctx context.Context, userID, conversationID string, kind entity.ConversationKind,
) (*entity.ReadMarker, error) {
	var result entity.ReadMarker
	err := xcontext.DB(ctx).Take(&result,
		"user_id=? AND conversation_id=? AND conversation_kind=?", userID, conversationID, kind).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *readMarkerRepository) GetByUserID(ctx context.Context, userID string) ([]entity.ReadMarker, error) {
	var result []entity.ReadMarker
	if err := xcontext.DB(ctx).Find(&result, "user_id=?", userID).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *readMarkerRepository) Upsert(ctx context.Context, data *entity.ReadMarker) error {
	return xcontext.WithDBTransaction(ctx, func(ctx context.Context) error {
		err := xcontext.DB(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(data).Error
		if err != nil {
			return err
		}

		return xcontext.DB(ctx).Model(&entity.ReadMarker{}).
			Where("user_id=? AND conversation_id=? AND conversation_kind=?",
				data.UserID, data.ConversationID, data.ConversationKind).
			Where("last_read_at<?", data.LastReadAt).
			Updates(map[string]any{
				"last_read_at": data.LastReadAt,
				"updated_at":   time.Now(),
			}).Error
	})
}

func (r *readMarkerRepository) DeleteByConversation(
	ctx context.Context, conversationID string, kind entity.ConversationKind,
) error {
	return xcontext.DB(ctx).Delete(&entity.ReadMarker{},
		"conversation_id=? AND conversation_kind=?", conversationID, kind).Error
}
