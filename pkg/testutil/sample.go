package testutil

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/questx-lab/chat/internal/entity"
	"github.com/questx-lab/chat/pkg/xcontext"
)

// SampleUser creates a new user in database with a random id and name. The
// sample user can be overwritten by non-zero fields of init.
func SampleUser(ctx context.Context, init *entity.User) (entity.User, error) {
	sample := &entity.User{
		Base: entity.Base{ID: uuid.NewString()},
		Name: uuid.NewString(),
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	return *sample, xcontext.DB(ctx).Create(sample).Error
}

func SampleChannel(ctx context.Context, init *entity.ChatChannel) (entity.ChatChannel, error) {
	sample := &entity.ChatChannel{
		SnowFlakeBase: entity.SnowFlakeBase{ID: xcontext.SnowFlake(ctx).Generate().Int64()},
		Name:          uuid.NewString(),
		CreatedBy:     uuid.NewString(),
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	return *sample, xcontext.DB(ctx).Create(sample).Error
}

func SampleMember(ctx context.Context, userID string, channelID int64) error {
	return xcontext.DB(ctx).Create(&entity.ChatMember{
		UserID:    userID,
		ChannelID: channelID,
	}).Error
}

// SampleMessage creates a message in database. Either ChannelID or RecipientID
// of init must be set.
func SampleMessage(ctx context.Context, init entity.ChatMessage) (entity.ChatMessage, error) {
	sample := &entity.ChatMessage{
		ID:        xcontext.SnowFlake(ctx).Generate().Int64(),
		AuthorID:  uuid.NewString(),
		Content:   "hello",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	overwriteFields(sample, init)
	return *sample, xcontext.DB(ctx).Create(sample).Error
}

// Millis returns a fixed UTC instant shifted by ms milliseconds.
func Millis(ms int64) time.Time {
	return time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(ms) * time.Millisecond)
}

func overwriteFields[T any](origin *T, overwrite T) {
	originValue := reflect.ValueOf(origin).Elem()
	overwriteValue := reflect.ValueOf(overwrite)

	for i := 0; i < overwriteValue.NumField(); i++ {
		overwriteField := overwriteValue.Field(i)
		if !overwriteField.IsZero() {
			originValue.Field(i).Set(overwriteField)
		}
	}
}
