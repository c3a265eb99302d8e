package client

import (
	"context"
	"encoding/json"

	"github.com/questx-lab/chat/internal/domain/notification/event"
	"github.com/questx-lab/chat/pkg/pubsub"
	"github.com/questx-lab/chat/pkg/xcontext"
)

type NotificationEngineCaller interface {
	Emit(ctx context.Context, ev *event.EventRequest) error
}

// notificationEngineCaller hands events to the notification engine through
// the message queue.
type notificationEngineCaller struct {
	publisher pubsub.Publisher
}

func NewNotificationEngineCaller(publisher pubsub.Publisher) *notificationEngineCaller {
	return &notificationEngineCaller{publisher: publisher}
}

func (c *notificationEngineCaller) Emit(ctx context.Context, ev *event.EventRequest) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return c.publisher.Publish(ctx, xcontext.Configs(ctx).Kafka.NotificationTopic, &pubsub.Pack{
		Key: []byte(ev.Metadata.PartitionKey()),
		Msg: b,
	})
}
