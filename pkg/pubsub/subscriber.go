package pubsub

import (
	"context"
	"time"
)

type SubscribeHandler func(context.Context, *Pack, time.Time)

type Subscriber interface {
	// Subscribe starts consuming in background and returns when the consumer
	// is ready. Consuming stops when ctx is cancelled.
	Subscribe(ctx context.Context)
	Stop(ctx context.Context) error
}
