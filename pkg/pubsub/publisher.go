package pubsub

import "context"

// Pack is a message travelling through the message queue.
type Pack struct {
	Key []byte
	Msg []byte
}

type Publisher interface {
	Publish(context.Context, string, *Pack) error
}
