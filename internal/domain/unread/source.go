package unread

import (
	"context"
	"time"
)

// ReadStateAccessor reads and writes the read markers of a user.
type ReadStateAccessor interface {
	// GetLastRead returns nil when the user never read the conversation.
	GetLastRead(ctx context.Context, userID string, key Key) (*time.Time, error)

	// SetLastRead moves the read marker forward to at. It never moves the
	// marker backward.
	SetLastRead(ctx context.Context, userID string, key Key, at time.Time) error
}

type Count struct {
	Count int

	// RecentIDs are the ids of the newest counted messages, newest first. At
	// most window ids are returned.
	RecentIDs []string

	// Horizon is set when Count includes more messages than RecentIDs. It is
	// the creation time of the oldest message in RecentIDs, every counted
	// message created before it is left out of RecentIDs.
	Horizon *time.Time
}

type ConversationSource interface {
	// ListConversations returns the channels userID is a member of and the
	// direct conversations userID took part in.
	ListConversations(ctx context.Context, userID string) ([]Key, error)

	// CountSince counts the messages of other users in the conversation
	// created strictly after since, and lists the ids of the newest window of
	// them.
	CountSince(ctx context.Context, userID string, key Key, since *time.Time, window int) (Count, error)
}

type NotificationType int

const (
	MessageCreated NotificationType = iota + 1
	MemberJoined
	MemberLeft
	ConversationRemoved
	ReadMarkerMoved

	// Resync asks every consumer to rebuild its state, some notifications may
	// have been lost.
	Resync
)

type Notification struct {
	Type NotificationType
	Key  Key

	// MessageCreated
	MessageID string
	AuthorID  string
	CreatedAt time.Time

	// MemberJoined, MemberLeft and ReadMarkerMoved
	UserID string
	ReadAt time.Time
}

type Scope struct {
	UserID string
	Keys   []Key
}

type Feed interface {
	Subscribe(ctx context.Context, scope Scope) (Subscription, error)
}

type Subscription interface {
	// Notifications is closed when the subscription is disposed or broken.
	Notifications() <-chan Notification

	Watch(key Key) error
	Unwatch(key Key)

	// Dispose releases the subscription. It is safe to call more than once.
	Dispose()
}
