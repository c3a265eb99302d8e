package entity

import "time"

type ConversationKind string

const (
	ChannelConversation ConversationKind = "channel"
	DirectConversation  ConversationKind = "direct"
)

// ReadMarker stores the instant a user has read a conversation up to. For a
// direct conversation, ConversationID is the other user's id.
type ReadMarker struct {
	UserID           string           `gorm:"primaryKey"`
	ConversationID   string           `gorm:"primaryKey"`
	ConversationKind ConversationKind `gorm:"primaryKey"`
	LastReadAt       time.Time        `gorm:"precision:3"`
	UpdatedAt        time.Time        `gorm:"precision:3"`
}
