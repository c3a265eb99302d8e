package entity

import "time"

// ChatMessage is either a channel message (ChannelID is set) or a direct
// message (RecipientID is set).
type ChatMessage struct {
	ID          int64  `gorm:"primaryKey;autoIncrement:false"`
	ChannelID   int64  `gorm:"index:idx_chat_messages_channel,priority:1"`
	RecipientID string `gorm:"index:idx_chat_messages_direct,priority:1"`
	AuthorID    string `gorm:"index:idx_chat_messages_direct,priority:2"`
	Content     string
	CreatedAt   time.Time `gorm:"precision:3;index:idx_chat_messages_channel,priority:2;index:idx_chat_messages_direct,priority:3"`
}

func (m *ChatMessage) IsDirect() bool {
	return m.RecipientID != ""
}
