package event

import "github.com/questx-lab/chat/internal/model"

// MESSAGE CREATED EVENT
type MessageCreatedEvent model.ChatMessage

func (*MessageCreatedEvent) Op() string {
	return "message_created"
}
