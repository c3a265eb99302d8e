package event

import (
	"time"

	"github.com/questx-lab/chat/internal/model"
)

// READ MARKER MOVED EVENT
type ReadMarkerMovedEvent struct {
	UserID         string    `json:"user_id"`
	Kind           string    `json:"kind"`
	ConversationID string    `json:"conversation_id"`
	LastReadAt     time.Time `json:"last_read_at"`
}

func (*ReadMarkerMovedEvent) Op() string {
	return "read_marker_moved"
}

// UNREAD UPDATED EVENT
type UnreadUpdatedEvent struct {
	Loading bool                `json:"loading"`
	Total   int                 `json:"total"`
	Entries []model.UnreadEntry `json:"entries"`
	Error   string              `json:"error,omitempty"`
}

func (*UnreadUpdatedEvent) Op() string {
	return "unread_updated"
}

// MARK READ RESULT EVENT
type MarkReadResultEvent struct {
	Kind           string `json:"kind"`
	ConversationID string `json:"conversation_id"`
	Error          string `json:"error,omitempty"`
}

func (*MarkReadResultEvent) Op() string {
	return "mark_read_result"
}
