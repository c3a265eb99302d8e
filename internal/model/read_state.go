package model

import "time"

type UnreadEntry struct {
	Kind           string     `json:"kind"`
	ConversationID string     `json:"conversation_id"`
	Count          int        `json:"count"`
	LastReadAt     *time.Time `json:"last_read_at"`
	Error          string     `json:"error,omitempty"`
}

type MarkChannelReadRequest struct {
	ChannelID string `json:"channel_id"`
}

type MarkChannelReadResponse struct {
	LastReadAt time.Time `json:"last_read_at"`
}

type MarkDirectReadRequest struct {
	OtherUserID string `json:"other_user_id"`
}

type MarkDirectReadResponse struct {
	LastReadAt time.Time `json:"last_read_at"`
}

type GetUnreadCountsRequest struct{}

type GetUnreadCountsResponse struct {
	Total   int           `json:"total"`
	Entries []UnreadEntry `json:"entries"`
}
