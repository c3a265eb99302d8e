package model

import "time"

type ChatChannel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatMessage struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id,omitempty"`
	RecipientID string    `json:"recipient_id,omitempty"`
	AuthorID    string    `json:"author_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateChannelRequest struct {
	Name string `json:"name"`
}

type CreateChannelResponse struct {
	ID string `json:"id"`
}

type DeleteChannelRequest struct {
	ChannelID string `json:"channel_id"`
}

type DeleteChannelResponse struct{}

type JoinChannelRequest struct {
	ChannelID string `json:"channel_id"`
}

type JoinChannelResponse struct{}

type LeaveChannelRequest struct {
	ChannelID string `json:"channel_id"`
}

type LeaveChannelResponse struct{}

type CreateMessageRequest struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

type CreateMessageResponse struct {
	ID string `json:"id"`
}

type CreateDirectMessageRequest struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

type CreateDirectMessageResponse struct {
	ID string `json:"id"`
}

// GetListMessageRequest lists the messages of a channel when ChannelID is set,
// or the direct messages exchanged with RecipientID otherwise.
type GetListMessageRequest struct {
	ChannelID   string `json:"channel_id" form:"channel_id"`
	RecipientID string `json:"recipient_id" form:"recipient_id"`
	BeforeID    string `json:"before_id" form:"before_id"`
	Limit       int    `json:"limit" form:"limit"`
}

type GetListMessageResponse struct {
	Messages []ChatMessage `json:"messages"`
}
