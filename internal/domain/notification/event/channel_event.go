package event

// MEMBER JOINED EVENT
type MemberJoinedEvent struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

func (*MemberJoinedEvent) Op() string {
	return "member_joined"
}

// MEMBER LEFT EVENT
type MemberLeftEvent struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

func (*MemberLeftEvent) Op() string {
	return "member_left"
}

// CHANNEL DELETED EVENT
type ChannelDeletedEvent struct {
	ChannelID string `json:"channel_id"`
}

func (*ChannelDeletedEvent) Op() string {
	return "channel_deleted"
}
