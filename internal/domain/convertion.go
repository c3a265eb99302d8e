package domain

import (
	"strconv"

	"github.com/questx-lab/chat/internal/domain/unread"
	"github.com/questx-lab/chat/internal/entity"
	"github.com/questx-lab/chat/internal/model"
)

func convertChatChannel(channel *entity.ChatChannel) model.ChatChannel {
	return model.ChatChannel{
		ID:        strconv.FormatInt(channel.ID, 10),
		Name:      channel.Name,
		CreatedBy: channel.CreatedBy,
		CreatedAt: channel.CreatedAt,
	}
}

func convertChatMessage(msg *entity.ChatMessage) model.ChatMessage {
	result := model.ChatMessage{
		ID:          strconv.FormatInt(msg.ID, 10),
		RecipientID: msg.RecipientID,
		AuthorID:    msg.AuthorID,
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt,
	}

	if msg.ChannelID != 0 {
		result.ChannelID = strconv.FormatInt(msg.ChannelID, 10)
	}

	return result
}

func ConvertUnreadEntries(entries []unread.Entry) []model.UnreadEntry {
	result := make([]model.UnreadEntry, 0, len(entries))
	for _, e := range entries {
		entry := model.UnreadEntry{
			Kind:           string(e.Kind),
			ConversationID: e.ID,
			Count:          e.Count,
			LastReadAt:     e.LastReadAt,
		}

		if e.Err != nil {
			entry.Error = e.Err.Error()
		}

		result = append(result, entry)
	}

	return result
}
