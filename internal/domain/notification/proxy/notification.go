package proxy

import (
	"github.com/questx-lab/chat/internal/domain/notification/event"
	"github.com/questx-lab/chat/internal/domain/unread"
)

// toNotification converts an event into what the unread aggregator of userID
// needs to know. It returns false for events which do not affect unread
// counts.
func toNotification(userID string, ev *event.EventRequest) (unread.Notification, bool, error) {
	switch ev.Op {
	case "message_created":
		var msg event.MessageCreatedEvent
		if err := event.Decode(ev.Data, &msg); err != nil {
			return unread.Notification{}, false, err
		}

		n := unread.Notification{
			Type:      unread.MessageCreated,
			MessageID: msg.ID,
			AuthorID:  msg.AuthorID,
			CreatedAt: msg.CreatedAt,
		}

		switch {
		case msg.ChannelID != "":
			n.Key = unread.ChannelKey(msg.ChannelID)
		case msg.AuthorID == userID:
			n.Key = unread.DirectKey(msg.RecipientID)
		case msg.RecipientID == userID:
			n.Key = unread.DirectKey(msg.AuthorID)
		default:
			return unread.Notification{}, false, nil
		}

		return n, true, nil

	case "member_joined":
		var joined event.MemberJoinedEvent
		if err := event.Decode(ev.Data, &joined); err != nil {
			return unread.Notification{}, false, err
		}

		return unread.Notification{
			Type:   unread.MemberJoined,
			Key:    unread.ChannelKey(joined.ChannelID),
			UserID: joined.UserID,
		}, joined.UserID == userID, nil

	case "member_left":
		var left event.MemberLeftEvent
		if err := event.Decode(ev.Data, &left); err != nil {
			return unread.Notification{}, false, err
		}

		return unread.Notification{
			Type:   unread.MemberLeft,
			Key:    unread.ChannelKey(left.ChannelID),
			UserID: left.UserID,
		}, left.UserID == userID, nil

	case "channel_deleted":
		var deleted event.ChannelDeletedEvent
		if err := event.Decode(ev.Data, &deleted); err != nil {
			return unread.Notification{}, false, err
		}

		return unread.Notification{
			Type: unread.ConversationRemoved,
			Key:  unread.ChannelKey(deleted.ChannelID),
		}, true, nil

	case "read_marker_moved":
		var moved event.ReadMarkerMovedEvent
		if err := event.Decode(ev.Data, &moved); err != nil {
			return unread.Notification{}, false, err
		}

		return unread.Notification{
			Type:   unread.ReadMarkerMoved,
			Key:    unread.Key{Kind: unread.Kind(moved.Kind), ID: moved.ConversationID},
			UserID: moved.UserID,
			ReadAt: moved.LastReadAt,
		}, moved.UserID == userID, nil

	case "resync":
		return unread.Notification{Type: unread.Resync}, true, nil
	}

	return unread.Notification{}, false, nil
}
