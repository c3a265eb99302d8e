package domain

import (
	"context"
	"time"

	"github.com/questx-lab/chat/internal/client"
	"github.com/questx-lab/chat/internal/domain/notification/event"
	"github.com/questx-lab/chat/internal/domain/unread"
	"github.com/questx-lab/chat/internal/model"
	"github.com/questx-lab/chat/internal/repository"
	"github.com/questx-lab/chat/pkg/errorx"
	"github.com/questx-lab/chat/pkg/xcontext"
)

type ReadStateDomain interface {
	MarkChannelRead(context.Context, *model.MarkChannelReadRequest) (*model.MarkChannelReadResponse, error)
	MarkDirectRead(context.Context, *model.MarkDirectReadRequest) (*model.MarkDirectReadResponse, error)
	GetUnreadCounts(context.Context, *model.GetUnreadCountsRequest) (*model.GetUnreadCountsResponse, error)
}

type readStateDomain struct {
	chatMemberRepo repository.ChatMemberRepository
	accessor       unread.ReadStateAccessor
	source         unread.ConversationSource

	notificationEngineCaller client.NotificationEngineCaller
}

func NewReadStateDomain(
	chatMemberRepo repository.ChatMemberRepository,
	accessor unread.ReadStateAccessor,
	source unread.ConversationSource,
	notificationEngineCaller client.NotificationEngineCaller,
) *readStateDomain {
	return &readStateDomain{
		chatMemberRepo:           chatMemberRepo,
		accessor:                 accessor,
		source:                   source,
		notificationEngineCaller: notificationEngineCaller,
	}
}

func (d *readStateDomain) MarkChannelRead(
	ctx context.Context, req *model.MarkChannelReadRequest,
) (*model.MarkChannelReadResponse, error) {
	channelID, err := parseChannelID(req.ChannelID)
	if err != nil {
		return nil, err
	}

	if err := checkMember(ctx, d.chatMemberRepo, xcontext.RequestUserID(ctx), channelID); err != nil {
		return nil, err
	}

	lastReadAt, err := d.markRead(ctx, unread.ChannelKey(req.ChannelID))
	if err != nil {
		return nil, err
	}

	return &model.MarkChannelReadResponse{LastReadAt: lastReadAt}, nil
}

func (d *readStateDomain) MarkDirectRead(
	ctx context.Context, req *model.MarkDirectReadRequest,
) (*model.MarkDirectReadResponse, error) {
	if req.OtherUserID == "" {
		return nil, errorx.New(errorx.BadRequest, "Require other user id")
	}

	if req.OtherUserID == xcontext.RequestUserID(ctx) {
		return nil, errorx.New(errorx.BadRequest, "Cannot read a conversation with yourself")
	}

	lastReadAt, err := d.markRead(ctx, unread.DirectKey(req.OtherUserID))
	if err != nil {
		return nil, err
	}

	return &model.MarkDirectReadResponse{LastReadAt: lastReadAt}, nil
}

// markRead moves the read marker to now and returns the stored marker, which
// may be later if another request moved it further.
func (d *readStateDomain) markRead(ctx context.Context, key unread.Key) (time.Time, error) {
	userID := xcontext.RequestUserID(ctx)
	now := time.Now().UTC().Truncate(time.Millisecond)

	if err := d.accessor.SetLastRead(ctx, userID, key, now); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot save read marker: %v", err)
		return time.Time{}, errorx.New(errorx.PersistFailed, "Cannot save read marker")
	}

	lastReadAt := now
	stored, err := d.accessor.GetLastRead(ctx, userID, key)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot read back read marker: %v", err)
	} else if stored != nil && stored.After(now) {
		lastReadAt = *stored
	}

	ev := event.New(
		&event.ReadMarkerMovedEvent{
			UserID:         userID,
			Kind:           string(key.Kind),
			ConversationID: key.ID,
			LastReadAt:     lastReadAt,
		},
		event.Metadata{ToUsers: []string{userID}},
	)
	if err := d.notificationEngineCaller.Emit(ctx, ev); err != nil {
		// The marker is saved, other sessions catch up on their next resync.
		xcontext.Logger(ctx).Warnf("Cannot emit read marker moved event: %v", err)
	}

	return lastReadAt, nil
}

func (d *readStateDomain) GetUnreadCounts(
	ctx context.Context, req *model.GetUnreadCountsRequest,
) (*model.GetUnreadCountsResponse, error) {
	entries, err := unread.Collect(ctx, xcontext.RequestUserID(ctx), d.accessor, d.source,
		xcontext.Configs(ctx).Unread.MaxConcurrentCounts)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot collect unread counts: %v", err)
		return nil, errorx.New(errorx.FetchFailed, "Cannot get unread counts")
	}

	total := 0
	for _, e := range entries {
		if e.Err != nil {
			xcontext.Logger(ctx).Warnf("Cannot count unread messages: %v", e.Err)
		}

		total += e.Count
	}

	return &model.GetUnreadCountsResponse{
		Total:   total,
		Entries: ConvertUnreadEntries(entries),
	}, nil
}
