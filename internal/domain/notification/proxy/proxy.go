package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/questx-lab/chat/internal/client"
	"github.com/questx-lab/chat/internal/domain"
	"github.com/questx-lab/chat/internal/domain/notification/directive"
	"github.com/questx-lab/chat/internal/domain/notification/event"
	"github.com/questx-lab/chat/internal/domain/unread"
	"github.com/questx-lab/chat/internal/model"
	"github.com/questx-lab/chat/internal/repository"
	"github.com/questx-lab/chat/pkg/errorx"
	"github.com/questx-lab/chat/pkg/xcontext"
	"gorm.io/gorm"
)

type ProxyServer struct {
	router                   *Router
	chatMemberRepo           repository.ChatMemberRepository
	accessor                 unread.ReadStateAccessor
	source                   unread.ConversationSource
	notificationEngineCaller client.NotificationEngineCaller
}

func NewProxyServer(
	ctx context.Context,
	chatMemberRepo repository.ChatMemberRepository,
	accessor unread.ReadStateAccessor,
	source unread.ConversationSource,
	notificationEngineCaller client.NotificationEngineCaller,
) *ProxyServer {
	return newProxyServer(NewRouter(ctx), chatMemberRepo, accessor, source, notificationEngineCaller)
}

func newProxyServer(
	router *Router,
	chatMemberRepo repository.ChatMemberRepository,
	accessor unread.ReadStateAccessor,
	source unread.ConversationSource,
	notificationEngineCaller client.NotificationEngineCaller,
) *ProxyServer {
	return &ProxyServer{
		router:                   router,
		chatMemberRepo:           chatMemberRepo,
		accessor:                 accessor,
		source:                   source,
		notificationEngineCaller: notificationEngineCaller,
	}
}

// ServeProxy forwards the events of the user to the client and keeps the
// client informed of its unread counts. The first unread state is sent in
// the ready event, every later change in an unread_updated event.
func (server *ProxyServer) ServeProxy(ctx context.Context, _ *model.ServeNotificationProxyRequest) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	userID := xcontext.RequestUserID(ctx)
	session := NewSession(server.router, userID)
	defer session.Close()
	session.Join(ctx, event.UserTopic(userID))

	feed := newSessionFeed(session)
	aggregator := unread.New(userID, server.accessor, server.source, feed,
		unread.OptionsFromConfigs(xcontext.Configs(ctx).Unread))
	aggregator.Start(ctx)
	defer aggregator.Close()

	wsClient := xcontext.WSClient(ctx)
	results := make(chan *event.EventRequest, 16)
	ready := false
	var seq int64

	send := func(ev *event.EventRequest) error {
		b, err := json.Marshal(event.Format(ev, seq))
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot marshal event: %v", err)
			return nil
		}
		seq++

		if err := wsClient.Write(b, false); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot send event to client: %v", err)
			return errorx.New(errorx.SessionClosed, "Client disconnected")
		}

		return nil
	}

	for {
		select {
		case <-session.Done():
			return errorx.New(errorx.SessionClosed, "Session is too slow")

		case ev := <-session.C:
			n, ok, err := toNotification(userID, ev)
			if err != nil {
				xcontext.Logger(ctx).Warnf("Cannot decode event %s: %v", ev.Op, err)
			} else if ok {
				feed.deliver(n)
			}

			if err := send(ev); err != nil {
				return err
			}

		case <-aggregator.Changed():
			state := aggregator.Snapshot()
			if state.Loading && state.Err == nil {
				continue
			}

			unreadEvent := event.NewUnreadUpdatedEvent(
				state.Loading, domain.ConvertUnreadEntries(state.Entries), state.Err)

			var ev *event.EventRequest
			if !ready && !state.Loading {
				ready = true
				ev = event.New(&event.ReadyEvent{Unread: *unreadEvent}, event.Metadata{})
			} else {
				ev = event.New(unreadEvent, event.Metadata{})
			}

			if err := send(ev); err != nil {
				return err
			}

		case ev := <-results:
			if err := send(ev); err != nil {
				return err
			}

		case req, ok := <-wsClient.R:
			if !ok {
				return errorx.New(errorx.SessionClosed, "Client disconnected")
			}

			var d directive.ServerDirective
			if err := json.Unmarshal(req, &d); err != nil {
				xcontext.Logger(ctx).Errorf("Cannot unmarshal directive: %v", err)
				return errorx.New(errorx.BadRequest, "Invalid directive")
			}

			switch d.Op {
			case directive.ProxyPingDirectiveOp:

			case directive.ProxyMarkReadDirectiveOp:
				var markRead directive.ProxyMarkReadDirective
				if err := json.Unmarshal(d.Data, &markRead); err != nil {
					xcontext.Logger(ctx).Errorf("Cannot unmarshal mark read data: %v", err)
					return errorx.New(errorx.BadRequest, "Invalid directive")
				}

				server.markRead(ctx, aggregator, &markRead, results)

			default:
				xcontext.Logger(ctx).Warnf("Unknown directive op %d", d.Op)
				return errorx.New(errorx.UnknownDirective, "Unknown directive")
			}
		}
	}
}

// markRead applies the read on the aggregator right away and replies with a
// mark_read_result event once the read marker is saved.
func (server *ProxyServer) markRead(
	ctx context.Context,
	aggregator *unread.Aggregator,
	d *directive.ProxyMarkReadDirective,
	results chan<- *event.EventRequest,
) {
	result := &event.MarkReadResultEvent{Kind: d.Kind, ConversationID: d.ConversationID}
	reply := func() {
		select {
		case results <- event.New(result, event.Metadata{}):
		case <-ctx.Done():
		}
	}

	key, err := server.validateMarkRead(ctx, d)
	if err != nil {
		result.Error = err.Error()
		go reply()
		return
	}

	done := aggregator.MarkRead(ctx, key)
	go func() {
		if err := <-done; err != nil {
			result.Error = err.Error()
			reply()
			return
		}

		reply()

		entry, ok := aggregator.UnreadFor(key)
		if !ok || entry.LastReadAt == nil {
			return
		}

		// Tell the other sessions of this user.
		userID := xcontext.RequestUserID(ctx)
		ev := event.New(
			&event.ReadMarkerMovedEvent{
				UserID:         userID,
				Kind:           string(key.Kind),
				ConversationID: key.ID,
				LastReadAt:     *entry.LastReadAt,
			},
			event.Metadata{ToUsers: []string{userID}},
		)
		if err := server.notificationEngineCaller.Emit(ctx, ev); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot emit read marker moved event: %v", err)
		}
	}()
}

func (server *ProxyServer) validateMarkRead(
	ctx context.Context, d *directive.ProxyMarkReadDirective,
) (unread.Key, error) {
	userID := xcontext.RequestUserID(ctx)

	switch unread.Kind(d.Kind) {
	case unread.Channel:
		channelID, err := strconv.ParseInt(d.ConversationID, 10, 64)
		if err != nil {
			return unread.Key{}, errorx.New(errorx.BadRequest, "Invalid channel id")
		}

		if _, err := server.chatMemberRepo.Get(ctx, userID, channelID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return unread.Key{}, errorx.New(errorx.PermissionDenied, "You are not a member of this channel")
			}

			xcontext.Logger(ctx).Errorf("Cannot get chat member: %v", err)
			return unread.Key{}, errorx.Unknown
		}

		return unread.ChannelKey(d.ConversationID), nil

	case unread.Direct:
		if d.ConversationID == "" || d.ConversationID == userID {
			return unread.Key{}, errorx.New(errorx.BadRequest, "Invalid other user id")
		}

		return unread.DirectKey(d.ConversationID), nil
	}

	return unread.Key{}, errorx.New(errorx.BadRequest, "Invalid conversation kind")
}
