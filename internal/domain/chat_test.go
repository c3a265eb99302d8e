package domain

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/questx-lab/chat/internal/domain/notification/event"
	"github.com/questx-lab/chat/internal/entity"
	"github.com/questx-lab/chat/internal/model"
	"github.com/questx-lab/chat/internal/repository"
	"github.com/questx-lab/chat/pkg/errorx"
	"github.com/questx-lab/chat/pkg/testutil"
	"github.com/questx-lab/chat/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func newChatDomain(caller *testutil.MockNotificationEngineCaller) *chatDomain {
	return NewChatDomain(
		repository.NewUserRepository(),
		repository.NewChatChannelRepository(),
		repository.NewChatMemberRepository(),
		repository.NewChatMessageRepository(),
		repository.NewReadMarkerRepository(),
		caller,
	)
}

func Test_chatDomain_CreateChannel(t *testing.T) {
	ctx := testutil.MockContextWithUserID("user1")
	caller := &testutil.MockNotificationEngineCaller{}
	domain := newChatDomain(caller)

	_, err := domain.CreateChannel(ctx, &model.CreateChannelRequest{})
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	resp, err := domain.CreateChannel(ctx, &model.CreateChannelRequest{Name: "general"})
	require.NoError(t, err)

	channelID, err := strconv.ParseInt(resp.ID, 10, 64)
	require.NoError(t, err)

	// The creator is a member.
	_, err = repository.NewChatMemberRepository().Get(ctx, "user1", channelID)
	require.NoError(t, err)

	events := caller.Events()
	require.Len(t, events, 1)
	require.Equal(t, "member_joined", events[0].Op)
	require.Equal(t, []string{"user1"}, events[0].Metadata.ToUsers)
}

func Test_chatDomain_JoinLeaveChannel(t *testing.T) {
	ctx := testutil.MockContextWithUserID("user1")
	caller := &testutil.MockNotificationEngineCaller{}
	domain := newChatDomain(caller)

	channel, err := testutil.SampleChannel(ctx, nil)
	require.NoError(t, err)
	channelID := strconv.FormatInt(channel.ID, 10)

	_, err = domain.JoinChannel(ctx, &model.JoinChannelRequest{ChannelID: "123"})
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))

	_, err = domain.JoinChannel(ctx, &model.JoinChannelRequest{ChannelID: "abc"})
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	_, err = domain.JoinChannel(ctx, &model.JoinChannelRequest{ChannelID: channelID})
	require.NoError(t, err)

	_, err = domain.JoinChannel(ctx, &model.JoinChannelRequest{ChannelID: channelID})
	require.ErrorIs(t, err, errorx.New(errorx.AlreadyExists, ""))

	_, err = domain.LeaveChannel(ctx, &model.LeaveChannelRequest{ChannelID: channelID})
	require.NoError(t, err)

	_, err = domain.LeaveChannel(ctx, &model.LeaveChannelRequest{ChannelID: channelID})
	require.ErrorIs(t, err, errorx.New(errorx.PermissionDenied, ""))

	events := caller.Events()
	require.Len(t, events, 2)
	require.Equal(t, "member_joined", events[0].Op)
	require.Equal(t, "member_left", events[1].Op)
	require.Equal(t, channelID, events[1].Metadata.ToChannel)

	var left event.MemberLeftEvent
	require.NoError(t, event.Decode(events[1].Data, &left))
	require.Equal(t, "user1", left.UserID)
}

func Test_chatDomain_CreateMessage(t *testing.T) {
	ctx := testutil.MockContextWithUserID("user1")
	caller := &testutil.MockNotificationEngineCaller{}
	domain := newChatDomain(caller)

	channel, err := testutil.SampleChannel(ctx, nil)
	require.NoError(t, err)
	channelID := strconv.FormatInt(channel.ID, 10)

	tests := []struct {
		name    string
		ctx     context.Context
		req     *model.CreateMessageRequest
		wantErr error
	}{
		{
			name:    "empty content",
			ctx:     ctx,
			req:     &model.CreateMessageRequest{ChannelID: channelID},
			wantErr: errorx.New(errorx.BadRequest, ""),
		},
		{
			name:    "not a member",
			ctx:     ctx,
			req:     &model.CreateMessageRequest{ChannelID: channelID, Content: "hi"},
			wantErr: errorx.New(errorx.PermissionDenied, ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.CreateMessage(tt.ctx, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	require.NoError(t, testutil.SampleMember(ctx, "user1", channel.ID))
	resp, err := domain.CreateMessage(ctx, &model.CreateMessageRequest{ChannelID: channelID, Content: "hi"})
	require.NoError(t, err)

	events := caller.Events()
	require.Len(t, events, 1)
	require.Equal(t, "message_created", events[0].Op)
	require.Equal(t, channelID, events[0].Metadata.ToChannel)

	var msg event.MessageCreatedEvent
	require.NoError(t, event.Decode(events[0].Data, &msg))
	require.Equal(t, resp.ID, msg.ID)
	require.Equal(t, "user1", msg.AuthorID)
	require.False(t, msg.CreatedAt.IsZero())
}

func Test_chatDomain_CreateDirectMessage(t *testing.T) {
	ctx := testutil.MockContextWithUserID("user1")
	caller := &testutil.MockNotificationEngineCaller{}
	domain := newChatDomain(caller)

	_, err := testutil.SampleUser(ctx, &entity.User{Base: entity.Base{ID: "user2"}})
	require.NoError(t, err)

	_, err = domain.CreateDirectMessage(ctx, &model.CreateDirectMessageRequest{RecipientID: "user1", Content: "hi"})
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	_, err = domain.CreateDirectMessage(ctx, &model.CreateDirectMessageRequest{RecipientID: "user3", Content: "hi"})
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))

	_, err = domain.CreateDirectMessage(ctx, &model.CreateDirectMessageRequest{RecipientID: "user2", Content: "hi"})
	require.NoError(t, err)

	events := caller.Events()
	require.Len(t, events, 1)
	require.ElementsMatch(t, []string{"user1", "user2"}, events[0].Metadata.ToUsers)

	resp, err := domain.GetListMessage(
		xcontext.WithRequestUserID(ctx, "user2"),
		&model.GetListMessageRequest{RecipientID: "user1"},
	)
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	require.Equal(t, "user2", resp.Messages[0].RecipientID)
}

func Test_chatDomain_GetListMessage(t *testing.T) {
	ctx := testutil.MockContextWithUserID("user1")
	domain := newChatDomain(&testutil.MockNotificationEngineCaller{})

	channel, err := testutil.SampleChannel(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, testutil.SampleMember(ctx, "user1", channel.ID))
	channelID := strconv.FormatInt(channel.ID, 10)

	var ids []string
	for i := 0; i < 3; i++ {
		msg, err := testutil.SampleMessage(ctx, entity.ChatMessage{ChannelID: channel.ID})
		require.NoError(t, err)
		ids = append(ids, strconv.FormatInt(msg.ID, 10))
	}

	// The default limit of the test context is 2.
	resp, err := domain.GetListMessage(ctx, &model.GetListMessageRequest{ChannelID: channelID})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 2)
	require.Equal(t, ids[2], resp.Messages[0].ID)
	require.Equal(t, ids[1], resp.Messages[1].ID)

	resp, err = domain.GetListMessage(ctx, &model.GetListMessageRequest{ChannelID: channelID, BeforeID: ids[1]})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	require.Equal(t, ids[0], resp.Messages[0].ID)

	_, err = domain.GetListMessage(ctx, &model.GetListMessageRequest{ChannelID: channelID, Limit: 1000})
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	_, err = domain.GetListMessage(ctx, &model.GetListMessageRequest{})
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	_, err = domain.GetListMessage(
		xcontext.WithRequestUserID(ctx, "user2"),
		&model.GetListMessageRequest{ChannelID: channelID},
	)
	require.ErrorIs(t, err, errorx.New(errorx.PermissionDenied, ""))
}

func Test_chatDomain_DeleteChannel(t *testing.T) {
	ctx := testutil.MockContextWithUserID("user1")
	caller := &testutil.MockNotificationEngineCaller{}
	domain := newChatDomain(caller)

	channel, err := testutil.SampleChannel(ctx, &entity.ChatChannel{CreatedBy: "user1"})
	require.NoError(t, err)
	require.NoError(t, testutil.SampleMember(ctx, "user2", channel.ID))
	channelID := strconv.FormatInt(channel.ID, 10)

	_, err = domain.DeleteChannel(
		xcontext.WithRequestUserID(ctx, "user2"),
		&model.DeleteChannelRequest{ChannelID: channelID},
	)
	require.ErrorIs(t, err, errorx.New(errorx.PermissionDenied, ""))

	_, err = domain.DeleteChannel(ctx, &model.DeleteChannelRequest{ChannelID: channelID})
	require.NoError(t, err)

	members, err := repository.NewChatMemberRepository().GetByUserID(ctx, "user2")
	require.NoError(t, err)
	require.Empty(t, members)

	events := caller.Events()
	require.Len(t, events, 1)
	require.Equal(t, "channel_deleted", events[0].Op)
}

func Test_chatDomain_EmitFailure(t *testing.T) {
	ctx := testutil.MockContextWithUserID("user1")
	domain := newChatDomain(&testutil.MockNotificationEngineCaller{
		EmitFunc: func(context.Context, *event.EventRequest) error {
			return errors.New("broker is down")
		},
	})

	_, err := domain.CreateChannel(ctx, &model.CreateChannelRequest{Name: "general"})
	require.ErrorIs(t, err, errorx.Unknown)
}
