package domain

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/questx-lab/chat/internal/client"
	"github.com/questx-lab/chat/internal/domain/notification/event"
	"github.com/questx-lab/chat/internal/entity"
	"github.com/questx-lab/chat/internal/model"
	"github.com/questx-lab/chat/internal/repository"
	"github.com/questx-lab/chat/pkg/errorx"
	"github.com/questx-lab/chat/pkg/xcontext"
	"gorm.io/gorm"
)

type ChatDomain interface {
	CreateChannel(context.Context, *model.CreateChannelRequest) (*model.CreateChannelResponse, error)
	DeleteChannel(context.Context, *model.DeleteChannelRequest) (*model.DeleteChannelResponse, error)
	JoinChannel(context.Context, *model.JoinChannelRequest) (*model.JoinChannelResponse, error)
	LeaveChannel(context.Context, *model.LeaveChannelRequest) (*model.LeaveChannelResponse, error)
	CreateMessage(context.Context, *model.CreateMessageRequest) (*model.CreateMessageResponse, error)
	CreateDirectMessage(context.Context, *model.CreateDirectMessageRequest) (*model.CreateDirectMessageResponse, error)
	GetListMessage(context.Context, *model.GetListMessageRequest) (*model.GetListMessageResponse, error)
}

type chatDomain struct {
	userRepo        repository.UserRepository
	chatChannelRepo repository.ChatChannelRepository
	chatMemberRepo  repository.ChatMemberRepository
	chatMessageRepo repository.ChatMessageRepository
	readMarkerRepo  repository.ReadMarkerRepository

	notificationEngineCaller client.NotificationEngineCaller
}

func NewChatDomain(
	userRepo repository.UserRepository,
	chatChannelRepo repository.ChatChannelRepository,
	chatMemberRepo repository.ChatMemberRepository,
	chatMessageRepo repository.ChatMessageRepository,
	readMarkerRepo repository.ReadMarkerRepository,
	notificationEngineCaller client.NotificationEngineCaller,
) *chatDomain {
	return &chatDomain{
		userRepo:                 userRepo,
		chatChannelRepo:          chatChannelRepo,
		chatMemberRepo:           chatMemberRepo,
		chatMessageRepo:          chatMessageRepo,
		readMarkerRepo:           readMarkerRepo,
		notificationEngineCaller: notificationEngineCaller,
	}
}

func (d *chatDomain) CreateChannel(
	ctx context.Context, req *model.CreateChannelRequest,
) (*model.CreateChannelResponse, error) {
	if req.Name == "" {
		return nil, errorx.New(errorx.BadRequest, "Require channel name")
	}

	userID := xcontext.RequestUserID(ctx)
	channel := &entity.ChatChannel{
		SnowFlakeBase: entity.SnowFlakeBase{ID: xcontext.SnowFlake(ctx).Generate().Int64()},
		Name:          req.Name,
		CreatedBy:     userID,
	}

	err := xcontext.WithDBTransaction(ctx, func(ctx context.Context) error {
		if err := d.chatChannelRepo.Create(ctx, channel); err != nil {
			return err
		}

		return d.chatMemberRepo.Create(ctx, &entity.ChatMember{UserID: userID, ChannelID: channel.ID})
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create channel: %v", err)
		return nil, errorx.Unknown
	}

	channelID := strconv.FormatInt(channel.ID, 10)
	ev := event.New(
		&event.MemberJoinedEvent{ChannelID: channelID, UserID: userID},
		event.Metadata{ToUsers: []string{userID}},
	)
	if err := d.notificationEngineCaller.Emit(ctx, ev); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot emit member joined event: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateChannelResponse{ID: channelID}, nil
}

func (d *chatDomain) DeleteChannel(
	ctx context.Context, req *model.DeleteChannelRequest,
) (*model.DeleteChannelResponse, error) {
	channelID, err := parseChannelID(req.ChannelID)
	if err != nil {
		return nil, err
	}

	channel, err := d.getChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	if channel.CreatedBy != xcontext.RequestUserID(ctx) {
		return nil, errorx.New(errorx.PermissionDenied, "Only the creator can delete the channel")
	}

	err = xcontext.WithDBTransaction(ctx, func(ctx context.Context) error {
		if err := d.chatMemberRepo.DeleteByChannelID(ctx, channelID); err != nil {
			return err
		}

		if err := d.chatMessageRepo.DeleteByChannelID(ctx, channelID); err != nil {
			return err
		}

		err := d.readMarkerRepo.DeleteByConversation(ctx, req.ChannelID, entity.ChannelConversation)
		if err != nil {
			return err
		}

		return d.chatChannelRepo.DeleteByID(ctx, channelID)
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot delete channel: %v", err)
		return nil, errorx.Unknown
	}

	ev := event.New(
		&event.ChannelDeletedEvent{ChannelID: req.ChannelID},
		event.Metadata{ToChannel: req.ChannelID},
	)
	if err := d.notificationEngineCaller.Emit(ctx, ev); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot emit channel deleted event: %v", err)
		return nil, errorx.Unknown
	}

	return &model.DeleteChannelResponse{}, nil
}

func (d *chatDomain) JoinChannel(
	ctx context.Context, req *model.JoinChannelRequest,
) (*model.JoinChannelResponse, error) {
	channelID, err := parseChannelID(req.ChannelID)
	if err != nil {
		return nil, err
	}

	if _, err := d.getChannel(ctx, channelID); err != nil {
		return nil, err
	}

	userID := xcontext.RequestUserID(ctx)
	_, err = d.chatMemberRepo.Get(ctx, userID, channelID)
	if err == nil {
		return nil, errorx.New(errorx.AlreadyExists, "You are already a member of this channel")
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot get chat member: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.chatMemberRepo.Create(ctx, &entity.ChatMember{UserID: userID, ChannelID: channelID}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create chat member: %v", err)
		return nil, errorx.Unknown
	}

	// The user is not in the channel audience yet, their own sessions are
	// told directly.
	ev := event.New(
		&event.MemberJoinedEvent{ChannelID: req.ChannelID, UserID: userID},
		event.Metadata{ToChannel: req.ChannelID, ToUsers: []string{userID}},
	)
	if err := d.notificationEngineCaller.Emit(ctx, ev); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot emit member joined event: %v", err)
		return nil, errorx.Unknown
	}

	return &model.JoinChannelResponse{}, nil
}

func (d *chatDomain) LeaveChannel(
	ctx context.Context, req *model.LeaveChannelRequest,
) (*model.LeaveChannelResponse, error) {
	channelID, err := parseChannelID(req.ChannelID)
	if err != nil {
		return nil, err
	}

	userID := xcontext.RequestUserID(ctx)
	if err := d.checkMember(ctx, userID, channelID); err != nil {
		return nil, err
	}

	if err := d.chatMemberRepo.Delete(ctx, userID, channelID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot delete chat member: %v", err)
		return nil, errorx.Unknown
	}

	ev := event.New(
		&event.MemberLeftEvent{ChannelID: req.ChannelID, UserID: userID},
		event.Metadata{ToChannel: req.ChannelID, ToUsers: []string{userID}},
	)
	if err := d.notificationEngineCaller.Emit(ctx, ev); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot emit member left event: %v", err)
		return nil, errorx.Unknown
	}

	return &model.LeaveChannelResponse{}, nil
}

func (d *chatDomain) CreateMessage(
	ctx context.Context, req *model.CreateMessageRequest,
) (*model.CreateMessageResponse, error) {
	if req.Content == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow empty content")
	}

	channelID, err := parseChannelID(req.ChannelID)
	if err != nil {
		return nil, err
	}

	userID := xcontext.RequestUserID(ctx)
	if err := d.checkMember(ctx, userID, channelID); err != nil {
		return nil, err
	}

	msg := &entity.ChatMessage{
		ID:        xcontext.SnowFlake(ctx).Generate().Int64(),
		ChannelID: channelID,
		AuthorID:  userID,
		Content:   req.Content,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := d.chatMessageRepo.Create(ctx, msg); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create message: %v", err)
		return nil, errorx.Unknown
	}

	msgEvent := event.MessageCreatedEvent(convertChatMessage(msg))
	ev := event.New(
		&msgEvent,
		event.Metadata{ToChannel: req.ChannelID},
	)
	if err := d.notificationEngineCaller.Emit(ctx, ev); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot emit message created event: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateMessageResponse{ID: strconv.FormatInt(msg.ID, 10)}, nil
}

func (d *chatDomain) CreateDirectMessage(
	ctx context.Context, req *model.CreateDirectMessageRequest,
) (*model.CreateDirectMessageResponse, error) {
	if req.Content == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow empty content")
	}

	if req.RecipientID == "" {
		return nil, errorx.New(errorx.BadRequest, "Require recipient id")
	}

	userID := xcontext.RequestUserID(ctx)
	if req.RecipientID == userID {
		return nil, errorx.New(errorx.BadRequest, "Cannot send a direct message to yourself")
	}

	if _, err := d.userRepo.GetByID(ctx, req.RecipientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found recipient")
		}

		xcontext.Logger(ctx).Errorf("Cannot get recipient: %v", err)
		return nil, errorx.Unknown
	}

	msg := &entity.ChatMessage{
		ID:          xcontext.SnowFlake(ctx).Generate().Int64(),
		RecipientID: req.RecipientID,
		AuthorID:    userID,
		Content:     req.Content,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := d.chatMessageRepo.Create(ctx, msg); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create direct message: %v", err)
		return nil, errorx.Unknown
	}

	msgEvent := event.MessageCreatedEvent(convertChatMessage(msg))
	ev := event.New(
		&msgEvent,
		event.Metadata{ToUsers: []string{req.RecipientID, userID}},
	)
	if err := d.notificationEngineCaller.Emit(ctx, ev); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot emit message created event: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateDirectMessageResponse{ID: strconv.FormatInt(msg.ID, 10)}, nil
}

func (d *chatDomain) GetListMessage(
	ctx context.Context, req *model.GetListMessageRequest,
) (*model.GetListMessageResponse, error) {
	limit, err := parseLimit(ctx, req.Limit)
	if err != nil {
		return nil, err
	}

	var beforeID int64
	if req.BeforeID != "" {
		beforeID, err = strconv.ParseInt(req.BeforeID, 10, 64)
		if err != nil {
			return nil, errorx.New(errorx.BadRequest, "Invalid before id")
		}
	}

	userID := xcontext.RequestUserID(ctx)
	var messages []entity.ChatMessage
	switch {
	case req.ChannelID != "":
		channelID, err := parseChannelID(req.ChannelID)
		if err != nil {
			return nil, err
		}

		if err := d.checkMember(ctx, userID, channelID); err != nil {
			return nil, err
		}

		messages, err = d.chatMessageRepo.GetListByChannelID(ctx, channelID, beforeID, limit)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot get messages of channel: %v", err)
			return nil, errorx.Unknown
		}

	case req.RecipientID != "":
		messages, err = d.chatMessageRepo.GetListDirect(ctx, userID, req.RecipientID, beforeID, limit)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot get direct messages: %v", err)
			return nil, errorx.Unknown
		}

	default:
		return nil, errorx.New(errorx.BadRequest, "Require channel id or recipient id")
	}

	result := make([]model.ChatMessage, 0, len(messages))
	for i := range messages {
		result = append(result, convertChatMessage(&messages[i]))
	}

	return &model.GetListMessageResponse{Messages: result}, nil
}

func (d *chatDomain) getChannel(ctx context.Context, channelID int64) (*entity.ChatChannel, error) {
	channel, err := d.chatChannelRepo.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found channel")
		}

		xcontext.Logger(ctx).Errorf("Cannot get channel: %v", err)
		return nil, errorx.Unknown
	}

	return channel, nil
}

func (d *chatDomain) checkMember(ctx context.Context, userID string, channelID int64) error {
	return checkMember(ctx, d.chatMemberRepo, userID, channelID)
}

func checkMember(
	ctx context.Context, chatMemberRepo repository.ChatMemberRepository, userID string, channelID int64,
) error {
	if _, err := chatMemberRepo.Get(ctx, userID, channelID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.PermissionDenied, "You are not a member of this channel")
		}

		xcontext.Logger(ctx).Errorf("Cannot get chat member: %v", err)
		return errorx.Unknown
	}

	return nil
}
