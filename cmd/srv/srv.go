package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/questx-lab/chat/config"
	"github.com/questx-lab/chat/internal/client"
	"github.com/questx-lab/chat/internal/domain"
	"github.com/questx-lab/chat/internal/domain/readstate"
	"github.com/questx-lab/chat/internal/domain/unread"
	"github.com/questx-lab/chat/internal/entity"
	"github.com/questx-lab/chat/internal/model"
	"github.com/questx-lab/chat/internal/repository"
	"github.com/questx-lab/chat/pkg/authenticator"
	"github.com/questx-lab/chat/pkg/kafka"
	"github.com/questx-lab/chat/pkg/logger"
	"github.com/questx-lab/chat/pkg/prometheus"
	"github.com/questx-lab/chat/pkg/xcontext"
	"github.com/questx-lab/chat/pkg/xredis"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type srv struct {
	ctx context.Context
	app *cli.App

	userRepo        repository.UserRepository
	chatChannelRepo repository.ChatChannelRepository
	chatMemberRepo  repository.ChatMemberRepository
	chatMessageRepo repository.ChatMessageRepository
	readMarkerRepo  repository.ReadMarkerRepository

	accessor unread.ReadStateAccessor
	source   unread.ConversationSource

	chatDomain      domain.ChatDomain
	readStateDomain domain.ReadStateDomain

	notificationEngineCaller client.NotificationEngineCaller
	accessTokenEngine        authenticator.TokenEngine[model.AccessToken]
}

// load prepares the context shared by every command.
func (s *srv) load(cctx *cli.Context) error {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return err
	}

	s.ctx = xcontext.WithConfigs(s.ctx, cfg)
	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(logger.ParseLevel(cfg.LogLevel)))

	node, err := snowflake.NewNode(cfg.SnowFlake.Node)
	if err != nil {
		return err
	}
	s.ctx = xcontext.WithSnowFlake(s.ctx, node)

	s.accessTokenEngine = authenticator.NewTokenEngine[model.AccessToken](
		cfg.Auth.TokenSecret, cfg.Auth.AccessToken.Expiration)

	return nil
}

func (s *srv) loadDatabase() error {
	cfg := xcontext.Configs(s.ctx).Database

	logLevel := gormlogger.Error
	switch cfg.LogLevel {
	case "silent":
		logLevel = gormlogger.Silent
	case "warn":
		logLevel = gormlogger.Warn
	case "info":
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       cfg.ConnectionString(),
		DefaultStringSize:         256,
		SkipInitializeWithVersion: false,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return err
	}

	s.ctx = xcontext.WithDB(s.ctx, db)
	xcontext.Logger(s.ctx).Infof("Connected to database %s", cfg.Database)
	return nil
}

func (s *srv) migrateDB() error {
	return entity.MigrateTable(s.ctx)
}

func (s *srv) loadRepos() {
	s.userRepo = repository.NewUserRepository()
	s.chatChannelRepo = repository.NewChatChannelRepository()
	s.chatMemberRepo = repository.NewChatMemberRepository()
	s.chatMessageRepo = repository.NewChatMessageRepository()
	s.readMarkerRepo = repository.NewReadMarkerRepository()
}

// loadReadState builds the read marker accessor, cached in redis, and the
// conversation source used to count unread messages.
func (s *srv) loadReadState() error {
	redisClient, err := xredis.NewClient(s.ctx)
	if err != nil {
		return err
	}

	s.accessor = readstate.NewCachedReadStateAccessor(
		readstate.NewReadStateAccessor(s.readMarkerRepo),
		redisClient,
		xcontext.Configs(s.ctx).Redis.CacheTTL,
	)
	s.source = readstate.NewConversationSource(s.chatMemberRepo, s.chatMessageRepo)
	return nil
}

func (s *srv) loadNotificationEngineCaller(clientID string) error {
	cfg := xcontext.Configs(s.ctx).Kafka
	publisher, err := kafka.NewPublisher(clientID, strings.Split(cfg.Addr, ","))
	if err != nil {
		return err
	}

	s.notificationEngineCaller = client.NewNotificationEngineCaller(publisher)
	return nil
}

func (s *srv) loadDomains() {
	s.chatDomain = domain.NewChatDomain(
		s.userRepo,
		s.chatChannelRepo,
		s.chatMemberRepo,
		s.chatMessageRepo,
		s.readMarkerRepo,
		s.notificationEngineCaller,
	)

	s.readStateDomain = domain.NewReadStateDomain(
		s.chatMemberRepo,
		s.accessor,
		s.source,
		s.notificationEngineCaller,
	)
}

// startPrometheus serves the metrics of the running command in background.
func (s *srv) startPrometheus(cfg config.ServerConfigs) {
	go func() {
		httpSrv := &http.Server{
			Addr:    cfg.Address(),
			Handler: prometheus.NewHandler(),
		}

		xcontext.Logger(s.ctx).Infof("Starting prometheus on port: %s", cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil {
			xcontext.Logger(s.ctx).Errorf("Cannot serve prometheus: %v", err)
			return
		}

		xcontext.Logger(s.ctx).Infof("Server prometheus stop")
	}()
}
