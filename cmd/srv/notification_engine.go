package main

import (
	"net/http"
	"strings"

	"github.com/questx-lab/chat/internal/domain/notification/engine"
	"github.com/questx-lab/chat/internal/middleware"
	"github.com/questx-lab/chat/pkg/kafka"
	"github.com/questx-lab/chat/pkg/router"
	"github.com/questx-lab/chat/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startNotificationEngine(*cli.Context) error {
	cfg := xcontext.Configs(s.ctx)
	s.startPrometheus(cfg.Notification.EnginePrometheusServer)

	engineServer := engine.NewEngineServer()

	subscriber, err := kafka.NewSubscriber(
		cfg.Kafka.ConsumerGroup,
		strings.Split(cfg.Kafka.Addr, ","),
		[]string{cfg.Kafka.NotificationTopic},
		engineServer.Subscribe,
	)
	if err != nil {
		return err
	}
	defer subscriber.Stop(s.ctx)

	subscriber.Subscribe(s.ctx)
	xcontext.Logger(s.ctx).Infof("Subscribed to topic %s", cfg.Kafka.NotificationTopic)

	defaultRouter := router.New(s.ctx)
	defaultRouter.AddCloser(middleware.Logger())
	router.Websocket(defaultRouter, "/", engineServer.ServeProxy)

	httpSrv := &http.Server{
		Addr:    cfg.Notification.EngineWSServer.Address(),
		Handler: defaultRouter.Handler(cfg.Notification.EngineWSServer),
	}

	xcontext.Logger(s.ctx).Infof("Starting ws notification engine on port: %s",
		cfg.Notification.EngineWSServer.Port)
	if err := httpSrv.ListenAndServe(); err != nil {
		return err
	}

	return nil
}
