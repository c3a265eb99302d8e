package main

import (
	"net/http"

	"github.com/questx-lab/chat/internal/domain/notification/proxy"
	"github.com/questx-lab/chat/internal/middleware"
	"github.com/questx-lab/chat/pkg/router"
	"github.com/questx-lab/chat/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startNotificationProxy(*cli.Context) error {
	if err := s.loadDatabase(); err != nil {
		return err
	}

	s.loadRepos()
	if err := s.loadReadState(); err != nil {
		return err
	}

	if err := s.loadNotificationEngineCaller("proxy"); err != nil {
		return err
	}

	notificationProxy := proxy.NewProxyServer(
		s.ctx, s.chatMemberRepo, s.accessor, s.source, s.notificationEngineCaller)

	cfg := xcontext.Configs(s.ctx)
	s.startPrometheus(cfg.Notification.ProxyPrometheusServer)

	defaultRouter := router.New(s.ctx)
	defaultRouter.Before(middleware.WithStartTime())
	defaultRouter.AddCloser(middleware.Logger())
	defaultRouter.AddCloser(middleware.Prometheus())
	defaultRouter.Before(middleware.NewAuthVerifier(s.accessTokenEngine).Middleware())
	router.Websocket(defaultRouter, "/notification", notificationProxy.ServeProxy)

	httpSrv := &http.Server{
		Addr:    cfg.Notification.ProxyServer.Address(),
		Handler: defaultRouter.Handler(cfg.Notification.ProxyServer),
	}

	xcontext.Logger(s.ctx).Infof("Starting notification proxy on port: %s", cfg.Notification.ProxyServer.Port)
	if err := httpSrv.ListenAndServe(); err != nil {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Server stop")
	return nil
}
