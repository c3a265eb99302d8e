package main

import (
	"net/http"

	"github.com/questx-lab/chat/internal/middleware"
	"github.com/questx-lab/chat/pkg/router"
	"github.com/questx-lab/chat/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(*cli.Context) error {
	if err := s.loadDatabase(); err != nil {
		return err
	}

	if err := s.migrateDB(); err != nil {
		return err
	}

	s.loadRepos()
	if err := s.loadReadState(); err != nil {
		return err
	}

	if err := s.loadNotificationEngineCaller("api"); err != nil {
		return err
	}

	s.loadDomains()

	cfg := xcontext.Configs(s.ctx)
	s.startPrometheus(cfg.PrometheusServer)

	httpSrv := &http.Server{
		Addr:    cfg.ApiServer.Address(),
		Handler: s.loadRouter().Handler(cfg.ApiServer.ServerConfigs),
	}

	xcontext.Logger(s.ctx).Infof("Starting api server on port: %s", cfg.ApiServer.Port)
	if err := httpSrv.ListenAndServe(); err != nil {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Server stop")
	return nil
}

func (s *srv) loadRouter() *router.Router {
	defaultRouter := router.New(s.ctx)
	defaultRouter.Before(middleware.WithStartTime())
	defaultRouter.AddCloser(middleware.Logger())
	defaultRouter.AddCloser(middleware.Prometheus())

	authRouter := defaultRouter.Branch()
	authRouter.Before(middleware.NewAuthVerifier(s.accessTokenEngine).Middleware())
	{
		// Channel API
		router.POST(authRouter, "/createChannel", s.chatDomain.CreateChannel)
		router.POST(authRouter, "/deleteChannel", s.chatDomain.DeleteChannel)
		router.POST(authRouter, "/joinChannel", s.chatDomain.JoinChannel)
		router.POST(authRouter, "/leaveChannel", s.chatDomain.LeaveChannel)

		// Message API
		router.POST(authRouter, "/createMessage", s.chatDomain.CreateMessage)
		router.POST(authRouter, "/createDirectMessage", s.chatDomain.CreateDirectMessage)
		router.GET(authRouter, "/getListMessage", s.chatDomain.GetListMessage)

		// Read state API
		router.POST(authRouter, "/markChannelRead", s.readStateDomain.MarkChannelRead)
		router.POST(authRouter, "/markDirectRead", s.readStateDomain.MarkDirectRead)
		router.GET(authRouter, "/getUnreadCounts", s.readStateDomain.GetUnreadCounts)
	}

	return defaultRouter
}
