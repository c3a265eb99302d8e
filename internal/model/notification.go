package model

type ServeNotificationEngineRequest struct{}

type ServeNotificationProxyRequest struct{}
