package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path of the TOML config file",
		EnvVars: []string{"CONFIG_FILE"},
	}

	s.app = cli.NewApp()
	s.app.Action = cli.ShowAppHelp
	s.app.Name = "chat"
	s.app.Usage = "Chat service with unread tracking"
	s.app.Flags = []cli.Flag{configFlag}
	s.app.Before = s.load
	s.app.Commands = []*cli.Command{
		{
			Action:      s.startApi,
			Name:        "api",
			Usage:       "Start service api",
			Category:    "Api",
			Description: `Used to start the http api of channels, messages and read markers.`,
		},
		{
			Action:      s.startNotificationEngine,
			Name:        "engine",
			Usage:       "Start notification engine",
			Category:    "Notification",
			Description: `Used to consume events from the message queue and fan them out to proxies.`,
		},
		{
			Action:      s.startNotificationProxy,
			Name:        "proxy",
			Usage:       "Start notification proxy",
			Category:    "Notification",
			Description: `Used to serve websocket clients with their events and unread counts.`,
		},
		{
			Action:      s.startMigrate,
			Name:        "migrate",
			Usage:       "Migrate database",
			Category:    "Database",
			Description: `Used to create or update the tables of the database.`,
		},
	}
}
