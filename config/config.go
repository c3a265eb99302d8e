package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Configs struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`

	Database  DatabaseConfigs  `toml:"database"`
	ApiServer APIServerConfigs `toml:"api_server"`
	// PrometheusServer serves the metrics of the api command.
	PrometheusServer ServerConfigs       `toml:"prometheus_server"`
	Auth             AuthConfigs         `toml:"auth"`
	Redis            RedisConfigs        `toml:"redis"`
	Kafka            KafkaConfigs        `toml:"kafka"`
	Notification     NotificationConfigs `toml:"notification"`
	Unread           UnreadConfigs       `toml:"unread"`
	SnowFlake        SnowFlakeConfigs    `toml:"snowflake"`
}

type DatabaseConfigs struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	LogLevel string `toml:"log_level"`
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Endpoint string `toml:"endpoint"`
	Cert     string `toml:"cert"`
	Key      string `toml:"key"`

	AllowedOrigins []string `toml:"allowed_origins"`
}

func (c ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type APIServerConfigs struct {
	MaxLimit     int `toml:"max_limit"`
	DefaultLimit int `toml:"default_limit"`

	ServerConfigs `toml:"server"`
}

type AuthConfigs struct {
	TokenSecret string       `toml:"token_secret"`
	AccessToken TokenConfigs `toml:"access_token"`
}

type TokenConfigs struct {
	Name       string        `toml:"name"`
	Expiration time.Duration `toml:"expiration"`
}

type RedisConfigs struct {
	Addr     string        `toml:"addr"`
	CacheTTL time.Duration `toml:"cache_ttl"`
}

type KafkaConfigs struct {
	Addr              string `toml:"addr"`
	NotificationTopic string `toml:"notification_topic"`
	ConsumerGroup     string `toml:"consumer_group"`
}

type NotificationConfigs struct {
	EngineWSServer ServerConfigs `toml:"engine_ws_server"`
	ProxyServer    ServerConfigs `toml:"proxy_server"`

	EnginePrometheusServer ServerConfigs `toml:"engine_prometheus_server"`
	ProxyPrometheusServer  ServerConfigs `toml:"proxy_prometheus_server"`

	// ReconnectInterval is the delay between two attempts to reach the engine.
	ReconnectInterval time.Duration `toml:"reconnect_interval"`
}

type UnreadConfigs struct {
	// DedupWindow is the number of recent message ids remembered per conversation.
	DedupWindow int `toml:"dedup_window"`

	// MaxConcurrentCounts bounds the count queries running during a full
	// aggregation.
	MaxConcurrentCounts int `toml:"max_concurrent_counts"`

	// ResyncDelay is the delay before retrying a failed aggregation.
	ResyncDelay time.Duration `toml:"resync_delay"`
}

type SnowFlakeConfigs struct {
	Node int64 `toml:"node"`
}

// Default returns the configurations used when a field is missing in the
// config file.
func Default() Configs {
	return Configs{
		Env:      "local",
		LogLevel: "info",
		Database: DatabaseConfigs{
			Host:     "localhost",
			Port:     "3306",
			Database: "chat",
			User:     "chat",
			LogLevel: "error",
		},
		ApiServer: APIServerConfigs{
			MaxLimit:      50,
			DefaultLimit:  20,
			ServerConfigs: ServerConfigs{Port: "8080"},
		},
		PrometheusServer: ServerConfigs{Port: "9090"},
		Auth: AuthConfigs{
			AccessToken: TokenConfigs{Name: "access_token", Expiration: 5 * time.Minute},
		},
		Redis: RedisConfigs{Addr: "localhost:6379", CacheTTL: time.Hour},
		Kafka: KafkaConfigs{
			Addr:              "localhost:9092",
			NotificationTopic: "notification",
			ConsumerGroup:     "notification-engine",
		},
		Notification: NotificationConfigs{
			EngineWSServer:         ServerConfigs{Port: "8082", Endpoint: "ws://localhost:8082"},
			ProxyServer:            ServerConfigs{Port: "8081"},
			EnginePrometheusServer: ServerConfigs{Port: "9092"},
			ProxyPrometheusServer:  ServerConfigs{Port: "9091"},
			ReconnectInterval:      5 * time.Second,
		},
		Unread: UnreadConfigs{
			DedupWindow:         256,
			MaxConcurrentCounts: 8,
			ResyncDelay:         3 * time.Second,
		},
		SnowFlake: SnowFlakeConfigs{Node: 1},
	}
}

// Load reads the TOML file at path on top of the default configurations.
// Secrets are taken from the environment when they are set.
func Load(path string) (Configs, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Configs{}, fmt.Errorf("cannot decode config file %s: %w", path, err)
		}
	}

	if v, ok := os.LookupEnv("DB_PASSWORD"); ok {
		cfg.Database.Password = v
	}

	if v, ok := os.LookupEnv("TOKEN_SECRET"); ok {
		cfg.Auth.TokenSecret = v
	}

	if cfg.Auth.TokenSecret == "" {
		return Configs{}, fmt.Errorf("token secret is required")
	}

	return cfg, nil
}
