package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/coinhatch/coinhatch/pkg/config"
	"github.com/coinhatch/coinhatch/pkg/database"
	"github.com/coinhatch/coinhatch/pkg/log"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Auth      AuthConfig
	Database  database.Config
	Redis     RedisConfig
	Cache     CacheConfig
	Market    MarketConfig
	Chat      ChatConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type CacheConfig struct {
	Backend    string `mapstructure:"backend"` // memory or redis
	Prefix     string `mapstructure:"prefix"`
	MaxEntries int    `mapstructure:"max_entries"` // memory backend only, 0 = unbounded
}

type MarketConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	TrendingTTL     time.Duration `mapstructure:"trending_ttl"`
	MarketsTTL      time.Duration `mapstructure:"markets_ttl"`
	DetailTTL       time.Duration `mapstructure:"detail_ttl"`
	SearchTTL       time.Duration `mapstructure:"search_ttl"`
	SnapshotEnabled bool          `mapstructure:"snapshot_enabled"`
}

type ChatConfig struct {
	HistoryLimit      int           `mapstructure:"history_limit"`
	MaxContentLength  int           `mapstructure:"max_content_length"`
	RetentionInterval time.Duration `mapstructure:"retention_interval"`
	RetentionKeep     int           `mapstructure:"retention_keep"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.resolve_timeout", "30s")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "coinhatch")
	v.SetDefault("database.dbname", "coinhatch")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.prefix", "coinhatch:market")
	v.SetDefault("cache.max_entries", 0)
	v.SetDefault("market.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("market.timeout", "10s")
	v.SetDefault("market.trending_ttl", "5m")
	v.SetDefault("market.markets_ttl", "60s")
	v.SetDefault("market.detail_ttl", "2m")
	v.SetDefault("market.search_ttl", "5m")
	v.SetDefault("market.snapshot_enabled", true)
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("chat.max_content_length", 500)
	v.SetDefault("chat.retention_interval", "1h")
	v.SetDefault("chat.retention_keep", 50)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "coinhatch-api")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.issuer", "JWT_ISSUER")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("cache.backend", "CACHE_BACKEND")
	v.BindEnv("market.base_url", "MARKET_BASE_URL")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Auth.ResolveTimeout = parseDuration(v, "auth.resolve_timeout", 30*time.Second)
	cfg.Market.Timeout = parseDuration(v, "market.timeout", 10*time.Second)
	cfg.Market.TrendingTTL = parseDuration(v, "market.trending_ttl", 5*time.Minute)
	cfg.Market.MarketsTTL = parseDuration(v, "market.markets_ttl", time.Minute)
	cfg.Market.DetailTTL = parseDuration(v, "market.detail_ttl", 2*time.Minute)
	cfg.Market.SearchTTL = parseDuration(v, "market.search_ttl", 5*time.Minute)
	cfg.Chat.RetentionInterval = parseDuration(v, "chat.retention_interval", time.Hour)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
