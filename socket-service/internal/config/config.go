package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/jevah-app/jevahapp-backend-sub001/pkg/config"
	"github.com/jevah-app/jevahapp-backend-sub001/pkg/jwt"
	pkglog "github.com/jevah-app/jevahapp-backend-sub001/pkg/log"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/hub"
	"github.com/jevah-app/jevahapp-backend-sub001/socket-service/internal/store"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	WebSocket WebSocketConfig
	Polling   PollingConfig
	Hub       hub.Config
	Auth      jwt.Config
	Store     StoreConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Log       pkglog.Config
}

type ServerConfig struct {
	Host           string
	Port           int
	FrontendOrigin string        `mapstructure:"frontend_origin"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
}

type GRPCConfig struct {
	Enabled bool
	Host    string
	Port    int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type PollingConfig struct {
	Wait        time.Duration
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	MaxBatch    int           `mapstructure:"max_batch"`
}

type StoreConfig struct {
	store.Config `mapstructure:",squash"`
	Timeout      time.Duration
}

type KafkaConfig struct {
	Enabled     bool
	Brokers     string
	EventsTopic string `mapstructure:"events_topic"`
	StreamTopic string `mapstructure:"stream_topic"`
	GroupID     string `mapstructure:"group_id"`
	Partitions  int
}

type RedisConfig struct {
	Enabled           bool
	Address           string
	Password          string
	DB                int
	Prefix            string
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	KeyTTL            time.Duration `mapstructure:"key_ttl"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper applies defaults and environment bindings to v and decodes it.
func FromViper(v *viper.Viper) (*Config, error) {
	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.frontend_origin", "http://localhost:3000")
	v.SetDefault("server.shutdown_grace", "15s")
	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50070)
	v.SetDefault("websocket.ping_interval", "25s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("polling.wait", "25s")
	v.SetDefault("polling.idle_timeout", "60s")
	v.SetDefault("polling.max_batch", 64)
	v.SetDefault("hub.send_buffer", 256)
	v.SetDefault("hub.broadcast_queue", 1024)
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.leeway", "0s")
	v.SetDefault("store.driver", "mongo")
	v.SetDefault("store.timeout", "10s")
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "jevah")
	v.SetDefault("store.mongo.connect_timeout", "10s")
	v.SetDefault("store.database.file_path", "./socket.db")
	v.SetDefault("store.database.sslmode", "disable")
	v.SetDefault("store.database.log_level", "silent")
	v.SetDefault("store.messages.driver", "")
	v.SetDefault("store.messages.cassandra.hosts", "localhost:9042")
	v.SetDefault("store.messages.cassandra.keyspace", "jevah")
	v.SetDefault("store.messages.cassandra.consistency", "LOCAL_ONE")
	v.SetDefault("store.messages.cassandra.connect_timeout", "10s")
	v.SetDefault("store.messages.cassandra.timeout", "5s")
	v.SetDefault("store.messages.cassandra.create_table", false)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.events_topic", "jevah-interactions")
	v.SetDefault("kafka.stream_topic", "jevah-stream-events")
	v.SetDefault("kafka.group_id", "socket-service")
	v.SetDefault("kafka.partitions", 8)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "jevah:socket")
	v.SetDefault("redis.heartbeat_interval", "10s")
	v.SetDefault("redis.key_ttl", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "socket-service")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.frontend_origin", "FRONTEND_ORIGIN")
	v.BindEnv("grpc.port", "GRPC_PORT")
	v.BindEnv("auth.secret", "JWT_SECRET")
	v.BindEnv("auth.public_key", "JWT_PUBLIC_KEY")
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("store.mongo.uri", "MONGO_URI")
	v.BindEnv("store.mongo.database", "MONGO_DATABASE")
	v.BindEnv("store.messages.driver", "MESSAGE_STORE_DRIVER")
	v.BindEnv("store.messages.cassandra.hosts", "CASSANDRA_HOSTS")
	v.BindEnv("kafka.enabled", "KAFKA_ENABLED")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Server.ShutdownGrace = parseDuration(v, "server.shutdown_grace", 15*time.Second)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 25*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Polling.Wait = parseDuration(v, "polling.wait", 25*time.Second)
	cfg.Polling.IdleTimeout = parseDuration(v, "polling.idle_timeout", 60*time.Second)
	cfg.Auth.Leeway = parseDuration(v, "auth.leeway", 0)
	cfg.Store.Timeout = parseDuration(v, "store.timeout", 10*time.Second)
	cfg.Store.Mongo.ConnectTimeout = parseDuration(v, "store.mongo.connect_timeout", 10*time.Second)
	cfg.Store.Messages.Cassandra.ConnectTimeout = parseDuration(v, "store.messages.cassandra.connect_timeout", 10*time.Second)
	cfg.Store.Messages.Cassandra.Timeout = parseDuration(v, "store.messages.cassandra.timeout", 5*time.Second)
	cfg.Redis.HeartbeatInterval = parseDuration(v, "redis.heartbeat_interval", 10*time.Second)
	cfg.Redis.KeyTTL = parseDuration(v, "redis.key_ttl", 30*time.Second)

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
