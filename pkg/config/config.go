package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	DB struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
		MaxConns int
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	Kafka struct {
		Brokers []string
		Topic   string
	}
	Redis struct {
		URL string
	}
	HTTP struct {
		Port int
	}
	JWT struct {
		Secret string
		TTL    time.Duration
	}
	Auth struct {
		// DevTokens exposes POST /auth/token for local development.
		DevTokens bool
	}
	Engine struct {
		StorageBackend string
		NotifyBackends []string
		LockTimeout    time.Duration
		Timezone       string

		NotifyWorkers   int
		NotifyQueueSize int
		NotifyTimeout   time.Duration
	}
	LogLevel string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "rideshare_user")
	v.SetDefault("DB_PASS", "rideshare_pass")
	v.SetDefault("DB_NAME", "rideshare_db")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("RABBITMQ_HOST", "localhost")
	v.SetDefault("RABBITMQ_PORT", 5672)
	v.SetDefault("RABBITMQ_USER", "guest")
	v.SetDefault("RABBITMQ_PASS", "guest")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_TOPIC", "ride-notifications")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("HTTP_PORT", 3000)
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("AUTH_DEV_TOKENS", false)
	v.SetDefault("STORAGE_BACKEND", StorageMemory)
	v.SetDefault("NOTIFY_BACKENDS", "log")
	v.SetDefault("LOCK_TIMEOUT", "5s")
	v.SetDefault("MATCHING_TIMEZONE", "UTC")
	v.SetDefault("NOTIFY_WORKERS", 4)
	v.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
	v.SetDefault("LOG_LEVEL", "INFO")
}

// LoadConfig reads filename (a .env file) if it exists, then lets the
// process environment override every key.
func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if filename != "" {
		v.SetConfigFile(filename)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config file %s: %w", filename, err)
			}
		}
	}
	v.AutomaticEnv()

	cfg := &Config{}
	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetInt("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASS")
	cfg.DB.Database = v.GetString("DB_NAME")
	cfg.DB.MaxConns = v.GetInt("DB_MAX_CONNS")
	cfg.RabbitMQ.Host = v.GetString("RABBITMQ_HOST")
	cfg.RabbitMQ.Port = v.GetInt("RABBITMQ_PORT")
	cfg.RabbitMQ.User = v.GetString("RABBITMQ_USER")
	cfg.RabbitMQ.Password = v.GetString("RABBITMQ_PASS")
	cfg.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.Kafka.Topic = v.GetString("KAFKA_TOPIC")
	cfg.Redis.URL = v.GetString("REDIS_URL")
	cfg.HTTP.Port = v.GetInt("HTTP_PORT")
	cfg.JWT.Secret = v.GetString("JWT_SECRET")
	cfg.JWT.TTL = v.GetDuration("JWT_TTL")
	cfg.Auth.DevTokens = v.GetBool("AUTH_DEV_TOKENS")
	cfg.Engine.StorageBackend = strings.ToLower(v.GetString("STORAGE_BACKEND"))
	cfg.Engine.NotifyBackends = splitList(strings.ToLower(v.GetString("NOTIFY_BACKENDS")))
	cfg.Engine.LockTimeout = v.GetDuration("LOCK_TIMEOUT")
	cfg.Engine.Timezone = v.GetString("MATCHING_TIMEZONE")
	cfg.Engine.NotifyWorkers = v.GetInt("NOTIFY_WORKERS")
	cfg.Engine.NotifyQueueSize = v.GetInt("NOTIFY_QUEUE_SIZE")
	cfg.Engine.NotifyTimeout = v.GetDuration("NOTIFY_TIMEOUT")
	cfg.LogLevel = v.GetString("LOG_LEVEL")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Engine.StorageBackend {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Engine.StorageBackend)
	}
	if c.Engine.LockTimeout <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be positive, got %s", c.Engine.LockTimeout)
	}
	if _, err := time.LoadLocation(c.Engine.Timezone); err != nil {
		return fmt.Errorf("invalid MATCHING_TIMEZONE: %w", err)
	}
	if c.Engine.NotifyWorkers <= 0 || c.Engine.NotifyQueueSize <= 0 {
		return fmt.Errorf("NOTIFY_WORKERS and NOTIFY_QUEUE_SIZE must be positive, got %d and %d",
			c.Engine.NotifyWorkers, c.Engine.NotifyQueueSize)
	}
	if c.Engine.NotifyTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive, got %s", c.Engine.NotifyTimeout)
	}
	return nil
}

// NotifyEnabled reports whether backend is listed in NOTIFY_BACKENDS.
func (c *Config) NotifyEnabled(backend string) bool {
	for _, b := range c.Engine.NotifyBackends {
		if b == backend {
			return true
		}
	}
	return false
}

// PostgresDSN builds the pgx connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.Database,
	)
}

// RabbitMQURL builds the AMQP url.
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User,
		c.RabbitMQ.Password,
		c.RabbitMQ.Host,
		c.RabbitMQ.Port,
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
