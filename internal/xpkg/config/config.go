package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB    Postgres
	RMQ   RabbitMQ
	Redis Redis

	OrderServicePort int
	GatewayPort      int

	// Base URL of the out-of-scope review service the rating trigger
	// delegates to.
	ReviewServiceURL string
	// Base URL observers use to reach the order service (snapshot + pull).
	OrderServiceURL string
	// WebSocket URL observers use to reach the realtime gateway.
	GatewayURL string

	PollInterval      time.Duration
	ReconnectBackoff  time.Duration
	PingInterval      time.Duration
	RatingPromptDelay time.Duration
	StatusCacheTTL    time.Duration

	CheckoutRatePerMinute int64
}

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

type RabbitMQ struct {
	Host     string
	Port     string
	User     string
	Password string
	VHost    string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		p.User, p.Password, p.Host, p.Port, p.Database)
}

func (r RabbitMQ) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/%s",
		r.User, r.Password, r.Host, r.Port, r.VHost)
}

// Load reads configuration from the environment, with a .env file as an
// optional local override.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DB: Postgres{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", "resto"),
			Password: getEnv("POSTGRES_PASSWORD", "resto"),
			Database: getEnv("POSTGRES_DB", "resto"),
		},
		RMQ: RabbitMQ{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnv("RABBITMQ_PORT", "5672"),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", ""),
		},
		Redis: Redis{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		ReviewServiceURL: getEnv("REVIEW_SERVICE_URL", "http://localhost:8090"),
		OrderServiceURL:  getEnv("ORDER_SERVICE_URL", "http://localhost:3000"),
		GatewayURL:       getEnv("GATEWAY_URL", "ws://localhost:3001/ws"),
	}

	var err error
	if cfg.OrderServicePort, err = getEnvInt("ORDER_SERVICE_PORT", 3000); err != nil {
		return nil, err
	}
	if cfg.GatewayPort, err = getEnvInt("GATEWAY_PORT", 3001); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	ratePerMinute, err := getEnvInt("CHECKOUT_RATE_PER_MINUTE", 60)
	if err != nil {
		return nil, err
	}
	cfg.CheckoutRatePerMinute = int64(ratePerMinute)

	if cfg.PollInterval, err = getEnvDuration("POLL_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReconnectBackoff, err = getEnvDuration("RECONNECT_BACKOFF", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.PingInterval, err = getEnvDuration("PING_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RatingPromptDelay, err = getEnvDuration("RATING_PROMPT_DELAY", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.StatusCacheTTL, err = getEnvDuration("STATUS_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
