package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OAuth    OAuthConfig
	FUB      FUBConfig
	Backend  BackendConfig
	Site     SiteConfig
	Worker   WorkerConfig
	Queue    QueueConfig
	Mail     MailConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	// RedirectURL points at the shared proxy that relays tokens back,
	// not at this site.
	RedirectURL string
}

type FUBConfig struct {
	BaseURL string
}

type BackendConfig struct {
	BaseURL string
	APIKey  string
}

type SiteConfig struct {
	Domain          string
	SubmissionToken string
	AdminToken      string
}

type WorkerConfig struct {
	Interval time.Duration
}

type QueueConfig struct {
	Enabled bool
	User    string
	Pass    string
	Host    string
	Port    string
}

type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Operator string
}

func LoadAll() (*Config, error) {
	var missing []string
	req := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}
	mailCfg, err := loadMailConfig()
	if err != nil {
		return nil, err
	}
	intervalSeconds, err := getEnvInt("RETRY_INTERVAL_SECONDS", 900)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			PostgresURL: req("DATABASE_URL"),
		},
		Redis: redisCfg,
		OAuth: OAuthConfig{
			ClientID:     req("FUB_OAUTH_CLIENT_ID"),
			ClientSecret: req("FUB_OAUTH_CLIENT_SECRET"),
			AuthorizeURL: getEnv("FUB_OAUTH_AUTHORIZE_URL", "https://app.followupboss.com/oauth/authorize"),
			TokenURL:     getEnv("FUB_OAUTH_TOKEN_URL", "https://app.followupboss.com/oauth/token"),
			RedirectURL:  req("FUB_OAUTH_REDIRECT_URL"),
		},
		FUB: FUBConfig{
			BaseURL: getEnv("FUB_API_URL", "https://api.followupboss.com"),
		},
		Backend: BackendConfig{
			BaseURL: req("BACKEND_URL"),
			APIKey:  req("BACKEND_API_KEY"),
		},
		Site: SiteConfig{
			Domain:          req("SITE_DOMAIN"),
			SubmissionToken: req("SUBMISSION_TOKEN"),
			AdminToken:      req("ADMIN_TOKEN"),
		},
		Worker: WorkerConfig{
			Interval: time.Duration(intervalSeconds) * time.Second,
		},
		Queue: loadQueueConfig(),
		Mail:  mailCfg,
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}
	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}
	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func loadQueueConfig() QueueConfig {
	host := os.Getenv("RABBITMQ_HOST")
	if host == "" {
		return QueueConfig{Enabled: false}
	}
	return QueueConfig{
		Enabled: true,
		User:    getEnv("RABBITMQ_USER", "guest"),
		Pass:    getEnv("RABBITMQ_PASS", "guest"),
		Host:    host,
		Port:    getEnv("RABBITMQ_PORT", "5672"),
	}
}

func loadMailConfig() (MailConfig, error) {
	host := os.Getenv("MAIL_HOST")
	if host == "" {
		return MailConfig{Enabled: false}, nil
	}
	port, err := getEnvInt("MAIL_PORT", 587)
	if err != nil {
		return MailConfig{}, err
	}
	return MailConfig{
		Enabled:  true,
		Host:     host,
		Port:     port,
		User:     os.Getenv("MAIL_USER"),
		Password: os.Getenv("MAIL_PASS"),
		From:     getEnv("MAIL_FROM", "no-reply@"+os.Getenv("SITE_DOMAIN")),
		Operator: os.Getenv("MAIL_OPERATOR"),
	}, nil
}

func validate(cfg *Config) error {
	if cfg.Worker.Interval <= 0 {
		return errors.New("RETRY_INTERVAL_SECONDS must be > 0")
	}
	if cfg.Mail.Enabled && !cfg.Queue.Enabled {
		return errors.New("MAIL_HOST requires RABBITMQ_HOST: alerts flow through the queue")
	}
	if cfg.Mail.Enabled && cfg.Mail.Operator == "" {
		return errors.New("MAIL_OPERATOR is required when MAIL_HOST is set")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}
