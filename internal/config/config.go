package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config содержит всю конфигурацию клиента.
type Config struct {
	API           APIConfig           `yaml:"api"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Session       SessionConfig       `yaml:"session"`
	Log           LogConfig           `yaml:"log"`
	PushBridge    PushBridgeConfig    `yaml:"push_bridge"`
}

// APIConfig - адрес REST API и socket канала.
type APIConfig struct {
	BaseURL   string `yaml:"base_url" env:"CHARCHAT_API_URL" env-default:"http://localhost:8090"`
	SocketURL string `yaml:"socket_url" env:"CHARCHAT_SOCKET_URL"` // Если пусто, выводится из BaseURL
	// Timeout 0 означает отсутствие явного таймаута (используется поведение http.Client по умолчанию)
	Timeout time.Duration `yaml:"timeout" env:"CHARCHAT_API_TIMEOUT" env-default:"0s"`
}

// NotificationsConfig - параметры переподключения канала уведомлений.
type NotificationsConfig struct {
	ReconnectAttempts int           `yaml:"reconnect_attempts" env:"CHARCHAT_WS_RECONNECT_ATTEMPTS" env-default:"5"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay" env:"CHARCHAT_WS_RECONNECT_DELAY" env-default:"1s"`
	AckTimeout        time.Duration `yaml:"ack_timeout" env:"CHARCHAT_WS_ACK_TIMEOUT" env-default:"5s"`
}

// SessionConfig - где хранится токен и локаль.
type SessionConfig struct {
	Dir      string `yaml:"dir" env:"CHARCHAT_HOME"`                                   // По умолчанию ~/.charchat
	Backend  string `yaml:"backend" env:"CHARCHAT_SESSION_BACKEND" env-default:"file"` // file | redis
	RedisURL string `yaml:"redis_url" env:"CHARCHAT_REDIS_URL"`
	Profile  string `yaml:"profile" env:"CHARCHAT_PROFILE" env-default:"default"`
}

// LogConfig - настройки zap логгера.
type LogConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"warn"`
	Encoding   string `yaml:"encoding" env:"LOG_ENCODING" env-default:"console"`
	OutputPath string `yaml:"output_path" env:"LOG_OUTPUT"`
}

// PushBridgeConfig - пересылка уведомлений в RabbitMQ (опционально).
type PushBridgeConfig struct {
	AMQPURL  string `yaml:"amqp_url" env:"CHARCHAT_AMQP_URL"`
	Exchange string `yaml:"exchange" env:"CHARCHAT_AMQP_EXCHANGE" env-default:"charchat_notifications"`
}

// DefaultPath возвращает путь к файлу конфигурации: $CHARCHAT_CONFIG или ~/.charchat/config.yml.
func DefaultPath() string {
	if p := os.Getenv("CHARCHAT_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yml"
	}
	return filepath.Join(home, ".charchat", "config.yml")
}

// Load загружает конфигурацию: .env (если есть), затем YAML файл, затем переменные окружения.
// Если файл не найден, конфигурация читается только из окружения.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("ошибка чтения файла конфигурации '%s': %w", path, err)
			}
			return finalize(&cfg)
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	return finalize(&cfg)
}

func finalize(cfg *Config) (*Config, error) {
	cfg.API.BaseURL = strings.TrimSuffix(cfg.API.BaseURL, "/")
	if _, err := url.ParseRequestURI(cfg.API.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid api base URL: %w", err)
	}
	if cfg.Notifications.ReconnectAttempts < 0 {
		return nil, errors.New("reconnect_attempts must not be negative")
	}
	if cfg.Session.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfg.Session.Dir = filepath.Join(home, ".charchat")
	}
	switch cfg.Session.Backend {
	case "file":
	case "redis":
		if cfg.Session.RedisURL == "" {
			return nil, errors.New("redis session backend requires CHARCHAT_REDIS_URL")
		}
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
	return cfg, nil
}

// WebSocketURL возвращает адрес канала уведомлений.
// По умолчанию схема http(s) заменяется на ws(s), путь - /notifications.
func (c APIConfig) WebSocketURL() string {
	if c.SocketURL != "" {
		return c.SocketURL
	}
	base := c.BaseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return strings.TrimSuffix(base, "/") + "/notifications"
}
