package devserver

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"
)

// Config содержит конфигурацию локального сервера разработки.
type Config struct {
	Port           string        `envconfig:"DEVSERVER_PORT" default:"8090"`
	Env            string        `envconfig:"DEVSERVER_ENV" default:"development"`
	JWTSecret      string        `envconfig:"DEVSERVER_JWT_SECRET" default:"dev-secret-change-me"`
	AccessTTL      time.Duration `envconfig:"DEVSERVER_ACCESS_TTL" default:"15m"`
	RefreshTTL     time.Duration `envconfig:"DEVSERVER_REFRESH_TTL" default:"720h"`
	AllowedOrigins string        `envconfig:"DEVSERVER_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	StarterTokens  int64         `envconfig:"DEVSERVER_STARTER_TOKENS" default:"100"`
	ChatTurnCost   int64         `envconfig:"DEVSERVER_CHAT_TURN_COST" default:"5"`
	MetricsEnabled bool          `envconfig:"DEVSERVER_METRICS_ENABLED" default:"true"`
	LogLevel       string        `envconfig:"DEVSERVER_LOG_LEVEL" default:"info"`
	SeedCatalog    bool          `envconfig:"DEVSERVER_SEED" default:"true"`
	BcryptCost     int           `envconfig:"DEVSERVER_BCRYPT_COST" default:"10"`

	// Если ключ задан, ответы персонажей генерирует OpenAI-совместимый API.
	AIAPIKey  string `envconfig:"DEVSERVER_AI_API_KEY"`
	AIBaseURL string `envconfig:"DEVSERVER_AI_BASE_URL"`
	AIModel   string `envconfig:"DEVSERVER_AI_MODEL" default:"gpt-4o-mini"`
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации devserver: %w", err)
	}
	return &cfg, nil
}

// GetAllowedOrigins возвращает список origin для CORS.
func (c *Config) GetAllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.JWTSecret == "" {
		c.JWTSecret = "dev-secret-change-me"
	}
	if c.AccessTTL <= 0 {
		c.AccessTTL = 15 * time.Minute
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.ChatTurnCost <= 0 {
		c.ChatTurnCost = 5
	}
	if c.BcryptCost < bcrypt.MinCost {
		c.BcryptCost = bcrypt.MinCost
	}
	if c.AIModel == "" {
		c.AIModel = "gpt-4o-mini"
	}
}
