package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
	fieldLocale       = "locale"
)

// RedisStore хранит состояние сессии в redis хэше charchat:session:<profile>.
// Используется, когда клиент работает как общий backend-for-frontend для нескольких процессов.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore создает хранилище поверх готового клиента redis.
func NewRedisStore(client *redis.Client, profile string) *RedisStore {
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{client: client, key: "charchat:session:" + profile}
}

// NewRedisStoreFromURL разбирает redis:// URL и проверяет соединение.
func NewRedisStoreFromURL(ctx context.Context, redisURL, profile string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStore(client, profile), nil
}

func (s *RedisStore) Load(ctx context.Context) (State, error) {
	vals, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return State{}, fmt.Errorf("failed to load session from redis: %w", err)
	}
	return State{
		AccessToken:  vals[fieldAccessToken],
		RefreshToken: vals[fieldRefreshToken],
		Locale:       vals[fieldLocale],
	}, nil
}

func (s *RedisStore) Save(ctx context.Context, st State) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	values := map[string]any{}
	if st.AccessToken != "" {
		values[fieldAccessToken] = st.AccessToken
	}
	if st.RefreshToken != "" {
		values[fieldRefreshToken] = st.RefreshToken
	}
	if st.Locale != "" {
		values[fieldLocale] = st.Locale
	}
	if len(values) > 0 {
		pipe.HSet(ctx, s.key, values)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) AccessToken(ctx context.Context) (string, error) {
	token, err := s.client.HGet(ctx, s.key, fieldAccessToken).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read access token from redis: %w", err)
	}
	return token, nil
}

func (s *RedisStore) ClearTokens(ctx context.Context) error {
	if err := s.client.HDel(ctx, s.key, fieldAccessToken, fieldRefreshToken).Err(); err != nil {
		return fmt.Errorf("failed to clear tokens in redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Locale(ctx context.Context) string {
	locale, err := s.client.HGet(ctx, s.key, fieldLocale).Result()
	if err != nil {
		return ""
	}
	return locale
}

// Close закрывает клиент redis.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
