package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultDialTimeout = 5 * time.Second

// RedisConfig configures the session store connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (goredis.UniversalClient, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:        []string{cfg.Addr},
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultDialTimeout,
		WriteTimeout: defaultDialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisStore keeps users and sessions in Redis. Sessions expire with their
// key TTL.
type RedisStore struct {
	client goredis.UniversalClient
	prefix string
}

// NewRedisStore creates a store whose keys start with prefix.
func NewRedisStore(client goredis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ragchat"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) keyUser(email string) string {
	return fmt.Sprintf("%s:users:%s", r.prefix, email)
}

func (r *RedisStore) keySession(token string) string {
	return fmt.Sprintf("%s:sessions:%s", r.prefix, token)
}

// GetUser returns the user registered under email, or nil.
func (r *RedisStore) GetUser(ctx context.Context, email string) (*User, error) {
	var u User
	found, err := r.get(ctx, r.keyUser(email), &u)
	if err != nil || !found {
		return nil, err
	}
	return &u, nil
}

// CreateUser stores u unless its email is taken.
func (r *RedisStore) CreateUser(ctx context.Context, u User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	ok, err := r.client.SetNX(ctx, r.keyUser(u.Email), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if !ok {
		return ErrUserExists
	}
	return nil
}

// PutSession stores s for ttl.
func (r *RedisStore) PutSession(ctx context.Context, s Session, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.keySession(s.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// GetSession returns the session for token, or nil.
func (r *RedisStore) GetSession(ctx context.Context, token string) (*Session, error) {
	var s Session
	found, err := r.get(ctx, r.keySession(token), &s)
	if err != nil || !found {
		return nil, err
	}
	return &s, nil
}

func (r *RedisStore) get(ctx context.Context, key string, v any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}
