package repository

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisPrefix = "portal:session:"
	DefaultRedisTTL    = 24 * time.Hour
)

var _ portal.TokenStore = &RedisTokenStore{}

// RedisTokenStore keeps the session token under a redis key. Tokens with
// an exp claim expire with the key; other tokens use the default TTL.
type RedisTokenStore struct {
	client    redis.Cmdable
	prefix    string
	key       string
	ttl       time.Duration
	validator *portal.TokenValidator
}

// NewRedisTokenStore creates a store bound to key
func NewRedisTokenStore(client redis.Cmdable, key string) *RedisTokenStore {
	if key == "" {
		key = DefaultSessionKey
	}
	return &RedisTokenStore{
		client:    client,
		prefix:    DefaultRedisPrefix,
		key:       key,
		ttl:       DefaultRedisTTL,
		validator: portal.NewTokenValidator(),
	}
}

func (s *RedisTokenStore) WithPrefix(prefix string) *RedisTokenStore {
	s.prefix = prefix
	return s
}

func (s *RedisTokenStore) WithTTL(ttl time.Duration) *RedisTokenStore {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

func (s *RedisTokenStore) WithValidator(v *portal.TokenValidator) *RedisTokenStore {
	if v != nil {
		s.validator = v
	}
	return s
}

// Key returns the redis key holding the token
func (s *RedisTokenStore) Key() string {
	return s.prefix + s.key
}

func (s *RedisTokenStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.Key()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read session token")
	}
	return token, nil
}

func (s *RedisTokenStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.ClearToken(ctx)
	}

	ttl := s.ttlFor(token)
	if ttl <= 0 {
		// already expired
		return s.ClearToken(ctx)
	}

	if err := s.client.Set(ctx, s.Key(), token, ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store session token")
	}
	return nil
}

func (s *RedisTokenStore) ClearToken(ctx context.Context) error {
	if err := s.client.Del(ctx, s.Key()).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear session token")
	}
	return nil
}

func (s *RedisTokenStore) ttlFor(token string) time.Duration {
	info := s.validator.Inspect(token)
	if info.ExpiresAt == nil {
		return s.ttl
	}
	return time.Until(*info.ExpiresAt)
}
