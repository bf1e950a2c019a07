package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-blog-comments/pkg/log"
)

// TokenCache — минимальный контракт кэша верифицированных токенов.
// Это явный инжектируемый компонент с TTL-политикой, а не скрытое
// поле-кэш внутри верификатора.
type TokenCache interface {
	// Get возвращает user id и признак наличия записи.
	Get(ctx context.Context, token string) (string, bool, error)
	// Set сохраняет соответствие token -> user id с TTL.
	Set(ctx context.Context, token, userID string, ttl time.Duration) error
	// Close закрывает клиент кэша.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "auth:tk:".
func NewRedisCache(redisURL, prefix string) (TokenCache, error) {
	if prefix == "" {
		prefix = "auth:tk:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

// key — в Redis кладём хэш токена, а не сам токен.
func (c *redisCache) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *redisCache) Get(ctx context.Context, token string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, c.key(token)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return v, true, nil
}

func (c *redisCache) Set(ctx context.Context, token, userID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(token), userID, ttl).Err()
}

func (c *redisCache) Close() error { return c.rdb.Close() }

// CachedVerifier — декоратор над TokenVerifier с кэшом token -> user id.
// Кэшируются только успешные проверки: негативные исходы дёшевы и не
// должны переживать перелогин пользователя.
type CachedVerifier struct {
	inner TokenVerifier
	cache TokenCache
	ttl   time.Duration
}

// NewCachedVerifier оборачивает верификатор кэшом с заданным TTL.
func NewCachedVerifier(inner TokenVerifier, cache TokenCache, ttl time.Duration) *CachedVerifier {
	return &CachedVerifier{inner: inner, cache: cache, ttl: ttl}
}

// ResolveUserID — cache-aside: промах/ошибка кэша не валит проверку,
// только деградирует её до прямого вызова верификатора.
func (v *CachedVerifier) ResolveUserID(ctx context.Context, token string) (string, error) {
	const op = "auth/cache/ResolveUserID"

	if userID, ok, err := v.cache.Get(ctx, token); err == nil && ok {
		return userID, nil
	} else if err != nil {
		log.From(ctx).Warn("token cache get failed", "op", op, "err", err)
	}

	userID, err := v.inner.ResolveUserID(ctx, token)
	if err != nil {
		return "", err
	}

	if err := v.cache.Set(ctx, token, userID, v.ttl); err != nil {
		log.From(ctx).Warn("token cache set failed", "op", op, "err", err)
	}

	return userID, nil
}
