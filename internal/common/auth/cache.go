package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"ethoscore/internal/common/logger"
	"ethoscore/internal/models"

	"github.com/redis/go-redis/v9"
)

const identityKeyPrefix = "identity:"

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// CachedAuthenticator keeps token lookups in redis for ttl. The cache is
// best effort: redis failures fall through to the wrapped authenticator.
type CachedAuthenticator struct {
	next   Authenticator
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedAuthenticator(next Authenticator, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedAuthenticator {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedAuthenticator{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "identity-cache"}),
	}
}

// IdentityCacheKey is the redis key of a token; the raw token is never
// stored.
func IdentityCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return identityKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachedAuthenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	key := IdentityCacheKey(token)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var user models.User
		if jsonErr := json.Unmarshal([]byte(val), &user); jsonErr == nil && user.ID != "" {
			return &user, nil
		}
		c.logger.Warn("discarding unreadable identity cache entry", nil)
	case err != redis.Nil:
		c.logger.Warn("identity cache read failed", map[string]interface{}{"error": err})
	}

	user, err := c.next.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(user)
	if err == nil {
		if setErr := c.redis.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			c.logger.Warn("identity cache write failed", map[string]interface{}{"error": setErr})
		}
	}
	return user, nil
}

// Invalidate drops a token from the cache, e.g. on sign out.
func (c *CachedAuthenticator) Invalidate(ctx context.Context, token string) error {
	return c.redis.Del(ctx, IdentityCacheKey(token)).Err()
}
