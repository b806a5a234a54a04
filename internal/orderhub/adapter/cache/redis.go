// Package cache is a read-through Redis cache for customer session lookups.
// Entries expire no later than the session itself, so a cache hit can never
// outlive the credential it fronts.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/logger"
)

const keyPrefix = "session:"

type SessionCache struct {
	rdb   *redis.Client
	mylog logger.Logger
}

func NewSessionCache(addr string, mylog logger.Logger) *SessionCache {
	return &SessionCache{
		rdb:   redis.NewClient(&redis.Options{Addr: addr}),
		mylog: mylog,
	}
}

func (c *SessionCache) Get(ctx context.Context, key string) (models.Session, bool) {
	data, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		return models.Session{}, false
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return models.Session{}, false
	}
	return s, true
}

func (c *SessionCache) Put(ctx context.Context, key string, session models.Session, ttl time.Duration) {
	remaining := time.Until(session.ExpiresAt)
	if remaining <= 0 {
		return
	}
	if ttl > remaining {
		ttl = remaining
	}

	data, err := json.Marshal(session)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		c.mylog.Action("session_cache_put_failed").Warn("failed to cache session", "session_id", session.SessionID)
	}
}

func (c *SessionCache) Delete(ctx context.Context, key string) {
	_ = c.rdb.Del(ctx, keyPrefix+key).Err()
}

func (c *SessionCache) Close() error { return c.rdb.Close() }
