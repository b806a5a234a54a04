package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/logger"
)

func testCache(t *testing.T) (*SessionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewSessionCache(mr.Addr(), logger.NewNop())
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func testSession(expiresIn time.Duration) models.Session {
	return models.Session{
		SessionID:    "s1",
		RestaurantID: "r1",
		TableID:      "t1",
		CreatedAt:    time.Now().UTC(),
		ExpiresAt:    time.Now().UTC().Add(expiresIn),
	}
}

func TestPutAndGet(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	c.Put(ctx, "hash1", testSession(time.Hour), 30*time.Second)

	got, ok := c.Get(ctx, "hash1")
	require.True(t, ok)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "t1", got.TableID)
}

func TestMissAfterDelete(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	c.Put(ctx, "hash1", testSession(time.Hour), 30*time.Second)
	c.Delete(ctx, "hash1")

	_, ok := c.Get(ctx, "hash1")
	assert.False(t, ok)
}

func TestTTLNeverExtendsSessionExpiry(t *testing.T) {
	c, mr := testCache(t)
	ctx := context.Background()

	// Session expires in 5s; a 30s cache TTL must be capped at 5s.
	c.Put(ctx, "hash1", testSession(5*time.Second), 30*time.Second)

	ttl := mr.TTL(keyPrefix + "hash1")
	assert.LessOrEqual(t, ttl, 5*time.Second)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestExpiredSessionNotCached(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	c.Put(ctx, "hash1", testSession(-time.Minute), 30*time.Second)

	_, ok := c.Get(ctx, "hash1")
	assert.False(t, ok)
}
