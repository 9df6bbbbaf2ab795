package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return NewRedisCache(client), mr, cleanup
}

func TestGet_Success(t *testing.T) {
	c, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	owner := "buyer@example.com"

	cart := &domain.Cart{
		OwnerID: owner,
		Lines: []domain.CartLine{
			{ProductID: 1, Quantity: 2, UnitPrice: 50_000},
			{ProductID: 2, Quantity: 3, UnitPrice: 10_000},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	cartJSON, _ := json.Marshal(cart)
	mr.Set(cacheKey(owner), string(cartJSON))

	result, err := c.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, owner, result.OwnerID)
	assert.Len(t, result.Lines, 2)
	assert.Equal(t, int64(1), result.Lines[0].ProductID)
}

func TestGet_CacheMiss(t *testing.T) {
	c, _, cleanup := setupTestRedis(t)
	defer cleanup()

	result, err := c.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_InvalidJSON(t *testing.T) {
	c, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Set(cacheKey("broken"), "{not json")

	result, err := c.Get(context.Background(), "broken")
	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestSet_ThenGet(t *testing.T) {
	c, _, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	owner := "buyer@example.com"
	cart := &domain.Cart{
		OwnerID: owner,
		Lines:   []domain.CartLine{{ProductID: 7, Quantity: 1, UnitPrice: 120_000}},
	}

	require.NoError(t, c.Set(ctx, owner, cart))

	result, err := c.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Lines[0].ProductID)
}

func TestDelete(t *testing.T) {
	c, _, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	owner := "buyer@example.com"
	require.NoError(t, c.Set(ctx, owner, &domain.Cart{OwnerID: owner}))
	require.NoError(t, c.Delete(ctx, owner))

	_, err := c.Get(ctx, owner)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete_MissingKeyIsNoop(t *testing.T) {
	c, _, cleanup := setupTestRedis(t)
	defer cleanup()

	assert.NoError(t, c.Delete(context.Background(), "never-set"))
}
