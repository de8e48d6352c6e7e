package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bbkanego/seerbot/internal/adapters/redis"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionStore_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunSessionStoreContract(t, redis.NewSessionStore(client))
}

func TestSessionStore_TTL(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()
	store := redis.NewSessionStore(client, redis.WithTTL(time.Second), redis.WithPrefix("test:"))

	require.NoError(t, store.Save(ctx, "s1", domain.SessionSnapshot{SessionID: "s1", AuthCode: "abc"}))
	assert.True(t, mr.Exists("test:s1"))
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	mr.FastForward(2 * time.Second)
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionStore_Delete(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()
	store := redis.NewSessionStore(client)

	require.NoError(t, store.Save(ctx, "s1", domain.SessionSnapshot{SessionID: "s1"}))
	require.NoError(t, store.Delete(ctx, "s1"))
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := redis.NewClient("http://nope")
	assert.Error(t, err)
}
