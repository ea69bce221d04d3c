package leader

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	s := NewStatic(false)
	assert.False(t, s.IsLeader(context.Background()))
	s.Set(true)
	assert.True(t, s.IsLeader(context.Background()))
}

func TestNewRedisElectorValidates(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })

	_, err := NewRedisElector(nil, "k", time.Second, nil)
	assert.Error(t, err)
	_, err = NewRedisElector(client, "", time.Second, nil)
	assert.Error(t, err)
	_, err = NewRedisElector(client, "k", 0, nil)
	assert.Error(t, err)
}

func TestRedisElectorUnavailableIsNotLeader(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	e, err := NewRedisElector(client, "utbetaling:leader:test", time.Second, nil)
	require.NoError(t, err)

	assert.False(t, e.IsLeader(context.Background()))
}

func TestRedisElectorSingleLeader(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()
	key := "utbetaling:leader:test:" + time.Now().Format("150405.000000")
	t.Cleanup(func() { _ = client.Del(ctx, key).Err() })

	a, err := NewRedisElector(client, key, 2*time.Second, nil)
	require.NoError(t, err)
	b, err := NewRedisElector(client, key, 2*time.Second, nil)
	require.NoError(t, err)

	require.True(t, a.IsLeader(ctx))
	assert.False(t, b.IsLeader(ctx))
	assert.True(t, a.IsLeader(ctx), "renewal keeps the lease")

	require.NoError(t, a.Resign(ctx))
	assert.True(t, b.IsLeader(ctx))
	assert.False(t, a.IsLeader(ctx))
}
