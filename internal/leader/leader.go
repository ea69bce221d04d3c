// Package leader answers whether this replica should run singleton batch jobs.
package leader

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Elector reports leadership. Leadership is advisory and may change between calls.
type Elector interface {
	IsLeader(ctx context.Context) bool
}

// Static is an elector with fixed leadership, for single replica runs and tests.
type Static struct {
	leader atomic.Bool
}

// NewStatic returns an elector that answers leader.
func NewStatic(leader bool) *Static {
	s := &Static{}
	s.leader.Store(leader)
	return s
}

// IsLeader returns the configured value.
func (s *Static) IsLeader(context.Context) bool {
	return s.leader.Load()
}

// Set changes the answer.
func (s *Static) Set(leader bool) {
	s.leader.Store(leader)
}

var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisElector holds a lease under a shared key. The replica that set the key is leader
// until the lease expires without renewal.
type RedisElector struct {
	client redis.UniversalClient
	key    string
	id     string
	ttl    time.Duration
	logger *zap.Logger
	held   atomic.Bool
}

// NewRedisElector constructs an elector with a random replica id.
func NewRedisElector(client redis.UniversalClient, key string, ttl time.Duration, logger *zap.Logger) (*RedisElector, error) {
	if client == nil {
		return nil, errors.New("leader: nil redis client")
	}
	if key == "" {
		return nil, errors.New("leader: key is required")
	}
	if ttl <= 0 {
		return nil, errors.New("leader: ttl must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisElector{client: client, key: key, id: uuid.NewString(), ttl: ttl, logger: logger}, nil
}

// ID returns the replica id written to the lease.
func (e *RedisElector) ID() string {
	return e.id
}

// IsLeader acquires or renews the lease. Redis errors count as not leader.
func (e *RedisElector) IsLeader(ctx context.Context) bool {
	acquired, err := e.client.SetNX(ctx, e.key, e.id, e.ttl).Result()
	if err != nil {
		e.lost("leader lease attempt failed", err)
		return false
	}
	if acquired {
		if !e.held.Swap(true) {
			e.logger.Info("leader lease acquired", zap.String("key", e.key), zap.String("replica_id", e.id))
		}
		return true
	}
	renewed, err := renewScript.Run(ctx, e.client, []string{e.key}, e.id, e.ttl.Milliseconds()).Int()
	if err != nil {
		e.lost("leader lease renewal failed", err)
		return false
	}
	if renewed != 1 {
		e.lost("leader lease held by another replica", nil)
		return false
	}
	e.held.Store(true)
	return true
}

// Resign releases the lease if this replica holds it.
func (e *RedisElector) Resign(ctx context.Context) error {
	if err := releaseScript.Run(ctx, e.client, []string{e.key}, e.id).Err(); err != nil {
		return err
	}
	e.held.Store(false)
	return nil
}

func (e *RedisElector) lost(msg string, err error) {
	if !e.held.Swap(false) {
		if err != nil {
			e.logger.Debug(msg, zap.String("key", e.key), zap.Error(err))
		}
		return
	}
	fields := []zap.Field{zap.String("key", e.key), zap.String("replica_id", e.id)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	e.logger.Warn(msg, fields...)
}
