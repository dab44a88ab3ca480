package database

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"go-rental-ledger/internal/config"
	"go-rental-ledger/internal/utils"
)

// ConnectRedis pings addr a few times before giving up.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	logg := config.GetLogger()
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			PoolSize: 100,
		})
		if err = rdb.Ping(ctx).Err(); err == nil {
			logg.WithField("addr", addr).Infof("connected to redis (attempt=%d)", attempt)
			return rdb, nil
		}
		_ = rdb.Close()
		logg.WithError(err).WithField("addr", addr).Warnf("failed to connect redis (attempt=%d)", attempt)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return nil, fmt.Errorf("connect redis %s: %w", addr, err)
}

// RedisLocker serialises bookings of the same rental item across server
// instances.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    30 * time.Second,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, "lock:"+key, l.ttl, &redislock.Options{
		RetryStrategy: l.retry,
		Metadata:      utils.InstanceID(),
	})
	if err == redislock.ErrNotObtained {
		return nil, fmt.Errorf("could not obtain lock %s: %w", key, err)
	} else if err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}
