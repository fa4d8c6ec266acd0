// Package lock provides a Redis lock so that only one bot replica runs a
// scheduler tick at a time.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLocked = errors.New("lock is held by another instance")

// release deletes the key only if it still holds our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLock(redisAddr string, ttl time.Duration) (*RedisLock, error) {
	const op = "lock.NewRedisLock"

	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisLock{client: client, ttl: ttl}, nil
}

// Lock implements gocron.Locker.
func (r *RedisLock) Lock(ctx context.Context, key string) (gocron.Lock, error) {
	const op = "lock.RedisLock.Lock"

	lockKey := fmt.Sprintf("lock:%s", key)
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrLocked)
	}

	return &redisLease{client: r.client, key: lockKey, token: token}, nil
}

func (r *RedisLock) Close() error {
	return r.client.Close()
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
}

func (l *redisLease) Unlock(ctx context.Context) error {
	const op = "lock.redisLease.Unlock"

	if err := release.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
