package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisStore stores each key as a plain Redis string under prefix. It also
// implements kvstore.Locker so processes sharing one Redis serialize
// read-modify-write cycles on a key.
type RedisStore struct {
	client  *redis.Client
	locker  *redislock.Client
	prefix  string
	lockTTL time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, lockTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:  client,
		locker:  redislock.New(client),
		prefix:  prefix,
		lockTTL: lockTTL,
	}
}

// Dial connects to addr and verifies the connection with a PING.
func Dial(ctx context.Context, addr, prefix string, lockTTL time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisStore(client, prefix, lockTTL), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %q: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

// Lock obtains a lease on key, retrying for roughly five seconds. While held
// the lease is refreshed every half lockTTL, so a slow read-modify-write
// keeps it. If the holder dies the lease expires after lockTTL.
func (s *RedisStore) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := s.locker.Obtain(ctx, s.prefix+"lock:"+key, s.lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 100),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to lock key %q: %w", key, err)
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go s.keepAlive(lock, done, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
			// Release with a fresh context so a cancelled request still frees the lease.
			_ = lock.Release(context.Background())
		})
	}, nil
}

func (s *RedisStore) keepAlive(lock *redislock.Lock, done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	interval := s.lockTTL / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			// A failed refresh means the lease is gone; nothing left to extend.
			if err := lock.Refresh(context.Background(), s.lockTTL, nil); err != nil {
				return
			}
		}
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
