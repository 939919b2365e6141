package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Lease is one successful acquisition of a lock. Releasing it only undoes
// that acquisition, and only once.
type Lease struct {
	once    sync.Once
	release func(context.Context) error
}

// Release gives the lease back. Later calls are no-ops.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil {
		return nil
	}
	var err error
	l.once.Do(func() { err = l.release(ctx) })
	return err
}

// RedisLock is a single-holder lease on a Redis key (SET NX PX). Each
// acquisition writes a fresh token and its Lease carries that token, so an
// expired holder cannot release a lease that has since passed to another
// caller or replica.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLock builds a lock on key with the given lease time.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{client: client, key: key, ttl: ttl}
}

// TryLock attempts to take the lease without blocking. It returns nil when
// another holder has it.
func (l *RedisLock) TryLock(ctx context.Context) (*Lease, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lease{release: func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", l.key, err)
		}
		return nil
	}}, nil
}

// LocalLock is used without Redis; the process is the only sweeper.
type LocalLock struct {
	held chan struct{}
}

// NewLocalLock builds an in-process lock.
func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(chan struct{}, 1)}
}

// TryLock takes the lock if no other sweep in this process holds it.
func (l *LocalLock) TryLock(context.Context) (*Lease, error) {
	select {
	case l.held <- struct{}{}:
		return &Lease{release: func(context.Context) error {
			<-l.held
			return nil
		}}, nil
	default:
		return nil, nil
	}
}
