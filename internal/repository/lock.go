package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certalert/internal/entity"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock guarantees a single orchestrator run at a time across instances.
type RunLock struct {
	rdb redisLockClient
	key string
	ttl time.Duration
}

type redisLockClient interface {
	goredis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
}

func NewRunLock(rdb redisLockClient, key string, ttl time.Duration) *RunLock {
	return &RunLock{rdb: rdb, key: key, ttl: ttl}
}

// Acquire takes the lock and returns the function that releases it.
// When another holder owns the lock it returns entity.ErrRunInProgress.
func (l *RunLock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	const op = "repository.RunLock.Acquire"

	token := uuid.NewString()

	acquired, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, entity.ErrStoreUnavailable, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrRunInProgress)
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
			return fmt.Errorf("repository.RunLock.Release: %w", err)
		}
		return nil
	}

	return release, nil
}
