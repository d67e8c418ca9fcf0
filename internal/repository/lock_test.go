package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"certalert/internal/entity"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLockRedis emulates SETNX and the compare-and-delete release script.
type fakeLockRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failAll error
}

func newFakeLockRedis() *fakeLockRedis {
	return &fakeLockRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeLockRedis) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) *goredis.BoolCmd {
	if f.failAll != nil {
		return goredis.NewBoolResult(false, f.failAll)
	}
	if _, ok := f.data[key]; ok {
		return goredis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeLockRedis) compareAndDelete(keys []string, args []interface{}) *goredis.Cmd {
	if f.data[keys[0]] == args[0] {
		delete(f.data, keys[0])
		return goredis.NewCmdResult(int64(1), nil)
	}
	return goredis.NewCmdResult(int64(0), nil)
}

func (f *fakeLockRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *goredis.Cmd {
	return f.compareAndDelete(keys, args)
}

func (f *fakeLockRedis) EvalSha(_ context.Context, _ string, keys []string, args ...interface{}) *goredis.Cmd {
	return f.compareAndDelete(keys, args)
}

func (f *fakeLockRedis) ScriptExists(_ context.Context, hashes ...string) *goredis.BoolSliceCmd {
	return goredis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeLockRedis) ScriptLoad(context.Context, string) *goredis.StringCmd {
	return goredis.NewStringResult("", nil)
}

func TestRunLock(t *testing.T) {
	rdb := newFakeLockRedis()
	first := NewRunLock(rdb, "certalert:run", time.Hour)
	second := NewRunLock(rdb, "certalert:run", time.Hour)

	release, err := first.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Hour, rdb.ttls["certalert:run"])

	_, err = second.Acquire(context.Background())
	assert.ErrorIs(t, err, entity.ErrRunInProgress)

	require.NoError(t, release(context.Background()))
	assert.Empty(t, rdb.data)

	releaseSecond, err := second.Acquire(context.Background())
	require.NoError(t, err)

	// A stale release from the first holder must not drop the second holder's lock.
	require.NoError(t, release(context.Background()))
	assert.Contains(t, rdb.data, "certalert:run")
	require.NoError(t, releaseSecond(context.Background()))
}

func TestRunLock_RedisDown(t *testing.T) {
	rdb := newFakeLockRedis()
	rdb.failAll = errors.New("connection refused")

	_, err := NewRunLock(rdb, "certalert:run", time.Hour).Acquire(context.Background())
	assert.ErrorIs(t, err, entity.ErrStoreUnavailable)
}
