package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const (
	_defaultPoolSize    = 20
	_defaultMinIdleCons = 5
	_defaultPoolTimeout = time.Second
)

// Redis owns a go-redis client configured from functional options.
type Redis struct {
	*goredis.Client

	addr        string
	password    string
	db          int
	poolSize    int
	minIdleCons int
	poolTimeout time.Duration
}

func New(ctx context.Context, addr, password string, opts ...Option) (*Redis, error) {
	const op = "redis.New"

	r := &Redis{
		addr:        addr,
		password:    password,
		poolSize:    _defaultPoolSize,
		minIdleCons: _defaultMinIdleCons,
		poolTimeout: _defaultPoolTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r.Client = goredis.NewClient(&goredis.Options{
		Addr:         r.addr,
		Password:     r.password,
		DB:           r.db,
		PoolSize:     r.poolSize,
		MinIdleConns: r.minIdleCons,
		PoolTimeout:  r.poolTimeout,
	})

	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Client.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return r, nil
}
