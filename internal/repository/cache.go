package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certalert/internal/entity"
	"certalert/pkg/cache"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	_defaultCacheTTL = 5 * time.Minute
	_cacheKeyPrefix  = "certalert:directory"
)

// DirectoryReader is the lookup surface the cache sits in front of.
type DirectoryReader interface {
	GetWorker(ctx context.Context, id uuid.UUID) (*entity.Worker, error)
	GetCompany(ctx context.Context, id uuid.UUID) (*entity.Company, error)
	FindContactByRole(ctx context.Context, companyID uuid.UUID, role entity.Role) (*entity.Contact, error)
}

// CachedDirectory is a read-through Redis cache over worker, company and contact
// lookups. Redis failures degrade to the underlying reader.
type CachedDirectory struct {
	next DirectoryReader
	rdb  goredis.Cmdable
	ttl  time.Duration
	log  *zap.Logger
}

func NewCachedDirectory(next DirectoryReader, rdb goredis.Cmdable, ttl time.Duration, log *zap.Logger) *CachedDirectory {
	if ttl <= 0 {
		ttl = _defaultCacheTTL
	}
	return &CachedDirectory{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (d *CachedDirectory) GetWorker(ctx context.Context, id uuid.UUID) (*entity.Worker, error) {
	key := cache.Key(_cacheKeyPrefix, "worker", id)
	return readThrough(ctx, d, key, func() (*entity.Worker, error) {
		return d.next.GetWorker(ctx, id)
	})
}

func (d *CachedDirectory) GetCompany(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	key := cache.Key(_cacheKeyPrefix, "company", id)
	return readThrough(ctx, d, key, func() (*entity.Company, error) {
		return d.next.GetCompany(ctx, id)
	})
}

// FindContactByRole is not cached when no holder exists, so a newly added
// contact is picked up on the next lookup.
func (d *CachedDirectory) FindContactByRole(ctx context.Context, companyID uuid.UUID, role entity.Role) (*entity.Contact, error) {
	key := cache.Key(_cacheKeyPrefix, "contact", companyID, role)
	return readThrough(ctx, d, key, func() (*entity.Contact, error) {
		return d.next.FindContactByRole(ctx, companyID, role)
	})
}

func (d *CachedDirectory) Invalidate(ctx context.Context, keys ...string) error {
	const op = "repository.CachedDirectory.Invalidate"

	if len(keys) == 0 {
		return nil
	}
	if err := d.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func readThrough[T any](ctx context.Context, d *CachedDirectory, key string, load func() (*T, error)) (*T, error) {
	if v, ok := getCached[T](ctx, d, key); ok {
		return v, nil
	}

	v, err := load()
	if err != nil || v == nil {
		return v, err
	}

	saveCached(ctx, d, key, v)
	return v, nil
}

func getCached[T any](ctx context.Context, d *CachedDirectory, key string) (*T, bool) {
	raw, err := d.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			d.log.Warn("directory cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	v, err := cache.Deserialize[T](raw)
	if err != nil {
		d.log.Warn("directory cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return &v, true
}

func saveCached[T any](ctx context.Context, d *CachedDirectory, key string, v *T) {
	data, err := cache.Serialize(v)
	if err != nil {
		d.log.Warn("directory cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := d.rdb.Set(ctx, key, data, d.ttl).Err(); err != nil {
		d.log.Warn("directory cache write failed", zap.String("key", key), zap.Error(err))
	}
}
