package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	_defaultMaxPoolSize     = 10
	_defaultConnAttempts    = 5
	_defaultBaseRetryDelay  = 500 * time.Millisecond
	_defaultMaxRetryDelay   = 10 * time.Second
	_uniqueViolationSQLCode = "23505"
)

// QueryExecuter is satisfied by both the pool and an open transaction.
type QueryExecuter interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Postgres struct {
	Pool    *pgxpool.Pool
	Builder squirrel.StatementBuilderType

	maxPoolSize    int32
	connAttempts   int
	baseRetryDelay time.Duration
	maxRetryDelay  time.Duration
}

type txKey struct{}

func New(ctx context.Context, dsn string, log *zap.Logger, opts ...Option) (*Postgres, error) {
	const op = "postgres.New"

	pg := &Postgres{
		Builder:        squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		maxPoolSize:    _defaultMaxPoolSize,
		connAttempts:   _defaultConnAttempts,
		baseRetryDelay: _defaultBaseRetryDelay,
		maxRetryDelay:  _defaultMaxRetryDelay,
	}
	for _, opt := range opts {
		opt(pg)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: parse dsn: %w", op, err)
	}
	poolCfg.MaxConns = pg.maxPoolSize

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = pg.baseRetryDelay
	eb.MaxInterval = pg.maxRetryDelay
	eb.MaxElapsedTime = 0

	attempt := 0
	connect := func() error {
		attempt++
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			log.Warn("postgres not ready",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		pg.Pool = pool
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(eb, uint64(max(pg.connAttempts-1, 0))),
		ctx,
	)
	if err := backoff.Retry(connect, policy); err != nil {
		return nil, fmt.Errorf("%s: connect after %d attempts: %w", op, attempt, err)
	}

	log.Info("postgres connected",
		zap.String("op", op),
		zap.Int32("max_pool_size", pg.maxPoolSize),
	)

	return pg, nil
}

// Executor returns the transaction bound to ctx, or the pool.
func (p *Postgres) Executor(ctx context.Context) QueryExecuter {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return p.Pool
}

// WithinTx runs fn inside one transaction; repositories called with the derived ctx join it.
func (p *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	const op = "postgres.WithinTx"

	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%s: rollback: %w (original: %w)", op, rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

func (p *Postgres) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == _uniqueViolationSQLCode
}
