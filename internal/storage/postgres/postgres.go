// Package postgres stores alarms and trade attempts in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns        = 4
	defaultMaxConnIdleTime = 5 * time.Minute
	pingTimeout            = 5 * time.Second
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// PoolOption adjusts the parsed pool configuration.
type PoolOption func(*pgxpool.Config)

// WithMaxConns caps the pool size.
func WithMaxConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

// NewPool connects to dsn and pings the server. Unless overridden, the pool
// holds at most four connections; audit writes are sparse.
func NewPool(ctx context.Context, dsn string, opts ...PoolOption) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = min(cfg.MaxConns, defaultMaxConns)
	cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// uniqueViolation is the SQLSTATE of a unique constraint violation.
const uniqueViolation = "23505"

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
