package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"casaluna/internal/xpkg/config"
)

var ErrNotConnected = errors.New("database pool is not connected")

// DB wraps the pgx connection pool shared by every repository.
type DB struct {
	pool *pgxpool.Pool
}

// Start opens a connection pool against the configured Postgres instance and
// verifies it with a ping.
func Start(ctx context.Context, dbCfg *config.Postgres) (*DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		dbCfg.User,
		dbCfg.Password,
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.Database,
	)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// FromPool wraps an existing pool; used by integration tests.
func FromPool(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) IsAlive() error {
	if db == nil || db.pool == nil {
		return ErrNotConnected
	}
	return nil
}

// Stop closes the pool.
func (db *DB) Stop() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}
