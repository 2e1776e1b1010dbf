package db

import (
	"context"
	"fmt"

	"mon-resto/internal/mylogger"
	"mon-resto/internal/xpkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	pool  *pgxpool.Pool
	mylog mylogger.Logger
}

// Start opens a connection pool and verifies it with a ping.
func Start(ctx context.Context, cfg config.Postgres, mylog mylogger.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	mylog.Action("db_connected").Info("Successful database connection")
	return &DB{pool: pool, mylog: mylog}, nil
}

func (db *DB) GetPool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) IsAlive(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DB) Close() error {
	db.pool.Close()
	return nil
}
