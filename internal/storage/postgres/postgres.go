// Package postgres stores finished battles in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/turnbattle/internal/config"
)

// ErrSchemaMissing is returned by CheckSchema when the journal tables have
// not been migrated.
var ErrSchemaMissing = errors.New("journal schema missing; run cmd/migrate")

// Pool owns the connection pool shared by the journal repository.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the database described by cfg and pings it.
//
// Precondition: cfg must pass config validation.
// Postcondition: Returns a live Pool or a non-nil error; nothing is left open on error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	pcfg.MaxConns = cfg.MaxConns
	pcfg.MinConns = cfg.MinConns
	pcfg.MaxConnLifetime = cfg.MaxConnLifetime

	db, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Pool{pool: db}, nil
}

// Health pings the database, giving up after timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// CheckSchema reports ErrSchemaMissing unless both journal tables exist.
func (p *Pool) CheckSchema(ctx context.Context) error {
	var battles, events *string
	err := p.pool.QueryRow(ctx,
		`SELECT to_regclass('battles')::text, to_regclass('battle_events')::text`,
	).Scan(&battles, &events)
	if err != nil {
		return fmt.Errorf("checking journal schema: %w", err)
	}
	if battles == nil || events == nil {
		return ErrSchemaMissing
	}
	return nil
}

// Close releases every connection.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB exposes the pgx pool to repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
