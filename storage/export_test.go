package storage

import "github.com/jackc/pgx/v5/pgxpool"

// GetPool exposes the pool so tests can seed rows directly.
func (pgr *PostgresRepo) GetPool() *pgxpool.Pool {
	return pgr.pool
}
