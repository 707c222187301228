package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// AdvisoryLockRepository serializes work per key with Postgres session advisory locks.
type AdvisoryLockRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAdvisoryLockRepository creates a new advisory lock repository.
func NewAdvisoryLockRepository(db *sqlx.DB, logger *zap.Logger) *AdvisoryLockRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvisoryLockRepository{db: db, logger: logger}
}

// Lock blocks until the advisory lock for key is held on a dedicated connection.
// The returned release function unlocks and returns the connection to the pool.
func (r *AdvisoryLockRepository) Lock(ctx context.Context, key string) (func(), error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock(hashtext($1))`, key); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pg advisory lock %s: %w", key, err)
	}
	return func() {
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, key); err != nil {
			r.logger.Warn("advisory unlock failed", zap.String("key", key), zap.Error(err))
		}
		_ = conn.Close()
	}, nil
}
