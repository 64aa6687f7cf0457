package postgres

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// withAdvisoryLock выполняет fn под сессионной advisory-блокировкой.
// Другой экземпляр сервиса с той же базой получит отказ, а не очередь.
func withAdvisoryLock(ctx context.Context, db *sqlx.DB, name string, logger *zap.Logger, fn func() error) error {
	lockID := generateLockID(name)

	var acquired bool
	if err := db.GetContext(ctx, &acquired, "SELECT pg_try_advisory_lock($1)", lockID); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	if !acquired {
		return fmt.Errorf("another process is already running %s", name)
	}

	defer func() {
		var released bool
		// Снимаем блокировку даже при отмененном контексте
		if err := db.Get(&released, "SELECT pg_advisory_unlock($1)", lockID); err != nil {
			logger.Error("Failed to release advisory lock",
				zap.String("lock", name),
				zap.Int64("lock_id", lockID),
				zap.Error(err))
		}
	}()

	return fn()
}

// generateLockID генерирует уникальный ID для advisory lock
func generateLockID(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}
