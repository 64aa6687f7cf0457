package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/models/ports"
	pg "db-cleanup/internal/pkg/postgres"
)

const (
	listConfigQuery = `
		SELECT config_name, config_value, COALESCE(description, '') AS description
		FROM cleanup_config
		ORDER BY config_id`

	updateConfigQuery = `
		UPDATE cleanup_config
		SET config_value = $1, last_updated = CURRENT_TIMESTAMP, updated_by = $2
		WHERE config_name = $3`
)

type configRepository struct {
	session *pg.Session
	logger  *zap.Logger
}

// NewConfigRepository создает репозиторий параметров очистки
func NewConfigRepository(session *pg.Session, logger *zap.Logger) ports.ConfigRepository {
	return &configRepository{
		session: session,
		logger:  logger,
	}
}

// List возвращает параметры в порядке их создания
func (r *configRepository) List(ctx context.Context) ([]entities.ConfigEntry, error) {
	var entries []entities.ConfigEntry

	err := r.session.With(ctx, func(db *sqlx.DB) error {
		return db.SelectContext(ctx, &entries, listConfigQuery)
	})
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}

	return entries, nil
}

// SaveAll обновляет все параметры в одной транзакции: либо все, либо ничего
func (r *configRepository) SaveAll(ctx context.Context, entries []entities.ConfigEntry, actor string) error {
	return r.session.With(ctx, func(db *sqlx.DB) (err error) {
		// Начинаем транзакцию с уровнем изоляции READ COMMITTED
		tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		defer func() {
			if err != nil {
				if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
					r.logger.Error("Failed to roll back config update", zap.Error(rbErr))
				}
			}
		}()

		stmt, err := tx.PreparexContext(ctx, updateConfigQuery)
		if err != nil {
			return fmt.Errorf("prepare config update: %w", err)
		}
		defer stmt.Close()

		for _, entry := range entries {
			res, execErr := stmt.ExecContext(ctx, entry.Value, actor, entry.Name)
			if execErr != nil {
				return fmt.Errorf("update config %s: %w", entry.Name, execErr)
			}

			// Пропавшая строка тоже ломает пакет целиком
			n, raErr := res.RowsAffected()
			if raErr != nil {
				return fmt.Errorf("update config %s: %w", entry.Name, raErr)
			}
			if n == 0 {
				return fmt.Errorf("update config %s: %w", entry.Name, entities.ErrUnknownConfig)
			}
		}

		// Завершаем транзакцию
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}

		r.logger.Info("Config saved",
			zap.Int("entries", len(entries)),
			zap.String("updated_by", actor))

		return nil
	})
}
