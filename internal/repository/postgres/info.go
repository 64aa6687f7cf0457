package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/models/ports"
	pg "db-cleanup/internal/pkg/postgres"
)

const (
	databaseNameQuery = `SELECT current_database()`
	databaseSizeQuery = `SELECT COALESCE(SUM(pg_database_size(datname)), 0)::float8 FROM pg_database`
	lastCleanupQuery  = `
		SELECT MAX(operation_time)
		FROM cleanup_log
		WHERE operation_type = 'CLEANUP' AND status = 'COMPLETED'`
	spaceSavingsQuery = `SELECT db_cleanup_get_space_savings()::float8`
)

type infoRepository struct {
	session *pg.Session
	logger  *zap.Logger
}

// NewInfoRepository создает репозиторий сводной информации
func NewInfoRepository(session *pg.Session, logger *zap.Logger) ports.InfoRepository {
	return &infoRepository{
		session: session,
		logger:  logger,
	}
}

// DatabaseInfo собирает сводку. Ошибки отдельных запросов не фатальны:
// таблицы журнала и функции подсчета может не быть.
func (r *infoRepository) DatabaseInfo(ctx context.Context) (entities.DatabaseInfo, error) {
	var info entities.DatabaseInfo

	err := r.session.With(ctx, func(db *sqlx.DB) error {
		if err := db.GetContext(ctx, &info.Name, databaseNameQuery); err != nil {
			r.soft("database name", err)
		}

		if err := db.GetContext(ctx, &info.SizeBytes, databaseSizeQuery); err != nil {
			r.soft("database size", err)
		}

		var lastCleanup sql.NullTime
		if err := db.GetContext(ctx, &lastCleanup, lastCleanupQuery); err != nil {
			r.soft("last cleanup", err)
		} else if lastCleanup.Valid {
			info.LastCleanup = &lastCleanup.Time
		}

		var saved sql.NullFloat64
		if err := db.GetContext(ctx, &saved, spaceSavingsQuery); err != nil {
			r.soft("space savings", err)
		} else if saved.Valid {
			info.SpaceSavedBytes = saved.Float64
		}

		return nil
	})

	// Отсутствие сессии остается жесткой ошибкой
	return info, err
}

func (r *infoRepository) soft(what string, err error) {
	r.logger.Debug("Informational query failed, using placeholder",
		zap.String("query", what),
		zap.Error(err))
}
