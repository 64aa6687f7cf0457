package postgres

import (
	"context"

	_ "github.com/jackc/pgx/v4/stdlib" // Драйвер PostgreSQL
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"db-cleanup/internal/pkg/config"
)

// Dialer открывает новую сессию с базой данных от имени пользователя
type Dialer func(ctx context.Context, user, password string) (*sqlx.DB, error)

// NewDialer создает Dialer, подключающийся к PostgreSQL по настройкам cfg
func NewDialer(cfg *config.Config, logger *zap.Logger) Dialer {
	return func(ctx context.Context, user, password string) (*sqlx.DB, error) {
		// Создаем подключение
		db, err := sqlx.ConnectContext(ctx, "pgx", cfg.GetDBConnString(user, password))
		if err != nil {
			return nil, err
		}

		// Одна сессия на пул: буфер вывода и транзакции привязаны к соединению
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

		// Проверяем соединение
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}

		logger.Info("Connected to PostgreSQL",
			zap.String("host", cfg.DBHost),
			zap.Int("port", cfg.DBPort),
			zap.String("database", cfg.DBName),
			zap.String("user", user))

		return db, nil
	}
}

// CloseDB закрывает соединение с базой данных
func CloseDB(db *sqlx.DB, logger *zap.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("Error closing database connection", zap.Error(err))
	} else {
		logger.Info("Database connection closed")
	}
}
