package usecase

import (
	"context"

	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/models/ports"
)

// Dashboard хранит последнюю сводку о базе данных
type Dashboard struct {
	repo    ports.InfoRepository
	session ports.Session
	runner  *Runner
	coord   *Coordinator
	logger  *zap.Logger

	info entities.DatabaseInfo
}

// NewDashboard создает сводку с неизвестными значениями
func NewDashboard(repo ports.InfoRepository, session ports.Session, runner *Runner, coord *Coordinator, logger *zap.Logger) *Dashboard {
	return &Dashboard{
		repo:    repo,
		session: session,
		runner:  runner,
		coord:   coord,
		logger:  logger,
	}
}

// Info возвращает последнюю загруженную сводку
func (d *Dashboard) Info(ctx context.Context) (entities.DatabaseInfo, error) {
	var info entities.DatabaseInfo
	err := d.coord.Do(ctx, func() { info = d.info })
	return info, err
}

// Refresh перечитывает сводку
func (d *Dashboard) Refresh(ctx context.Context) (string, error) {
	if !d.session.Connected() {
		return "", entities.ErrNotConnected
	}

	guard := guardOf(d.session)
	h, err := Submit(d.runner, entities.CommandDashboard,
		func(ctx context.Context) (entities.DatabaseInfo, error) {
			guard.begin()
			return d.repo.DatabaseInfo(ctx)
		},
		func(info entities.DatabaseInfo, err error) {
			if err == nil && guard.current(d.logger, entities.CommandDashboard) {
				d.replace(info)
			}
		})
	if err != nil {
		return "", err
	}
	return h.ID, nil
}

// reload читает сводку внутри выполняемой задачи
func (d *Dashboard) reload(ctx context.Context) (entities.DatabaseInfo, bool) {
	info, err := d.repo.DatabaseInfo(ctx)
	if err != nil {
		d.logger.Warn("Failed to refresh database info", zap.Error(err))
		return info, false
	}
	return info, true
}

// replace вызывается только на координаторе
func (d *Dashboard) replace(info entities.DatabaseInfo) {
	d.info = info
}
