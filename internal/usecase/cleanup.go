package usecase

import (
	"context"

	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/models/ports"
)

// CleanupExecutor запускает необратимое удаление всех одобренных кандидатов
type CleanupExecutor struct {
	repo       ports.CandidateRepository
	session    ports.Session
	candidates *CandidateStore
	dashboard  *Dashboard
	runner     *Runner
	logger     *zap.Logger
}

// NewCleanupExecutor создает исполнитель очистки
func NewCleanupExecutor(repo ports.CandidateRepository, session ports.Session, candidates *CandidateStore, dashboard *Dashboard, runner *Runner, logger *zap.Logger) *CleanupExecutor {
	return &CleanupExecutor{
		repo:       repo,
		session:    session,
		candidates: candidates,
		dashboard:  dashboard,
		runner:     runner,
		logger:     logger,
	}
}

type executeResult struct {
	Remaining int `json:"remaining_candidates"`

	list   []entities.Candidate
	listOK bool
	info   entities.DatabaseInfo
	infoOK bool
}

// ExecuteApproved вызывает процедуру массового удаления без параметров.
// Снимки перечитываются при любом исходе: часть объектов могла быть удалена.
func (e *CleanupExecutor) ExecuteApproved(ctx context.Context) (string, error) {
	if !e.session.Connected() {
		return "", entities.ErrNotConnected
	}

	e.logger.Warn("Executing approved cleanup")

	guard := guardOf(e.session)
	h, err := Submit(e.runner, entities.CommandExecute,
		func(ctx context.Context) (*executeResult, error) {
			guard.begin()
			execErr := e.repo.ExecuteApproved(ctx)

			res := &executeResult{}
			res.list, res.listOK = e.candidates.reload(ctx)
			res.info, res.infoOK = e.dashboard.reload(ctx)
			res.Remaining = len(res.list)
			return res, execErr
		},
		func(res *executeResult, err error) {
			if res == nil || !guard.current(e.logger, entities.CommandExecute) {
				return
			}
			if res.listOK {
				e.candidates.replace(res.list)
			}
			if res.infoOK {
				e.dashboard.replace(res.info)
			}
		})
	if err != nil {
		return "", err
	}
	return h.ID, nil
}
