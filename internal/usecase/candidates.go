package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/models/ports"
)

// CandidateStore хранит снимок кандидатов и проверяет переходы статусов
// до обращения к базе данных. Снимок меняется только на координаторе.
type CandidateStore struct {
	repo    ports.CandidateRepository
	session ports.Session
	runner  *Runner
	coord   *Coordinator
	logger  *zap.Logger

	snapshot []entities.Candidate
}

// NewCandidateStore создает хранилище кандидатов с пустым снимком
func NewCandidateStore(repo ports.CandidateRepository, session ports.Session, runner *Runner, coord *Coordinator, logger *zap.Logger) *CandidateStore {
	return &CandidateStore{
		repo:    repo,
		session: session,
		runner:  runner,
		coord:   coord,
		logger:  logger,
	}
}

// transitionResult итог одобрения/отклонения вместе с перечитанным списком
type transitionResult struct {
	entities.Outcome
	candidates []entities.Candidate
	refreshed  bool
}

// List возвращает копию текущего снимка
func (s *CandidateStore) List(ctx context.Context) ([]entities.Candidate, error) {
	var out []entities.Candidate
	err := s.coord.Do(ctx, func() {
		out = append([]entities.Candidate(nil), s.snapshot...)
	})
	return out, err
}

// Refresh перечитывает кандидатов и целиком заменяет снимок
func (s *CandidateStore) Refresh(ctx context.Context) (string, error) {
	if !s.session.Connected() {
		return "", entities.ErrNotConnected
	}

	guard := guardOf(s.session)
	h, err := Submit(s.runner, entities.CommandRefreshCandidates,
		func(ctx context.Context) ([]entities.Candidate, error) {
			guard.begin()
			return s.repo.ListActive(ctx)
		},
		func(list []entities.Candidate, err error) {
			if err == nil && guard.current(s.logger, entities.CommandRefreshCandidates) {
				s.replace(list)
			}
		})
	if err != nil {
		return "", err
	}
	return h.ID, nil
}

// Approve одобряет выбранных кандидатов, находящихся в статусе PENDING
func (s *CandidateStore) Approve(ctx context.Context, req entities.ApprovalRequest) (string, error) {
	return s.transition(ctx, entities.CommandApprove, req, s.repo.Approve)
}

// Reject отклоняет выбранных кандидатов, находящихся в статусе PENDING
func (s *CandidateStore) Reject(ctx context.Context, req entities.ApprovalRequest) (string, error) {
	return s.transition(ctx, entities.CommandReject, req, s.repo.Reject)
}

func (s *CandidateStore) transition(
	ctx context.Context,
	cmd entities.Command,
	req entities.ApprovalRequest,
	apply func(ctx context.Context, ids []int64) error,
) (string, error) {
	if !s.session.Connected() {
		return "", entities.ErrNotConnected
	}

	if err := req.Validate(); err != nil {
		return "", err
	}

	ids, err := s.pendingIDs(ctx, req.CandidateIDs)
	if err != nil {
		return "", err
	}

	// Ничего из выбранного не ждет решения
	if len(ids) == 0 {
		s.logger.Info("No pending candidates in selection",
			zap.String("command", string(cmd)),
			zap.Int64s("requested", req.CandidateIDs))
		return "", entities.ErrNothingToDo
	}

	s.logger.Info("Submitting candidate transition",
		zap.String("command", string(cmd)),
		zap.Int64s("candidate_ids", ids))

	guard := guardOf(s.session)
	h, err := Submit(s.runner, cmd,
		func(ctx context.Context) (*transitionResult, error) {
			guard.begin()
			if err := apply(ctx, ids); err != nil {
				return nil, err
			}

			res := &transitionResult{Outcome: entities.Outcome{
				Processed: len(ids),
				Message:   fmt.Sprintf("%s: %d candidate(s) processed", cmd, len(ids)),
			}}
			res.candidates, res.refreshed = s.reload(ctx)
			return res, nil
		},
		func(res *transitionResult, err error) {
			if err == nil && res.refreshed && guard.current(s.logger, cmd) {
				s.replace(res.candidates)
			}
		})
	if err != nil {
		return "", err
	}
	return h.ID, nil
}

// pendingIDs оставляет только идентификаторы, которые в снимке имеют
// статус PENDING. Порядок сохраняется, повторы отбрасываются.
func (s *CandidateStore) pendingIDs(ctx context.Context, requested []int64) ([]int64, error) {
	var ids []int64
	err := s.coord.Do(ctx, func() {
		status := make(map[int64]entities.CandidateStatus, len(s.snapshot))
		for _, c := range s.snapshot {
			status[c.ID] = c.Status
		}

		seen := make(map[int64]bool, len(requested))
		for _, id := range requested {
			if seen[id] || status[id] != entities.StatusPending {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	})
	return ids, err
}

// reload читает кандидатов внутри уже выполняемой задачи. Ошибка чтения
// не отменяет успешную мутацию и только логируется.
func (s *CandidateStore) reload(ctx context.Context) ([]entities.Candidate, bool) {
	list, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Warn("Failed to refresh candidates after mutation", zap.Error(err))
		return nil, false
	}
	return list, true
}

// replace вызывается только на координаторе
func (s *CandidateStore) replace(list []entities.Candidate) {
	s.snapshot = list
}
