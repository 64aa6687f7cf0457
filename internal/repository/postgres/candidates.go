package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/models/ports"
	pg "db-cleanup/internal/pkg/postgres"
)

const (
	listActiveCandidatesQuery = `
		SELECT candidate_id, object_type, object_owner, object_name,
		       reason, identified_time, status
		FROM cleanup_candidates
		WHERE status IN ('PENDING', 'APPROVED')
		ORDER BY priority, identified_time`

	approveCandidateCall = `CALL approve_cleanup_candidate($1)`
	rejectCandidateCall  = `CALL reject_cleanup_candidate($1)`
	executeApprovedCall  = `CALL execute_approved_cleanup()`
	runAnalysisCall      = `CALL run_db_cleanup($1)`
)

// Имена advisory-блокировок для долгих процедур
const (
	analysisLockName = "run_db_cleanup"
	executeLockName  = "execute_approved_cleanup"
)

type candidateRepository struct {
	session *pg.Session
	logger  *zap.Logger
}

// NewCandidateRepository создает репозиторий кандидатов поверх общей сессии
func NewCandidateRepository(session *pg.Session, logger *zap.Logger) ports.CandidateRepository {
	return &candidateRepository{
		session: session,
		logger:  logger,
	}
}

// ListActive возвращает кандидатов, ожидающих решения или одобренных
func (r *candidateRepository) ListActive(ctx context.Context) ([]entities.Candidate, error) {
	var candidates []entities.Candidate

	err := r.session.With(ctx, func(db *sqlx.DB) error {
		return db.SelectContext(ctx, &candidates, listActiveCandidatesQuery)
	})
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	return candidates, nil
}

// Approve одобряет кандидатов по одному вызову на идентификатор
func (r *candidateRepository) Approve(ctx context.Context, ids []int64) error {
	return r.callEach(ctx, approveCandidateCall, ids)
}

// Reject отклоняет кандидатов по одному вызову на идентификатор
func (r *candidateRepository) Reject(ctx context.Context, ids []int64) error {
	return r.callEach(ctx, rejectCandidateCall, ids)
}

// ExecuteApproved удаляет все одобренные объекты одним вызовом
func (r *candidateRepository) ExecuteApproved(ctx context.Context) error {
	return r.session.With(ctx, func(db *sqlx.DB) error {
		return withAdvisoryLock(ctx, db, executeLockName, r.logger, func() error {
			if _, err := db.ExecContext(ctx, executeApprovedCall); err != nil {
				return fmt.Errorf("execute approved cleanup: %w", err)
			}
			return nil
		})
	})
}

// RunAnalysis запускает поиск кандидатов. Флаг передается как 'Y'/'N'.
func (r *candidateRepository) RunAnalysis(ctx context.Context, autoApprove bool) error {
	flag := "N"
	if autoApprove {
		flag = "Y"
	}

	return r.session.With(ctx, func(db *sqlx.DB) error {
		return withAdvisoryLock(ctx, db, analysisLockName, r.logger, func() error {
			if _, err := db.ExecContext(ctx, runAnalysisCall, flag); err != nil {
				return fmt.Errorf("run analysis: %w", err)
			}
			return nil
		})
	})
}

func (r *candidateRepository) callEach(ctx context.Context, call string, ids []int64) error {
	return r.session.With(ctx, func(db *sqlx.DB) error {
		stmt, err := db.PreparexContext(ctx, call)
		if err != nil {
			return fmt.Errorf("prepare %q: %w", call, err)
		}
		defer stmt.Close()

		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, id); err != nil {
				return fmt.Errorf("candidate %d: %w", id, err)
			}
		}
		return nil
	})
}
