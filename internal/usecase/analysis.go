package usecase

import (
	"context"

	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/models/ports"
)

// AnalysisOrchestrator запускает внешний поиск кандидатов на удаление
type AnalysisOrchestrator struct {
	repo       ports.CandidateRepository
	session    ports.Session
	candidates *CandidateStore
	dashboard  *Dashboard
	runner     *Runner
	logger     *zap.Logger
}

// NewAnalysisOrchestrator создает оркестратор анализа
func NewAnalysisOrchestrator(repo ports.CandidateRepository, session ports.Session, candidates *CandidateStore, dashboard *Dashboard, runner *Runner, logger *zap.Logger) *AnalysisOrchestrator {
	return &AnalysisOrchestrator{
		repo:       repo,
		session:    session,
		candidates: candidates,
		dashboard:  dashboard,
		runner:     runner,
		logger:     logger,
	}
}

// AnalysisResult итог анализа. Какие кандидаты созданы, анализ не сообщает:
// их видно в перечитанном списке.
type AnalysisResult struct {
	AutoApprove bool `json:"auto_approve"`
	Candidates  int  `json:"candidates"`

	list   []entities.Candidate
	listOK bool
	info   entities.DatabaseInfo
	infoOK bool
}

// Run запускает анализ. Флаг AutoApprove передается процедуре как есть.
func (a *AnalysisOrchestrator) Run(ctx context.Context, req entities.AnalysisRequest) (string, error) {
	if !a.session.Connected() {
		return "", entities.ErrNotConnected
	}

	autoApprove := req.AutoApprove
	a.logger.Info("Starting analysis", zap.Bool("auto_approve", autoApprove))

	guard := guardOf(a.session)
	h, err := Submit(a.runner, entities.CommandAnalysis,
		func(ctx context.Context) (*AnalysisResult, error) {
			guard.begin()
			if err := a.repo.RunAnalysis(ctx, autoApprove); err != nil {
				return nil, err
			}

			res := &AnalysisResult{AutoApprove: autoApprove}
			res.list, res.listOK = a.candidates.reload(ctx)
			res.info, res.infoOK = a.dashboard.reload(ctx)
			res.Candidates = len(res.list)
			return res, nil
		},
		func(res *AnalysisResult, err error) {
			if err != nil || !guard.current(a.logger, entities.CommandAnalysis) {
				return
			}
			if res.listOK {
				a.candidates.replace(res.list)
			}
			if res.infoOK {
				a.dashboard.replace(res.info)
			}
		})
	if err != nil {
		return "", err
	}
	return h.ID, nil
}
