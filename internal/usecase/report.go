package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/models/ports"
)

// ReportStreamer генерирует отчет через отдельную сессию
type ReportStreamer struct {
	repo    ports.ReportRepository
	session ports.Session
	runner  *Runner
	timeout time.Duration
	logger  *zap.Logger
}

// NewReportStreamer создает генератор отчетов. timeout ограничивает весь
// цикл чтения буфера: сервер может так и не сообщить, что буфер пуст.
func NewReportStreamer(repo ports.ReportRepository, session ports.Session, runner *Runner, timeout time.Duration, logger *zap.Logger) *ReportStreamer {
	return &ReportStreamer{
		repo:    repo,
		session: session,
		runner:  runner,
		timeout: timeout,
		logger:  logger,
	}
}

// Generate запускает генерацию отчета за последние req.DaysBack дней
func (r *ReportStreamer) Generate(ctx context.Context, req entities.ReportRequest) (string, error) {
	if !r.session.Connected() {
		return "", entities.ErrNotConnected
	}

	if err := req.Validate(); err != nil {
		return "", err
	}

	daysBack := req.DaysBack
	h, err := Submit(r.runner, entities.CommandReport,
		func(ctx context.Context) (*entities.Report, error) {
			ctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			return r.repo.GenerateReport(ctx, daysBack)
		},
		func(report *entities.Report, err error) {
			if err == nil {
				r.logger.Info("Report generated",
					zap.Int("days_back", daysBack),
					zap.Int("lines", len(report.Lines)),
					zap.Bool("truncated", report.Truncated))
			}
		})
	if err != nil {
		return "", err
	}
	return h.ID, nil
}
