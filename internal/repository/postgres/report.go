package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/models/ports"
	"db-cleanup/internal/pkg/metrics"
	pg "db-cleanup/internal/pkg/postgres"
)

const (
	enableOutputCall = `CALL cleanup_output_enable()`
	showReportCall   = `CALL show_cleanup_report($1)`
	getLineQuery     = `SELECT line, status FROM cleanup_output_get_line()`

	// lineAvailable статус строки в буфере; любой другой означает конец
	lineAvailable = 0
)

type reportRepository struct {
	session  *pg.Session
	maxLines int
	logger   *zap.Logger
}

// NewReportRepository создает репозиторий отчетов. Отчет читается через
// отдельную сессию, не занимая общую.
func NewReportRepository(session *pg.Session, maxLines int, logger *zap.Logger) ports.ReportRepository {
	return &reportRepository{
		session:  session,
		maxLines: maxLines,
		logger:   logger,
	}
}

type outputLine struct {
	Line   sql.NullString `db:"line"`
	Status int            `db:"status"`
}

// GenerateReport включает буфер вывода, вызывает процедуру отчета и
// вычитывает буфер построчно, пока сервер не сообщит, что он пуст.
func (r *reportRepository) GenerateReport(ctx context.Context, daysBack int) (*entities.Report, error) {
	db, err := r.session.OpenIsolated(ctx)
	if err != nil {
		return nil, err
	}
	// Сессия закрывается до того, как результат уйдет вызывающему
	defer pg.CloseDB(db, r.logger)

	if _, err := db.ExecContext(ctx, enableOutputCall); err != nil {
		return nil, fmt.Errorf("enable output buffer: %w", err)
	}

	if _, err := db.ExecContext(ctx, showReportCall, daysBack); err != nil {
		return nil, fmt.Errorf("show cleanup report: %w", err)
	}

	report := &entities.Report{DaysBack: daysBack, Lines: []string{}}
	if err := r.drain(ctx, db, report); err != nil {
		return nil, err
	}

	return report, nil
}

func (r *reportRepository) drain(ctx context.Context, db *sqlx.DB, report *entities.Report) error {
	for {
		if len(report.Lines) >= r.maxLines {
			report.Truncated = true
			metrics.ReportTruncations.Inc()
			r.logger.Warn("Report reached line ceiling, stopping drain",
				zap.Int("max_lines", r.maxLines),
				zap.Int("days_back", report.DaysBack))
			return nil
		}

		var out outputLine
		if err := db.GetContext(ctx, &out, getLineQuery); err != nil {
			return fmt.Errorf("read output line: %w", err)
		}

		if out.Status != lineAvailable {
			return nil
		}

		if out.Line.Valid {
			report.Lines = append(report.Lines, out.Line.String)
			metrics.ReportLines.Inc()
		}
	}
}
