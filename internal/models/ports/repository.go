package ports

import (
	"context"

	"db-cleanup/internal/models/entities"
)

// CandidateRepository определяет доступ к кандидатам и внешним процедурам очистки
type CandidateRepository interface {
	// ListActive возвращает кандидатов в статусах PENDING и APPROVED
	ListActive(ctx context.Context) ([]entities.Candidate, error)

	// Approve вызывает внешнюю процедуру одобрения для каждого идентификатора
	Approve(ctx context.Context, ids []int64) error

	// Reject вызывает внешнюю процедуру отклонения для каждого идентификатора
	Reject(ctx context.Context, ids []int64) error

	// ExecuteApproved запускает массовое удаление одобренных кандидатов
	ExecuteApproved(ctx context.Context) error

	// RunAnalysis запускает внешний анализ
	RunAnalysis(ctx context.Context, autoApprove bool) error
}

// ConfigRepository определяет доступ к параметрам очистки
type ConfigRepository interface {
	// List возвращает все параметры в стабильном порядке
	List(ctx context.Context) ([]entities.ConfigEntry, error)

	// SaveAll атомарно обновляет все параметры от имени actor
	SaveAll(ctx context.Context, entries []entities.ConfigEntry, actor string) error
}

// InfoRepository возвращает справочную информацию о базе данных
type InfoRepository interface {
	// DatabaseInfo никогда не возвращает ошибку из-за отсутствующих объектов
	DatabaseInfo(ctx context.Context) (entities.DatabaseInfo, error)
}

// ReportRepository вычитывает отчет через изолированную сессию
type ReportRepository interface {
	GenerateReport(ctx context.Context, daysBack int) (*entities.Report, error)
}

// Session определяет общую сессию с базой данных
type Session interface {
	Connect(ctx context.Context, user, password string) error
	Disconnect(ctx context.Context) error
	Connected() bool
	User() string
	Generation() uint64
}
