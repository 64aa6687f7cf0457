package ports

import (
	"context"

	"db-cleanup/internal/models/entities"
)

// Асинхронные операции возвращают идентификатор задачи сразу после
// отправки; результат доступен через TaskUseCase.

// SessionUseCase управляет общей сессией с базой данных
type SessionUseCase interface {
	// Connect открывает сессию и загружает сводку, параметры и кандидатов
	Connect(ctx context.Context, req entities.ConnectRequest) (string, error)

	// Disconnect закрывает сессию и сбрасывает снимки
	Disconnect(ctx context.Context) error
}

// DashboardUseCase возвращает сводную информацию о базе данных
type DashboardUseCase interface {
	Info(ctx context.Context) (entities.DatabaseInfo, error)
	Refresh(ctx context.Context) (string, error)
}

// CandidateUseCase управляет жизненным циклом кандидатов
type CandidateUseCase interface {
	// List возвращает текущий снимок кандидатов
	List(ctx context.Context) ([]entities.Candidate, error)

	// Refresh перечитывает кандидатов из базы данных
	Refresh(ctx context.Context) (string, error)

	// Approve одобряет выбранных кандидатов в статусе PENDING
	Approve(ctx context.Context, req entities.ApprovalRequest) (string, error)

	// Reject отклоняет выбранных кандидатов в статусе PENDING
	Reject(ctx context.Context, req entities.ApprovalRequest) (string, error)
}

// ConfigUseCase управляет параметрами очистки
type ConfigUseCase interface {
	List(ctx context.Context) ([]entities.ConfigEntry, error)
	Refresh(ctx context.Context) (string, error)

	// Save сохраняет весь снимок с примененными изменениями одной транзакцией
	Save(ctx context.Context, req entities.ConfigUpdateRequest) (string, error)
}

// AnalysisUseCase запускает внешний анализ
type AnalysisUseCase interface {
	Run(ctx context.Context, req entities.AnalysisRequest) (string, error)
}

// CleanupUseCase запускает удаление одобренных кандидатов
type CleanupUseCase interface {
	ExecuteApproved(ctx context.Context) (string, error)
}

// ReportUseCase генерирует отчет об очистке
type ReportUseCase interface {
	Generate(ctx context.Context, req entities.ReportRequest) (string, error)
}

// TaskUseCase возвращает статус асинхронных задач
type TaskUseCase interface {
	// GetTaskStatus возвращает статус задачи по идентификатору
	GetTaskStatus(ctx context.Context, taskID string) (*entities.TaskResult, error)
}
