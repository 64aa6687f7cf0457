package entities

import (
	"errors"
	"time"
)

// CandidateStatus описывает этап жизненного цикла кандидата на удаление
type CandidateStatus string

const (
	StatusPending  CandidateStatus = "PENDING"
	StatusApproved CandidateStatus = "APPROVED"
	StatusRejected CandidateStatus = "REJECTED"
	StatusExecuted CandidateStatus = "EXECUTED"
)

// Terminal сообщает, что из этого статуса переходов больше нет
func (s CandidateStatus) Terminal() bool {
	return s == StatusRejected || s == StatusExecuted
}

// Candidate представляет объект базы данных, предложенный к удалению
type Candidate struct {
	ID             int64           `json:"id" db:"candidate_id"`
	ObjectType     string          `json:"object_type" db:"object_type"`
	Owner          string          `json:"owner" db:"object_owner"`
	Name           string          `json:"name" db:"object_name"`
	Reason         string          `json:"reason" db:"reason"`
	IdentifiedTime time.Time       `json:"identified_time" db:"identified_time"`
	Status         CandidateStatus `json:"status" db:"status"`
}

// ConfigEntry представляет именованный параметр очистки
type ConfigEntry struct {
	Name        string `json:"name" db:"config_name"`
	Value       string `json:"value" db:"config_value"`
	Description string `json:"description" db:"description"`
}

// DatabaseInfo содержит сводную информацию для панели мониторинга.
// Нулевые значения означают "неизвестно".
type DatabaseInfo struct {
	Name            string     `json:"name"`
	SizeBytes       float64    `json:"size_bytes"`
	LastCleanup     *time.Time `json:"last_cleanup,omitempty"`
	SpaceSavedBytes float64    `json:"space_saved_bytes"`
}

// Report содержит строки, вычитанные из серверного буфера вывода
type Report struct {
	DaysBack  int      `json:"days_back"`
	Lines     []string `json:"lines"`
	Truncated bool     `json:"truncated,omitempty"`
}

// ApprovalRequest содержит идентификаторы, выбранные пользователем
type ApprovalRequest struct {
	CandidateIDs []int64 `json:"candidate_ids"`
}

// Validate проверяет корректность запроса
func (r *ApprovalRequest) Validate() error {
	if len(r.CandidateIDs) == 0 {
		return ErrEmptySelection
	}
	return nil
}

// AnalysisRequest параметры запуска анализа
type AnalysisRequest struct {
	AutoApprove bool `json:"auto_approve"`
}

// ReportRequest параметры генерации отчета
type ReportRequest struct {
	DaysBack int `json:"days_back"`
}

// Validate проверяет корректность запроса
func (r *ReportRequest) Validate() error {
	if r.DaysBack < MinDaysBack || r.DaysBack > MaxDaysBack {
		return ErrInvalidDaysBack
	}
	return nil
}

const (
	MinDaysBack = 1
	MaxDaysBack = 365
)

// ConfigUpdateRequest содержит новые значения параметров по имени
type ConfigUpdateRequest struct {
	Values map[string]string `json:"values"`
}

// ConnectRequest учетные данные для открытия сессии
type ConnectRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// Validate проверяет корректность запроса
func (r *ConnectRequest) Validate() error {
	if r.User == "" || r.Password == "" {
		return ErrEmptyCredentials
	}
	return nil
}

// Command идентифицирует логическую операцию. Одновременно выполняется
// не более одной задачи на команду.
type Command string

const (
	CommandConnect           Command = "connect"
	CommandDashboard         Command = "dashboard"
	CommandRefreshCandidates Command = "refresh-candidates"
	CommandApprove           Command = "approve"
	CommandReject            Command = "reject"
	CommandExecute           Command = "execute"
	CommandAnalysis          Command = "analysis"
	CommandRefreshConfig     Command = "refresh-config"
	CommandSaveConfig        Command = "save-config"
	CommandReport            Command = "report"
)

// TaskStatus состояние асинхронной задачи
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// TaskResult представляет результат асинхронной операции
type TaskResult struct {
	TaskID       string        `json:"task_id"`
	Command      Command       `json:"command"`
	Status       TaskStatus    `json:"status"`
	Result       interface{}   `json:"result,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	ElapsedTime  time.Duration `json:"elapsed_time"`
}

// Outcome итог мутирующей операции над кандидатами
type Outcome struct {
	Processed int    `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// Domain errors
var (
	ErrEmptySelection   = NewDomainError("no candidates selected")
	ErrInvalidDaysBack  = NewDomainError("days back must be between 1 and 365")
	ErrEmptyCredentials = NewDomainError("user and password are required")
	ErrUnknownConfig    = NewDomainError("unknown config entry")
)

// Ошибки оркестрации
var (
	ErrNotConnected = errors.New("not connected to database")
	ErrBusy         = errors.New("operation already in progress")
	ErrNothingToDo  = errors.New("nothing to do")
)

// DomainError представляет ошибку предметной области
type DomainError struct {
	Message string
}

func (e DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) DomainError {
	return DomainError{Message: message}
}
