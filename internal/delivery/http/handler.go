package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"db-cleanup/internal/models/entities"
	"db-cleanup/internal/models/ports"
)

// UseCases объединяет операции, доступные через HTTP
type UseCases struct {
	Session    ports.SessionUseCase
	Dashboard  ports.DashboardUseCase
	Candidates ports.CandidateUseCase
	Config     ports.ConfigUseCase
	Analysis   ports.AnalysisUseCase
	Cleanup    ports.CleanupUseCase
	Reports    ports.ReportUseCase
	Tasks      ports.TaskUseCase
}

type Handler struct {
	uc                UseCases
	reportDefaultDays int
	logger            *zap.Logger
}

// NewHandler создает новый обработчик HTTP-запросов
func NewHandler(uc UseCases, reportDefaultDays int, logger *zap.Logger) *Handler {
	return &Handler{
		uc:                uc,
		reportDefaultDays: reportDefaultDays,
		logger:            logger,
	}
}

// RegisterRoutes регистрирует пути API
func (h *Handler) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/session", h.HandleConnect).Methods(http.MethodPost)
	api.HandleFunc("/session", h.HandleDisconnect).Methods(http.MethodDelete)

	api.HandleFunc("/dashboard", h.HandleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/refresh", h.HandleRefreshDashboard).Methods(http.MethodPost)

	api.HandleFunc("/candidates", h.HandleListCandidates).Methods(http.MethodGet)
	api.HandleFunc("/candidates/refresh", h.HandleRefreshCandidates).Methods(http.MethodPost)
	api.HandleFunc("/candidates/approve", h.HandleApprove).Methods(http.MethodPost)
	api.HandleFunc("/candidates/reject", h.HandleReject).Methods(http.MethodPost)

	api.HandleFunc("/cleanup/execute", h.HandleExecute).Methods(http.MethodPost)
	api.HandleFunc("/analysis", h.HandleAnalysis).Methods(http.MethodPost)

	api.HandleFunc("/config", h.HandleListConfig).Methods(http.MethodGet)
	api.HandleFunc("/config", h.HandleSaveConfig).Methods(http.MethodPut)
	api.HandleFunc("/config/refresh", h.HandleRefreshConfig).Methods(http.MethodPost)

	api.HandleFunc("/reports", h.HandleReport).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}", h.HandleGetTaskStatus).Methods(http.MethodGet)
	api.HandleFunc("/health", h.HandleHealthCheck).Methods(http.MethodGet)
}

// HandleConnect открывает сессию с базой данных
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	var req entities.ConnectRequest
	if !h.decode(w, r, &req) {
		return
	}

	taskID, err := h.uc.Session.Connect(r.Context(), req)
	h.respondAccepted(w, taskID, err)
}

// HandleDisconnect закрывает сессию
func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.Session.Disconnect(r.Context()); err != nil {
		h.respondWithUseCaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dashboardResponse struct {
	entities.DatabaseInfo
	Size       string `json:"size"`
	SpaceSaved string `json:"space_saved"`
}

// HandleDashboard возвращает сводку о базе данных
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	info, err := h.uc.Dashboard.Info(r.Context())
	if err != nil {
		h.respondWithUseCaseError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, dashboardResponse{
		DatabaseInfo: info,
		Size:         humanize.Bytes(uint64(info.SizeBytes)),
		SpaceSaved:   humanize.Bytes(uint64(info.SpaceSavedBytes)),
	})
}

// HandleRefreshDashboard перечитывает сводку
func (h *Handler) HandleRefreshDashboard(w http.ResponseWriter, r *http.Request) {
	taskID, err := h.uc.Dashboard.Refresh(r.Context())
	h.respondAccepted(w, taskID, err)
}

// HandleListCandidates возвращает снимок кандидатов
func (h *Handler) HandleListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.uc.Candidates.List(r.Context())
	if err != nil {
		h.respondWithUseCaseError(w, err)
		return
	}
	if candidates == nil {
		candidates = []entities.Candidate{}
	}
	h.respondWithJSON(w, http.StatusOK, candidates)
}

// HandleRefreshCandidates перечитывает кандидатов
func (h *Handler) HandleRefreshCandidates(w http.ResponseWriter, r *http.Request) {
	taskID, err := h.uc.Candidates.Refresh(r.Context())
	h.respondAccepted(w, taskID, err)
}

// HandleApprove одобряет выбранных кандидатов
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	var req entities.ApprovalRequest
	if !h.decode(w, r, &req) {
		return
	}

	taskID, err := h.uc.Candidates.Approve(r.Context(), req)
	h.respondAccepted(w, taskID, err)
}

// HandleReject отклоняет выбранных кандидатов
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var req entities.ApprovalRequest
	if !h.decode(w, r, &req) {
		return
	}

	taskID, err := h.uc.Candidates.Reject(r.Context(), req)
	h.respondAccepted(w, taskID, err)
}

// HandleExecute запускает удаление одобренных кандидатов
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	taskID, err := h.uc.Cleanup.ExecuteApproved(r.Context())
	h.respondAccepted(w, taskID, err)
}

// HandleAnalysis запускает анализ
func (h *Handler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req entities.AnalysisRequest
	// Пустое тело означает анализ без автоодобрения
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	taskID, err := h.uc.Analysis.Run(r.Context(), req)
	h.respondAccepted(w, taskID, err)
}

// HandleListConfig возвращает снимок параметров
func (h *Handler) HandleListConfig(w http.ResponseWriter, r *http.Request) {
	entries, err := h.uc.Config.List(r.Context())
	if err != nil {
		h.respondWithUseCaseError(w, err)
		return
	}
	if entries == nil {
		entries = []entities.ConfigEntry{}
	}
	h.respondWithJSON(w, http.StatusOK, entries)
}

// HandleSaveConfig сохраняет параметры одной транзакцией
func (h *Handler) HandleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req entities.ConfigUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	taskID, err := h.uc.Config.Save(r.Context(), req)
	h.respondAccepted(w, taskID, err)
}

// HandleRefreshConfig перечитывает параметры
func (h *Handler) HandleRefreshConfig(w http.ResponseWriter, r *http.Request) {
	taskID, err := h.uc.Config.Refresh(r.Context())
	h.respondAccepted(w, taskID, err)
}

// HandleReport запускает генерацию отчета
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req entities.ReportRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	// Устанавливаем значения по умолчанию, если необходимо
	if req.DaysBack == 0 {
		req.DaysBack = h.reportDefaultDays
	}

	taskID, err := h.uc.Reports.Generate(r.Context(), req)
	h.respondAccepted(w, taskID, err)
}

// HandleGetTaskStatus возвращает статус асинхронной операции
func (h *Handler) HandleGetTaskStatus(w http.ResponseWriter, r *http.Request) {
	// Извлекаем ID задачи из URL
	taskID := mux.Vars(r)["taskID"]

	result, err := h.uc.Tasks.GetTaskStatus(r.Context(), taskID)
	if err != nil {
		h.respondWithError(w, http.StatusNotFound, "Task not found")
		return
	}

	h.respondWithJSON(w, http.StatusOK, result)
}

// HandleHealthCheck проверяет работоспособность сервиса
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// Вспомогательные функции для ответов

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request format")
		return false
	}
	return true
}

func (h *Handler) respondAccepted(w http.ResponseWriter, taskID string, err error) {
	if err != nil {
		h.respondWithUseCaseError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusAccepted, map[string]string{
		"task_id":    taskID,
		"status":     string(entities.TaskPending),
		"status_url": "/api/v1/tasks/" + taskID,
	})
}

// respondWithUseCaseError сопоставляет ошибки оркестрации с HTTP-статусами
func (h *Handler) respondWithUseCaseError(w http.ResponseWriter, err error) {
	var domainErr entities.DomainError

	switch {
	case errors.As(err, &domainErr):
		h.respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrNothingToDo):
		h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "nothing_to_do"})
	case errors.Is(err, entities.ErrNotConnected):
		h.respondWithError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, entities.ErrBusy):
		h.respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.respondWithError(w, http.StatusServiceUnavailable, "Request canceled")
	default:
		h.logger.Error("Use case error", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	// Устанавливаем заголовок Content-Type
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	// Кодируем ответ в JSON
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Error encoding response", zap.Error(err))
	}
}
